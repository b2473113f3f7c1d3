package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/compresr/ai-request-router/internal/mcptool"
	"github.com/compresr/ai-request-router/internal/utils"
)

// buildMux wires the five MCP tool contracts, plus the optional
// websocket status stream, onto a plain net/http mux. Each handler is
// a thin JSON-in/JSON-out adapter over the corresponding Service
// method; the tools themselves carry no HTTP-specific logic.
func buildMux(svc *mcptool.Service, streamCtx context.Context) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /tools/query", func(w http.ResponseWriter, r *http.Request) {
		var in mcptool.QueryInput
		if !decodeJSON(w, r, &in) {
			return
		}
		res, err := svc.Query(r.Context(), in)
		writeResult(w, res, err)
	})

	mux.HandleFunc("POST /tools/analyze_files", func(w http.ResponseWriter, r *http.Request) {
		var in mcptool.AnalyzeFilesInput
		if !decodeJSON(w, r, &in) {
			return
		}
		res, err := svc.AnalyzeFiles(r.Context(), in)
		writeResult(w, res, err)
	})

	mux.HandleFunc("GET /tools/status", func(w http.ResponseWriter, r *http.Request) {
		topN := 10
		if v := r.URL.Query().Get("top"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				topN = n
			}
		}
		writeResult(w, svc.Status(topN), nil)
	})

	mux.HandleFunc("POST /tools/compare", func(w http.ResponseWriter, r *http.Request) {
		var in mcptool.CompareInput
		if !decodeJSON(w, r, &in) {
			return
		}
		res, err := svc.Compare(r.Context(), in)
		writeResult(w, res, err)
	})

	mux.HandleFunc("POST /tools/diagnose_file_access", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Path string `json:"path"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		writeResult(w, svc.DiagnoseFileAccess(in.Path), nil)
	})

	mux.HandleFunc("GET /ws/status", func(w http.ResponseWriter, r *http.Request) {
		svc.ServeStatusStream(streamCtx, w, r)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		http.Error(w, "missing request body", http.StatusBadRequest)
		return false
	}
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, v any, err error) {
	if err != nil {
		status := statusForError(err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	// Responses routinely carry source code (query responses, file
	// analysis, diffs); json.Encoder would HTML-escape '<'/'>'/'&' in
	// every string field, inflating payloads for no benefit to a non-
	// browser caller.
	body, encErr := utils.MarshalNoEscape(v)
	if encErr != nil {
		log.Error().Err(encErr).Msg("failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
