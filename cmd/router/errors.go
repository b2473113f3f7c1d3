package main

import (
	"errors"
	"net/http"

	"github.com/compresr/ai-request-router/internal/routererr"
)

// statusForError maps the closed routererr taxonomy onto HTTP status
// codes. Anything that doesn't unwrap to a *RouterError falls back to
// 500, since it's an error this process didn't anticipate.
func statusForError(err error) int {
	var re *routererr.RouterError
	if !errors.As(err, &re) {
		return http.StatusInternalServerError
	}

	switch re.Kind {
	case routererr.KindInvalidRequest:
		return http.StatusBadRequest
	case routererr.KindRejected, routererr.KindUpstream4xx:
		return http.StatusBadRequest
	case routererr.KindEndpointOpen, routererr.KindCapacity:
		return http.StatusServiceUnavailable
	case routererr.KindTimeout:
		return http.StatusGatewayTimeout
	case routererr.KindUpstream5xx, routererr.KindNetwork:
		return http.StatusBadGateway
	case routererr.KindCancelled:
		return 499 // client closed request, nginx convention
	case routererr.KindConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
