package mcptool

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"
)

// StatusStreamInterval is how often a subscribed dashboard receives a
// fresh status snapshot over the websocket push variant.
const StatusStreamInterval = 5 * time.Second

// ServeStatusStream upgrades r to a websocket connection and pushes a
// status snapshot on StatusStreamInterval until the connection closes
// or ctx is cancelled, letting a dashboard subscribe instead of
// polling the status tool.
func (s *Service) ServeStatusStream(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("status stream upgrade failed")
		return
	}
	defer conn.CloseNow()

	ticker := time.NewTicker(StatusStreamInterval)
	defer ticker.Stop()

	streamCtx := conn.CloseRead(ctx)

	for {
		select {
		case <-streamCtx.Done():
			return
		case <-ticker.C:
			report := s.Status(defaultTopFailurePatterns)
			if err := wsjson.Write(ctx, conn, report); err != nil {
				return
			}
		}
	}
}
