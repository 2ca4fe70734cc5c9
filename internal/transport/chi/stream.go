package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/usecase/refresh"
)

// Stream event names.
const (
	eventRecommendations = "recommendations"
	eventError           = "error"
)

// StreamRecommendations handles GET /api/v1/{domain}/recommendations/stream.
// It re-runs the query every interval and pushes each result as a
// server-sent event until the client disconnects. Every tick also becomes
// the session's last result.
func (s *Server) StreamRecommendations(w http.ResponseWriter, r *http.Request) {
	k, d, err := domainParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	q, err := s.parseQuery(r, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	interval, err := s.intervalParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	id := s.sessionID(w, r)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log := s.logger.With(zap.String("domain", string(k)), zap.Duration("interval", interval))
	log.Debug("Stream opened")

	runner := refresh.NewRunner()
	err = runner.Run(r.Context(), interval, func(ctx context.Context, tick int) error {
		res, err := s.recommend.Recommend(ctx, k, q)
		if err != nil {
			// Domain may come back after a reload or upload; keep streaming.
			log.Debug("Stream tick failed", zap.Int("tick", tick), zap.Error(err))
			return writeEvent(rc, w, tick, eventError, domainErrorBody(err))
		}
		s.sessions.Put(id, res)
		return writeEvent(rc, w, tick, eventRecommendations, resultToDTO(d, res))
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, refresh.ErrStopped) {
		log.Warn("Stream ended", zap.Error(err))
		return
	}
	log.Debug("Stream closed")
}

func writeEvent(rc *http.ResponseController, w http.ResponseWriter, id int, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	if err := rc.Flush(); err != nil {
		return fmt.Errorf("flush %s event: %w", event, err)
	}
	return nil
}
