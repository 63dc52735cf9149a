package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stream writes every value received on src as a server-sent event until src
// is closed or ctx is done. The server's write deadline is lifted for the
// connection; wrappers around w must expose Unwrap for that to reach it.
func Stream[T any](ctx context.Context, w http.ResponseWriter, event string, src <-chan T) error {
	rc := http.NewResponseController(w)

	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("cannot clear write deadline: %w", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return fmt.Errorf("response writer does not support flushing: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-src:
			if !ok {
				return nil
			}

			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("cannot marshal event: %w", err)
			}

			// The status line is already out; a failed write means the
			// client went away.
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
				return nil
			}
			if err := rc.Flush(); err != nil {
				return nil
			}
		}
	}
}
