package sessionhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/inkwell-ai/inkwell/session"
)

// TransitionsSinceGetter fetches session transitions after a given sequence.
type TransitionsSinceGetter func(ctx context.Context, sessionID string, since int64) ([]*session.Transition, error)

// StreamTransitions streams a session's progress transitions over SSE.
// - Respects Last-Event-ID for resume (pass empty string if none)
// - Sends heartbeat comments ": ping" at the provided heartbeat interval (default 15s)
// - Polls for new transitions at pollInterval (default 500ms)
// - Emits "event: done" and closes once a terminal transition is delivered
func StreamTransitions(
	ctx context.Context,
	w http.ResponseWriter,
	lastEventID string,
	getSince TransitionsSinceGetter,
	sessionID string,
	pollInterval time.Duration,
	heartbeatInterval time.Duration,
) error {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("stream unsupported")
	}

	// Parse Last-Event-ID if provided
	var since int64 = 0
	if lastEventID != "" {
		if v, err := strconv.ParseInt(lastEventID, 10, 64); err == nil {
			since = v
		}
	}

	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	if heartbeatInterval <= 0 {
		heartbeatInterval = 15 * time.Second
	}
	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			trs, err := getSince(ctx, sessionID, since)
			if err != nil {
				continue
			}
			for _, tr := range trs {
				payload, err := json.Marshal(tr)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "id: %d\n", tr.Seq)
				fmt.Fprintf(w, "event: progress\n")
				fmt.Fprintf(w, "data: %s\n\n", payload)
				since = tr.Seq
				if tr.Complete {
					fmt.Fprintf(w, "event: done\ndata: {}\n\n")
					flusher.Flush()
					return nil
				}
			}
			flusher.Flush()
		case <-hb.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
