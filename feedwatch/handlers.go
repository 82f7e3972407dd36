package feedwatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/feedsift/feedsift/connectivity"
	"github.com/feedsift/feedsift/store"
)

// toggleMessage is the tagged payload for the set* actions.
type toggleMessage struct {
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
}

type successReply struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed,omitempty"`
}

// RegisterHandlers exposes the watcher's runtime controls as services on
// the router. The action side (ping, unfollow, logDebug) registers its
// own handlers separately.
func (w *Watcher) RegisterHandlers(r *connectivity.Router) {
	r.RegisterLocal("analyzeNow", w.handleAnalyzeNow)
	r.RegisterLocal("setDebugMode", w.toggleHandler(store.KeyDebugMode))
	r.RegisterLocal("setDetectionEnabled", w.toggleHandler(store.KeyEnableDetection))
	r.RegisterLocal("setAutoUnfollow", w.toggleHandler(store.KeyAutoUnfollow))
}

func (w *Watcher) handleAnalyzeNow(ctx context.Context, payload []byte) ([]byte, error) {
	n, err := w.Analyze(ctx)
	if err != nil {
		return nil, fmt.Errorf("feedwatch: analyze: %w", err)
	}
	return json.Marshal(successReply{Success: true, Processed: n})
}

func (w *Watcher) toggleHandler(key string) connectivity.Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var msg toggleMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("feedwatch: parse toggle: %w", err)
		}
		if err := w.stats.SetBool(ctx, key, msg.Enabled); err != nil {
			return nil, fmt.Errorf("feedwatch: set %s: %w", key, err)
		}
		w.logger.InfoContext(ctx, "toggle updated", "key", key, "enabled", msg.Enabled)
		return json.Marshal(successReply{Success: true})
	}
}
