package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// knownActions are the tagged message actions the channel will route.
// Each action maps 1:1 to a service name on the router; unknown actions
// are swallowed with a warning so a stale counterpart never crashes the
// pipeline.
var knownActions = map[string]bool{
	"ping":                true,
	"unfollow":            true,
	"logDebug":            true,
	"analyzeNow":          true,
	"setDebugMode":        true,
	"setDetectionEnabled": true,
	"setAutoUnfollow":     true,
	"showDebugConsole":    true,
}

// Channel is a tagged-message dispatch layer over a Router. Messages
// carry a JSON "action" field that selects the target service; the
// whole payload is forwarded so handlers see the original message.
//
// A Channel must be connected (one successful ping handshake) before
// Send accepts traffic.
type Channel struct {
	router         *Router
	logger         *slog.Logger
	reconnectDelay time.Duration
	connected      atomic.Bool
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithChannelLogger sets the channel's logger.
func WithChannelLogger(l *slog.Logger) ChannelOption {
	return func(c *Channel) { c.logger = l }
}

// WithReconnectDelay sets the wait before the single handshake retry.
func WithReconnectDelay(d time.Duration) ChannelOption {
	return func(c *Channel) { c.reconnectDelay = d }
}

// NewChannel creates a Channel over the given router.
func NewChannel(router *Router, opts ...ChannelOption) *Channel {
	c := &Channel{
		router:         router,
		logger:         slog.Default(),
		reconnectDelay: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect performs the ping handshake. On failure it waits the
// reconnect delay and retries exactly once; a second failure is
// returned to the caller.
func (c *Channel) Connect(ctx context.Context) error {
	err := c.ping(ctx)
	if err == nil {
		c.connected.Store(true)
		return nil
	}

	c.logger.WarnContext(ctx, "handshake failed, retrying once",
		"delay", c.reconnectDelay, "error", err)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	if err := c.ping(ctx); err != nil {
		return fmt.Errorf("connectivity: handshake: %w", err)
	}
	c.connected.Store(true)
	return nil
}

// Connected reports whether the handshake has completed.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

func (c *Channel) ping(ctx context.Context) error {
	_, err := c.router.Call(ctx, "ping", []byte(`{"action":"ping"}`))
	return err
}

// taggedMessage is the envelope Send parses to pick a service.
type taggedMessage struct {
	Action string `json:"action"`
}

// unknownActionReply is returned for unrecognized actions. Success is
// true so an outdated sender keeps working; the warning flags the drop.
type unknownActionReply struct {
	Success bool   `json:"success"`
	Warning string `json:"warning"`
}

// Send routes a tagged message to the service named by its action field
// and returns the handler's reply. Unknown actions are not an error:
// they produce a success reply with a warning and a log line.
func (c *Channel) Send(ctx context.Context, payload []byte) ([]byte, error) {
	if !c.connected.Load() {
		return nil, &ErrNotConnected{}
	}

	var msg taggedMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("connectivity: parse message: %w", err)
	}
	if msg.Action == "" {
		return nil, fmt.Errorf("connectivity: message missing action field")
	}

	if !knownActions[msg.Action] {
		c.logger.WarnContext(ctx, "unknown action", "action", msg.Action)
		return json.Marshal(unknownActionReply{
			Success: true,
			Warning: "unknown action: " + msg.Action,
		})
	}

	return c.router.Call(ctx, msg.Action, payload)
}
