// Package control is feedsift's operator surface: an HTTP API, a debug
// console, and MCP tools over the same pipeline controls.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// defaultConsoleCapacity bounds the in-memory console ring.
const defaultConsoleCapacity = 1000

// ConsoleEntry is one captured debug event.
type ConsoleEntry struct {
	Timestamp int64           `json:"timestamp"` // epoch milliseconds
	Level     string          `json:"level"`
	Source    string          `json:"source"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Console collects debug events in a bounded ring buffer, optionally
// mirroring each entry as a JSON line to a writer (a log file).
type Console struct {
	mu      sync.Mutex
	entries []ConsoleEntry
	next    int
	full    bool
	mirror  io.Writer
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithConsoleCapacity sets the ring size.
func WithConsoleCapacity(n int) ConsoleOption {
	return func(c *Console) {
		if n > 0 {
			c.entries = make([]ConsoleEntry, n)
		}
	}
}

// WithConsoleMirror mirrors each entry as a JSON line to w.
func WithConsoleMirror(w io.Writer) ConsoleOption {
	return func(c *Console) { c.mirror = w }
}

// NewConsole creates a Console.
func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{entries: make([]ConsoleEntry, defaultConsoleCapacity)}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Append records one debug event at the default "log" level.
func (c *Console) Append(source, message string, data json.RawMessage) {
	c.AppendLevel("log", source, message, data)
}

// AppendLevel records one debug event.
func (c *Console) AppendLevel(level, source, message string, data json.RawMessage) {
	if level == "" {
		level = "log"
	}
	e := ConsoleEntry{
		Timestamp: time.Now().UnixMilli(),
		Level:     level,
		Source:    source,
		Message:   message,
		Data:      data,
	}

	c.mu.Lock()
	c.entries[c.next] = e
	c.next++
	if c.next == len(c.entries) {
		c.next = 0
		c.full = true
	}
	mirror := c.mirror
	c.mu.Unlock()

	if mirror != nil {
		line, err := json.Marshal(e)
		if err == nil {
			mirror.Write(append(line, '\n'))
		}
	}
}

// Entries returns up to limit entries, oldest first. limit <= 0 returns
// everything retained.
func (c *Console) Entries(limit int) []ConsoleEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []ConsoleEntry
	if c.full {
		out = append(out, c.entries[c.next:]...)
		out = append(out, c.entries[:c.next]...)
	} else {
		out = append(out, c.entries[:c.next]...)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len reports how many entries are retained.
func (c *Console) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return len(c.entries)
	}
	return c.next
}

// Clear discards all retained entries.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
	c.full = false
}

// logDebugMessage is the tagged payload of the logDebug action.
type logDebugMessage struct {
	Action  string          `json:"action"`
	Level   string          `json:"level"`
	Source  string          `json:"source"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// HandleLogDebug implements connectivity.Handler for the logDebug action.
func (c *Console) HandleLogDebug(ctx context.Context, payload []byte) ([]byte, error) {
	var msg logDebugMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("control: parse logDebug: %w", err)
	}
	if msg.Source == "" {
		msg.Source = "unknown"
	}
	c.AppendLevel(msg.Level, msg.Source, msg.Message, msg.Data)
	return json.Marshal(map[string]bool{"success": true})
}

// showConsoleMessage is the tagged payload of the showDebugConsole action.
type showConsoleMessage struct {
	Action string `json:"action"`
	Limit  int    `json:"limit"`
}

// HandleShowConsole implements connectivity.Handler for showDebugConsole.
// The reply carries the retained entries, oldest first.
func (c *Console) HandleShowConsole(ctx context.Context, payload []byte) ([]byte, error) {
	var msg showConsoleMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("control: parse showDebugConsole: %w", err)
	}
	return json.Marshal(map[string]any{
		"success": true,
		"entries": c.Entries(msg.Limit),
	})
}
