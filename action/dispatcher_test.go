package action

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/feedsift/feedsift/feed"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// callerFunc adapts a function to the Caller interface.
type callerFunc func(ctx context.Context, service string, payload []byte) ([]byte, error)

func (f callerFunc) Call(ctx context.Context, service string, payload []byte) ([]byte, error) {
	return f(ctx, service, payload)
}

func refusingCaller(t *testing.T) Caller {
	t.Helper()
	return callerFunc(func(ctx context.Context, service string, payload []byte) ([]byte, error) {
		t.Fatal("no message must be sent for an unresolvable author")
		return nil, nil
	})
}

func TestNewDispatcher_PatternValidation(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"default", "", false},
		{"one group", `example\.com/u/([^/]+)`, false},
		{"no groups", `example\.com/u/\w+`, true},
		{"two groups", `(example)\.com/u/([^/]+)`, true},
		{"invalid regexp", `([`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDispatcher(tt.pattern, refusingCaller(t), discardLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("pattern %q: err = %v, wantErr %v", tt.pattern, err, tt.wantErr)
			}
		})
	}
}

func TestResolveProfileID(t *testing.T) {
	d, err := NewDispatcher("", refusingCaller(t), discardLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	tests := []struct {
		name    string
		author  feed.AuthorRef
		want    string
		wantErr error
	}{
		{
			name:   "absolute profile url",
			author: feed.AuthorRef{ProfileURL: "https://www.linkedin.com/in/jane-doe-123/"},
			want:   "jane-doe-123",
		},
		{
			name:   "query string rides along, rejected later by the handler",
			author: feed.AuthorRef{ProfileURL: "https://linkedin.com/in/bob?miniProfile=x"},
			want:   "bob?miniProfile=x",
		},
		{
			name:   "pre-resolved id wins",
			author: feed.AuthorRef{ProfileID: "carol", ProfileURL: "https://linkedin.com/in/other"},
			want:   "carol",
		},
		{
			name:    "no link",
			author:  feed.AuthorRef{DisplayName: "Anonymous"},
			wantErr: ErrNoAuthorLink,
		},
		{
			name:    "link without profile path",
			author:  feed.AuthorRef{ProfileURL: "https://linkedin.com/feed/"},
			wantErr: ErrNoProfileID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ResolveProfileID(tt.author)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatch_SendsTaggedMessage(t *testing.T) {
	var gotService string
	var gotReq feed.ActionRequest
	caller := callerFunc(func(ctx context.Context, service string, payload []byte) ([]byte, error) {
		gotService = service
		if err := json.Unmarshal(payload, &gotReq); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		return json.Marshal(feed.ActionResult{Success: true})
	})

	d, err := NewDispatcher("", caller, discardLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	author := feed.AuthorRef{
		DisplayName: "Jane Doe",
		ProfileURL:  "https://www.linkedin.com/in/jane-doe-123/",
	}
	if err := d.Dispatch(context.Background(), author); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotService != "unfollow" {
		t.Fatalf("got service %q, want unfollow", gotService)
	}
	if gotReq.Action != "unfollow" || gotReq.AuthorID != "jane-doe-123" {
		t.Fatalf("got request %+v", gotReq)
	}
}

func TestDispatch_UnresolvableSendsNothing(t *testing.T) {
	d, err := NewDispatcher("", refusingCaller(t), discardLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if err := d.Dispatch(context.Background(), feed.AuthorRef{DisplayName: "Nobody"}); !errors.Is(err, ErrNoAuthorLink) {
		t.Fatalf("got %v, want ErrNoAuthorLink", err)
	}
	if err := d.Dispatch(context.Background(), feed.AuthorRef{ProfileURL: "https://linkedin.com/feed/"}); !errors.Is(err, ErrNoProfileID) {
		t.Fatalf("got %v, want ErrNoProfileID", err)
	}
}

func TestDispatch_NoopRouteSucceeds(t *testing.T) {
	caller := callerFunc(func(ctx context.Context, service string, payload []byte) ([]byte, error) {
		return nil, nil // router noop strategy
	})
	d, err := NewDispatcher("", caller, discardLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	author := feed.AuthorRef{ProfileURL: "https://linkedin.com/in/jane"}
	if err := d.Dispatch(context.Background(), author); err != nil {
		t.Fatalf("noop dispatch should succeed: %v", err)
	}
}

func TestDispatch_HandlerFailureSurfaced(t *testing.T) {
	caller := callerFunc(func(ctx context.Context, service string, payload []byte) ([]byte, error) {
		return json.Marshal(feed.ActionResult{Success: false, Error: "status 403"})
	})
	d, err := NewDispatcher("", caller, discardLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	author := feed.AuthorRef{ProfileURL: "https://linkedin.com/in/jane"}
	if err := d.Dispatch(context.Background(), author); err == nil {
		t.Fatal("expected error for failed handler result")
	}
}
