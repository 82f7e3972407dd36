package feedwatch

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/feedsift/feedsift/feedwatch/internal/sink"
)

// Sink re-exports so callers can attach custom backends.
type (
	Sink       = sink.Sink
	ReportFunc = sink.ReportFunc
)

// NewStdoutSink writes reports as JSON lines to stdout.
func NewStdoutSink() Sink {
	return sink.NewStdout(os.Stdout)
}

// NewWebhookSink POSTs each report to the given URL.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink delivers reports to an in-process function.
func NewCallbackSink(fn ReportFunc) Sink {
	return sink.NewCallback(fn)
}

// BuildSinks constructs the configured sinks behind one fan-out router.
// Callback sinks cannot be built from file config; attach them with
// extra.
func BuildSinks(cfgs []SinkConfig, logger *slog.Logger, extra ...Sink) (Sink, error) {
	var sinks []Sink
	for _, sc := range cfgs {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, NewStdoutSink())
		case "webhook":
			if sc.URL == "" {
				return nil, fmt.Errorf("feedwatch: webhook sink needs a url")
			}
			sinks = append(sinks, NewWebhookSink(sc.URL, logger))
		default:
			return nil, fmt.Errorf("feedwatch: unknown sink type %q", sc.Type)
		}
	}
	sinks = append(sinks, extra...)
	if len(sinks) == 0 {
		sinks = append(sinks, NewStdoutSink())
	}
	return sink.NewRouter(logger, sinks...), nil
}
