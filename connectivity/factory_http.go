package connectivity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxHTTPResponseBody caps the amount of response data read from remote
// HTTP endpoints (10 MiB).
const maxHTTPResponseBody int64 = 10 << 20

// ErrUnsafeEndpoint is returned when a route endpoint uses a non-HTTP(S)
// scheme or targets a private or loopback address.
var ErrUnsafeEndpoint = errors.New("connectivity/http: endpoint is not a public http(s) URL")

// validateEndpoint rejects endpoints that are not plain public http(s)
// URLs. The routes table is operator-writable at runtime, so a hostile or
// fat-fingered row must not be able to point the router at link-local
// metadata services or the local network. DNS is resolved to catch
// internal hostnames; resolution failure is allowed through since the
// request itself will fail the same way.
func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("connectivity/http: parse endpoint: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeEndpoint
	}
	host := u.Hostname()
	if host == "" {
		return ErrUnsafeEndpoint
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrUnsafeEndpoint
		}
		return nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivateIP(ip) {
			return ErrUnsafeEndpoint
		}
	}
	return nil
}

var privateCIDRs = func() []*net.IPNet {
	blocks := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"fc00::/7",
		"::1/128",
	}
	nets := make([]*net.IPNet, 0, len(blocks))
	for _, b := range blocks {
		_, cidr, err := net.ParseCIDR(b)
		if err != nil {
			continue
		}
		nets = append(nets, cidr)
	}
	return nets
}()

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, cidr := range privateCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// httpConfig is the per-route config parsed from the routes table JSON.
type httpConfig struct {
	TimeoutMs   int64  `json:"timeout_ms"`
	ContentType string `json:"content_type"`
}

// HTTPFactory creates Handlers that POST the payload to a remote HTTP
// endpoint, with per-route timeout and content type from the config
// column. Endpoints must be public http(s) URLs; private, loopback, and
// link-local targets are rejected when the route is built. Register it
// with:
//
//	router.RegisterTransport("http", connectivity.HTTPFactory())
func HTTPFactory() TransportFactory {
	return func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		if err := validateEndpoint(endpoint); err != nil {
			return nil, nil, err
		}

		var cfg httpConfig
		if len(config) > 0 {
			_ = json.Unmarshal(config, &cfg)
		}

		timeout := 30 * time.Second
		if cfg.TimeoutMs > 0 {
			timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
		}

		contentType := "application/json"
		if cfg.ContentType != "" {
			contentType = cfg.ContentType
		}

		client := &http.Client{Timeout: timeout}

		handler := func(ctx context.Context, payload []byte) ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, fmt.Errorf("connectivity/http: create request: %w", err)
			}
			req.Header.Set("Content-Type", contentType)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("connectivity/http: do request: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPResponseBody))
			if err != nil {
				return nil, fmt.Errorf("connectivity/http: read response: %w", err)
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, fmt.Errorf("connectivity/http: status %d: %s", resp.StatusCode, body)
			}

			return body, nil
		}

		closeFn := func() {
			client.CloseIdleConnections()
		}

		return handler, closeFn, nil
	}
}
