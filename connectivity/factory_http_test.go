package connectivity

import (
	"errors"
	"testing"
)

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantErr  bool
	}{
		{"public_https", "https://hooks.example.com/unfollow", false},
		{"public_literal_ip", "http://93.184.216.34/hook", false},
		{"loopback", "http://127.0.0.1:8080/hook", true},
		{"loopback_v6", "http://[::1]/hook", true},
		{"rfc1918", "http://10.1.2.3/hook", true},
		{"link_local_metadata", "http://169.254.169.254/latest/meta-data", true},
		{"bad_scheme", "ftp://example.com/hook", true},
		{"no_host", "/just/a/path", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateEndpoint(tc.endpoint)
			if (err != nil) != tc.wantErr {
				t.Errorf("validateEndpoint(%q) error = %v, wantErr %v", tc.endpoint, err, tc.wantErr)
			}
		})
	}
}

func TestHTTPFactory_RejectsPrivateEndpoint(t *testing.T) {
	factory := HTTPFactory()

	_, _, err := factory("http://192.168.1.10/hook", nil)
	if !errors.Is(err, ErrUnsafeEndpoint) {
		t.Fatalf("error = %v, want ErrUnsafeEndpoint", err)
	}
}
