package fipe

import (
	"errors"
	"testing"
	"time"
)

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{address: "127.0.0.1:1080", want: true},
		{address: "proxy.local:9050", want: true},
		{address: "127.0.0.1", want: false},
		{address: ":1080", want: false},
		{address: "host:0", want: false},
		{address: "host:70000", want: false},
		{address: "host:abc", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tt.address); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	hc, err := NewHTTPClient(5*time.Second, "")
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	if hc.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", hc.Timeout)
	}
	if hc.Jar == nil {
		t.Error("expected a cookie jar")
	}

	if _, err := NewHTTPClient(time.Second, "127.0.0.1:1080"); err != nil {
		t.Errorf("expected valid proxy to be accepted, got %v", err)
	}

	if _, err := NewHTTPClient(time.Second, "not-an-address"); !errors.Is(err, ErrInvalidProxyAddress) {
		t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
	}
}
