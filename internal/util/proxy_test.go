package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:8080", "http://secure.local:8443", "internal.example")

	tests := []struct {
		url  string
		want string
	}{
		{"http://pubmed.example/paper", "proxy.local:8080"},
		{"https://pubmed.example/paper", "secure.local:8443"},
		{"http://internal.example/paper", ""},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
		u, err := proxy(req)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.url, err)
		}
		got := ""
		if u != nil {
			got = u.Host
		}
		if got != tt.want {
			t.Errorf("%s: expected proxy %q, got %q", tt.url, tt.want, got)
		}
	}
}

func TestNewProxyFunc_Unconfigured(t *testing.T) {
	if NewProxyFunc("", "", "") == nil {
		t.Fatal("expected environment proxy func")
	}
}
