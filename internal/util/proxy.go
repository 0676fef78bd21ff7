// Package util holds small helpers shared by the HTTP clients.
package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc routes requests through the configured proxies, honoring noProxy.
// With nothing configured the environment (HTTP_PROXY, HTTPS_PROXY, NO_PROXY) decides.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" && noProxy == "" {
		return http.ProxyFromEnvironment
	}

	cfg := httpproxy.FromEnvironment()
	if httpProxy != "" {
		cfg.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTPSProxy = httpsProxy
	}
	if noProxy != "" {
		cfg.NoProxy = noProxy
	}

	resolve := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return resolve(req.URL)
	}
}
