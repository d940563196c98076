// Package http builds pre-configured *http.Client values for the various
// outbound callers in the matcher (LLM providers, Slack, Prometheus
// remote-write) so timeout and transport tuning lives in one place.
package http

import (
	"crypto/tls"
	"net/http"
	"time"
)

// ClientConfig tunes a constructed http.Client's timeout and transport.
type ClientConfig struct {
	Timeout                 time.Duration
	MaxRetries               int
	DisableSSLVerification   bool
	MaxIdleConns             int
	IdleConnTimeout          time.Duration
	TLSHandshakeTimeout      time.Duration
	ResponseHeaderTimeout    time.Duration
}

// DefaultClientConfig returns conservative general-purpose defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		MaxIdleConns: 10,
	}
}

// NewClient builds an *http.Client from config.
func NewClient(config ClientConfig) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}
	if config.DisableSSLVerification {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

// NewClientWithTimeout builds a client with only a timeout override applied
// on top of DefaultClientConfig.
func NewClientWithTimeout(timeout time.Duration) *http.Client {
	config := DefaultClientConfig()
	config.Timeout = timeout
	return NewClient(config)
}

// NewDefaultClient builds a client from DefaultClientConfig.
func NewDefaultClient() *http.Client {
	return NewClient(DefaultClientConfig())
}

// SlackClientConfig tunes a client for the Slack notifier: short timeout,
// few retries, since a failed notification should not itself block a run.
func SlackClientConfig() ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = 10 * time.Second
	config.MaxRetries = 2
	return config
}

// PrometheusClientConfig tunes a client for scraping/remote-write, with a
// response-header timeout at half the overall budget.
func PrometheusClientConfig(timeout time.Duration) ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = timeout
	config.ResponseHeaderTimeout = timeout / 2
	return config
}

// LLMClientConfig tunes a client for LLM provider calls, which can be slow
// to start streaming a response: a third of the overall timeout is given
// to receiving the first response header.
func LLMClientConfig(timeout time.Duration) ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = timeout
	config.ResponseHeaderTimeout = timeout / 3
	return config
}
