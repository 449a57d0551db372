package config

import (
	"net/http"
	"os"
	"time"
)

type HTTPConfig struct {
	TokenTimeout    time.Duration // IdP token endpoint calls
	GraphTimeout    time.Duration // userinfo/graph calls
	ShutdownTimeout time.Duration
}

var HTTP = loadHTTPConfig()

func loadHTTPConfig() HTTPConfig {
	cfg := HTTPConfig{
		TokenTimeout:    30 * time.Second,
		GraphTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	if v := os.Getenv("HTTP_TOKEN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TokenTimeout = d
		}
	}

	if v := os.Getenv("HTTP_GRAPH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GraphTimeout = d
		}
	}

	if v := os.Getenv("HTTP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}

	return cfg
}

// TokenClient bounds calls to the IdP token endpoint so a login attempt
// can never hang on transport defaults.
func TokenClient() *http.Client {
	return &http.Client{
		Timeout: HTTP.TokenTimeout,
	}
}

func GraphClient() *http.Client {
	return &http.Client{
		Timeout: HTTP.GraphTimeout,
	}
}
