package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pulseproto/pulsegate/domain/gateway"
	"github.com/pulseproto/pulsegate/ports"
)

// HTTPConfig configures an HTTP-backed provider adapter.
type HTTPConfig struct {
	Name            string
	BaseURL         string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// HTTPAdapter forwards messages to a provider's HTTP API as JSON.
// One POST per Send; timeouts and retries beyond the client timeout are the
// remote side's concern.
type HTTPAdapter struct {
	name    string
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

// NewHTTPFactory returns a Factory producing adapters for one HTTP provider.
// The pooled client is shared across all adapters the factory constructs.
// Callers must supply an api_key in their provider config; the key is held
// only for the lifetime of the dispatch and never logged.
func NewHTTPFactory(cfg HTTPConfig) (Factory, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}
	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConns,
			IdleConnTimeout:     idleConnTimeout,
		},
		Timeout: timeout,
	}

	return func(providerCfg map[string]any) (ports.Adapter, error) {
		apiKey, _ := providerCfg["api_key"].(string)
		if apiKey == "" {
			return nil, errors.New("api_key is required in provider_config")
		}
		return &HTTPAdapter{
			name:    cfg.Name,
			baseURL: baseURL,
			apiKey:  apiKey,
			client:  client,
		}, nil
	}, nil
}

// HTTPDescriptor builds a Descriptor for an HTTP-backed provider.
func HTTPDescriptor(cfg HTTPConfig) (Descriptor, error) {
	factory, err := NewHTTPFactory(cfg)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Name:      cfg.Name,
		Kind:      "http",
		Available: true,
		New:       factory,
	}, nil
}

// Send posts the message to the provider and decodes the JSON reply.
func (a *HTTPAdapter) Send(ctx context.Context, msg gateway.Message) (any, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", a.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB cap
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", a.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", a.name, resp.StatusCode)
	}

	var result any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", a.name, err)
		}
	}
	return result, nil
}

// Ensure interface compliance.
var _ ports.Adapter = (*HTTPAdapter)(nil)
