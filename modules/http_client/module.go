// Package http_client provides a shareable *http.Client managed object and an
// http_request function body that uses it.
package http_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// Module implements the registry.Module interface. It registers the
// http_client source and the http_request function body.
type Module struct{}

// Source creates clients; it takes them back by closing idle connections.
type Source struct {
	Timeout time.Duration
}

// Input defines the arguments of an http_client managed object.
type Input struct {
	Timeout string `hcl:"timeout,optional"`
}

func defaultInput() *Input {
	return &Input{Timeout: "30s"}
}

// NewSource builds a source from its input.
func NewSource(input *Input) (kernel.Source, error) {
	timeout, err := time.ParseDuration(input.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	return &Source{Timeout: timeout}, nil
}

// Factory decodes and builds the source.
func Factory() registry.SourceFactory {
	return registry.NewFactory(defaultInput, NewSource)
}

// RequestParameter is the parameter of http_request.
type RequestParameter struct {
	URL    string `mapstructure:"url"`
	Method string `mapstructure:"method"`
}

// Source implements kernel.SyncSource.
func (s *Source) Source(ctx context.Context) (any, error) {
	return &http.Client{
		Timeout: s.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}, nil
}

// Recycle implements kernel.Recycler.
func (s *Source) Recycle(ctx context.Context, obj any) error {
	client, ok := obj.(*http.Client)
	if !ok {
		return fmt.Errorf("http_client cannot recycle %T", obj)
	}
	client.CloseIdleConnections()
	return nil
}

// Request performs the request described by the parameter ("url" and an
// optional "method") with the client in the function's first managed object.
// It returns "status_code" and "body".
func Request(fc *kernel.FunctionContext) (any, error) {
	client, ok := fc.Object(0).(*http.Client)
	if !ok {
		return nil, fmt.Errorf("http client dependency was not injected")
	}
	p := RequestParameter{Method: http.MethodGet}
	if err := registry.DecodeParameter(fc.Parameter(), &p); err != nil {
		return nil, err
	}
	if p.URL == "" {
		return nil, fmt.Errorf("http_request requires a url")
	}
	url, method := p.URL, p.Method

	logger := fc.Logger()
	logger.Info("Making HTTP request", "method", method, "url", url)

	req, err := http.NewRequestWithContext(fc.Context(), method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(bodyBytes),
	}, nil
}

// Register registers the source and function body.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSource("http_client", Factory())
	r.RegisterFunction("http_request", Request)
}
