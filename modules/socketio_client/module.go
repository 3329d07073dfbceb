// Package socketio_client provides a socket.io client as an asynchronously
// sourced managed object, and a socketio_request function body using it.
//
// Sourcing starts the connection and returns at once; the object becomes
// available to waiting functions when the socket's "connect" event fires.
// Bound the wait with the managed object's timeout.
package socketio_client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/officegrid/internal/ctxlog"
	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Source connects sockets.
type Source struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// Input defines the arguments of a socketio_client managed object.
type Input struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

func defaultInput() *Input {
	return &Input{Namespace: "/"}
}

// NewSource builds a source from its input.
func NewSource(input *Input) (kernel.Source, error) {
	if input.URL == "" {
		return nil, fmt.Errorf("socketio_client requires a url")
	}
	if _, err := url.Parse(input.URL); err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	return &Source{URL: input.URL, Namespace: input.Namespace, InsecureSkipVerify: input.InsecureSkipVerify}, nil
}

// Factory decodes and builds the source.
func Factory() registry.SourceFactory {
	return registry.NewFactory(defaultInput, NewSource)
}

// RequestParameter is the parameter of socketio_request.
type RequestParameter struct {
	EmitEvent string        `mapstructure:"emit_event"`
	OnEvent   string        `mapstructure:"on_event"`
	EmitData  any           `mapstructure:"emit_data"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SourceAsync implements kernel.AsyncSource.
func (s *Source) SourceAsync(ctx context.Context, user kernel.AsyncUser) {
	logger := ctxlog.FromContext(ctx).With("managed_object_source", "socketio_client", "url", s.URL)

	parsedURL, err := url.Parse(s.URL)
	if err != nil {
		user.SetFailure(fmt.Errorf("failed to parse URL: %w", err))
		return
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if s.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(s.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		user.SetManagedObject(io)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("socket.io connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("socket.io connection failed: %w", e)
			}
		}
		logger.Debug("Connection error.", "error", err)
		io.Disconnect()
		user.SetFailure(err)
	})

	logger.Debug("Initiating connection...")
	io.Connect()
}

// Recycle implements kernel.Recycler.
func (s *Source) Recycle(ctx context.Context, obj any) error {
	client, ok := obj.(*socket.Socket)
	if !ok {
		return fmt.Errorf("socketio_client cannot recycle %T", obj)
	}
	ctxlog.FromContext(ctx).Info("Disconnecting socket.io client", "sid", client.Id())
	client.Disconnect()
	return nil
}

// Request emits "emit_event" with "emit_data" on the function's first managed
// object and waits up to "timeout" for "on_event". It returns the first
// argument of the received event as "response_data".
func Request(fc *kernel.FunctionContext) (any, error) {
	client, ok := fc.Object(0).(*socket.Socket)
	if !ok {
		return nil, fmt.Errorf("socket.io client dependency was not injected")
	}
	if !client.Connected() {
		return nil, fmt.Errorf("injected socket.io client is not connected")
	}
	p := RequestParameter{Timeout: 10 * time.Second}
	if err := registry.DecodeParameter(fc.Parameter(), &p); err != nil {
		return nil, err
	}
	if p.EmitEvent == "" || p.OnEvent == "" {
		return nil, fmt.Errorf("socketio_request requires emit_event and on_event")
	}
	emitEvent, onEvent, timeout := p.EmitEvent, p.OnEvent, p.Timeout

	logger := fc.Logger().With("sid", client.Id())
	logger.Info("Executing request", "emitEvent", emitEvent, "onEvent", onEvent)

	done := make(chan any, 1)
	opCtx, cancel := context.WithTimeout(fc.Context(), timeout)
	defer cancel()

	client.Once(types.EventName(onEvent), func(data ...any) {
		var response any
		if len(data) > 0 {
			response = data[0]
		}
		done <- response
	})

	logger.Debug("Emitting event", "event", emitEvent)
	client.Emit(emitEvent, p.EmitData)

	select {
	case <-opCtx.Done():
		return nil, fmt.Errorf("timed out after %v waiting for event '%s'", timeout, onEvent)
	case response := <-done:
		logger.Info("Successfully received response event", "event", onEvent)
		return map[string]any{"response_data": response}, nil
	}
}

// Register registers the source and function body.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSource("socketio_client", Factory())
	r.RegisterFunction("socketio_request", Request)
}
