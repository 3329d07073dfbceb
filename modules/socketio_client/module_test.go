package socketio_client

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/kerneltest"
	"github.com/stretchr/testify/require"
	server "github.com/zishang520/socket.io/v2/socket"
)

func TestFactory(t *testing.T) {
	// Act
	src, err := kerneltest.Decode(t, Factory(), `url = "http://localhost:3000/socket.io/"`)

	// Assert
	require.NoError(t, err)
	require.Equal(t, &Source{URL: "http://localhost:3000/socket.io/", Namespace: "/"}, src)
	_, isAsync := src.(kernel.AsyncSource)
	require.True(t, isAsync)
	_, isRecycler := src.(kernel.Recycler)
	require.True(t, isRecycler)
}

func TestFactory_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"missing url", ``, `The argument "url" is required`},
		{"empty url", `url = ""`, "requires a url"},
		{"bad tls flag", "url = \"http://x\"\ninsecure_skip_verify = \"maybe\"", "Unsuitable value type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := kerneltest.Decode(t, Factory(), tc.src)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestRecycle_RejectsOtherObjects(t *testing.T) {
	err := (&Source{}).Recycle(context.Background(), 42)
	require.ErrorContains(t, err, "cannot recycle int")
}

func TestRequest_WithoutSocketEscalates(t *testing.T) {
	// Arrange
	meta := &kernel.OfficeMetaData{
		Name:      "office",
		Functions: []*kernel.Function{{Name: "req", Body: Request}},
	}

	// Act
	res := kerneltest.Run(t, meta, "req", map[string]any{"emit_event": "ping", "on_event": "pong"}, nil)

	// Assert
	require.ErrorContains(t, res.Err, "socket.io client dependency was not injected")
}

func socketMeta(src kernel.Source) *kernel.OfficeMetaData {
	return &kernel.OfficeMetaData{
		Name: "office",
		ManagedObjects: []*kernel.ManagedObject{{
			Name:    "socket",
			Source:  src,
			Scope:   kernel.ScopeProcess,
			Timeout: 5 * time.Second,
		}},
		Functions: []*kernel.Function{{Name: "req", Body: Request, ManagedObjects: []int{0}}},
	}
}

func TestSource_ConnectErrorFailsTheWaitingFunction(t *testing.T) {
	// --- Arrange ---
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	src, err := kerneltest.Decode(t, Factory(), `url = "http://`+addr+`/socket.io/"`)
	require.NoError(t, err)

	// --- Act ---
	res := kerneltest.Run(t, socketMeta(src), "req", map[string]any{"emit_event": "ping", "on_event": "pong"}, nil)

	// --- Assert ---
	var sourceErr *kernel.SourceError
	require.ErrorAs(t, res.Err, &sourceErr)
	require.Equal(t, "socket", sourceErr.ManagedObject)
	require.ErrorContains(t, res.Err, "socket.io connection failed")
}

func TestRequest_RoundTripsThroughConnectedSocket(t *testing.T) {
	// --- Arrange ---
	io := server.NewServer(nil, nil)
	io.On("connection", func(clients ...any) {
		client := clients[0].(*server.Socket)
		client.On("ping", func(data ...any) {
			client.Emit("pong", data...)
		})
	})
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", io.ServeHandler(nil))
	httpServer := httptest.NewServer(mux)
	t.Cleanup(func() {
		io.Close(nil)
		httpServer.Close()
	})

	src, err := kerneltest.Decode(t, Factory(), `url = "`+httpServer.URL+`/socket.io/"`)
	require.NoError(t, err)

	// --- Act ---
	res := kerneltest.Run(t, socketMeta(src), "req", map[string]any{
		"emit_event": "ping",
		"on_event":   "pong",
		"emit_data":  "hello",
		"timeout":    "3s",
	}, nil)

	// --- Assert ---
	require.NoError(t, res.Err)
	require.Equal(t, map[string]any{"response_data": "hello"}, res.Value)
}

func TestRequest_RequiresEvents(t *testing.T) {
	// --- Arrange ---
	io := server.NewServer(nil, nil)
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", io.ServeHandler(nil))
	httpServer := httptest.NewServer(mux)
	t.Cleanup(func() {
		io.Close(nil)
		httpServer.Close()
	})
	src, err := kerneltest.Decode(t, Factory(), `url = "`+httpServer.URL+`/socket.io/"`)
	require.NoError(t, err)

	// --- Act ---
	res := kerneltest.Run(t, socketMeta(src), "req", map[string]any{"emit_event": "ping"}, nil)

	// --- Assert ---
	require.ErrorContains(t, res.Err, "requires emit_event and on_event")
}
