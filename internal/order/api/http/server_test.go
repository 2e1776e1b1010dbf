package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShutdownReturnsServerClosed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Only the listen/shutdown select is under test; the callers in run.go
	// rely on the sentinel to tell a context-driven stop from a crash.
	s := &Server{
		ctx: ctx,
		srv: &http.Server{Addr: "127.0.0.1:0"},
	}
	defer s.srv.Close()

	require.ErrorIs(t, s.startHTTPServer(), ErrServerClosed)
}
