package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/oncovec/internal/config"
)

func newBareServer() *Server {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	return NewServer(nil, nil, nil, nil, nil, nil, cfg, nil)
}

func TestServer_StopBeforeStart(t *testing.T) {
	srv := newBareServer()
	require.NoError(t, srv.Stop(context.Background()))
	assert.ErrorIs(t, srv.Start(), http.ErrServerClosed)
}

func TestServer_StopFromAnotherGoroutine(t *testing.T) {
	srv := newBareServer()
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
