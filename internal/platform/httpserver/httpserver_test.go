package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parrainage/internal/platform/config"
)

func TestNewAppliesServerConfig(t *testing.T) {
	h := http.NewServeMux()
	srv := New(config.Server{
		Addr:              ":9090",
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      40 * time.Second,
		IdleTimeout:       time.Minute,
	}, h)

	assert.Equal(t, ":9090", srv.Addr)
	assert.Same(t, h, srv.Handler)
	assert.Equal(t, 2*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 40*time.Second, srv.WriteTimeout)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
}

func TestNewKeepsHeaderTimeoutWhenUnset(t *testing.T) {
	srv := New(config.Server{Addr: ":0"}, http.NewServeMux())

	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Zero(t, srv.WriteTimeout)
}
