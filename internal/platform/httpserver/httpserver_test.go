package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"volunteerhub/internal/platform/config"
)

func TestNew(t *testing.T) {
	srv := New(config.ServerConfig{
		Addr:         ":9090",
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 7 * time.Second,
	}, http.NotFoundHandler())

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 3*time.Second, srv.ReadTimeout)
	assert.Equal(t, 7*time.Second, srv.WriteTimeout)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.NotNil(t, srv.Handler)
}
