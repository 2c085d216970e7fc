package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"anchorgate/internal/platform/logger"
)

func TestNew(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), logger.Discard())
	assert.Equal(t, ":0", srv.Addr)
	assert.NotZero(t, srv.ReadHeaderTimeout)
	assert.NotZero(t, srv.WriteTimeout)
	assert.NotNil(t, srv.ErrorLog)

	assert.Nil(t, New(":0", http.NotFoundHandler(), nil).ErrorLog)
}
