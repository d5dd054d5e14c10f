package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mwopts "github.com/kart-io/medbot/pkg/options/middleware"
	apierrors "github.com/kart-io/medbot/pkg/utils/errors"
	"github.com/kart-io/medbot/pkg/utils/response"
)

func testOptions() *Options {
	opts := NewOptions()
	opts.ApplyOptions(WithAddr("127.0.0.1:0"), WithMode(gin.TestMode))
	return opts
}

func TestServerMiddlewareChain(t *testing.T) {
	var panicked bool
	s := NewServer(testOptions(), mwopts.NewOptions(), func(*gin.Context, any, []byte) { panicked = true })
	s.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	s.Engine().GET("/panic", func(*gin.Context) { panic("boom") })

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/ping", http.StatusOK, "pong"},
		{"/panic", http.StatusInternalServerError, apierrors.ErrPanic.MessageEN},
		{"/missing", http.StatusNotFound, apierrors.ErrRouteNotFound.MessageEN},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			assert.Len(t, w.Header().Get("X-Request-ID"), 26)
		})
	}
	assert.True(t, panicked)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, strconv.Itoa(apierrors.ErrRouteNotFound.Code), w.Header().Get(response.HeaderErrorCode))
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(testOptions(), nil, nil)
	s.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case err := <-s.Err():
		t.Fatalf("unexpected serve error: %v", err)
	default:
	}
}

func TestServerStartBindError(t *testing.T) {
	first := NewServer(testOptions(), nil, nil)
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	second := NewServer(NewOptions(), nil, nil)
	second.opts.Addr = first.Addr()
	assert.Error(t, second.Start(context.Background()))
}
