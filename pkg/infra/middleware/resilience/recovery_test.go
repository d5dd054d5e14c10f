package resilience

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	mwopts "github.com/kart-io/medbot/pkg/options/middleware"
	"github.com/kart-io/medbot/pkg/utils/errors"
	"github.com/kart-io/medbot/pkg/utils/response"
)

func newPanicRouter(opts mwopts.RecoveryOptions, onPanic PanicHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryWithOptions(opts, onPanic))
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })
	return r
}

func TestRecovery(t *testing.T) {
	var recovered any
	r := newPanicRouter(mwopts.RecoveryOptions{}, func(_ *gin.Context, err any, _ []byte) { recovered = err })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrPanic.MessageEN, w.Body.String())
	assert.Equal(t, strconv.Itoa(errors.ErrPanic.Code), w.Header().Get(response.HeaderErrorCode))
	assert.Equal(t, "boom", recovered)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, "fine", w.Body.String())
}

func TestRecoveryStackTrace(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("GO_ENV", "")
	r := newPanicRouter(mwopts.RecoveryOptions{EnableStackTrace: true}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Contains(t, w.Body.String(), "panic: boom")
	assert.Contains(t, w.Body.String(), "goroutine")
}

func TestValidateStackTraceConfig(t *testing.T) {
	assert.False(t, validateStackTraceConfig(true, true))
	assert.True(t, validateStackTraceConfig(true, false))
	assert.False(t, validateStackTraceConfig(false, false))
}
