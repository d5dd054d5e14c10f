package handler

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medbot/pkg/component/storage"
	errs "github.com/kart-io/medbot/pkg/utils/errors"
	"github.com/kart-io/medbot/pkg/utils/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnswerer struct {
	answer string
	err    error
	got    string
}

func (f *fakeAnswerer) Answer(_ context.Context, query string) (string, error) {
	f.got = query
	if strings.TrimSpace(query) == "" {
		return "", errs.ErrEmptyQuery
	}
	return f.answer, f.err
}

type codeRecorder struct {
	codes []string
}

func (r *codeRecorder) ObserveAnswer(code string) {
	r.codes = append(r.codes, code)
}

func newChatEngine(h *ChatHandler) *gin.Engine {
	r := gin.New()
	r.GET("/", h.Index)
	r.GET("/get", h.Chat)
	r.POST("/get", h.Chat)
	return r
}

func TestChat(t *testing.T) {
	tests := []struct {
		name        string
		answerer    *fakeAnswerer
		legacy      bool
		newRequest  func() *http.Request
		wantStatus  int
		wantBody    string
		wantGot     string
		wantErrCode bool
	}{
		{
			name:     "form post",
			answerer: &fakeAnswerer{answer: "Acne is common."},
			newRequest: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/get", strings.NewReader(url.Values{"msg": {"What is acne?"}}.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			wantStatus: http.StatusOK,
			wantBody:   "Acne is common.",
			wantGot:    "What is acne?",
		},
		{
			name:     "query string",
			answerer: &fakeAnswerer{answer: "ok"},
			newRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/get?msg=fever", nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantGot:    "fever",
		},
		{
			name:     "json body",
			answerer: &fakeAnswerer{answer: "ok"},
			newRequest: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/get", strings.NewReader(`{"msg":"headache"}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantGot:    "headache",
		},
		{
			name:     "missing msg",
			answerer: &fakeAnswerer{},
			newRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/get", nil)
			},
			wantStatus:  http.StatusBadRequest,
			wantBody:    errs.ErrEmptyQuery.MessageEN,
			wantErrCode: true,
		},
		{
			name:     "malformed json",
			answerer: &fakeAnswerer{},
			newRequest: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/get", strings.NewReader(`{"msg":`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			wantStatus:  http.StatusBadRequest,
			wantBody:    errs.ErrInvalidRequest.MessageEN,
			wantErrCode: true,
		},
		{
			name:     "provider failure",
			answerer: &fakeAnswerer{err: errs.ErrGeneration.WithCause(errors.New("quota exceeded"))},
			newRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/get?msg=q", nil)
			},
			wantStatus:  http.StatusServiceUnavailable,
			wantBody:    errs.ErrGeneration.MessageEN,
			wantGot:     "q",
			wantErrCode: true,
		},
		{
			name:     "legacy status",
			answerer: &fakeAnswerer{err: errs.ErrRetrieval.WithCause(errors.New("index down"))},
			legacy:   true,
			newRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/get?msg=q", nil)
			},
			wantStatus:  http.StatusOK,
			wantBody:    errs.ErrRetrieval.MessageEN,
			wantGot:     "q",
			wantErrCode: true,
		},
		{
			name:     "timeout",
			answerer: &fakeAnswerer{err: errs.ErrRequestTimeout.WithCause(context.DeadlineExceeded)},
			newRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/get?msg=q", nil)
			},
			wantStatus:  http.StatusGatewayTimeout,
			wantBody:    errs.ErrRequestTimeout.MessageEN,
			wantGot:     "q",
			wantErrCode: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChatHandler(tt.answerer, WithLegacyStatus(tt.legacy))
			w := httptest.NewRecorder()
			newChatEngine(h).ServeHTTP(w, tt.newRequest())

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			assert.Equal(t, response.ContentTypeText, w.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantGot, tt.answerer.got)
			assert.Equal(t, tt.wantErrCode, w.Header().Get(response.HeaderErrorCode) != "")
		})
	}
}

func TestChatLocalizedError(t *testing.T) {
	h := NewChatHandler(&fakeAnswerer{})
	r := httptest.NewRequest(http.MethodGet, "/get", nil)
	r.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	w := httptest.NewRecorder()
	newChatEngine(h).ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errs.ErrEmptyQuery.MessageZH, w.Body.String())
}

func TestChatObservesCodes(t *testing.T) {
	rec := &codeRecorder{}
	h := NewChatHandler(&fakeAnswerer{answer: "ok"}, WithAnswerObserver(rec))
	engine := newChatEngine(h)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/get?msg=q", nil))
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/get", nil))

	require.Len(t, rec.codes, 2)
	assert.Equal(t, "0", rec.codes[0])
	assert.NotEqual(t, "0", rec.codes[1])
}

func TestIndex(t *testing.T) {
	w := httptest.NewRecorder()
	newChatEngine(NewChatHandler(&fakeAnswerer{})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<title>Medical Chatbot</title>")
	assert.Contains(t, w.Body.String(), `id="chat-form"`)
}

func TestIndexRenderError(t *testing.T) {
	orig := chatPage
	chatPage = template.Must(template.New("chat").Parse(`{{template "missing"}}`))
	t.Cleanup(func() { chatPage = orig })

	w := httptest.NewRecorder()
	newChatEngine(NewChatHandler(&fakeAnswerer{})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, response.ContentTypeText, w.Header().Get("Content-Type"))
	assert.NotContains(t, w.Body.String(), "<html")
}

type fakeChecker struct {
	statuses map[string]storage.HealthStatus
}

func (f fakeChecker) HealthCheckAll(context.Context) map[string]storage.HealthStatus {
	return f.statuses
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		checker    HealthChecker
		wantStatus int
		wantBody   string
	}{
		{name: "starting", ready: false, checker: fakeChecker{}, wantStatus: http.StatusServiceUnavailable, wantBody: `"starting"`},
		{name: "no backends", ready: true, wantStatus: http.StatusOK, wantBody: `"ready"`},
		{
			name:  "healthy",
			ready: true,
			checker: fakeChecker{statuses: map[string]storage.HealthStatus{
				"milvus": {Name: "milvus", Healthy: true, Latency: 2 * time.Millisecond},
			}},
			wantStatus: http.StatusOK,
			wantBody:   `"milvus":{"healthy":true,"latency_ms":2}`,
		},
		{
			name:  "unhealthy",
			ready: true,
			checker: fakeChecker{statuses: map[string]storage.HealthStatus{
				"redis": {Name: "redis", Error: errors.New("connection refused")},
			}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"error":"connection refused"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checker)
			h.SetReady(tt.ready)

			r := gin.New()
			r.GET("/readyz", h.Readyz)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestHealthzAndVersion(t *testing.T) {
	h := NewHealthHandler(nil)
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/version", h.Version)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.ContentTypeJSON, w.Header().Get("Content-Type"))
}
