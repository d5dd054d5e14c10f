// Package handler provides the HTTP handlers of the medbot service.
package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	logctx "github.com/kart-io/medbot/pkg/infra/logger"
	"github.com/kart-io/medbot/pkg/utils/errors"
	"github.com/kart-io/medbot/pkg/utils/json"
	"github.com/kart-io/medbot/pkg/utils/response"
)

//go:embed templates/chat.html
var templateFS embed.FS

var chatPage = template.Must(template.ParseFS(templateFS, "templates/chat.html"))

// maxBodyBytes bounds the JSON request body.
const maxBodyBytes = 64 << 10

// Answerer answers one chat message.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// AnswerObserver records request results by errno code.
type AnswerObserver interface {
	ObserveAnswer(code string)
}

// ChatRequest is the /get payload. It may come from the query string, a
// form body or a JSON body.
type ChatRequest struct {
	Msg string `form:"msg" json:"msg"`
}

// ChatHandler serves the chat page and the answer endpoint.
type ChatHandler struct {
	answerer     Answerer
	observer     AnswerObserver
	legacyStatus bool
}

// ChatOption configures a ChatHandler.
type ChatOption func(*ChatHandler)

// WithAnswerObserver sets the result observer.
func WithAnswerObserver(o AnswerObserver) ChatOption {
	return func(h *ChatHandler) {
		h.observer = o
	}
}

// WithLegacyStatus makes every /get response use status 200, errors
// included.
func WithLegacyStatus(enabled bool) ChatOption {
	return func(h *ChatHandler) {
		h.legacyStatus = enabled
	}
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(answerer Answerer, opts ...ChatOption) *ChatHandler {
	h := &ChatHandler{answerer: answerer}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Index renders the chat page.
func (h *ChatHandler) Index(c *gin.Context) {
	var buf bytes.Buffer
	err := chatPage.Execute(&buf, map[string]string{
		"Title":    "Medical Chatbot",
		"Subtitle": "General medical information only. Consult a healthcare professional for personal advice.",
		"Endpoint": "/get",
	})
	if err != nil {
		logctx.GetLogger(c.Request.Context()).Errorw("failed to render chat page", "error", err.Error())
		response.Fail(c, errors.ErrInternal.WithCause(err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Chat answers the msg field and writes the answer as plain text.
func (h *ChatHandler) Chat(c *gin.Context) {
	req, err := bindChatRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	answer, err := h.answerer.Answer(c.Request.Context(), req.Msg)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.observe("0")
	response.Text(c, http.StatusOK, answer)
}

func (h *ChatHandler) fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	h.observe(strconv.Itoa(e.Code))
	_ = c.Error(err)

	status := 0
	if h.legacyStatus {
		status = http.StatusOK
	}
	response.FailWithStatus(c, e, status)
}

func (h *ChatHandler) observe(code string) {
	if h.observer != nil {
		h.observer.ObserveAnswer(code)
	}
}

// bindChatRequest reads msg from a JSON body, or else from the form and
// query string. A missing msg is left empty.
func bindChatRequest(c *gin.Context) (*ChatRequest, error) {
	var req ChatRequest
	if c.Request.Method == http.MethodPost && c.ContentType() == binding.MIMEJSON {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			return nil, errors.ErrInvalidRequest.WithCause(err)
		}
		if len(body) == 0 {
			return &req, nil
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.ErrInvalidRequest.WithCause(err)
		}
		return &req, nil
	}

	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		return nil, errors.ErrInvalidRequest.WithCause(err)
	}
	return &req, nil
}
