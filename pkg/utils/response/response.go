// Package response writes HTTP responses for the chat endpoints.
// Answers and errors are plain text; service endpoints use JSON.
package response

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/medbot/pkg/utils/errors"
	"github.com/kart-io/medbot/pkg/utils/json"
)

const (
	// ContentTypeText is the content type of answers and error messages.
	ContentTypeText = "text/plain; charset=utf-8"
	// ContentTypeJSON is the content type of service endpoints.
	ContentTypeJSON = "application/json; charset=utf-8"

	// HeaderErrorCode carries the errno code of a failed request.
	HeaderErrorCode = "X-Error-Code"
)

// Language picks "zh" or "en" from the Accept-Language header.
// The first listed language wins; quality values are ignored.
func Language(r *http.Request) string {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return "en"
	}
	first := strings.TrimSpace(strings.SplitN(header, ",", 2)[0])
	first = strings.SplitN(first, ";", 2)[0]
	if strings.HasPrefix(strings.ToLower(first), "zh") {
		return "zh"
	}
	return "en"
}

// Text writes body as plain text.
func Text(c *gin.Context, status int, body string) {
	c.Data(status, ContentTypeText, []byte(body))
}

// JSON writes v encoded with the package json codec.
func JSON(c *gin.Context, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		Fail(c, errors.ErrInternal.WithCause(err))
		return
	}
	c.Data(status, ContentTypeJSON, b)
}

// Fail writes the localized errno message of err with the errno's HTTP status.
func Fail(c *gin.Context, err error) {
	FailWithStatus(c, err, 0)
}

// FailWithStatus is like Fail but forces the HTTP status when status > 0.
// The request is aborted so later handlers do not write.
func FailWithStatus(c *gin.Context, err error, status int) {
	e := errors.FromError(err)
	if e == nil {
		e = errors.ErrInternal
	}
	if status <= 0 {
		status = e.HTTPStatus()
	}
	c.Header(HeaderErrorCode, strconv.Itoa(e.Code))
	c.Abort()
	Text(c, status, e.Message(Language(c.Request)))
}
