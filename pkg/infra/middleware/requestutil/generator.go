// Package requestutil generates request IDs and carries them through the
// request context.
package requestutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	logctx "github.com/kart-io/medbot/pkg/infra/logger"
)

// HeaderXRequestID is the default request ID header.
const HeaderXRequestID = "X-Request-ID"

type requestIDKey struct{}

// IDGenerator 定义请求 ID 生成器接口
type IDGenerator interface {
	Generate() string
}

// RandomHexGenerator 使用加密随机数生成 32 位十六进制 ID
type RandomHexGenerator struct{}

var fallbackCounter uint64

// Generate 实现 IDGenerator 接口
func (RandomHexGenerator) Generate() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x-%x", time.Now().Unix(), atomic.AddUint64(&fallbackCounter, 1))
	}
	return hex.EncodeToString(b)
}

// ULIDGenerator 生成时间可排序的 26 字符 ULID。
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDGenerator 创建新的 ULID 生成器，同一毫秒内单调递增。
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate 实现 IDGenerator 接口
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// NewGenerator 根据类型名称创建生成器: "ulid" 或 "hex"，未知类型使用 ulid。
func NewGenerator(generatorType string) IDGenerator {
	switch generatorType {
	case "hex", "random":
		return RandomHexGenerator{}
	default:
		return NewULIDGenerator()
	}
}

// WithRequestID stores the request ID in ctx, both as a plain value and as a
// log field picked up by logger.GetLogger.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)
	return logctx.WithRequestID(ctx, requestID)
}

// GetRequestID returns the request ID from ctx, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
