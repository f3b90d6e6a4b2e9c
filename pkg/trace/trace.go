package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type ctxKey struct{}

// HeaderName is the HTTP header carrying the trace id.
const HeaderName = "X-Trace-ID"

const maxLen = 64

// GenerateTraceID 生成一个新的 trace ID（32 位十六进制）
func GenerateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(ctxKey{}).(string)
	return traceID
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// FromHeader keeps a caller-supplied id when it is short and printable,
// otherwise it generates one.
func FromHeader(headerValue string) string {
	if valid(headerValue) {
		return headerValue
	}
	return GenerateTraceID()
}

func valid(id string) bool {
	if id == "" || len(id) > maxLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
