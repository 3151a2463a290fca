package ctxutil

import "context"

type traceDataKey struct{}

// TraceData follows a dashboard request into the dispatch tasks it enqueues,
// so relay and callback logs can be joined back to the originating upload.
type TraceData struct {
	TraceID   string
	RequestID string
}

const (
	traceIDKey   = "trace_id"
	requestIDKey = "request_id"
)

// NewTraceData returns nil when neither id is known.
func NewTraceData(traceID, requestID string) *TraceData {
	if traceID == "" && requestID == "" {
		return nil
	}
	return &TraceData{TraceID: traceID, RequestID: requestID}
}

// TraceDataFromFields reads the ids written by Stamp.
func TraceDataFromFields(get func(key string) string) *TraceData {
	return NewTraceData(get(traceIDKey), get(requestIDKey))
}

// Stamp copies the non-empty ids into m.
func (td *TraceData) Stamp(m map[string]any) {
	if td == nil || m == nil {
		return
	}
	if td.TraceID != "" {
		m[traceIDKey] = td.TraceID
	}
	if td.RequestID != "" {
		m[requestIDKey] = td.RequestID
	}
}

// KV returns the non-empty ids as logger key/value pairs.
func (td *TraceData) KV() []interface{} {
	if td == nil {
		return nil
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, traceIDKey, td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, requestIDKey, td.RequestID)
	}
	return kv
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
