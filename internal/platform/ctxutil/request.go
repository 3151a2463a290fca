package ctxutil

import "context"

type requestDataKey struct{}

// RequestData identifies the authenticated caller of a dashboard request.
type RequestData struct {
	UserID    uint
	Role      string
	IPAddress string
	UserAgent string
}

func (rd *RequestData) IsPrivileged() bool {
	return rd != nil && (rd.Role == "admin" || rd.Role == "analyst")
}

func (rd *RequestData) IsAdmin() bool {
	return rd != nil && rd.Role == "admin"
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}
