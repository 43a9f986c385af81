package requestdata

import (
	"context"

	"github.com/davrbek/coursehub-backend/internal/types"
)

type requestDataKeyType struct{}

var requestDataKey = requestDataKeyType{}

type RequestData struct {
	TokenString string
	Viewer      *types.User
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}

// Viewer returns the authenticated user for ctx, or nil for anonymous
// requests.
func Viewer(ctx context.Context) *types.User {
	rd := GetRequestData(ctx)
	if rd == nil {
		return nil
	}
	return rd.Viewer
}
