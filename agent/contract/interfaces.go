package contract

import "context"

type ToolGateway interface {
	Execute(ctx context.Context, req ToolRequest) (ToolResult, error)
}

// Publisher receives finalized records (orders, leads). Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, kind RecordKind, payload any) error
}
