package ports

import (
	"context"

	"gosurv/domain/survival"
)

// RequestReader loads a statistics request from an external source (file, upload)
type RequestReader interface {
	ReadRequest(ctx context.Context) (*survival.Request, error)
}
