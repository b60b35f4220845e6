// Package datasource defines how the two compared inputs are opened.
package datasource

import (
	"context"
	"io"
)

// Source opens a readable stream of one input.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in logs and errors.
	Name() string
}
