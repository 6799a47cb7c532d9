// Package runid tags a context with the identifier of one compiler run.
package runid

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

// NewContext returns a copy of parent carrying a new time-ordered run ID,
// along with the ID.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.Must(uuid.NewV7()).String()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the run ID from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
