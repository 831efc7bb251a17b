package tokens

import (
	"context"
)

// Store is the secure token store contract. Get returns (nil, nil) when the
// key is absent; errors are reserved for real storage failures.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
