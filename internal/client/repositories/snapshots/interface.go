package snapshots

import (
	"context"

	"github.com/spotterapp/spotter-go/internal/client/models"
)

// Cache is the snapshot cache contract. Get returns (nil, nil) when no entry
// exists or the entry has outlived the TTL; an expired entry is deleted as a
// side effect of the read.
type Cache interface {
	Get(ctx context.Context) (*models.CacheEntry, error)
	Set(ctx context.Context, snap models.Snapshot) error
	Clear(ctx context.Context) error
}
