package revalidate

import (
	"context"
	"fmt"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Marker keeps a monotonically increasing view version per vault in redis.
// Every mutation bumps the vault version; cached views are keyed by version,
// so a bump makes all previously cached views for that vault stale at once.
type Marker struct {
	rdb redis.Cmdable
}

func NewMarker(rdb redis.Cmdable) *Marker {
	return &Marker{
		rdb: rdb,
	}
}

func vaultVersionKey(vaultID string) string {
	return fmt.Sprintf("workouts::vault-version::%s", vaultID)
}

// Bump marks all views of a vault stale. Redis failures are logged and
// swallowed: a missed bump means a stale read until the next mutation,
// not a broken mutation.
func (m *Marker) Bump(ctx context.Context, vaultID string) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "revalidate.bump")
	defer span.End()

	if err := m.rdb.Incr(ctx, vaultVersionKey(vaultID)).Err(); err != nil {
		log.Errorf("revalidate: bump vault version [%s]: %s", vaultID, err)
	}
}

// Version returns the current view version of a vault. A missing key reads
// as version 0. On redis failure the error is returned so callers can skip
// the cache and serve an uncached read.
func (m *Marker) Version(ctx context.Context, vaultID string) (int64, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "revalidate.version")
	defer span.End()

	version, err := m.rdb.Get(ctx, vaultVersionKey(vaultID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("get vault version: %w", err)
	}
	return version, nil
}
