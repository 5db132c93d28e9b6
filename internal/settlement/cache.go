package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

const (
	defaultStatusTTL    = 30 * time.Second
	minStatusVersionTTL = 24 * time.Hour
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	EscrowStatusKey(bookingID string, version int64) string
	EscrowStatusVersionKey(bookingID string) string
}

// StatusCache keeps short-lived escrow snapshots in redis. A nil store disables it.
//
// Snapshots are stored under the booking's current version. Invalidate bumps the
// version, so a snapshot built from a row read before a transition lands under a
// version nobody reads anymore.
type StatusCache struct {
	store      cacheStore
	ttl        time.Duration
	versionTTL time.Duration
	logg       *logger.Logger
}

// snapshotVersion is the version a miss should be saved under. A negative value means
// the version could not be read and nothing is saved.
type snapshotVersion int64

const noVersion snapshotVersion = -1

// NewStatusCache builds the read-through cache for escrow status reads.
func NewStatusCache(store cacheStore, ttl time.Duration, logg *logger.Logger) *StatusCache {
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	versionTTL := minStatusVersionTTL
	if 2*ttl > versionTTL {
		versionTTL = 2 * ttl
	}
	return &StatusCache{store: store, ttl: ttl, versionTTL: versionTTL, logg: logg}
}

// load must run before the row is read so a concurrent Invalidate moves the version
// past the one returned here.
func (c *StatusCache) load(ctx context.Context, bookingID uuid.UUID) (*EscrowView, snapshotVersion, bool) {
	if c == nil || c.store == nil {
		return nil, noVersion, false
	}
	version, err := c.version(ctx, bookingID)
	if err != nil {
		c.warn(ctx, bookingID, "escrow status version read failed")
		return nil, noVersion, false
	}
	raw, err := c.store.Get(ctx, c.store.EscrowStatusKey(bookingID.String(), int64(version)))
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.warn(ctx, bookingID, "escrow status cache read failed")
		}
		return nil, version, false
	}
	var view EscrowView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		c.warn(ctx, bookingID, "escrow status cache entry unreadable")
		return nil, version, false
	}
	return &view, version, true
}

func (c *StatusCache) version(ctx context.Context, bookingID uuid.UUID) (snapshotVersion, error) {
	raw, err := c.store.Get(ctx, c.store.EscrowStatusVersionKey(bookingID.String()))
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return noVersion, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return noVersion, err
	}
	return snapshotVersion(n), nil
}

func (c *StatusCache) save(ctx context.Context, view EscrowView, version snapshotVersion) {
	if c == nil || c.store == nil || version < 0 {
		return
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return
	}
	key := c.store.EscrowStatusKey(view.BookingID.String(), int64(version))
	if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
		c.warn(ctx, view.BookingID, "escrow status cache write failed")
	}
}

// Invalidate retires the cached snapshot by bumping the booking's version. It is wired
// as the state-change hook of every service that mutates an escrow.
func (c *StatusCache) Invalidate(ctx context.Context, bookingID uuid.UUID) {
	if c == nil || c.store == nil {
		return
	}
	if _, err := c.store.IncrWithTTL(ctx, c.store.EscrowStatusVersionKey(bookingID.String()), c.versionTTL); err != nil {
		c.warn(ctx, bookingID, "escrow status cache invalidation failed")
	}
}

func (c *StatusCache) warn(ctx context.Context, bookingID uuid.UUID, msg string) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithBookingID(ctx, bookingID.String()), msg)
}
