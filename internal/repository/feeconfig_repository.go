package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/laughtrack/comedy-ticketing/internal/model"
)

// feeConfigCacheKey is the Redis key holding the serialized config.
const feeConfigCacheKey = "platform_config"

// FeeConfigRepo stores the versioned singleton fee configuration. Reads are
// served from a short-TTL Redis cache when available, because every booking
// consults the config while admins change it rarely. Writes go through an
// optimistic version check and invalidate the cache; in-flight requests may
// observe the previous slabs for up to one TTL, which is acceptable since
// existing bookings are never recomputed.
type FeeConfigRepo struct {
	db  *sql.DB
	rdb *redis.Client // nil disables caching
	ttl time.Duration
}

// NewFeeConfigRepo constructs a FeeConfigRepo. rdb may be nil, in which
// case every read hits the database.
func NewFeeConfigRepo(db *sql.DB, rdb *redis.Client, ttl time.Duration) *FeeConfigRepo {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &FeeConfigRepo{db: db, rdb: rdb, ttl: ttl}
}

// Get returns the current platform configuration. When no row has been
// written yet it returns a zero-version config with conservative defaults
// (10% platform fee, 2% booking fee, no slabs) so a fresh install can take
// bookings before an admin configures slabs.
func (r *FeeConfigRepo) Get(ctx context.Context) (model.PlatformConfig, error) {
	if cached, ok := r.fromCache(ctx); ok {
		return cached, nil
	}

	const q = `SELECT version, default_fee_percent, booking_fee_percent, slabs, updated_at
	           FROM platform_config WHERE id = 1`
	var (
		cfg      model.PlatformConfig
		slabsRaw []byte
	)
	err := r.db.QueryRowContext(ctx, q).Scan(&cfg.Version, &cfg.DefaultFeePercent,
		&cfg.BookingFeePercent, &slabsRaw, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlatformConfig{DefaultFeePercent: 0.10, BookingFeePercent: 0.02}, nil
	}
	if err != nil {
		return model.PlatformConfig{}, err
	}
	if len(slabsRaw) > 0 {
		if err := json.Unmarshal(slabsRaw, &cfg.Slabs); err != nil {
			return model.PlatformConfig{}, err
		}
	}
	r.toCache(ctx, cfg)
	return cfg, nil
}

// Replace atomically swaps the whole configuration, guarded by the version
// the admin read. A concurrent write makes the version check fail with
// ErrVersionConflict; the first write of a fresh install inserts version 1.
// The cache entry is dropped so readers converge within one TTL.
func (r *FeeConfigRepo) Replace(ctx context.Context, cfg model.PlatformConfig, expectedVersion uint32) (model.PlatformConfig, error) {
	slabsRaw, err := json.Marshal(cfg.Slabs)
	if err != nil {
		return model.PlatformConfig{}, err
	}

	if expectedVersion == 0 {
		const ins = `INSERT INTO platform_config (id, version, default_fee_percent, booking_fee_percent, slabs)
		             VALUES (1, 1, ?, ?, ?)`
		if _, err := r.db.ExecContext(ctx, ins, cfg.DefaultFeePercent, cfg.BookingFeePercent, slabsRaw); err != nil {
			// Duplicate key means someone else inserted first; anything
			// else is a real database failure.
			if isDuplicateKey(err) {
				return model.PlatformConfig{}, ErrVersionConflict
			}
			return model.PlatformConfig{}, err
		}
	} else {
		const upd = `UPDATE platform_config
		             SET version = version + 1, default_fee_percent = ?, booking_fee_percent = ?, slabs = ?
		             WHERE id = 1 AND version = ?`
		res, err := r.db.ExecContext(ctx, upd, cfg.DefaultFeePercent, cfg.BookingFeePercent, slabsRaw, expectedVersion)
		if err != nil {
			return model.PlatformConfig{}, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return model.PlatformConfig{}, err
		}
		if n == 0 {
			return model.PlatformConfig{}, ErrVersionConflict
		}
	}

	r.invalidate(ctx)
	return r.Get(ctx)
}

func (r *FeeConfigRepo) fromCache(ctx context.Context) (model.PlatformConfig, bool) {
	if r.rdb == nil {
		return model.PlatformConfig{}, false
	}
	raw, err := r.rdb.Get(ctx, feeConfigCacheKey).Bytes()
	if err != nil {
		return model.PlatformConfig{}, false
	}
	var cfg model.PlatformConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return model.PlatformConfig{}, false
	}
	return cfg, true
}

func (r *FeeConfigRepo) toCache(ctx context.Context, cfg model.PlatformConfig) {
	if r.rdb == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, feeConfigCacheKey, raw, r.ttl).Err(); err != nil {
		log.Printf("fee-config cache: set failed: %v", err)
	}
}

func (r *FeeConfigRepo) invalidate(ctx context.Context) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Del(ctx, feeConfigCacheKey).Err(); err != nil {
		log.Printf("fee-config cache: invalidate failed: %v", err)
	}
}
