package model

import "time"

// FeeSlab maps an inclusive ticket-price range (in cents) to a platform fee
// percentage in [0,1]. MaxPriceCents nil means the slab is unbounded above;
// only the last slab of a valid configuration may be unbounded.
type FeeSlab struct {
	MinPriceCents uint32  `json:"min_price_cents"`
	MaxPriceCents *uint32 `json:"max_price_cents"`
	FeePercent    float64 `json:"fee_percent"`
}

// PlatformConfig is the versioned singleton fee configuration. Slabs are
// replaced atomically as a whole with an optimistic version check; readers
// may observe a cached copy for a short TTL. DefaultFeePercent applies only
// while no slabs are configured; BookingFeePercent is the flat convenience
// fee charged on every order in addition to the platform fee.
type PlatformConfig struct {
	Version           uint32    `json:"version"`
	DefaultFeePercent float64   `json:"default_fee_percent"`
	BookingFeePercent float64   `json:"booking_fee_percent"`
	Slabs             []FeeSlab `json:"slabs"`
	UpdatedAt         time.Time `json:"updated_at"`
}
