package fee

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laughtrack/comedy-ticketing/internal/model"
)

func u32(v uint32) *uint32 { return &v }

func testConfig() model.PlatformConfig {
	return model.PlatformConfig{
		DefaultFeePercent: 0.10,
		BookingFeePercent: 0.02,
		Slabs: []model.FeeSlab{
			{MinPriceCents: 0, MaxPriceCents: u32(199), FeePercent: 0.05},
			{MinPriceCents: 200, MaxPriceCents: u32(400), FeePercent: 0.07},
			{MinPriceCents: 401, MaxPriceCents: nil, FeePercent: 0.08},
		},
	}
}

func TestCompute_SlabLookup(t *testing.T) {
	// price 250 falls in the 7% slab; total 500 -> platform fee 35.
	amounts, err := Compute(testConfig(), 250, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(35), amounts.PlatformFeeCents)
	assert.Equal(t, uint32(10), amounts.BookingFeeCents) // 500 * 0.02
}

func TestCompute_SlabBoundariesInclusive(t *testing.T) {
	cfg := testConfig()

	low, err := Compute(cfg, 199, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), low.PlatformFeeCents) // 199*0.05 = 9.95 -> 10

	mid, err := Compute(cfg, 200, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(14), mid.PlatformFeeCents) // 200*0.07

	high, err := Compute(cfg, 401, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(32), high.PlatformFeeCents) // 401*0.08 = 32.08 -> 32
}

func TestCompute_OverrideBeatsSlabs(t *testing.T) {
	override := 0.20
	amounts, err := Compute(testConfig(), 250, 2, &override)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), amounts.PlatformFeeCents) // 500 * 0.20
}

func TestCompute_EmptySlabsUsesDefault(t *testing.T) {
	cfg := testConfig()
	cfg.Slabs = nil
	amounts, err := Compute(cfg, 1000, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), amounts.PlatformFeeCents) // default 10%
}

func TestCompute_NoMatchingSlabIsConfigError(t *testing.T) {
	cfg := testConfig()
	// Truncated set that stops at 400.
	cfg.Slabs = cfg.Slabs[:2]
	_, err := Compute(cfg, 500, 1, nil)
	assert.ErrorIs(t, err, ErrNoSlab)
}

func TestCompute_RoundsOnTotalNotPerTicket(t *testing.T) {
	cfg := model.PlatformConfig{
		Slabs: []model.FeeSlab{{MinPriceCents: 0, MaxPriceCents: nil, FeePercent: 0.07}},
	}
	// Per-ticket rounding would give 3*round(7.07) = 21; total rounding
	// gives round(21.21) = 21 here but differs at 101*0.05.
	amounts, err := Compute(cfg, 101, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(21), amounts.PlatformFeeCents)

	cfg.Slabs[0].FeePercent = 0.05
	amounts, err = Compute(cfg, 101, 3, nil)
	require.NoError(t, err)
	// 303 * 0.05 = 15.15 -> 15; per-ticket would be 3*round(5.05)=15 too,
	// but 3 tickets at 109: 327*0.05=16.35 -> 16 vs per-ticket 3*5=15.
	assert.Equal(t, uint32(15), amounts.PlatformFeeCents)

	amounts, err = Compute(cfg, 109, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), amounts.PlatformFeeCents)
}

func TestCompute_MonotonicWithinSlab(t *testing.T) {
	cfg := testConfig()
	prev := uint32(0)
	for price := uint32(200); price <= 400; price++ {
		amounts, err := Compute(cfg, price, 1, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, amounts.PlatformFeeCents, prev, "price %d", price)
		prev = amounts.PlatformFeeCents
	}
}

func TestCompute_TotalOverFullAxis(t *testing.T) {
	cfg := testConfig()
	for _, price := range []uint32{0, 1, 199, 200, 400, 401, 100000} {
		_, err := Compute(cfg, price, 1, nil)
		assert.NoError(t, err, "price %d", price)
	}
}

func TestValidateSlabs_Valid(t *testing.T) {
	assert.NoError(t, ValidateSlabs(testConfig().Slabs))
	assert.NoError(t, ValidateSlabs(nil))
}

func TestValidateSlabs_GapNamed(t *testing.T) {
	slabs := []model.FeeSlab{
		{MinPriceCents: 0, MaxPriceCents: u32(199), FeePercent: 0.05},
		{MinPriceCents: 201, MaxPriceCents: nil, FeePercent: 0.07},
	}
	err := ValidateSlabs(slabs)
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Issues, 1)
	assert.Contains(t, verr.Issues[0].Reason, "200")
	assert.Contains(t, verr.Issues[0].Reason, "gap")
}

func TestValidateSlabs_Overlap(t *testing.T) {
	slabs := []model.FeeSlab{
		{MinPriceCents: 0, MaxPriceCents: u32(250), FeePercent: 0.05},
		{MinPriceCents: 200, MaxPriceCents: nil, FeePercent: 0.07},
	}
	err := ValidateSlabs(slabs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
}

func TestValidateSlabs_CollectsAllIssues(t *testing.T) {
	slabs := []model.FeeSlab{
		{MinPriceCents: 10, MaxPriceCents: u32(5), FeePercent: 1.5},
		{MinPriceCents: 100, MaxPriceCents: u32(200), FeePercent: 0.07},
	}
	err := ValidateSlabs(slabs)
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	// max<=min, percent out of range, gap below 10, gap 6..99, bounded last.
	assert.GreaterOrEqual(t, len(verr.Issues), 4)
	assert.GreaterOrEqual(t, strings.Count(err.Error(), ";"), 3)
}

func TestValidateSlabs_UnboundedMustBeLast(t *testing.T) {
	slabs := []model.FeeSlab{
		{MinPriceCents: 0, MaxPriceCents: nil, FeePercent: 0.05},
		{MinPriceCents: 500, MaxPriceCents: nil, FeePercent: 0.07},
	}
	err := ValidateSlabs(slabs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbounded")
}
