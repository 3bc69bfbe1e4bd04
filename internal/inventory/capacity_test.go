package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ingressos/internal/model"
)

func u64(v uint64) *uint64 { return &v }

func TestResolve_TypeLevel(t *testing.T) {
	pista := model.Sector{ID: 1, Name: "Pista"}
	inteira := model.TicketType{ID: 10, SectorID: 1, Name: "Inteira", Quantity: 100, Sold: 40, Courtesies: 5}
	snap := NewSnapshot([]model.Sector{pista}, nil, []model.TicketType{inteira})

	c := Resolve(inteira, snap)

	assert.Equal(t, LevelType, c.Level)
	assert.Equal(t, 100, c.Cap)
	assert.Equal(t, 45, c.Used)
	assert.Equal(t, 55, c.Available)
	assert.False(t, c.Allows(60))
	assert.True(t, c.Allows(55))
}

func TestResolve_LotLevelSumsSiblings(t *testing.T) {
	lot := model.Lot{ID: 7, SectorID: 1, Total: 50}
	a := model.TicketType{ID: 1, SectorID: 1, LotID: u64(7), Sold: 20, Courtesies: 2}
	b := model.TicketType{ID: 2, SectorID: 1, LotID: u64(7), Sold: 10}
	other := model.TicketType{ID: 3, SectorID: 1, LotID: u64(8), Sold: 99}
	snap := NewSnapshot([]model.Sector{{ID: 1}}, []model.Lot{lot}, []model.TicketType{a, b, other})

	c := Resolve(a, snap)

	assert.Equal(t, LevelLot, c.Level)
	assert.Equal(t, 50, c.Cap)
	assert.Equal(t, 32, c.Used)
	assert.Equal(t, 18, c.Available)
}

func TestResolve_SectorLevel(t *testing.T) {
	sec := model.Sector{ID: 4, DefinedCapacity: 30}
	a := model.TicketType{ID: 1, SectorID: 4, Sold: 10}
	b := model.TicketType{ID: 2, SectorID: 4, Courtesies: 5}
	snap := NewSnapshot([]model.Sector{sec}, nil, []model.TicketType{a, b})

	c := Resolve(b, snap)

	assert.Equal(t, LevelSector, c.Level)
	assert.Equal(t, 15, c.Available)
}

func TestResolve_OwnQuantityWinsOverLotAndSector(t *testing.T) {
	sec := model.Sector{ID: 1, DefinedCapacity: 1000}
	lot := model.Lot{ID: 2, SectorID: 1, Total: 500}
	tt := model.TicketType{ID: 3, SectorID: 1, LotID: u64(2), Quantity: 10, Sold: 4}
	snap := NewSnapshot([]model.Sector{sec}, []model.Lot{lot}, []model.TicketType{tt})

	c := Resolve(tt, snap)

	assert.Equal(t, LevelType, c.Level)
	assert.Equal(t, 6, c.Available)
}

func TestResolve_NoControlIsNeverPurchasable(t *testing.T) {
	tt := model.TicketType{ID: 1, SectorID: 1}
	snap := NewSnapshot([]model.Sector{{ID: 1}}, nil, []model.TicketType{tt})

	c := Resolve(tt, snap)

	assert.Equal(t, LevelNone, c.Level)
	assert.Equal(t, 0, c.Available)
	assert.False(t, c.Allows(1))
	assert.Empty(t, Purchasable(snap, 0))
}

func TestResolve_OversoldNeverReportedPurchasable(t *testing.T) {
	tt := model.TicketType{ID: 1, SectorID: 1, Quantity: 10, Sold: 12}
	snap := NewSnapshot(nil, nil, []model.TicketType{tt})

	c := Resolve(tt, snap)

	assert.Equal(t, -2, c.Available)
	assert.Equal(t, 0, c.Remaining())
	assert.False(t, c.Allows(1))
}

func TestPurchasable_FiltersBySector(t *testing.T) {
	types := []model.TicketType{
		{ID: 1, SectorID: 1, Quantity: 5},
		{ID: 2, SectorID: 1, Quantity: 5, Sold: 5},
		{ID: 3, SectorID: 2, Quantity: 5},
	}
	snap := NewSnapshot([]model.Sector{{ID: 1}, {ID: 2}}, nil, types)

	got := Purchasable(snap, 1)

	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)
	assert.Len(t, Purchasable(snap, 0), 2)
}

func TestFits_SectorCapacityBindsTypeWithQuantity(t *testing.T) {
	sec := model.Sector{ID: 1, DefinedCapacity: 10}
	tt := model.TicketType{ID: 1, SectorID: 1, Quantity: 100}
	snap := NewSnapshot([]model.Sector{sec}, nil, []model.TicketType{tt})

	c, ok := Fits(tt, snap, 30)
	assert.False(t, ok)
	assert.Equal(t, LevelSector, c.Level)
	assert.Equal(t, 10, c.Remaining())

	c, ok = Fits(tt, snap, 10)
	assert.True(t, ok)
	assert.Equal(t, LevelType, c.Level)
	assert.Equal(t, 100, Resolve(tt, snap).Available)
}

func TestFits_LotTotalBindsTypesWithQuantity(t *testing.T) {
	lot := model.Lot{ID: 5, SectorID: 1, Total: 5}
	a := model.TicketType{ID: 1, SectorID: 1, LotID: u64(5), Quantity: 10}
	b := model.TicketType{ID: 2, SectorID: 1, LotID: u64(5), Quantity: 10}
	snap := NewSnapshot([]model.Sector{{ID: 1}}, []model.Lot{lot}, []model.TicketType{a, b})

	_, ok := Fits(a, snap, 10)
	assert.False(t, ok)
	_, ok = Fits(a, snap, 4)
	require.True(t, ok)
	snap.AddSold(a.ID, 4)

	c, ok := Fits(b, snap, 2)
	assert.False(t, ok)
	assert.Equal(t, LevelLot, c.Level)
	_, ok = Fits(b, snap, 1)
	assert.True(t, ok)
}

func TestFits_UnknownLotFallsBackToSector(t *testing.T) {
	sec := model.Sector{ID: 1, DefinedCapacity: 3}
	tt := model.TicketType{ID: 1, SectorID: 1, LotID: u64(99)}
	snap := NewSnapshot([]model.Sector{sec}, nil, []model.TicketType{tt})

	c, ok := Fits(tt, snap, 3)

	assert.True(t, ok)
	assert.Equal(t, LevelSector, c.Level)
	_, ok = Fits(tt, snap, 4)
	assert.False(t, ok)
}

func TestPurchasable_HonoursSectorCapacity(t *testing.T) {
	sec := model.Sector{ID: 1, DefinedCapacity: 5}
	types := []model.TicketType{
		{ID: 1, SectorID: 1, Quantity: 50, Sold: 3},
		{ID: 2, SectorID: 1, Quantity: 50, Courtesies: 2},
	}
	snap := NewSnapshot([]model.Sector{sec}, nil, types)

	assert.Empty(t, Purchasable(snap, 1))
}

func TestSnapshot_AddSoldAffectsLaterResolution(t *testing.T) {
	lot := model.Lot{ID: 1, Total: 10}
	a := model.TicketType{ID: 1, LotID: u64(1)}
	b := model.TicketType{ID: 2, LotID: u64(1)}
	snap := NewSnapshot(nil, []model.Lot{lot}, []model.TicketType{a, b})

	snap.AddSold(1, 7)

	assert.Equal(t, 3, Resolve(b, snap).Available)
}

func TestOnSale_LotWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)
	lot := model.Lot{ID: 1, StartsAt: &start}
	tt := model.TicketType{ID: 1, LotID: u64(1)}
	snap := NewSnapshot(nil, []model.Lot{lot}, []model.TicketType{tt})

	assert.False(t, OnSale(tt, snap, now))
	assert.True(t, OnSale(tt, snap, now.Add(2*time.Hour)))
	assert.True(t, OnSale(model.TicketType{ID: 2}, snap, now))
}
