package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ingressos/internal/model"
)

func TestPlanClone_SplitsSectorCapacityAcrossGroups(t *testing.T) {
	sectors := []model.Sector{
		{ID: 1, Name: "Pista", DefinedCapacity: 100},
		{ID: 2, Name: "Camarote", CalculatedCapacity: 31},
	}
	types := []model.TicketType{
		{ID: 1, SectorID: 1, Name: "Inteira", Price: decimal.NewFromInt(100), Quantity: 60, Sold: 12},
		{ID: 2, SectorID: 1, Name: "Meia", Price: decimal.NewFromInt(50), Quantity: 40},
		{ID: 3, SectorID: 1, Name: "Inteira", Price: decimal.NewFromInt(100), Quantity: 5},
		{ID: 4, SectorID: 2, Name: "VIP", Price: decimal.NewFromInt(300), Quantity: 10},
		{ID: 5, SectorID: 2, Name: "VIP", Price: decimal.NewFromInt(350), Quantity: 11},
		{ID: 6, SectorID: 2, Name: "Open bar", Price: decimal.NewFromInt(500), Quantity: 10},
	}

	plan, err := PlanClone(sectors, nil, types, nil, 2)
	require.NoError(t, err)

	require.Len(t, plan.Sectors, 2)
	pista := plan.Sectors[0]
	assert.Equal(t, "Pista", pista.Sector.Name)
	assert.Equal(t, 100, pista.Sector.DefinedCapacity)
	require.Len(t, pista.Types, 2)
	for _, tt := range pista.Types {
		assert.Equal(t, 50, tt.Quantity)
		assert.Equal(t, 0, tt.Sold)
		assert.Equal(t, uint64(1), tt.SectorID)
	}
	camarote := plan.Sectors[1]
	require.Len(t, camarote.Types, 3)
	for _, tt := range camarote.Types {
		assert.Equal(t, 10, tt.Quantity) // floor(31 / 3)
	}
	assert.Equal(t, 30, camarote.Sector.CalculatedCapacity)
	assert.Equal(t, 130, plan.TicketCount())
}

func TestPlanClone_TicketCountKeepsDefinedCapacity(t *testing.T) {
	sectors := []model.Sector{{ID: 1, Name: "Pista", DefinedCapacity: 100}}
	types := []model.TicketType{
		{ID: 1, SectorID: 1, Name: "Inteira", Price: decimal.NewFromInt(100), Quantity: 40},
		{ID: 2, SectorID: 1, Name: "Meia", Price: decimal.NewFromInt(50), Quantity: 40},
		{ID: 3, SectorID: 1, Name: "Idoso", Price: decimal.NewFromInt(50), Quantity: 20},
	}

	plan, err := PlanClone(sectors, nil, types, nil, 2)
	require.NoError(t, err)

	assert.Equal(t, 99, plan.Sectors[0].Sector.CalculatedCapacity)
	assert.Equal(t, 100, plan.TicketCount())
	assert.Equal(t, OfferedTickets(sectors, types), plan.TicketCount())
}

func TestPlanClone_SectorWithoutTypesKeepsNoTypes(t *testing.T) {
	plan, err := PlanClone([]model.Sector{{ID: 1, Name: "Vazio", DefinedCapacity: 10}}, nil, nil, nil, 3)
	require.NoError(t, err)
	require.Len(t, plan.Sectors, 1)
	assert.Empty(t, plan.Sectors[0].Types)
}

func TestPlanClone_KeepsLotReferenceAndResetsLotSales(t *testing.T) {
	lotID := uint64(9)
	lots := []model.Lot{{ID: 9, SectorID: 1, Name: "1º lote", Total: 40, Sold: 33}}
	types := []model.TicketType{{ID: 1, SectorID: 1, LotID: &lotID, Name: "Inteira", Price: decimal.NewFromInt(80)}}

	plan, err := PlanClone([]model.Sector{{ID: 1, Name: "Pista", DefinedCapacity: 40}}, lots, types, nil, 2)
	require.NoError(t, err)

	require.Len(t, plan.Lots, 1)
	assert.Equal(t, 0, plan.Lots[0].Sold)
	assert.Equal(t, 40, plan.Lots[0].Total)
	require.NotNil(t, plan.Sectors[0].Types[0].LotID)
	assert.Equal(t, uint64(9), *plan.Sectors[0].Types[0].LotID)
}

func TestPlanClone_CouponCodesGetSessionSuffix(t *testing.T) {
	coupons := []model.Coupon{
		{Code: "PROMO10", Uses: 4},
		{Code: "AMIGOS"},
	}
	plan, err := PlanClone([]model.Sector{{ID: 1}}, nil, nil, coupons, 3)
	require.NoError(t, err)

	require.Len(t, plan.Coupons, 2)
	assert.Equal(t, "PROMO10_S3", plan.Coupons[0].Code)
	assert.Equal(t, 0, plan.Coupons[0].Uses)
	assert.Equal(t, "AMIGOS_S3", plan.Coupons[1].Code)
}

func TestPlanClone_DuplicateCouponRejected(t *testing.T) {
	_, err := PlanClone([]model.Sector{{ID: 1}}, nil, nil, []model.Coupon{{Code: "X"}, {Code: "X"}}, 2)
	assert.ErrorIs(t, err, ErrDuplicateCoupon)
}

func TestPlanClone_NoSectors(t *testing.T) {
	_, err := PlanClone(nil, nil, nil, nil, 2)
	assert.ErrorIs(t, err, ErrNothingToClone)
}
