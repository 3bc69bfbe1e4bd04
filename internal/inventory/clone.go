package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ingressos/internal/model"
)

var (
	// ErrNothingToClone is returned when the source session has no sectors.
	ErrNothingToClone = errors.New("source session has no sectors")
	// ErrDuplicateCoupon is returned when two coupons would share a code in
	// the same session.
	ErrDuplicateCoupon = errors.New("duplicate coupon code")
)

// ClonePlan describes the rows a new session receives.  IDs inside the plan
// are the source rows' ids; the caller inserts sectors and lots first and
// remaps SectorID and LotID through the ids it gets back.
type ClonePlan struct {
	Sectors []SectorPlan
	Lots    []model.Lot
	Coupons []model.Coupon
}

// SectorPlan is a cloned sector and the ticket types it receives.
type SectorPlan struct {
	Sector model.Sector
	Types  []model.TicketType
}

// TicketCount is the number of tickets the cloned session offers, counted
// as OfferedTickets counts a published session.
func (p ClonePlan) TicketCount() int {
	sectors := make([]model.Sector, 0, len(p.Sectors))
	var types []model.TicketType
	for _, sp := range p.Sectors {
		sectors = append(sectors, sp.Sector)
		types = append(types, sp.Types...)
	}
	return OfferedTickets(sectors, types)
}

type typeGroup struct {
	name  string
	price decimal.Decimal
	lotID *uint64
}

// PlanClone builds the structure of session number sessionNumber from the
// source session's rows.  Sectors keep both capacity fields; lots keep quantities
// and windows with sold reset; each sector receives one ticket type per
// distinct (name, price) pair found in it, sharing the sector's capacity
// evenly (floor).  Coupons get the _S<n> suffix and fresh usage counters.
func PlanClone(sectors []model.Sector, lots []model.Lot, types []model.TicketType, coupons []model.Coupon, sessionNumber int) (ClonePlan, error) {
	if len(sectors) == 0 {
		return ClonePlan{}, ErrNothingToClone
	}
	var plan ClonePlan
	for _, sec := range sectors {
		groups := groupTypes(sec.ID, types)
		sp := SectorPlan{Sector: sec}
		sp.Sector.CalculatedCapacity = 0
		if len(groups) > 0 {
			each := sourceSectorCapacity(sec, types) / len(groups)
			for _, g := range groups {
				sp.Types = append(sp.Types, model.TicketType{
					SectorID:   sec.ID,
					SectorName: sec.Name,
					LotID:      g.lotID,
					Name:       g.name,
					Price:      g.price,
					Quantity:   each,
				})
				sp.Sector.CalculatedCapacity += each
			}
		}
		plan.Sectors = append(plan.Sectors, sp)
	}
	for _, l := range lots {
		l.Sold = 0
		plan.Lots = append(plan.Lots, l)
	}
	seen := make(map[string]struct{}, len(coupons))
	for _, c := range coupons {
		c.Code = CouponCodeForSession(c.Code, sessionNumber)
		if _, dup := seen[c.Code]; dup {
			return ClonePlan{}, fmt.Errorf("%w: %s", ErrDuplicateCoupon, c.Code)
		}
		seen[c.Code] = struct{}{}
		c.Uses = 0
		plan.Coupons = append(plan.Coupons, c)
	}
	return plan, nil
}

// CouponCodeForSession suffixes a coupon code with its session number.
func CouponCodeForSession(code string, sessionNumber int) string {
	return fmt.Sprintf("%s_S%d", code, sessionNumber)
}

func groupTypes(sectorID uint64, types []model.TicketType) []typeGroup {
	var groups []typeGroup
	for _, t := range types {
		if t.SectorID != sectorID {
			continue
		}
		found := false
		for _, g := range groups {
			if g.name == t.Name && g.price.Equal(t.Price) {
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, typeGroup{name: t.Name, price: t.Price, lotID: t.LotID})
		}
	}
	return groups
}

func sourceSectorCapacity(sec model.Sector, types []model.TicketType) int {
	if c := sec.EffectiveCapacity(); c > 0 {
		return c
	}
	return SectorCalculatedCapacity(sec.ID, types)
}
