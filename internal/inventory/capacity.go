// Package inventory holds the pure rules of the ticket inventory: which
// level controls a ticket type's capacity, how a session's structure is
// cloned, how coupons and fees price an order and how redemption codes are
// built.  Nothing here touches the database.
package inventory

import (
	"time"

	"github.com/iliyamo/ingressos/internal/model"
)

// Level names the inventory level whose cap controls a ticket type.
type Level string

const (
	LevelType   Level = "TIPO"
	LevelLot    Level = "LOTE"
	LevelSector Level = "SETOR"
	LevelNone   Level = "NENHUM"
)

// Capacity is the resolved availability of one ticket type.  Available is
// Cap - Used and may be negative when historical data was oversold.
type Capacity struct {
	Level     Level `json:"nivel"`
	Cap       int   `json:"capacidade"`
	Used      int   `json:"utilizados"`
	Available int   `json:"disponivel"`
}

// Remaining is Available clamped at zero.
func (c Capacity) Remaining() int {
	if c.Available < 0 {
		return 0
	}
	return c.Available
}

// Allows reports whether n more tickets fit under the controlling cap.
func (c Capacity) Allows(n int) bool {
	return n > 0 && c.Available > 0 && n <= c.Available
}

// Snapshot is the inventory of one session at a point in time.
type Snapshot struct {
	Sectors map[uint64]model.Sector
	Lots    map[uint64]model.Lot
	Types   []model.TicketType
}

// NewSnapshot indexes a session's sectors and lots.
func NewSnapshot(sectors []model.Sector, lots []model.Lot, types []model.TicketType) *Snapshot {
	s := &Snapshot{
		Sectors: make(map[uint64]model.Sector, len(sectors)),
		Lots:    make(map[uint64]model.Lot, len(lots)),
		Types:   types,
	}
	for _, sec := range sectors {
		s.Sectors[sec.ID] = sec
	}
	for _, l := range lots {
		s.Lots[l.ID] = l
	}
	return s
}

// Type returns the ticket type with the given id.
func (s *Snapshot) Type(id uint64) (model.TicketType, bool) {
	for _, t := range s.Types {
		if t.ID == id {
			return t, true
		}
	}
	return model.TicketType{}, false
}

// AddSold records n sold tickets of a type in the snapshot so that later
// resolutions in the same transaction see them.
func (s *Snapshot) AddSold(id uint64, n int) {
	for i := range s.Types {
		if s.Types[i].ID == id {
			s.Types[i].Sold += n
			return
		}
	}
}

// Resolve computes a ticket type's availability.  The controlling cap is the
// type's own quantity when positive, else its lot's total, else its sector's
// defined capacity.  Used is summed over every type sharing the controlling
// level.  A type with none of these is never purchasable.
func Resolve(t model.TicketType, snap *Snapshot) Capacity {
	if t.Quantity > 0 {
		return newCapacity(LevelType, t.Quantity, t.Used())
	}
	if c, ok := lotCapacity(t, snap); ok {
		return c
	}
	if c, ok := sectorCapacity(t, snap); ok {
		return c
	}
	return newCapacity(LevelNone, 0, t.Used())
}

// Fits reports whether n more tickets of t can be sold.  Besides the
// controlling cap from Resolve, the lot total and the sector's defined
// capacity bind whenever they are set.  The returned Capacity is the first
// one that refuses n, or the controlling one when all allow it.
func Fits(t model.TicketType, snap *Snapshot, n int) (Capacity, bool) {
	c := Resolve(t, snap)
	if !c.Allows(n) {
		return c, false
	}
	if lc, ok := lotCapacity(t, snap); ok && !lc.Allows(n) {
		return lc, false
	}
	if sc, ok := sectorCapacity(t, snap); ok && !sc.Allows(n) {
		return sc, false
	}
	return c, true
}

func lotCapacity(t model.TicketType, snap *Snapshot) (Capacity, bool) {
	if t.LotID == nil {
		return Capacity{}, false
	}
	lot, ok := snap.Lots[*t.LotID]
	if !ok {
		return Capacity{}, false
	}
	used := 0
	for _, other := range snap.Types {
		if other.LotID != nil && *other.LotID == lot.ID {
			used += other.Used()
		}
	}
	return newCapacity(LevelLot, lot.Total, used), true
}

func sectorCapacity(t model.TicketType, snap *Snapshot) (Capacity, bool) {
	sec, ok := snap.Sectors[t.SectorID]
	if !ok || sec.DefinedCapacity <= 0 {
		return Capacity{}, false
	}
	used := 0
	for _, other := range snap.Types {
		if other.SectorID == sec.ID {
			used += other.Used()
		}
	}
	return newCapacity(LevelSector, sec.DefinedCapacity, used), true
}

func newCapacity(level Level, cap, used int) Capacity {
	return Capacity{Level: level, Cap: cap, Used: used, Available: cap - used}
}

// Purchasable returns the types of a sector with at least one ticket left.
// sectorID 0 selects every sector.
func Purchasable(snap *Snapshot, sectorID uint64) []model.TicketType {
	var out []model.TicketType
	for _, t := range snap.Types {
		if sectorID != 0 && t.SectorID != sectorID {
			continue
		}
		if _, ok := Fits(t, snap, 1); ok {
			out = append(out, t)
		}
	}
	return out
}

// OnSale reports whether the type's lot, if any, is inside its window at now.
func OnSale(t model.TicketType, snap *Snapshot, now time.Time) bool {
	if t.LotID == nil {
		return true
	}
	lot, ok := snap.Lots[*t.LotID]
	if !ok {
		return true
	}
	return lot.ActiveAt(now)
}

// OfferedTickets is how many tickets a session adds to its event's total:
// each sector counts its defined capacity when set, else the quantities of
// its types.
func OfferedTickets(sectors []model.Sector, types []model.TicketType) int {
	total := 0
	for _, sec := range sectors {
		if sec.DefinedCapacity > 0 {
			total += sec.DefinedCapacity
			continue
		}
		total += SectorCalculatedCapacity(sec.ID, types)
	}
	return total
}

// SectorCalculatedCapacity sums the quantities of a sector's types.
func SectorCalculatedCapacity(sectorID uint64, types []model.TicketType) int {
	total := 0
	for _, t := range types {
		if t.SectorID == sectorID {
			total += t.Quantity
		}
	}
	return total
}
