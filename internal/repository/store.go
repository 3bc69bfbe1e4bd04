package repository

import "github.com/jmoiron/sqlx"

// Store bundles the repositories of one database so services can compose
// them inside a single transaction.
type Store struct {
	db *sqlx.DB

	Events      *EventRepo
	Sessions    *SessionRepo
	Sectors     *SectorRepo
	Lots        *LotRepo
	TicketTypes *TicketTypeRepo
	Coupons     *CouponRepo
	Orders      *OrderRepo
	SoldTickets *SoldTicketRepo
}

// NewStore wires every repository to db.
func NewStore(db *sqlx.DB) *Store {
	if db == nil {
		panic("nil db passed to NewStore")
	}
	return &Store{
		db:          db,
		Events:      NewEventRepo(db),
		Sessions:    NewSessionRepo(db),
		Sectors:     NewSectorRepo(db),
		Lots:        NewLotRepo(db),
		TicketTypes: NewTicketTypeRepo(db),
		Coupons:     NewCouponRepo(db),
		Orders:      NewOrderRepo(db),
		SoldTickets: NewSoldTicketRepo(db),
	}
}

// DB exposes the underlying handle so callers can start transactions
// spanning several repositories.
func (s *Store) DB() *sqlx.DB { return s.db }
