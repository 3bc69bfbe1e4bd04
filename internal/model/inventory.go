package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sector is a named area of a session's venue.  DefinedCapacity, when > 0,
// caps the sum of sold and courtesy tickets across all of its ticket types;
// CalculatedCapacity mirrors the sum of those types' quantities.
type Sector struct {
	ID                 uint64 `db:"id" json:"id"`
	SessionID          uint64 `db:"sessao_id" json:"sessao_id"`
	Name               string `db:"nome" json:"nome"`
	DefinedCapacity    int    `db:"capacidade_definida" json:"capacidade_definida"`
	CalculatedCapacity int    `db:"capacidade_calculada" json:"capacidade_calculada"`
}

// EffectiveCapacity returns the sector's controlling size: the defined
// capacity when set, the calculated one otherwise.
func (s Sector) EffectiveCapacity() int {
	if s.DefinedCapacity > 0 {
		return s.DefinedCapacity
	}
	return s.CalculatedCapacity
}

// Lot is a time-boxed batch of inventory inside a sector.  SectorName is a
// display copy; SectorID is the owning reference.
type Lot struct {
	ID         uint64     `db:"id" json:"id"`
	SessionID  uint64     `db:"sessao_id" json:"sessao_id"`
	SectorID   uint64     `db:"setor_id" json:"setor_id"`
	SectorName string     `db:"setor" json:"setor"`
	Name       string     `db:"nome" json:"nome"`
	Total      int        `db:"quantidade_total" json:"quantidade_total"`
	Sold       int        `db:"quantidade_vendida" json:"quantidade_vendida"`
	StartsAt   *time.Time `db:"inicio" json:"inicio,omitempty"`
	EndsAt     *time.Time `db:"fim" json:"fim,omitempty"`
}

// ActiveAt reports whether t falls inside the lot's validity window.  An
// open bound is unbounded.
func (l Lot) ActiveAt(t time.Time) bool {
	if l.StartsAt != nil && t.Before(*l.StartsAt) {
		return false
	}
	if l.EndsAt != nil && t.After(*l.EndsAt) {
		return false
	}
	return true
}

// TicketType is a priced, sellable unit inside a sector and optionally a lot.
type TicketType struct {
	ID         uint64          `db:"id" json:"id"`
	SessionID  uint64          `db:"sessao_id" json:"sessao_id"`
	SectorID   uint64          `db:"setor_id" json:"setor_id"`
	SectorName string          `db:"setor" json:"setor"`
	LotID      *uint64         `db:"lote_id" json:"lote_id,omitempty"`
	Name       string          `db:"nome" json:"nome"`
	Price      decimal.Decimal `db:"valor" json:"valor"`
	Quantity   int             `db:"quantidade" json:"quantidade"`
	Sold       int             `db:"vendidos" json:"vendidos"`
	Courtesies int             `db:"cortesias" json:"cortesias"`
}

// Used is the inventory this type has consumed.
func (t TicketType) Used() int { return t.Sold + t.Courtesies }
