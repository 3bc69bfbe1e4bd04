package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a published show on the marketplace.  The aggregate counters
// total_ingressos and ingressos_vendidos are maintained by the service layer
// on every publish, add-inventory and sale; courtesies do not touch them.
type Event struct {
	ID              uint64          `db:"id" json:"id"`
	Name            string          `db:"nome" json:"nome"`
	StartsAt        time.Time       `db:"data_hora" json:"data_hora"`
	Location        string          `db:"localizacao" json:"localizacao"`
	Category        string          `db:"categoria" json:"categoria"`
	AssignedSeating bool            `db:"tem_lugar_marcado" json:"tem_lugar_marcado"`
	TotalTickets    int             `db:"total_ingressos" json:"total_ingressos"`
	TicketsSold     int             `db:"ingressos_vendidos" json:"ingressos_vendidos"`
	ClientFee       decimal.Decimal `db:"taxa_cliente" json:"taxa_cliente"` // percentage charged to the buyer
	ImageURL        string          `db:"imagem_url" json:"imagem_url"`
	CreatedAt       time.Time       `db:"criado_em" json:"criado_em"`
}

// Session is one scheduled occurrence of an event.  Session number 1 is the
// original and anchors the event's default inventory; it cannot be deleted.
//
// InventoryVersion is bumped at the start of every transaction that mutates
// the session's counters, which serialises concurrent writers on the
// session row.
type Session struct {
	ID               uint64    `db:"id" json:"id"`
	EventID          uint64    `db:"evento_id" json:"evento_id"`
	StartsAt         time.Time `db:"data_hora" json:"data_hora"`
	Number           int       `db:"numero" json:"numero"`
	IsOriginal       bool      `db:"is_original" json:"is_original"`
	InventoryVersion uint64    `db:"versao_inventario" json:"-"`
	CreatedAt        time.Time `db:"criado_em" json:"criado_em"`
}
