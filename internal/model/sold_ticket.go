package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket statuses.  ACTIVE -> USED is the only transition.
const (
	TicketActive = "ATIVO"
	TicketUsed   = "UTILIZADO"
)

// Payment types recorded on sold tickets and orders.
const (
	PaymentPix      = "PIX"
	PaymentBoleto   = "BOLETO"
	PaymentCard     = "CARTAO"
	PaymentCourtesy = "cortesia"
)

// SoldTicket is one physical ticket, paid or courtesy.  Code is the unique
// redemption string encoded in the ticket's QR code.
type SoldTicket struct {
	ID           uint64          `db:"id" json:"id"`
	OrderID      *uint64         `db:"pedido_id" json:"pedido_id,omitempty"`
	EventID      uint64          `db:"evento_id" json:"evento_id"`
	SessionID    uint64          `db:"sessao_id" json:"sessao_id"`
	TicketTypeID uint64          `db:"ingresso_id" json:"ingresso_id"`
	Code         string          `db:"codigo" json:"codigo"`
	BuyerName    string          `db:"nome_comprador" json:"nome_comprador"`
	BuyerEmail   string          `db:"email_comprador" json:"email_comprador"`
	BuyerCPF     string          `db:"cpf_comprador" json:"cpf_comprador,omitempty"`
	Seat         *string         `db:"assento" json:"assento,omitempty"`
	Price        decimal.Decimal `db:"valor" json:"valor"`
	PaymentType  string          `db:"tipo_pagamento" json:"tipo_pagamento"`
	Status       string          `db:"status" json:"status"`
	UsedAt       *time.Time      `db:"utilizado_em" json:"utilizado_em,omitempty"`
	CreatedAt    time.Time       `db:"criado_em" json:"criado_em"`
}

// IsUsed reports whether the ticket has already been redeemed.
func (t SoldTicket) IsUsed() bool { return t.Status == TicketUsed }
