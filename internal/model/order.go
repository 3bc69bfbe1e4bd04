package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderPending   = "PENDENTE"
	OrderPaid      = "PAGO"
	OrderCancelled = "CANCELADO"
)

// Order groups the tickets bought under one payment.  PaymentRef holds the
// PIX copy-and-paste code, the boleto line or the card's last four digits;
// raw card data is never stored.
type Order struct {
	ID            uint64          `db:"id" json:"id"`
	EventID       uint64          `db:"evento_id" json:"evento_id"`
	SessionID     uint64          `db:"sessao_id" json:"sessao_id"`
	BuyerName     string          `db:"nome_comprador" json:"nome_comprador"`
	BuyerEmail    string          `db:"email_comprador" json:"email_comprador"`
	BuyerCPF      string          `db:"cpf_comprador" json:"cpf_comprador,omitempty"`
	CustomerID    string          `db:"cliente_id" json:"-"`
	PaymentMethod string          `db:"metodo_pagamento" json:"metodo_pagamento"`
	PaymentRef    *string         `db:"referencia_pagamento" json:"referencia_pagamento,omitempty"`
	CouponCode    *string         `db:"cupom_codigo" json:"cupom_codigo,omitempty"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount      decimal.Decimal `db:"desconto" json:"desconto"`
	Fee           decimal.Decimal `db:"taxa" json:"taxa"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Status        string          `db:"status" json:"status"`
	PaidAt        *time.Time      `db:"pago_em" json:"pago_em,omitempty"`
	CreatedAt     time.Time       `db:"criado_em" json:"criado_em"`

	Items []OrderItem `db:"-" json:"itens"`
}

// TicketCount is the number of tickets the order issues once paid.
func (o Order) TicketCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// OrderItem is one line of an order.  Seats is a comma separated list of
// seat labels for assigned-seating events, empty otherwise.
type OrderItem struct {
	ID           uint64          `db:"id" json:"id"`
	OrderID      uint64          `db:"pedido_id" json:"pedido_id"`
	TicketTypeID uint64          `db:"ingresso_id" json:"ingresso_id"`
	Quantity     int             `db:"quantidade" json:"quantidade"`
	UnitPrice    decimal.Decimal `db:"valor_unitario" json:"valor_unitario"`
	Seats        string          `db:"assentos" json:"assentos,omitempty"`
}

// SeatLabels splits Seats into labels.
func (i OrderItem) SeatLabels() []string {
	if strings.TrimSpace(i.Seats) == "" {
		return nil
	}
	parts := strings.Split(i.Seats, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
