package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Discount kinds stored in cupons.tipo_desconto.
const (
	DiscountPercent = "PERCENTUAL"
	DiscountFixed   = "FIXO"
)

// Coupon is a discount code scoped to one session.  UsageLimit 0 means
// unlimited uses.
type Coupon struct {
	ID            uint64          `db:"id" json:"id"`
	SessionID     uint64          `db:"sessao_id" json:"sessao_id"`
	Code          string          `db:"codigo" json:"codigo"`
	DiscountType  string          `db:"tipo_desconto" json:"tipo_desconto"`
	DiscountValue decimal.Decimal `db:"valor_desconto" json:"valor_desconto"`
	UsageLimit    int             `db:"limite_uso" json:"limite_uso"`
	Uses          int             `db:"usos" json:"usos"`
	ValidFrom     *time.Time      `db:"validade_inicio" json:"validade_inicio,omitempty"`
	ValidUntil    *time.Time      `db:"validade_fim" json:"validade_fim,omitempty"`
}
