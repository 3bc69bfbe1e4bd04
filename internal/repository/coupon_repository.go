package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
)

const couponColumns = `id, sessao_id, codigo, tipo_desconto, valor_desconto, limite_uso, usos, validade_inicio, validade_fim`

// CouponRepo manages persistence for session coupons.
type CouponRepo struct {
	db *sqlx.DB
}

// NewCouponRepo constructs a CouponRepo with the given DB handle.
func NewCouponRepo(db *sqlx.DB) *CouponRepo { return &CouponRepo{db: db} }

// CreateTx inserts a coupon inside tx.  A code already used in the same
// session yields ErrConflict.
func (r *CouponRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, c *model.Coupon) error {
	const q = `INSERT INTO cupons (sessao_id, codigo, tipo_desconto, valor_desconto, limite_uso, usos, validade_inicio, validade_fim)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, c.SessionID, c.Code, c.DiscountType, c.DiscountValue, c.UsageLimit, c.Uses,
		utcPtr(c.ValidFrom), utcPtr(c.ValidUntil))
	if err != nil {
		return fmt.Errorf("insert coupon: %w", uniqueViolation(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ListBySessionTx returns a session's coupons inside tx.
func (r *CouponRepo) ListBySessionTx(ctx context.Context, tx *sqlx.Tx, sessionID uint64) ([]model.Coupon, error) {
	out := []model.Coupon{}
	err := tx.SelectContext(ctx, &out, `SELECT `+couponColumns+` FROM cupons WHERE sessao_id = ? ORDER BY id`, sessionID)
	return out, err
}

// GetByCodeTx loads the session's coupon with the given code.
func (r *CouponRepo) GetByCodeTx(ctx context.Context, tx *sqlx.Tx, sessionID uint64, code string) (*model.Coupon, error) {
	var c model.Coupon
	err := tx.GetContext(ctx, &c, `SELECT `+couponColumns+` FROM cupons WHERE sessao_id = ? AND codigo = ?`, sessionID, code)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// IncrementUseTx consumes one use of the coupon.  It returns ErrConflict
// when the usage limit has already been reached.
func (r *CouponRepo) IncrementUseTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	const q = `UPDATE cupons SET usos = usos + 1 WHERE id = ? AND (limite_uso = 0 OR usos < limite_uso)`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("increment coupon use: %w", err)
	}
	return expectOne(res, ErrConflict)
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
