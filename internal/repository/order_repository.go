package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
)

const orderColumns = `id, evento_id, sessao_id, nome_comprador, email_comprador, cpf_comprador, cliente_id,
	metodo_pagamento, referencia_pagamento, cupom_codigo, subtotal, desconto, taxa, total, status, pago_em, criado_em`

const orderItemColumns = `id, pedido_id, ingresso_id, quantidade, valor_unitario, assentos`

// OrderRepo manages persistence for orders and their items.
type OrderRepo struct {
	db *sqlx.DB
}

// NewOrderRepo constructs an OrderRepo with the given DB handle.
func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateTx inserts the order and every item inside tx, assigning ids.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, o *model.Order) error {
	const q = `INSERT INTO pedidos (evento_id, sessao_id, nome_comprador, email_comprador, cpf_comprador, cliente_id,
	               metodo_pagamento, referencia_pagamento, cupom_codigo, subtotal, desconto, taxa, total, status, pago_em, criado_em)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, o.EventID, o.SessionID, o.BuyerName, o.BuyerEmail, o.BuyerCPF, o.CustomerID,
		o.PaymentMethod, o.PaymentRef, o.CouponCode, o.Subtotal, o.Discount, o.Fee, o.Total, o.Status,
		utcPtr(o.PaidAt), o.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	const qi = `INSERT INTO pedido_itens (pedido_id, ingresso_id, quantidade, valor_unitario, assentos) VALUES (?, ?, ?, ?, ?)`
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		res, err := tx.ExecContext(ctx, qi, it.OrderID, it.TicketTypeID, it.Quantity, it.UnitPrice, it.Seats)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		iid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		it.ID = uint64(iid)
	}
	return nil
}

// GetByID loads an order together with its items.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *OrderRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (*model.Order, error) {
	return r.get(ctx, tx, id)
}

func (r *OrderRepo) get(ctx context.Context, q sqlx.QueryerContext, id uint64) (*model.Order, error) {
	var o model.Order
	if err := sqlx.GetContext(ctx, q, &o, `SELECT `+orderColumns+` FROM pedidos WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	o.Items = []model.OrderItem{}
	if err := sqlx.SelectContext(ctx, q, &o.Items, `SELECT `+orderItemColumns+` FROM pedido_itens WHERE pedido_id = ? ORDER BY id`, id); err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkPaidTx moves a pending order to PAGO.  It returns ErrConflict when
// the order is no longer pending.
func (r *OrderRepo) MarkPaidTx(ctx context.Context, tx *sqlx.Tx, id uint64, paymentRef *string, at time.Time) error {
	const q = `UPDATE pedidos
	              SET status = ?, pago_em = ?, referencia_pagamento = COALESCE(?, referencia_pagamento)
	            WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.OrderPaid, at.UTC(), paymentRef, id, model.OrderPending)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	return expectOne(res, ErrConflict)
}
