package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
)

const soldTicketColumns = `id, pedido_id, evento_id, sessao_id, ingresso_id, codigo, nome_comprador, email_comprador,
	cpf_comprador, assento, valor, tipo_pagamento, status, utilizado_em, criado_em`

// SoldTicketRepo manages persistence for issued tickets.
type SoldTicketRepo struct {
	db *sqlx.DB
}

// NewSoldTicketRepo constructs a SoldTicketRepo with the given DB handle.
func NewSoldTicketRepo(db *sqlx.DB) *SoldTicketRepo { return &SoldTicketRepo{db: db} }

// CreateTx inserts one ticket inside tx.  A duplicated code, or a seat
// already taken in the session, yields ErrConflict.
func (r *SoldTicketRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, t *model.SoldTicket) error {
	const q = `INSERT INTO ingressos_vendidos (pedido_id, evento_id, sessao_id, ingresso_id, codigo, nome_comprador,
	               email_comprador, cpf_comprador, assento, valor, tipo_pagamento, status, utilizado_em, criado_em)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.OrderID, t.EventID, t.SessionID, t.TicketTypeID, t.Code, t.BuyerName,
		t.BuyerEmail, t.BuyerCPF, t.Seat, t.Price, t.PaymentType, t.Status, utcPtr(t.UsedAt), t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert sold ticket: %w", uniqueViolation(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// CreateBulkTx inserts every ticket in order, stopping at the first error.
func (r *SoldTicketRepo) CreateBulkTx(ctx context.Context, tx *sqlx.Tx, tickets []model.SoldTicket) error {
	for i := range tickets {
		if err := r.CreateTx(ctx, tx, &tickets[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetByCodeForEvent looks a ticket up by code scoped to an event.  A code
// that belongs to another event is reported as ErrNotFound.
func (r *SoldTicketRepo) GetByCodeForEvent(ctx context.Context, eventID uint64, code string) (*model.SoldTicket, error) {
	return r.getByCode(ctx, r.db, eventID, code)
}

// GetByCodeForEventTx is GetByCodeForEvent inside tx.
func (r *SoldTicketRepo) GetByCodeForEventTx(ctx context.Context, tx *sqlx.Tx, eventID uint64, code string) (*model.SoldTicket, error) {
	return r.getByCode(ctx, tx, eventID, code)
}

func (r *SoldTicketRepo) getByCode(ctx context.Context, q sqlx.QueryerContext, eventID uint64, code string) (*model.SoldTicket, error) {
	var t model.SoldTicket
	err := sqlx.GetContext(ctx, q, &t, `SELECT `+soldTicketColumns+` FROM ingressos_vendidos WHERE evento_id = ? AND codigo = ?`, eventID, code)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// MarkUsedTx flips an ATIVO ticket to UTILIZADO.  Only one caller can win:
// the others get ErrConflict and should re-read the ticket.
func (r *SoldTicketRepo) MarkUsedTx(ctx context.Context, tx *sqlx.Tx, id uint64, at time.Time) error {
	const q = `UPDATE ingressos_vendidos SET status = ?, utilizado_em = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.TicketUsed, at.UTC(), id, model.TicketActive)
	if err != nil {
		return fmt.Errorf("mark ticket used: %w", err)
	}
	return expectOne(res, ErrConflict)
}

// ListByOrder returns the tickets issued for an order.
func (r *SoldTicketRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.SoldTicket, error) {
	out := []model.SoldTicket{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+soldTicketColumns+` FROM ingressos_vendidos WHERE pedido_id = ? ORDER BY id`, orderID)
	return out, err
}

// ListBySession returns every ticket issued for a session.
func (r *SoldTicketRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.SoldTicket, error) {
	out := []model.SoldTicket{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+soldTicketColumns+` FROM ingressos_vendidos WHERE sessao_id = ? ORDER BY id`, sessionID)
	return out, err
}

// CountBySessionTx returns how many tickets were issued for the session.
func (r *SoldTicketRepo) CountBySessionTx(ctx context.Context, tx *sqlx.Tx, sessionID uint64) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM ingressos_vendidos WHERE sessao_id = ?`, sessionID)
	return n, err
}

// TakenSeatsTx returns the seat labels of the session already issued.
func (r *SoldTicketRepo) TakenSeatsTx(ctx context.Context, tx *sqlx.Tx, sessionID uint64) (map[string]bool, error) {
	var seats []string
	err := tx.SelectContext(ctx, &seats, `SELECT assento FROM ingressos_vendidos WHERE sessao_id = ? AND assento IS NOT NULL`, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(seats))
	for _, s := range seats {
		out[s] = true
	}
	return out, nil
}
