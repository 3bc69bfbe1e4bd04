package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
)

const ticketTypeColumns = `id, sessao_id, setor_id, setor, lote_id, nome, valor, quantidade, vendidos, cortesias`

// TicketTypeRepo manages persistence for ticket types and their counters.
type TicketTypeRepo struct {
	db *sqlx.DB
}

// NewTicketTypeRepo constructs a TicketTypeRepo with the given DB handle.
func NewTicketTypeRepo(db *sqlx.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

// CreateTx inserts a ticket type inside tx and assigns the generated ID.
func (r *TicketTypeRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, t *model.TicketType) error {
	const q = `INSERT INTO ingressos (sessao_id, setor_id, setor, lote_id, nome, valor, quantidade, vendidos, cortesias)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.SessionID, t.SectorID, t.SectorName, t.LotID, t.Name, t.Price,
		t.Quantity, t.Sold, t.Courtesies)
	if err != nil {
		return fmt.Errorf("insert ticket type: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// ListBySession returns a session's ticket types in insertion order.
func (r *TicketTypeRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.TicketType, error) {
	return r.list(ctx, r.db, sessionID)
}

// ListBySessionTx is ListBySession inside tx.
func (r *TicketTypeRepo) ListBySessionTx(ctx context.Context, tx *sqlx.Tx, sessionID uint64) ([]model.TicketType, error) {
	return r.list(ctx, tx, sessionID)
}

func (r *TicketTypeRepo) list(ctx context.Context, q sqlx.QueryerContext, sessionID uint64) ([]model.TicketType, error) {
	out := []model.TicketType{}
	err := sqlx.SelectContext(ctx, q, &out, `SELECT `+ticketTypeColumns+` FROM ingressos WHERE sessao_id = ? ORDER BY id`, sessionID)
	return out, err
}

// GetByIDTx loads a ticket type inside tx.
func (r *TicketTypeRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (*model.TicketType, error) {
	var t model.TicketType
	if err := tx.GetContext(ctx, &t, `SELECT `+ticketTypeColumns+` FROM ingressos WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// AddSoldTx atomically adds n to vendidos.
func (r *TicketTypeRepo) AddSoldTx(ctx context.Context, tx *sqlx.Tx, id uint64, n int) error {
	res, err := tx.ExecContext(ctx, `UPDATE ingressos SET vendidos = vendidos + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("add sold to ticket type: %w", err)
	}
	return expectOne(res, ErrNotFound)
}

// AddCourtesyTx atomically adds n to cortesias.
func (r *TicketTypeRepo) AddCourtesyTx(ctx context.Context, tx *sqlx.Tx, id uint64, n int) error {
	res, err := tx.ExecContext(ctx, `UPDATE ingressos SET cortesias = cortesias + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("add courtesy to ticket type: %w", err)
	}
	return expectOne(res, ErrNotFound)
}

// AddQuantityTx atomically adds n to quantidade.
func (r *TicketTypeRepo) AddQuantityTx(ctx context.Context, tx *sqlx.Tx, id uint64, n int) error {
	res, err := tx.ExecContext(ctx, `UPDATE ingressos SET quantidade = quantidade + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("add quantity to ticket type: %w", err)
	}
	return expectOne(res, ErrNotFound)
}
