package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
)

const lotColumns = `id, sessao_id, setor_id, setor, nome, quantidade_total, quantidade_vendida, inicio, fim`

// LotRepo manages persistence for lots.
type LotRepo struct {
	db *sqlx.DB
}

// NewLotRepo constructs a LotRepo with the given DB handle.
func NewLotRepo(db *sqlx.DB) *LotRepo { return &LotRepo{db: db} }

// CreateTx inserts a lot inside tx and assigns the generated ID.
func (r *LotRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, l *model.Lot) error {
	const q = `INSERT INTO lotes (sessao_id, setor_id, setor, nome, quantidade_total, quantidade_vendida, inicio, fim)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.SessionID, l.SectorID, l.SectorName, l.Name, l.Total, l.Sold,
		utcPtr(l.StartsAt), utcPtr(l.EndsAt))
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// ListBySession returns a session's lots in insertion order.
func (r *LotRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Lot, error) {
	return r.list(ctx, r.db, sessionID)
}

// ListBySessionTx is ListBySession inside tx.
func (r *LotRepo) ListBySessionTx(ctx context.Context, tx *sqlx.Tx, sessionID uint64) ([]model.Lot, error) {
	return r.list(ctx, tx, sessionID)
}

func (r *LotRepo) list(ctx context.Context, q sqlx.QueryerContext, sessionID uint64) ([]model.Lot, error) {
	out := []model.Lot{}
	err := sqlx.SelectContext(ctx, q, &out, `SELECT `+lotColumns+` FROM lotes WHERE sessao_id = ? ORDER BY id`, sessionID)
	return out, err
}

// AddSoldTx atomically adds n to quantidade_vendida.
func (r *LotRepo) AddSoldTx(ctx context.Context, tx *sqlx.Tx, id uint64, n int) error {
	res, err := tx.ExecContext(ctx, `UPDATE lotes SET quantidade_vendida = quantidade_vendida + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("add sold to lot: %w", err)
	}
	return expectOne(res, ErrNotFound)
}
