package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
)

const sectorColumns = `id, sessao_id, nome, capacidade_definida, capacidade_calculada`

// SectorRepo manages persistence for sectors.
type SectorRepo struct {
	db *sqlx.DB
}

// NewSectorRepo constructs a SectorRepo with the given DB handle.
func NewSectorRepo(db *sqlx.DB) *SectorRepo { return &SectorRepo{db: db} }

// CreateTx inserts a sector inside tx and assigns the generated ID.
func (r *SectorRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, s *model.Sector) error {
	const q = `INSERT INTO setores (sessao_id, nome, capacidade_definida, capacidade_calculada) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.SessionID, s.Name, s.DefinedCapacity, s.CalculatedCapacity)
	if err != nil {
		return fmt.Errorf("insert sector: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// ListBySession returns a session's sectors in insertion order.
func (r *SectorRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Sector, error) {
	return r.list(ctx, r.db, sessionID)
}

// ListBySessionTx is ListBySession inside tx.
func (r *SectorRepo) ListBySessionTx(ctx context.Context, tx *sqlx.Tx, sessionID uint64) ([]model.Sector, error) {
	return r.list(ctx, tx, sessionID)
}

func (r *SectorRepo) list(ctx context.Context, q sqlx.QueryerContext, sessionID uint64) ([]model.Sector, error) {
	out := []model.Sector{}
	err := sqlx.SelectContext(ctx, q, &out, `SELECT `+sectorColumns+` FROM setores WHERE sessao_id = ? ORDER BY id`, sessionID)
	return out, err
}

// GetByIDTx loads a sector inside tx.
func (r *SectorRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (*model.Sector, error) {
	var s model.Sector
	if err := tx.GetContext(ctx, &s, `SELECT `+sectorColumns+` FROM setores WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// RecalculateTx sets capacidade_calculada to the sum of the sector's ticket
// type quantities.
func (r *SectorRepo) RecalculateTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	const q = `UPDATE setores
	              SET capacidade_calculada = (SELECT COALESCE(SUM(quantidade), 0) FROM ingressos WHERE setor_id = ?)
	            WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, id, id)
	if err != nil {
		return fmt.Errorf("recalculate sector capacity: %w", err)
	}
	return expectOne(res, ErrNotFound)
}
