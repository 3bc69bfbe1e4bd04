package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
)

const sessionColumns = `id, evento_id, data_hora, numero, is_original, versao_inventario, criado_em`

// SessionRepo manages persistence for sessions.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// CreateTx inserts a session inside tx and assigns the generated ID.  A
// second session with the same number for an event yields ErrConflict.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, s *model.Session) error {
	const q = `INSERT INTO sessoes (evento_id, data_hora, numero, is_original, versao_inventario, criado_em)
	           VALUES (?, ?, ?, ?, 0, ?)`
	res, err := tx.ExecContext(ctx, q, s.EventID, s.StartsAt.UTC(), s.Number, s.IsOriginal, s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert session: %w", uniqueViolation(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID loads a session or returns ErrNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (*model.Session, error) {
	return r.get(ctx, tx, id)
}

func (r *SessionRepo) get(ctx context.Context, q sqlx.QueryerContext, id uint64) (*model.Session, error) {
	var s model.Session
	if err := sqlx.GetContext(ctx, q, &s, `SELECT `+sessionColumns+` FROM sessoes WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ListByEvent returns an event's sessions ordered by number.
func (r *SessionRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Session, error) {
	out := []model.Session{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+sessionColumns+` FROM sessoes WHERE evento_id = ? ORDER BY numero`, eventID)
	return out, err
}

// OriginalByEventTx returns the event's original session.
func (r *SessionRepo) OriginalByEventTx(ctx context.Context, tx *sqlx.Tx, eventID uint64) (*model.Session, error) {
	var s model.Session
	err := tx.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM sessoes WHERE evento_id = ? AND is_original = ?`, eventID, true)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// NextNumberTx returns the number the event's next session takes.
func (r *SessionRepo) NextNumberTx(ctx context.Context, tx *sqlx.Tx, eventID uint64) (int, error) {
	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COALESCE(MAX(numero), 0) + 1 FROM sessoes WHERE evento_id = ?`, eventID); err != nil {
		return 0, err
	}
	return n, nil
}

// BumpInventoryTx increments the session's inventory version.  Being the
// first write of an inventory transaction, it takes the session row lock
// so that concurrent sales of the same session run one after the other.
func (r *SessionRepo) BumpInventoryTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `UPDATE sessoes SET versao_inventario = versao_inventario + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("bump inventory version: %w", err)
	}
	return expectOne(res, ErrNotFound)
}

// DeleteTx removes a session and its inventory rows.  Rows are deleted
// explicitly so the result does not depend on foreign key enforcement.
func (r *SessionRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	stmts := []string{
		`DELETE FROM cupons WHERE sessao_id = ?`,
		`DELETE FROM ingressos WHERE sessao_id = ?`,
		`DELETE FROM lotes WHERE sessao_id = ?`,
		`DELETE FROM setores WHERE sessao_id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete session inventory: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessoes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return expectOne(res, ErrNotFound)
}
