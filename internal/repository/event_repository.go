package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
)

const eventColumns = `id, nome, data_hora, localizacao, categoria, tem_lugar_marcado,
	total_ingressos, ingressos_vendidos, taxa_cliente, imagem_url, criado_em`

// EventRepo manages persistence for events and their aggregate counters.
type EventRepo struct {
	db *sqlx.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

// CreateTx inserts an event inside tx and assigns the generated ID.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, e *model.Event) error {
	const q = `INSERT INTO eventos (nome, data_hora, localizacao, categoria, tem_lugar_marcado,
	               total_ingressos, ingressos_vendidos, taxa_cliente, imagem_url, criado_em)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, e.Name, e.StartsAt.UTC(), e.Location, e.Category, e.AssignedSeating,
		e.TotalTickets, e.TicketsSold, e.ClientFee, e.ImageURL, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID loads an event.  It returns ErrNotFound when it does not exist.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *EventRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (*model.Event, error) {
	return r.get(ctx, tx, id)
}

func (r *EventRepo) get(ctx context.Context, q sqlx.QueryerContext, id uint64) (*model.Event, error) {
	var e model.Event
	if err := sqlx.GetContext(ctx, q, &e, `SELECT `+eventColumns+` FROM eventos WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// AddSoldTx atomically adds n to ingressos_vendidos.
func (r *EventRepo) AddSoldTx(ctx context.Context, tx *sqlx.Tx, id uint64, n int) error {
	res, err := tx.ExecContext(ctx, `UPDATE eventos SET ingressos_vendidos = ingressos_vendidos + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("add sold to event: %w", err)
	}
	return expectOne(res, ErrNotFound)
}

// AddTotalTx atomically adds n (which may be negative) to total_ingressos.
func (r *EventRepo) AddTotalTx(ctx context.Context, tx *sqlx.Tx, id uint64, n int) error {
	res, err := tx.ExecContext(ctx, `UPDATE eventos SET total_ingressos = total_ingressos + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("add total to event: %w", err)
	}
	return expectOne(res, ErrNotFound)
}
