package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/ingressos/internal/inventory"
	"github.com/iliyamo/ingressos/internal/model"
	"github.com/iliyamo/ingressos/internal/monitoring"
	"github.com/iliyamo/ingressos/internal/repository"
)

// ClonedSession is the session created by CloneSession with its inventory.
type ClonedSession struct {
	Session model.Session      `json:"sessao"`
	Sectors []model.Sector     `json:"setores"`
	Lots    []model.Lot        `json:"lotes"`
	Types   []model.TicketType `json:"ingressos"`
	Coupons []model.Coupon     `json:"cupons"`
}

// SessionCloner creates additional sessions of an event from its original.
type SessionCloner struct {
	Deps
}

// NewSessionCloner returns a SessionCloner.
func NewSessionCloner(d Deps) *SessionCloner {
	return &SessionCloner{Deps: d.withDefaults()}
}

// CloneSession creates the event's next session at startsAt with the
// structure of the original session: same sectors and lots, one ticket
// type per distinct (name, price) of each sector sharing the sector's
// capacity, and the coupons suffixed with the new session number.  Either
// the whole session is created or nothing is.
func (s *SessionCloner) CloneSession(ctx context.Context, eventID uint64, startsAt time.Time) (*ClonedSession, error) {
	if startsAt.IsZero() {
		return nil, invalid("data_hora is required")
	}
	timer := prometheus.NewTimer(monitoring.TxDuration.WithLabelValues("clone_session"))
	defer timer.ObserveDuration()

	var out *ClonedSession
	err := repository.InTx(ctx, s.Store.DB(), func(tx *sqlx.Tx) error {
		src, err := s.Store.Sessions.OriginalByEventTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		// Bumping the source freezes its inventory until the clone commits.
		if err := s.Store.Sessions.BumpInventoryTx(ctx, tx, src.ID); err != nil {
			return err
		}
		sectors, err := s.Store.Sectors.ListBySessionTx(ctx, tx, src.ID)
		if err != nil {
			return err
		}
		lots, err := s.Store.Lots.ListBySessionTx(ctx, tx, src.ID)
		if err != nil {
			return err
		}
		types, err := s.Store.TicketTypes.ListBySessionTx(ctx, tx, src.ID)
		if err != nil {
			return err
		}
		coupons, err := s.Store.Coupons.ListBySessionTx(ctx, tx, src.ID)
		if err != nil {
			return err
		}
		number, err := s.Store.Sessions.NextNumberTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		plan, err := inventory.PlanClone(sectors, lots, types, coupons, number)
		if err != nil {
			return err
		}

		out = &ClonedSession{Session: model.Session{
			EventID:   eventID,
			StartsAt:  startsAt,
			Number:    number,
			CreatedAt: s.Now(),
		}}
		if err := s.Store.Sessions.CreateTx(ctx, tx, &out.Session); err != nil {
			return err
		}
		if err := s.apply(ctx, tx, plan, out); err != nil {
			return err
		}
		return s.Store.Events.AddTotalTx(ctx, tx, eventID, plan.TicketCount())
	})
	if err != nil {
		return nil, err
	}
	monitoring.SessionsCloned.Inc()
	s.Log.WithField("event_id", eventID).WithField("session_id", out.Session.ID).
		WithField("numero", out.Session.Number).Info("session cloned")
	return out, nil
}

// apply inserts the plan's rows under out.Session, remapping the source
// sector and lot ids to the new ones.
func (s *SessionCloner) apply(ctx context.Context, tx *sqlx.Tx, plan inventory.ClonePlan, out *ClonedSession) error {
	sessionID := out.Session.ID
	sectorIDs := make(map[uint64]uint64, len(plan.Sectors))
	for _, sp := range plan.Sectors {
		sec := sp.Sector
		oldID := sec.ID
		sec.ID, sec.SessionID = 0, sessionID
		if err := s.Store.Sectors.CreateTx(ctx, tx, &sec); err != nil {
			return err
		}
		sectorIDs[oldID] = sec.ID
		out.Sectors = append(out.Sectors, sec)
	}

	lotIDs := make(map[uint64]uint64, len(plan.Lots))
	for _, lot := range plan.Lots {
		oldID := lot.ID
		newSector, ok := sectorIDs[lot.SectorID]
		if !ok {
			return fmt.Errorf("lot %d references sector %d outside the session", oldID, lot.SectorID)
		}
		lot.ID, lot.SessionID, lot.SectorID = 0, sessionID, newSector
		if err := s.Store.Lots.CreateTx(ctx, tx, &lot); err != nil {
			return err
		}
		lotIDs[oldID] = lot.ID
		out.Lots = append(out.Lots, lot)
	}

	for _, sp := range plan.Sectors {
		for _, tt := range sp.Types {
			tt.SessionID, tt.SectorID = sessionID, sectorIDs[tt.SectorID]
			if tt.LotID != nil {
				if id, ok := lotIDs[*tt.LotID]; ok {
					tt.LotID = &id
				} else {
					tt.LotID = nil
				}
			}
			if err := s.Store.TicketTypes.CreateTx(ctx, tx, &tt); err != nil {
				return err
			}
			out.Types = append(out.Types, tt)
		}
	}

	for _, c := range plan.Coupons {
		c.ID, c.SessionID = 0, sessionID
		if err := s.Store.Coupons.CreateTx(ctx, tx, &c); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: %s", ErrDuplicateCoupon, c.Code)
			}
			return err
		}
		out.Coupons = append(out.Coupons, c)
	}
	return nil
}

// DeleteSession removes a non-original session that has no issued
// tickets and takes its tickets off the event total.
func (s *SessionCloner) DeleteSession(ctx context.Context, sessionID uint64) error {
	return repository.InTx(ctx, s.Store.DB(), func(tx *sqlx.Tx) error {
		if err := s.Store.Sessions.BumpInventoryTx(ctx, tx, sessionID); err != nil {
			return err
		}
		sess, err := s.Store.Sessions.GetByIDTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if sess.IsOriginal {
			return ErrOriginalSession
		}
		sold, err := s.Store.SoldTickets.CountBySessionTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if sold > 0 {
			return fmt.Errorf("%w: session has %d issued tickets", repository.ErrConflict, sold)
		}
		sectors, err := s.Store.Sectors.ListBySessionTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		types, err := s.Store.TicketTypes.ListBySessionTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		count := inventory.OfferedTickets(sectors, types)
		if err := s.Store.Sessions.DeleteTx(ctx, tx, sessionID); err != nil {
			return err
		}
		return s.Store.Events.AddTotalTx(ctx, tx, sess.EventID, -count)
	})
}
