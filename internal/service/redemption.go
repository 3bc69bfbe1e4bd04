package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/ingressos/internal/model"
	"github.com/iliyamo/ingressos/internal/monitoring"
	"github.com/iliyamo/ingressos/internal/queue"
	"github.com/iliyamo/ingressos/internal/repository"
)

// Redemption is a ticket admitted at the door with what staff display.
type Redemption struct {
	Ticket  model.SoldTicket `json:"ingresso"`
	Session model.Session    `json:"sessao"`
	Event   model.Event      `json:"evento"`
}

// RedemptionValidator consumes tickets at the venue entrance.
type RedemptionValidator struct {
	Deps
}

// NewRedemptionValidator returns a RedemptionValidator.
func NewRedemptionValidator(d Deps) *RedemptionValidator {
	return &RedemptionValidator{Deps: d.withDefaults()}
}

// Validate admits the ticket with code at event eventID.  A code of
// another event is ErrTicketNotFound.  A ticket consumed earlier yields an
// *AlreadyUsedError with the first redemption time and nothing is written.
// Of two concurrent validations exactly one succeeds.
func (v *RedemptionValidator) Validate(ctx context.Context, eventID uint64, code string) (*Redemption, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("codigo is required")
	}
	ticket, err := v.Store.SoldTickets.GetByCodeForEvent(ctx, eventID, code)
	if errors.Is(err, repository.ErrNotFound) {
		monitoring.Redemptions.WithLabelValues("not_found").Inc()
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	if ticket.IsUsed() {
		return nil, v.alreadyUsed(ticket)
	}

	now := v.Now()
	out := &Redemption{}
	err = repository.InTx(ctx, v.Store.DB(), func(tx *sqlx.Tx) error {
		if err := v.Store.SoldTickets.MarkUsedTx(ctx, tx, ticket.ID, now); err != nil {
			if !errors.Is(err, repository.ErrConflict) {
				return err
			}
			winner, rerr := v.Store.SoldTickets.GetByCodeForEventTx(ctx, tx, eventID, code)
			if rerr != nil {
				return rerr
			}
			return v.alreadyUsed(winner)
		}
		sess, err := v.Store.Sessions.GetByIDTx(ctx, tx, ticket.SessionID)
		if err != nil {
			return err
		}
		ev, err := v.Store.Events.GetByIDTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		ticket.Status = model.TicketUsed
		ticket.UsedAt = &now
		out.Ticket, out.Session, out.Event = *ticket, *sess, *ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.Redemptions.WithLabelValues("admitted").Inc()
	v.Log.WithField("event_id", eventID).WithField("ticket_id", ticket.ID).Info("ticket redeemed")
	activity := queue.TicketActivity{
		Kind:      queue.KindTicketRedeemed,
		EventID:   eventID,
		SessionID: ticket.SessionID,
		Codes:     []string{ticket.Code},
		Buyer:     ticket.BuyerName,
	}
	if ticket.OrderID != nil {
		activity.OrderID = *ticket.OrderID
	}
	if ticket.Seat != nil {
		activity.Seats = []string{*ticket.Seat}
	}
	v.publish(ctx, activity)
	return out, nil
}

func (v *RedemptionValidator) alreadyUsed(t *model.SoldTicket) error {
	monitoring.Redemptions.WithLabelValues("already_used").Inc()
	e := &AlreadyUsedError{Code: t.Code}
	if t.UsedAt != nil {
		e.UsedAt = *t.UsedAt
	}
	return e
}
