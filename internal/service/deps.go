// Package service implements the transactional use cases of the ticket
// inventory on top of the repositories: publishing events, cloning
// sessions, recording sales and courtesies, validating redemptions and
// holding seats.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ingressos/internal/queue"
	"github.com/iliyamo/ingressos/internal/repository"
)

// ActivityPublisher receives ticket activity after a transaction commits.
// *queue.Publisher satisfies it.
type ActivityPublisher interface {
	Publish(ctx context.Context, ev queue.TicketActivity) error
}

// NopActivity discards activity.  It is used when no broker is configured.
type NopActivity struct{}

func (NopActivity) Publish(context.Context, queue.TicketActivity) error { return nil }

// Deps are the collaborators shared by every service.  Only Store is
// required.
type Deps struct {
	Store    *repository.Store
	Activity ActivityPublisher
	Log      *logrus.Entry
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Store == nil {
		panic("service: nil store")
	}
	if d.Activity == nil {
		d.Activity = NopActivity{}
	}
	if d.Log == nil {
		d.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// publish sends ev and only logs a failure; the transaction it reports on
// has already committed.
func (d Deps) publish(ctx context.Context, ev queue.TicketActivity) {
	ev.OccurredAt = d.Now().UTC().Format(time.RFC3339)
	if err := d.Activity.Publish(ctx, ev); err != nil {
		d.Log.WithError(err).WithField("kind", ev.Kind).Warn("publish ticket activity")
	}
}
