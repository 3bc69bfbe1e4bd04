package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ingressos/internal/database"
	"github.com/iliyamo/ingressos/internal/queue"
	"github.com/iliyamo/ingressos/internal/repository"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []queue.TicketActivity
}

func (r *recorder) Publish(_ context.Context, ev queue.TicketActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

type env struct {
	deps     Deps
	store    *repository.Store
	activity *recorder
	logs     *test.Hook
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvOn(t, database.OpenTestSQLite(t))
}

// newPooledEnv lets up to conns transactions run at once.
func newPooledEnv(t *testing.T, conns int) *env {
	t.Helper()
	return newEnvOn(t, database.OpenTestSQLitePool(t, conns))
}

func newEnvOn(t *testing.T, db *sqlx.DB) *env {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	store := repository.NewStore(db)
	rec := &recorder{}
	return &env{
		deps: Deps{
			Store:    store,
			Activity: rec,
			Log:      logrus.NewEntry(logger),
			Now:      func() time.Time { return testNow },
		},
		store:    store,
		activity: rec,
		logs:     hook,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// festival is an event without assigned seating: Pista sells Inteira (100)
// and Meia (50) on their own quantities; Camarote has a defined capacity
// of 20 shared by two types without quantity.
func festival() EventDraft {
	return EventDraft{
		Name:      "Festival",
		StartsAt:  testNow.Add(30 * 24 * time.Hour),
		Location:  "Arena",
		Category:  "Show",
		ClientFee: dec("10"),
		Sectors: []SectorDraft{
			{Name: "Pista", Types: []TicketTypeDraft{
				{Name: "Inteira", Price: dec("100.00"), Quantity: 100},
				{Name: "Meia", Price: dec("50.00"), Quantity: 50},
			}},
			{Name: "Camarote", DefinedCapacity: 20, Types: []TicketTypeDraft{
				{Name: "Open bar", Price: dec("300.00")},
				{Name: "Open bar", Price: dec("250.00")},
			}},
		},
		Coupons: []CouponDraft{
			{Code: "PROMO10", DiscountType: "PERCENTUAL", DiscountValue: dec("10"), UsageLimit: 1},
		},
	}
}

func (e *env) publish(t *testing.T, d EventDraft) *PublishedEvent {
	t.Helper()
	out, err := NewEventPublisher(e.deps, nil).PublishEvent(context.Background(), d)
	require.NoError(t, err)
	return out
}

func typeByName(t *testing.T, p *PublishedEvent, sector, name string) uint64 {
	t.Helper()
	for _, tt := range p.Types {
		if tt.SectorName == sector && tt.Name == name {
			return tt.ID
		}
	}
	t.Fatalf("no ticket type %s/%s", sector, name)
	return 0
}
