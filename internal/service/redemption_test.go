package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ingressos/internal/model"
	"github.com/iliyamo/ingressos/internal/queue"
)

func issueOne(t *testing.T, e *env) (*PublishedEvent, IssuedTicket) {
	t.Helper()
	pub := e.publish(t, festival())
	sales := NewSales(e.deps, nil, qrBase)
	o, err := sales.CreateOrder(context.Background(), order(pub.Session.ID, typeByName(t, pub, "Pista", "Inteira"), 1))
	require.NoError(t, err)
	receipt, err := sales.ConfirmPayment(context.Background(), o.ID, PaymentConfirmation{})
	require.NoError(t, err)
	return pub, receipt.Tickets[0]
}

func TestValidate_OnceThenAlreadyUsed(t *testing.T) {
	e := newEnv(t)
	pub, tk := issueOne(t, e)
	v := NewRedemptionValidator(e.deps)
	ctx := context.Background()

	r, err := v.Validate(ctx, pub.Event.ID, tk.Code)
	require.NoError(t, err)
	assert.Equal(t, model.TicketUsed, r.Ticket.Status)
	assert.Equal(t, pub.Session.ID, r.Session.ID)
	assert.Equal(t, "Festival", r.Event.Name)

	// A later attempt reports the first redemption time.
	later := e.deps
	later.Now = func() time.Time { return testNow.Add(time.Hour) }
	_, err = NewRedemptionValidator(later).Validate(ctx, pub.Event.ID, tk.Code)

	require.ErrorIs(t, err, ErrAlreadyUsed)
	var used *AlreadyUsedError
	require.True(t, errors.As(err, &used))
	assert.True(t, used.UsedAt.Equal(testNow))

	stored, err := e.store.SoldTickets.GetByCodeForEvent(ctx, pub.Event.ID, tk.Code)
	require.NoError(t, err)
	assert.True(t, stored.UsedAt.Equal(testNow))
	assert.Equal(t, []string{queue.KindTicketsIssued, queue.KindTicketRedeemed}, e.activity.kinds())
}

func TestValidate_ScopedToEvent(t *testing.T) {
	e := newEnv(t)
	pub, tk := issueOne(t, e)
	v := NewRedemptionValidator(e.deps)

	_, err := v.Validate(context.Background(), pub.Event.ID+1, tk.Code)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	_, err = v.Validate(context.Background(), pub.Event.ID, "nope")
	assert.ErrorIs(t, err, ErrTicketNotFound)

	_, err = v.Validate(context.Background(), pub.Event.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate_ConcurrentAttemptsAdmitOnce(t *testing.T) {
	e := newEnv(t)
	pub, tk := issueOne(t, e)
	v := NewRedemptionValidator(e.deps)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = v.Validate(context.Background(), pub.Event.ID, tk.Code)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyUsed)
	}
	assert.Equal(t, 1, admitted)
}
