package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ingressos/internal/model"
	"github.com/iliyamo/ingressos/internal/monitoring"
)

// releaseScript deletes each key only while it still holds the caller's
// token, so an expired lease re-acquired by someone else is left alone.
const releaseScript = `
local n = 0
for _, k in ipairs(KEYS) do
  if redis.call('GET', k) == ARGV[1] then
    n = n + redis.call('DEL', k)
  end
end
return n
`

// SeatLocker leases assigned seats in Redis while a buyer checks out.
// Each seat is its own key holding the holder token; leases expire on
// their own after the TTL.
type SeatLocker struct {
	rdb      redis.Cmdable
	ttl      time.Duration
	newToken func() string
	now      func() time.Time
}

// NewSeatLocker returns a locker on rdb with leases of ttl.
func NewSeatLocker(rdb redis.Cmdable, ttl time.Duration) *SeatLocker {
	return &SeatLocker{rdb: rdb, ttl: ttl, newToken: shortuuid.New, now: time.Now}
}

func seatKey(sessionID uint64, seat string) string {
	return fmt.Sprintf("seat:%d:%s", sessionID, seat)
}

func seatKeys(sessionID uint64, seats []string) []string {
	keys := make([]string, len(seats))
	for i, s := range seats {
		keys[i] = seatKey(sessionID, s)
	}
	return keys
}

// Hold leases every seat for a new holder token.  When one seat is already
// held the seats acquired so far are released and ErrSeatTaken is returned.
func (l *SeatLocker) Hold(ctx context.Context, sessionID uint64, seats []string) (*model.SeatHold, error) {
	if err := checkSeatLabels(seats); err != nil {
		return nil, err
	}
	token := l.newToken()
	var acquired []string
	for _, seat := range seats {
		ok, err := l.rdb.SetNX(ctx, seatKey(sessionID, seat), token, l.ttl).Result()
		if err != nil {
			l.release(ctx, sessionID, acquired, token)
			return nil, fmt.Errorf("hold seat %s: %w", seat, err)
		}
		if !ok {
			l.release(ctx, sessionID, acquired, token)
			monitoring.SeatHoldConflicts.Inc()
			return nil, fmt.Errorf("%w: %s", ErrSeatTaken, seat)
		}
		acquired = append(acquired, seat)
	}
	return &model.SeatHold{
		SessionID: sessionID,
		Seats:     seats,
		HoldToken: token,
		ExpiresAt: l.now().Add(l.ttl),
	}, nil
}

// Release drops the caller's leases on seats.  Seats held by another
// token are untouched.  It returns how many leases were removed.
func (l *SeatLocker) Release(ctx context.Context, sessionID uint64, seats []string, token string) (int64, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	return l.rdb.Eval(ctx, releaseScript, seatKeys(sessionID, seats), token).Int64()
}

func (l *SeatLocker) release(ctx context.Context, sessionID uint64, seats []string, token string) {
	_, _ = l.Release(ctx, sessionID, seats, token)
}

// HeldBy returns the token leasing seat, or "" when it is free.
func (l *SeatLocker) HeldBy(ctx context.Context, sessionID uint64, seat string) (string, error) {
	v, err := l.rdb.Get(ctx, seatKey(sessionID, seat)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Verify checks that token holds every seat.
func (l *SeatLocker) Verify(ctx context.Context, sessionID uint64, seats []string, token string) error {
	for _, seat := range seats {
		holder, err := l.HeldBy(ctx, sessionID, seat)
		if err != nil {
			return fmt.Errorf("read seat lease: %w", err)
		}
		if token == "" || holder != token {
			return fmt.Errorf("%w: %s", ErrSeatNotHeld, seat)
		}
	}
	return nil
}

func checkSeatLabels(seats []string) error {
	if len(seats) == 0 {
		return invalid("at least one seat is required")
	}
	seen := make(map[string]bool, len(seats))
	for _, s := range seats {
		if s == "" {
			return invalid("seat label cannot be empty")
		}
		if seen[s] {
			return invalid("seat " + s + " repeated")
		}
		seen[s] = true
	}
	return nil
}
