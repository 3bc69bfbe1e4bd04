package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker() (*SeatLocker, redismock.ClientMock) {
	rdb, mock := redismock.NewClientMock()
	l := NewSeatLocker(rdb, 5*time.Minute)
	l.newToken = func() string { return "tok" }
	l.now = func() time.Time { return testNow }
	return l, mock
}

func TestSeatLocker_HoldAll(t *testing.T) {
	l, mock := newTestLocker()
	mock.ExpectSetNX("seat:7:A1", "tok", 5*time.Minute).SetVal(true)
	mock.ExpectSetNX("seat:7:A2", "tok", 5*time.Minute).SetVal(true)

	hold, err := l.Hold(context.Background(), 7, []string{"A1", "A2"})

	require.NoError(t, err)
	assert.Equal(t, "tok", hold.HoldToken)
	assert.Equal(t, testNow.Add(5*time.Minute), hold.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatLocker_HoldReleasesAcquiredOnConflict(t *testing.T) {
	l, mock := newTestLocker()
	mock.ExpectSetNX("seat:7:A1", "tok", 5*time.Minute).SetVal(true)
	mock.ExpectSetNX("seat:7:A2", "tok", 5*time.Minute).SetVal(false)
	mock.ExpectEval(releaseScript, []string{"seat:7:A1"}, "tok").SetVal(int64(1))

	_, err := l.Hold(context.Background(), 7, []string{"A1", "A2"})

	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatLocker_HoldRejectsRepeatedSeat(t *testing.T) {
	l, mock := newTestLocker()

	_, err := l.Hold(context.Background(), 7, []string{"A1", "A1"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatLocker_RedisErrorReleases(t *testing.T) {
	l, mock := newTestLocker()
	mock.ExpectSetNX("seat:7:A1", "tok", 5*time.Minute).SetErr(errors.New("boom"))

	_, err := l.Hold(context.Background(), 7, []string{"A1"})

	assert.ErrorContains(t, err, "boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatLocker_Release(t *testing.T) {
	l, mock := newTestLocker()
	mock.ExpectEval(releaseScript, []string{"seat:7:A1", "seat:7:A2"}, "tok").SetVal(int64(2))

	n, err := l.Release(context.Background(), 7, []string{"A1", "A2"}, "tok")

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatLocker_Verify(t *testing.T) {
	l, mock := newTestLocker()
	mock.ExpectGet("seat:7:A1").SetVal("tok")
	mock.ExpectGet("seat:7:A2").RedisNil()

	err := l.Verify(context.Background(), 7, []string{"A1", "A2"}, "tok")

	assert.ErrorIs(t, err, ErrSeatNotHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}
