package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/ingressos/internal/inventory"
)

var (
	// ErrValidation wraps every input problem detected before a write.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientCapacity means the controlling level has fewer tickets
	// left than requested.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrNotOnSale means the ticket type's lot is outside its window.
	ErrNotOnSale = errors.New("ticket type not on sale")

	ErrAlreadyUsed         = errors.New("ticket already used")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrOriginalSession     = errors.New("original session cannot be deleted")
	ErrAlreadyPaid         = errors.New("order already paid")
	ErrOrderNotConfirmable = errors.New("order cannot be confirmed")
	ErrSeatRequired        = errors.New("seat is required for assigned seating events")
	ErrSeatTaken           = errors.New("seat already taken")
	ErrSeatNotHeld         = errors.New("seat not held by caller")
	ErrSeatHoldsDisabled   = errors.New("seat holds unavailable")
	ErrCouponInvalid       = errors.New("coupon invalid")
	ErrDuplicateCoupon     = inventory.ErrDuplicateCoupon
	ErrNothingToClone      = inventory.ErrNothingToClone
)

// AlreadyUsedError reports a redemption of a ticket consumed earlier and
// carries the original redemption time.  It matches ErrAlreadyUsed.
type AlreadyUsedError struct {
	Code   string
	UsedAt time.Time
}

func (e *AlreadyUsedError) Error() string {
	return fmt.Sprintf("ticket %s already used at %s", e.Code, e.UsedAt.UTC().Format(time.RFC3339))
}

func (e *AlreadyUsedError) Is(target error) bool { return target == ErrAlreadyUsed }

// invalid builds an ErrValidation listing every problem found.
func invalid(problems ...string) error {
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
}
