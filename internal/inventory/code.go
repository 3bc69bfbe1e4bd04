package inventory

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v3"
)

// RedemptionCode builds a ticket code from the order, the ticket type, the
// issue time and a random suffix.  The database enforces uniqueness; the
// random part makes collisions between tickets of one order unlikely.
func RedemptionCode(orderID, ticketTypeID uint64, at time.Time) string {
	return fmt.Sprintf("%d-%d-%s-%s",
		orderID, ticketTypeID, strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36)), randomSuffix())
}

// CourtesyCode builds the code of a courtesy ticket, which has no order.
func CourtesyCode(sessionID, ticketTypeID uint64, at time.Time) string {
	return fmt.Sprintf("CT%d-%d-%s-%s",
		sessionID, ticketTypeID, strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36)), randomSuffix())
}

func randomSuffix() string {
	return shortuuid.New()[:12]
}

// QRURL returns the address of the external QR image for a code.
func QRURL(base, code string) string {
	return base + url.QueryEscape(code)
}
