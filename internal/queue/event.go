// Package queue defines message payloads exchanged over the message broker.
package queue

// ActivityQueue is the durable queue ticket activity is published to.
const ActivityQueue = "tickets.activity"

// Activity kinds.
const (
	KindTicketsIssued  = "TicketsIssued"
	KindCourtesyIssued = "CourtesyIssued"
	KindTicketRedeemed = "TicketRedeemed"
)

// TicketActivity is published after a transaction that issued or redeemed
// tickets has committed.  It carries enough for downstream consumers to
// log, notify or feed analytics without querying the primary database.
type TicketActivity struct {
	Kind       string   `json:"kind"`
	EventID    uint64   `json:"event_id"`
	SessionID  uint64   `json:"session_id"`
	OrderID    uint64   `json:"order_id,omitempty"`
	Codes      []string `json:"codes"`
	Seats      []string `json:"seats,omitempty"`
	Buyer      string   `json:"buyer,omitempty"`
	Total      string   `json:"total,omitempty"`
	OccurredAt string   `json:"occurred_at"`
}
