package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/ingressos/internal/inventory"
	"github.com/iliyamo/ingressos/internal/model"
	"github.com/iliyamo/ingressos/internal/monitoring"
	"github.com/iliyamo/ingressos/internal/queue"
	"github.com/iliyamo/ingressos/internal/repository"
)

// OrderRequest is a buyer's checkout.
type OrderRequest struct {
	SessionID     uint64        `json:"sessao_id"`
	BuyerName     string        `json:"nome_comprador"`
	BuyerEmail    string        `json:"email_comprador"`
	BuyerCPF      string        `json:"cpf_comprador"`
	PaymentMethod string        `json:"metodo_pagamento"`
	PaymentRef    string        `json:"referencia_pagamento"`
	CouponCode    string        `json:"cupom_codigo"`
	Items         []ItemRequest `json:"itens"`

	// CustomerID is the token subject that placed the order.
	CustomerID string `json:"-"`
}

// ItemRequest asks for Quantity tickets of one type.  Seats carries one
// label per ticket on assigned-seating events.
type ItemRequest struct {
	TicketTypeID uint64   `json:"ingresso_id"`
	Quantity     int      `json:"quantidade"`
	Seats        []string `json:"assentos"`
}

// PaymentConfirmation is what the payment gateway reports for an order.
type PaymentConfirmation struct {
	PaymentRef string `json:"referencia_pagamento"`
	HoldToken  string `json:"hold_token"`
}

// IssuedTicket is a sold ticket with the address of its QR image.
type IssuedTicket struct {
	model.SoldTicket
	QRURL string `json:"qr_url"`
}

// Receipt is the result of a confirmed payment.
type Receipt struct {
	Order   *model.Order   `json:"pedido"`
	Tickets []IssuedTicket `json:"ingressos"`
}

// TypeAvailability is the resolved capacity of one ticket type.
type TypeAvailability struct {
	model.TicketType
	Capacity inventory.Capacity `json:"capacidade"`
	OnSale   bool               `json:"a_venda"`
}

// CourtesyRequest asks for one free ticket.
type CourtesyRequest struct {
	SessionID    uint64 `json:"sessao_id"`
	SectorID     uint64 `json:"setor_id"`
	TicketTypeID uint64 `json:"ingresso_id"`
	Name         string `json:"nome"`
	Email        string `json:"email"`
	CPF          string `json:"cpf"`
	Seat         string `json:"assento"`
}

// Sales records orders, payments and courtesies.  Every recording
// transaction starts by bumping the session's inventory version and
// re-resolves availability after it, so two sales of one session never
// both take the last tickets.
type Sales struct {
	Deps
	seats  *SeatLocker
	qrBase string
}

// NewSales returns a Sales.  seats may be nil when Redis is not
// configured; seat leases are then not checked on payment.
func NewSales(d Deps, seats *SeatLocker, qrBase string) *Sales {
	return &Sales{Deps: d.withDefaults(), seats: seats, qrBase: qrBase}
}

// Availability resolves every ticket type of a session.
func (s *Sales) Availability(ctx context.Context, sessionID uint64) ([]TypeAvailability, error) {
	if _, err := s.Store.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	sectors, err := s.Store.Sectors.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	lots, err := s.Store.Lots.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	types, err := s.Store.TicketTypes.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap := inventory.NewSnapshot(sectors, lots, types)
	now := s.Now()
	out := make([]TypeAvailability, 0, len(types))
	for _, tt := range types {
		c := inventory.Resolve(tt, snap)
		if c.Available < 0 {
			c.Available = 0
		}
		out = append(out, TypeAvailability{TicketType: tt, Capacity: c, OnSale: inventory.OnSale(tt, snap, now)})
	}
	return out, nil
}

// CreateOrder prices a checkout and stores it as PENDENTE.  Availability,
// the lot window and the coupon are checked now and again when the payment
// is confirmed.
func (s *Sales) CreateOrder(ctx context.Context, req OrderRequest) (*model.Order, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}
	now := s.Now()
	var order *model.Order
	err := repository.InTx(ctx, s.Store.DB(), func(tx *sqlx.Tx) error {
		sess, err := s.Store.Sessions.GetByIDTx(ctx, tx, req.SessionID)
		if err != nil {
			return err
		}
		ev, err := s.Store.Events.GetByIDTx(ctx, tx, sess.EventID)
		if err != nil {
			return err
		}
		snap, err := s.snapshotTx(ctx, tx, sess.ID)
		if err != nil {
			return err
		}
		taken, err := s.Store.SoldTickets.TakenSeatsTx(ctx, tx, sess.ID)
		if err != nil {
			return err
		}

		order = &model.Order{
			EventID:       ev.ID,
			SessionID:     sess.ID,
			BuyerName:     strings.TrimSpace(req.BuyerName),
			BuyerEmail:    strings.TrimSpace(req.BuyerEmail),
			BuyerCPF:      req.BuyerCPF,
			CustomerID:    req.CustomerID,
			PaymentMethod: req.PaymentMethod,
			PaymentRef:    paymentRef(req.PaymentMethod, req.PaymentRef),
			Status:        model.OrderPending,
			CreatedAt:     now,
		}
		subtotal := decimal.Zero
		for _, it := range req.Items {
			tt, ok := snap.Type(it.TicketTypeID)
			if !ok {
				return invalid(fmt.Sprintf("ticket type %d is not sold in session %d", it.TicketTypeID, sess.ID))
			}
			if err := checkSeats(ev, it.Quantity, it.Seats, taken); err != nil {
				return err
			}
			if !inventory.OnSale(tt, snap, now) {
				return fmt.Errorf("%w: %s", ErrNotOnSale, tt.Name)
			}
			if err := reserve(snap, tt, it.Quantity); err != nil {
				return err
			}
			subtotal = subtotal.Add(tt.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			order.Items = append(order.Items, model.OrderItem{
				TicketTypeID: tt.ID,
				Quantity:     it.Quantity,
				UnitPrice:    tt.Price,
				Seats:        strings.Join(it.Seats, ","),
			})
		}

		discount := decimal.Zero
		if code := strings.TrimSpace(req.CouponCode); code != "" {
			c, err := s.Store.Coupons.GetByCodeTx(ctx, tx, sess.ID, code)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrCouponInvalid, code)
			}
			if err != nil {
				return err
			}
			discount, err = inventory.Discount(*c, subtotal, now)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCouponInvalid, err)
			}
			order.CouponCode = &c.Code
		}
		order.Subtotal = subtotal
		order.Discount = discount
		order.Fee = inventory.Fee(subtotal.Sub(discount), ev.ClientFee)
		order.Total = subtotal.Sub(discount).Add(order.Fee)
		return s.Store.Orders.CreateTx(ctx, tx, order)
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}
	monitoring.OrdersCreated.Inc()
	s.Log.WithField("order_id", order.ID).WithField("session_id", order.SessionID).Info("order created")
	return order, nil
}

// ConfirmPayment marks a pending order PAGO and issues its tickets in the
// same transaction.  Confirming a paid order returns ErrAlreadyPaid and
// writes nothing.  Insufficient availability fails the whole order.
func (s *Sales) ConfirmPayment(ctx context.Context, orderID uint64, pc PaymentConfirmation) (*Receipt, error) {
	pending, err := s.Store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := orderConfirmable(pending); err != nil {
		return nil, err
	}
	seats := orderSeats(pending)
	if s.seats != nil && len(seats) > 0 {
		if err := s.seats.Verify(ctx, pending.SessionID, seats, pc.HoldToken); err != nil {
			s.reject(err)
			return nil, err
		}
	}

	timer := prometheus.NewTimer(monitoring.TxDuration.WithLabelValues("confirm_payment"))
	defer timer.ObserveDuration()

	now := s.Now()
	var receipt *Receipt
	err = repository.InTx(ctx, s.Store.DB(), func(tx *sqlx.Tx) error {
		if err := s.Store.Sessions.BumpInventoryTx(ctx, tx, pending.SessionID); err != nil {
			return err
		}
		order, err := s.Store.Orders.GetByIDTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := orderConfirmable(order); err != nil {
			return err
		}
		snap, err := s.snapshotTx(ctx, tx, order.SessionID)
		if err != nil {
			return err
		}

		var tickets []model.SoldTicket
		for _, it := range order.Items {
			tt, ok := snap.Type(it.TicketTypeID)
			if !ok {
				return fmt.Errorf("ticket type %d: %w", it.TicketTypeID, repository.ErrNotFound)
			}
			if !inventory.OnSale(tt, snap, now) {
				return fmt.Errorf("%w: %s", ErrNotOnSale, tt.Name)
			}
			if err := reserve(snap, tt, it.Quantity); err != nil {
				return err
			}
			labels := it.SeatLabels()
			for i := 0; i < it.Quantity; i++ {
				t := model.SoldTicket{
					OrderID:      &order.ID,
					EventID:      order.EventID,
					SessionID:    order.SessionID,
					TicketTypeID: tt.ID,
					Code:         inventory.RedemptionCode(order.ID, tt.ID, now),
					BuyerName:    order.BuyerName,
					BuyerEmail:   order.BuyerEmail,
					BuyerCPF:     order.BuyerCPF,
					Price:        it.UnitPrice,
					PaymentType:  order.PaymentMethod,
					Status:       model.TicketActive,
					CreatedAt:    now,
				}
				if i < len(labels) {
					seat := labels[i]
					t.Seat = &seat
				}
				tickets = append(tickets, t)
			}
			if err := s.Store.TicketTypes.AddSoldTx(ctx, tx, tt.ID, it.Quantity); err != nil {
				return err
			}
			if tt.LotID != nil {
				if err := s.Store.Lots.AddSoldTx(ctx, tx, *tt.LotID, it.Quantity); err != nil {
					return err
				}
			}
		}
		if err := s.Store.SoldTickets.CreateBulkTx(ctx, tx, tickets); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: %v", ErrSeatTaken, err)
			}
			return err
		}
		if err := s.Store.Events.AddSoldTx(ctx, tx, order.EventID, len(tickets)); err != nil {
			return err
		}
		if order.CouponCode != nil {
			c, err := s.Store.Coupons.GetByCodeTx(ctx, tx, order.SessionID, *order.CouponCode)
			if err != nil {
				return err
			}
			if err := inventory.CheckCoupon(*c, now); err != nil {
				return fmt.Errorf("%w: %v", ErrCouponInvalid, err)
			}
			if err := s.Store.Coupons.IncrementUseTx(ctx, tx, c.ID); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return fmt.Errorf("%w: %s usage limit reached", ErrCouponInvalid, c.Code)
				}
				return err
			}
		}
		var ref *string
		if pc.PaymentRef != "" {
			ref = paymentRef(order.PaymentMethod, pc.PaymentRef)
		}
		if err := s.Store.Orders.MarkPaidTx(ctx, tx, order.ID, ref, now); err != nil {
			return err
		}
		order.Status = model.OrderPaid
		order.PaidAt = &now
		if ref != nil {
			order.PaymentRef = ref
		}
		receipt = &Receipt{Order: order, Tickets: s.issued(tickets)}
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	if s.seats != nil && len(seats) > 0 {
		if _, err := s.seats.Release(ctx, pending.SessionID, seats, pc.HoldToken); err != nil {
			s.Log.WithError(err).WithField("order_id", orderID).Warn("release seat leases")
		}
	}
	monitoring.TicketsIssued.WithLabelValues(receipt.Order.PaymentMethod).Add(float64(len(receipt.Tickets)))
	s.Log.WithField("order_id", orderID).WithField("tickets", len(receipt.Tickets)).Info("payment confirmed")
	s.publish(ctx, queue.TicketActivity{
		Kind:      queue.KindTicketsIssued,
		EventID:   receipt.Order.EventID,
		SessionID: receipt.Order.SessionID,
		OrderID:   receipt.Order.ID,
		Codes:     ticketCodes(receipt.Tickets),
		Seats:     seats,
		Buyer:     receipt.Order.BuyerName,
		Total:     receipt.Order.Total.StringFixed(2),
	})
	return receipt, nil
}

// IssueCourtesy issues one free ticket of a purchasable type.  Every
// input check happens before the transaction starts.  Courtesies count
// against the type's inventory but not against the event's sold total.
func (s *Sales) IssueCourtesy(ctx context.Context, req CourtesyRequest) (*IssuedTicket, error) {
	if err := validateCourtesy(req); err != nil {
		s.reject(err)
		return nil, err
	}
	sess, err := s.Store.Sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	ev, err := s.Store.Events.GetByID(ctx, sess.EventID)
	if err != nil {
		return nil, err
	}
	seat := strings.TrimSpace(req.Seat)
	if ev.AssignedSeating && seat == "" {
		s.reject(ErrSeatRequired)
		return nil, ErrSeatRequired
	}

	now := s.Now()
	var ticket model.SoldTicket
	err = repository.InTx(ctx, s.Store.DB(), func(tx *sqlx.Tx) error {
		if err := s.Store.Sessions.BumpInventoryTx(ctx, tx, sess.ID); err != nil {
			return err
		}
		snap, err := s.snapshotTx(ctx, tx, sess.ID)
		if err != nil {
			return err
		}
		tt, ok := snap.Type(req.TicketTypeID)
		if !ok || tt.SectorID != req.SectorID {
			return invalid(fmt.Sprintf("ticket type %d is not sold in sector %d of session %d", req.TicketTypeID, req.SectorID, sess.ID))
		}
		if !slices.ContainsFunc(inventory.Purchasable(snap, tt.SectorID), func(p model.TicketType) bool {
			return p.ID == tt.ID
		}) {
			return fmt.Errorf("%w: %s", ErrInsufficientCapacity, tt.Name)
		}
		ticket = model.SoldTicket{
			EventID:      ev.ID,
			SessionID:    sess.ID,
			TicketTypeID: tt.ID,
			Code:         inventory.CourtesyCode(sess.ID, tt.ID, now),
			BuyerName:    strings.TrimSpace(req.Name),
			BuyerEmail:   strings.TrimSpace(req.Email),
			BuyerCPF:     req.CPF,
			Price:        decimal.Zero,
			PaymentType:  model.PaymentCourtesy,
			Status:       model.TicketActive,
			CreatedAt:    now,
		}
		if seat != "" {
			ticket.Seat = &seat
		}
		if err := s.Store.SoldTickets.CreateTx(ctx, tx, &ticket); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: %s", ErrSeatTaken, seat)
			}
			return err
		}
		return s.Store.TicketTypes.AddCourtesyTx(ctx, tx, tt.ID, 1)
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	issued := s.issued([]model.SoldTicket{ticket})[0]
	monitoring.TicketsIssued.WithLabelValues(model.PaymentCourtesy).Inc()
	s.Log.WithField("session_id", sess.ID).WithField("ticket_id", ticket.ID).Info("courtesy issued")
	activity := queue.TicketActivity{
		Kind:      queue.KindCourtesyIssued,
		EventID:   ev.ID,
		SessionID: sess.ID,
		Codes:     []string{ticket.Code},
		Buyer:     ticket.BuyerName,
	}
	if seat != "" {
		activity.Seats = []string{seat}
	}
	s.publish(ctx, activity)
	return &issued, nil
}

func (s *Sales) snapshotTx(ctx context.Context, tx *sqlx.Tx, sessionID uint64) (*inventory.Snapshot, error) {
	sectors, err := s.Store.Sectors.ListBySessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	lots, err := s.Store.Lots.ListBySessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	types, err := s.Store.TicketTypes.ListBySessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	return inventory.NewSnapshot(sectors, lots, types), nil
}

func (s *Sales) issued(tickets []model.SoldTicket) []IssuedTicket {
	out := make([]IssuedTicket, len(tickets))
	for i, t := range tickets {
		out[i] = IssuedTicket{SoldTicket: t, QRURL: inventory.QRURL(s.qrBase, t.Code)}
	}
	return out
}

func (s *Sales) reject(err error) {
	reason := "other"
	switch {
	case errors.Is(err, ErrValidation):
		reason = "validation"
	case errors.Is(err, ErrInsufficientCapacity):
		reason = "capacity"
	case errors.Is(err, ErrSeatRequired), errors.Is(err, ErrSeatTaken), errors.Is(err, ErrSeatNotHeld):
		reason = "seat"
	case errors.Is(err, ErrCouponInvalid):
		reason = "coupon"
	case errors.Is(err, ErrAlreadyPaid):
		reason = "already_paid"
	case errors.Is(err, ErrNotOnSale):
		reason = "not_on_sale"
	}
	monitoring.SaleRejections.WithLabelValues(reason).Inc()
}

// reserve checks that n more tickets of tt fit and records them in snap
// so later items of the same order see them.
func reserve(snap *inventory.Snapshot, tt model.TicketType, n int) error {
	if c, ok := inventory.Fits(tt, snap, n); !ok {
		return fmt.Errorf("%w: %s has %d left at %s level, %d requested",
			ErrInsufficientCapacity, tt.Name, c.Remaining(), c.Level, n)
	}
	snap.AddSold(tt.ID, n)
	return nil
}

func orderConfirmable(o *model.Order) error {
	switch o.Status {
	case model.OrderPending:
		return nil
	case model.OrderPaid:
		return ErrAlreadyPaid
	default:
		return fmt.Errorf("%w: status %s", ErrOrderNotConfirmable, o.Status)
	}
}

func orderSeats(o *model.Order) []string {
	var seats []string
	for _, it := range o.Items {
		seats = append(seats, it.SeatLabels()...)
	}
	return seats
}

func ticketCodes(tickets []IssuedTicket) []string {
	codes := make([]string, len(tickets))
	for i, t := range tickets {
		codes[i] = t.Code
	}
	return codes
}

// paymentRef keeps only the last four digits of a card reference.
func paymentRef(method, ref string) *string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if method == model.PaymentCard {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, ref)
		if len(digits) > 4 {
			digits = digits[len(digits)-4:]
		}
		ref = digits
	}
	return &ref
}

func checkSeats(ev *model.Event, quantity int, seats []string, taken map[string]bool) error {
	if !ev.AssignedSeating {
		if len(seats) > 0 {
			return invalid("event has no assigned seating")
		}
		return nil
	}
	if len(seats) != quantity {
		return fmt.Errorf("%w: %d seats for %d tickets", ErrSeatRequired, len(seats), quantity)
	}
	for _, seat := range seats {
		if taken[seat] {
			return fmt.Errorf("%w: %s", ErrSeatTaken, seat)
		}
	}
	return nil
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

func validateOrder(req OrderRequest) error {
	var problems []string
	if req.SessionID == 0 {
		problems = append(problems, "sessao_id is required")
	}
	if strings.TrimSpace(req.BuyerName) == "" {
		problems = append(problems, "nome_comprador is required")
	}
	if !validEmail(strings.TrimSpace(req.BuyerEmail)) {
		problems = append(problems, "email_comprador is invalid")
	}
	switch req.PaymentMethod {
	case model.PaymentPix, model.PaymentBoleto, model.PaymentCard:
	default:
		problems = append(problems, fmt.Sprintf("metodo_pagamento %q is not accepted", req.PaymentMethod))
	}
	if len(req.Items) == 0 {
		problems = append(problems, "at least one item is required")
	}
	seen := make(map[string]bool)
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("item %d quantity must be positive", it.TicketTypeID))
		}
		for _, seat := range it.Seats {
			if seen[seat] {
				problems = append(problems, fmt.Sprintf("seat %s repeated", seat))
			}
			seen[seat] = true
		}
	}
	if len(problems) > 0 {
		return invalid(problems...)
	}
	return nil
}

func validateCourtesy(req CourtesyRequest) error {
	var problems []string
	if req.SessionID == 0 || req.SectorID == 0 || req.TicketTypeID == 0 {
		problems = append(problems, "sessao_id, setor_id and ingresso_id are required")
	}
	if strings.TrimSpace(req.Name) == "" {
		problems = append(problems, "nome is required")
	}
	if !validEmail(strings.TrimSpace(req.Email)) {
		problems = append(problems, "email is invalid")
	}
	if len(problems) > 0 {
		return invalid(problems...)
	}
	return nil
}
