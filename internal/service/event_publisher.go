package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/ingressos/internal/model"
	"github.com/iliyamo/ingressos/internal/monitoring"
	"github.com/iliyamo/ingressos/internal/repository"
	"github.com/iliyamo/ingressos/internal/storage"
)

// EventDraft is everything a producer submits to publish an event.
type EventDraft struct {
	Name            string          `json:"nome"`
	StartsAt        time.Time       `json:"data_hora"`
	Location        string          `json:"localizacao"`
	Category        string          `json:"categoria"`
	AssignedSeating bool            `json:"tem_lugar_marcado"`
	ClientFee       decimal.Decimal `json:"taxa_cliente"`
	Sectors         []SectorDraft   `json:"setores"`
	Lots            []LotDraft      `json:"lotes"`
	Coupons         []CouponDraft   `json:"cupons"`

	// Image is the optional banner, uploaded before the transaction.
	Image *Upload `json:"-"`
}

// SectorDraft is a sector and the ticket types sold in it.
type SectorDraft struct {
	Name            string            `json:"nome"`
	DefinedCapacity int               `json:"capacidade_definida"`
	Types           []TicketTypeDraft `json:"ingressos"`
}

// TicketTypeDraft is a ticket type; Lot names a lot of the same sector.
type TicketTypeDraft struct {
	Name     string          `json:"nome"`
	Price    decimal.Decimal `json:"valor"`
	Quantity int             `json:"quantidade"`
	Lot      string          `json:"lote,omitempty"`
}

// LotDraft is a lot of the sector named Sector.
type LotDraft struct {
	Sector   string     `json:"setor"`
	Name     string     `json:"nome"`
	Total    int        `json:"quantidade_total"`
	StartsAt *time.Time `json:"inicio,omitempty"`
	EndsAt   *time.Time `json:"fim,omitempty"`
}

// CouponDraft is a discount code of the original session.
type CouponDraft struct {
	Code          string          `json:"codigo"`
	DiscountType  string          `json:"tipo_desconto"`
	DiscountValue decimal.Decimal `json:"valor_desconto"`
	UsageLimit    int             `json:"limite_uso"`
	ValidFrom     *time.Time      `json:"validade_inicio,omitempty"`
	ValidUntil    *time.Time      `json:"validade_fim,omitempty"`
}

// Upload is a blob to store with the event.
type Upload struct {
	Ext  string
	Data []byte
}

// PublishedEvent is the result of PublishEvent.
type PublishedEvent struct {
	Event   model.Event        `json:"evento"`
	Session model.Session      `json:"sessao"`
	Sectors []model.Sector     `json:"setores"`
	Lots    []model.Lot        `json:"lotes"`
	Types   []model.TicketType `json:"ingressos"`
	Coupons []model.Coupon     `json:"cupons"`
}

// EventPublisher creates events with their original session and inventory.
type EventPublisher struct {
	Deps
	blobs storage.BlobStore
}

// NewEventPublisher returns a publisher storing images in blobs.  blobs may
// be nil when image upload is not configured.
func NewEventPublisher(d Deps, blobs storage.BlobStore) *EventPublisher {
	return &EventPublisher{Deps: d.withDefaults(), blobs: blobs}
}

// PublishEvent validates the draft and creates the event, session #1 and
// every sector, lot, ticket type and coupon in one transaction.  Blobs
// uploaded for the draft are deleted again when the transaction fails.
func (p *EventPublisher) PublishEvent(ctx context.Context, d EventDraft) (out *PublishedEvent, err error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}
	var uploaded []string
	defer func() {
		if err == nil {
			return
		}
		for _, key := range uploaded {
			if derr := p.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
				p.Log.WithError(derr).WithField("key", key).Warn("compensate blob upload")
			}
		}
	}()

	imageURL := ""
	if d.Image != nil {
		if p.blobs == nil {
			return nil, invalid("image upload is not configured")
		}
		key := storage.NewKey("eventos", d.Image.Ext)
		if err := p.blobs.Put(ctx, key, bytes.NewReader(d.Image.Data)); err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		uploaded = append(uploaded, key)
		imageURL = p.blobs.URL(key)
	}

	timer := prometheus.NewTimer(monitoring.TxDuration.WithLabelValues("publish_event"))
	defer timer.ObserveDuration()

	now := p.Now()
	out = &PublishedEvent{}
	err = repository.InTx(ctx, p.Store.DB(), func(tx *sqlx.Tx) error {
		out.Event = model.Event{
			Name:            strings.TrimSpace(d.Name),
			StartsAt:        d.StartsAt,
			Location:        d.Location,
			Category:        d.Category,
			AssignedSeating: d.AssignedSeating,
			TotalTickets:    draftTotal(d),
			ClientFee:       d.ClientFee,
			ImageURL:        imageURL,
			CreatedAt:       now,
		}
		if err := p.Store.Events.CreateTx(ctx, tx, &out.Event); err != nil {
			return err
		}
		out.Session = model.Session{EventID: out.Event.ID, StartsAt: d.StartsAt, Number: 1, IsOriginal: true, CreatedAt: now}
		if err := p.Store.Sessions.CreateTx(ctx, tx, &out.Session); err != nil {
			return err
		}
		return p.createInventory(ctx, tx, d, out)
	})
	if err != nil {
		return nil, err
	}
	p.Log.WithField("event_id", out.Event.ID).WithField("total_ingressos", out.Event.TotalTickets).Info("event published")
	return out, nil
}

func (p *EventPublisher) createInventory(ctx context.Context, tx *sqlx.Tx, d EventDraft, out *PublishedEvent) error {
	sessionID := out.Session.ID
	sectors := make(map[string]model.Sector, len(d.Sectors))
	for _, sd := range d.Sectors {
		sec := model.Sector{SessionID: sessionID, Name: sd.Name, DefinedCapacity: sd.DefinedCapacity}
		for _, td := range sd.Types {
			sec.CalculatedCapacity += td.Quantity
		}
		if err := p.Store.Sectors.CreateTx(ctx, tx, &sec); err != nil {
			return err
		}
		sectors[sec.Name] = sec
		out.Sectors = append(out.Sectors, sec)
	}

	lots := make(map[string]uint64, len(d.Lots))
	for _, ld := range d.Lots {
		sec := sectors[ld.Sector]
		lot := model.Lot{SessionID: sessionID, SectorID: sec.ID, SectorName: sec.Name, Name: ld.Name,
			Total: ld.Total, StartsAt: ld.StartsAt, EndsAt: ld.EndsAt}
		if err := p.Store.Lots.CreateTx(ctx, tx, &lot); err != nil {
			return err
		}
		lots[lotKey(sec.Name, lot.Name)] = lot.ID
		out.Lots = append(out.Lots, lot)
	}

	for _, sd := range d.Sectors {
		sec := sectors[sd.Name]
		for _, td := range sd.Types {
			tt := model.TicketType{SessionID: sessionID, SectorID: sec.ID, SectorName: sec.Name,
				Name: td.Name, Price: td.Price, Quantity: td.Quantity}
			if td.Lot != "" {
				id := lots[lotKey(sec.Name, td.Lot)]
				tt.LotID = &id
			}
			if err := p.Store.TicketTypes.CreateTx(ctx, tx, &tt); err != nil {
				return err
			}
			out.Types = append(out.Types, tt)
		}
	}

	for _, cd := range d.Coupons {
		c := model.Coupon{SessionID: sessionID, Code: cd.Code, DiscountType: cd.DiscountType,
			DiscountValue: cd.DiscountValue, UsageLimit: cd.UsageLimit, ValidFrom: cd.ValidFrom, ValidUntil: cd.ValidUntil}
		if err := p.Store.Coupons.CreateTx(ctx, tx, &c); err != nil {
			return err
		}
		out.Coupons = append(out.Coupons, c)
	}
	return nil
}

// AddInventory adds n tickets to a ticket type and keeps the sector's
// calculated capacity and the event total in step.
func (p *EventPublisher) AddInventory(ctx context.Context, ticketTypeID uint64, n int) (*model.TicketType, error) {
	if n <= 0 {
		return nil, invalid("quantity must be positive")
	}
	var out *model.TicketType
	err := repository.InTx(ctx, p.Store.DB(), func(tx *sqlx.Tx) error {
		tt, err := p.Store.TicketTypes.GetByIDTx(ctx, tx, ticketTypeID)
		if err != nil {
			return err
		}
		if err := p.Store.Sessions.BumpInventoryTx(ctx, tx, tt.SessionID); err != nil {
			return err
		}
		sess, err := p.Store.Sessions.GetByIDTx(ctx, tx, tt.SessionID)
		if err != nil {
			return err
		}
		sec, err := p.Store.Sectors.GetByIDTx(ctx, tx, tt.SectorID)
		if err != nil {
			return err
		}
		if err := p.Store.TicketTypes.AddQuantityTx(ctx, tx, tt.ID, n); err != nil {
			return err
		}
		if err := p.Store.Sectors.RecalculateTx(ctx, tx, sec.ID); err != nil {
			return err
		}
		// A sector with a defined capacity keeps its size; the extra
		// quantity only redistributes it.
		if sec.DefinedCapacity == 0 {
			if err := p.Store.Events.AddTotalTx(ctx, tx, sess.EventID, n); err != nil {
				return err
			}
		}
		out, err = p.Store.TicketTypes.GetByIDTx(ctx, tx, tt.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lotKey(sector, lot string) string { return sector + "\x00" + lot }

// draftTotal is the sum of each sector's effective capacity.
func draftTotal(d EventDraft) int {
	total := 0
	for _, sd := range d.Sectors {
		if sd.DefinedCapacity > 0 {
			total += sd.DefinedCapacity
			continue
		}
		for _, td := range sd.Types {
			total += td.Quantity
		}
	}
	return total
}

func validateDraft(d EventDraft) error {
	var problems []string
	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "nome is required")
	}
	if d.StartsAt.IsZero() {
		problems = append(problems, "data_hora is required")
	}
	if d.ClientFee.IsNegative() {
		problems = append(problems, "taxa_cliente cannot be negative")
	}
	if len(d.Sectors) == 0 {
		problems = append(problems, "at least one sector is required")
	}

	sectors := make(map[string]bool, len(d.Sectors))
	types := 0
	for _, sd := range d.Sectors {
		switch {
		case strings.TrimSpace(sd.Name) == "":
			problems = append(problems, "sector nome is required")
		case sectors[sd.Name]:
			problems = append(problems, fmt.Sprintf("sector %q repeated", sd.Name))
		}
		sectors[sd.Name] = true
		if sd.DefinedCapacity < 0 {
			problems = append(problems, fmt.Sprintf("sector %q capacity cannot be negative", sd.Name))
		}
		types += len(sd.Types)
	}
	if len(d.Sectors) > 0 && types == 0 {
		problems = append(problems, "at least one ticket type is required")
	}

	lots := make(map[string]bool, len(d.Lots))
	for _, ld := range d.Lots {
		if !sectors[ld.Sector] {
			problems = append(problems, fmt.Sprintf("lot %q references unknown sector %q", ld.Name, ld.Sector))
			continue
		}
		k := lotKey(ld.Sector, ld.Name)
		if strings.TrimSpace(ld.Name) == "" || lots[k] {
			problems = append(problems, fmt.Sprintf("lot %q in sector %q is unnamed or repeated", ld.Name, ld.Sector))
		}
		lots[k] = true
		if ld.Total < 0 {
			problems = append(problems, fmt.Sprintf("lot %q total cannot be negative", ld.Name))
		}
		if ld.StartsAt != nil && ld.EndsAt != nil && ld.EndsAt.Before(*ld.StartsAt) {
			problems = append(problems, fmt.Sprintf("lot %q ends before it starts", ld.Name))
		}
	}

	for _, sd := range d.Sectors {
		for _, td := range sd.Types {
			if strings.TrimSpace(td.Name) == "" {
				problems = append(problems, fmt.Sprintf("ticket type in sector %q needs a nome", sd.Name))
			}
			if td.Price.IsNegative() {
				problems = append(problems, fmt.Sprintf("ticket type %q price cannot be negative", td.Name))
			}
			if td.Quantity < 0 {
				problems = append(problems, fmt.Sprintf("ticket type %q quantity cannot be negative", td.Name))
			}
			if td.Lot != "" && !lots[lotKey(sd.Name, td.Lot)] {
				problems = append(problems, fmt.Sprintf("ticket type %q references unknown lot %q", td.Name, td.Lot))
			}
		}
	}

	codes := make(map[string]bool, len(d.Coupons))
	for _, cd := range d.Coupons {
		if codes[cd.Code] {
			return fmt.Errorf("%w: %s", ErrDuplicateCoupon, cd.Code)
		}
		codes[cd.Code] = true
		problems = append(problems, couponProblems(cd)...)
	}

	if len(problems) > 0 {
		return invalid(problems...)
	}
	return nil
}

func couponProblems(cd CouponDraft) []string {
	var problems []string
	if strings.TrimSpace(cd.Code) == "" {
		problems = append(problems, "coupon codigo is required")
	}
	switch cd.DiscountType {
	case model.DiscountPercent:
		if cd.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			problems = append(problems, fmt.Sprintf("coupon %q percentage above 100", cd.Code))
		}
	case model.DiscountFixed:
	default:
		problems = append(problems, fmt.Sprintf("coupon %q has unknown tipo_desconto %q", cd.Code, cd.DiscountType))
	}
	if !cd.DiscountValue.IsPositive() {
		problems = append(problems, fmt.Sprintf("coupon %q discount must be positive", cd.Code))
	}
	if cd.UsageLimit < 0 {
		problems = append(problems, fmt.Sprintf("coupon %q usage limit cannot be negative", cd.Code))
	}
	return problems
}
