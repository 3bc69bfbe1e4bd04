package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ingressos/internal/repository"
	"github.com/iliyamo/ingressos/internal/service"
)

const maxImageBytes = 5 << 20

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

var (
	errImageType = errors.New("unsupported image type")
	errImageSize = errors.New("image too large")
)

// EventHandler serves event publishing and the public event reads.
type EventHandler struct {
	Publisher *service.EventPublisher
	Store     *repository.Store
}

// NewEventHandler panics when a dependency is missing.
func NewEventHandler(p *service.EventPublisher, store *repository.Store) *EventHandler {
	if p == nil || store == nil {
		panic("nil dependency passed to NewEventHandler")
	}
	return &EventHandler{Publisher: p, Store: store}
}

// PublishEvent handles POST /v1/events.  The draft is either the JSON body
// or, for multipart requests, the JSON in the "evento" field with the
// banner in the "imagem" file field.
func (h *EventHandler) PublishEvent(c echo.Context) error {
	var draft service.EventDraft
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := json.Unmarshal([]byte(c.FormValue("evento")), &draft); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid evento field"})
		}
		up, err := readImage(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		draft.Image = up
	} else if err := c.Bind(&draft); err != nil {
		return invalidBody(c)
	}

	out, err := h.Publisher.PublishEvent(c.Request().Context(), draft)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// readImage returns the "imagem" upload, or nil when none was sent.
func readImage(c echo.Context) (*service.Upload, error) {
	fh, err := c.FormFile("imagem")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExts[ext] {
		return nil, errImageType
	}
	if fh.Size > maxImageBytes {
		return nil, errImageSize
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		return nil, err
	}
	return &service.Upload{Ext: ext, Data: data}, nil
}

// GetEvent handles GET /v1/events/:id.
func (h *EventHandler) GetEvent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	ev, err := h.Store.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// ListSessions handles GET /v1/events/:id/sessions.
func (h *EventHandler) ListSessions(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	ctx := c.Request().Context()
	if _, err := h.Store.Events.GetByID(ctx, id); err != nil {
		return fail(c, err)
	}
	sessions, err := h.Store.Sessions.ListByEvent(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessoes": sessions})
}

// AddInventory handles POST /v1/ticket-types/:id/inventory.
func (h *EventHandler) AddInventory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "ticket type id")
	}
	var body struct {
		Quantity int `json:"quantidade"`
	}
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	tt, err := h.Publisher.AddInventory(c.Request().Context(), id, body.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tt)
}
