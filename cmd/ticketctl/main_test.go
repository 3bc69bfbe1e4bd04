package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ingressos/internal/database"
	"github.com/iliyamo/ingressos/internal/repository"
	"github.com/iliyamo/ingressos/internal/service"
)

func setEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctl.db")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "ctl-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTokenCommand(t *testing.T) {
	setEnv(t)
	out, err := execute("token", "--role", "staff", "--subject", "door-1", "--ttl", "2h")
	require.NoError(t, err)

	tok, err := jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (interface{}, error) { return []byte("ctl-secret"), nil })
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "STAFF", claims["role"])
	assert.Equal(t, "door-1", claims["sub"])
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	setEnv(t)
	_, err := execute("token", "--role", "ADMIN", "--subject", "x")
	assert.ErrorContains(t, err, "unknown role")
}

func TestMigrateCloneAndValidate(t *testing.T) {
	path := setEnv(t)
	out, err := execute("migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "002_order_customer")

	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	deps := service.Deps{Store: repository.NewStore(db)}
	ctx := context.Background()

	pub, err := service.NewEventPublisher(deps, nil).PublishEvent(ctx, service.EventDraft{
		Name:     "Stand-up",
		StartsAt: time.Now().Add(48 * time.Hour),
		Sectors: []service.SectorDraft{{Name: "Plateia", Types: []service.TicketTypeDraft{
			{Name: "Inteira", Price: decimal.NewFromInt(40), Quantity: 10},
		}}},
	})
	require.NoError(t, err)
	ticket, err := service.NewSales(deps, nil, "").IssueCourtesy(ctx, service.CourtesyRequest{
		SessionID:    pub.Session.ID,
		SectorID:     pub.Sectors[0].ID,
		TicketTypeID: pub.Types[0].ID,
		Name:         "Convidado",
		Email:        "convidado@example.com",
	})
	require.NoError(t, err)

	event := "--event=" + strconv.FormatUint(pub.Event.ID, 10)
	out, err = execute("clone-session", event, "--at", time.Now().Add(72*time.Hour).UTC().Format(time.RFC3339))
	require.NoError(t, err)
	assert.Contains(t, out, "session #2")

	out, err = execute("validate", event, ticket.Code)
	require.NoError(t, err)
	assert.Contains(t, out, "admitted "+ticket.Code)

	_, err = execute("validate", event, ticket.Code)
	assert.ErrorContains(t, err, "already used")
}
