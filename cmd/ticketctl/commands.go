package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/ingressos/internal/database"
	"github.com/iliyamo/ingressos/internal/middleware"
	"github.com/iliyamo/ingressos/internal/service"
	"github.com/iliyamo/ingressos/internal/utils"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			applied, err := database.AppliedMigrations(cmd.Context(), db)
			if err != nil {
				return err
			}
			latest := "none"
			if len(applied) > 0 {
				latest = applied[len(applied)-1]
			}
			fmt.Fprintf(out(cmd), "schema up to date (%s, %s)\n", ctx.loadConfig().DBDriver, latest)
			return nil
		},
	}
}

var roles = []string{middleware.RoleProducer, middleware.RoleStaff, middleware.RoleCustomer, middleware.RoleGateway}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var role, subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a producer, door staff, customer or the payment gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToUpper(strings.TrimSpace(role))
			known := false
			for _, r := range roles {
				known = known || r == role
			}
			if !known {
				return fmt.Errorf("unknown role %q (want one of %s)", role, strings.Join(roles, ", "))
			}
			if strings.TrimSpace(subject) == "" {
				return errors.New("--subject is required")
			}
			cfg := ctx.loadConfig()
			if ttl == 0 {
				ttl = time.Duration(cfg.AccessTTLMin) * time.Minute
			}
			at, err := utils.NewAccessToken(cfg.JWTSecret, subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), at.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "PRODUCER, STAFF, CUSTOMER or GATEWAY")
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject, e.g. a producer or door id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default ACCESS_TOKEN_TTL_MIN)")
	return cmd
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var eventID uint64

	cmd := &cobra.Command{
		Use:   "validate CODE",
		Short: "Redeem a ticket at the door",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventID == 0 {
				return errors.New("--event is required")
			}
			deps, err := ctx.deps()
			if err != nil {
				return err
			}
			r, err := service.NewRedemptionValidator(deps).Validate(cmd.Context(), eventID, args[0])
			var used *service.AlreadyUsedError
			if errors.As(err, &used) {
				return fmt.Errorf("ticket %s already used at %s", used.Code, used.UsedAt.UTC().Format(time.RFC3339))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "admitted %s: %s, session #%d, %s\n",
				r.Ticket.Code, r.Event.Name, r.Session.Number, r.Ticket.BuyerName)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&eventID, "event", 0, "Event id the ticket must belong to")
	return cmd
}

func newCloneSessionCommand(ctx *commandContext) *cobra.Command {
	var eventID uint64
	var at string

	cmd := &cobra.Command{
		Use:   "clone-session",
		Short: "Add a session to an event with the structure of its original session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventID == 0 {
				return errors.New("--event is required")
			}
			startsAt, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			deps, err := ctx.deps()
			if err != nil {
				return err
			}
			cs, err := service.NewSessionCloner(deps).CloneSession(cmd.Context(), eventID, startsAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "session #%d (id %d): %d sectors, %d ticket types, %d coupons\n",
				cs.Session.Number, cs.Session.ID, len(cs.Sectors), len(cs.Types), len(cs.Coupons))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&eventID, "event", 0, "Event id")
	cmd.Flags().StringVar(&at, "at", "", "Start of the new session (RFC3339)")
	return cmd
}
