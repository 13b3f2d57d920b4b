package httptransport

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"claimlease/internal/config"
	"claimlease/internal/confirm"
	"claimlease/internal/display"
	"claimlease/internal/leasing"
	"claimlease/internal/presence"
	"claimlease/internal/reminder"
	"claimlease/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// ClaimRegistry is the slice of the registry the handlers need.
type ClaimRegistry interface {
	OwnerOf(ctx context.Context, claimID string) (string, error)
	RevokeAccess(ctx context.Context, claimID, identity string) error
	RegisterClaim(ctx context.Context, c leasing.Claim) error
}

// Payments is the slice of the ledger the handlers need.
type Payments interface {
	Deposit(ctx context.Context, identity string, amount int64, entryType, refType, refID string) error
	Balance(ctx context.Context, identity string) (int64, error)
	SettlePayouts(ctx context.Context, payee string) (int64, error)
	HasFunds(ctx context.Context, identity string, amount int64) (bool, error)
	FormatAmount(amount int64) string
}

// Deps carries the wired components the router needs.
type Deps struct {
	Store     *store.Store
	Config    config.ServerConfig
	Book      *leasing.Book
	Evictions *leasing.Evictions
	Scheduler *reminder.Scheduler
	Workflow  *confirm.Workflow
	Registry  ClaimRegistry
	Ledger    Payments
	Presence  *presence.Tracker
	Display   *display.LogProjector
}

func NewRouter(d Deps) *chi.Mux {
	confirmHandlers := NewConfirmHandlers(d.Workflow, d.Ledger)
	leaseHandlers := NewLeaseHandlers(d.Book, d.Scheduler, d.Presence, d.Ledger)
	evictionHandlers := NewEvictionHandlers(d.Evictions, d.Book, d.Registry, d.Display, d.Config.AdminAPIKey)
	adminHandlers := NewAdminHandlers(d.Store, d.Registry, d.Ledger, d.Book)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/confirmations", confirmHandlers.Propose())
		r.Post("/confirmations/{token}", confirmHandlers.Resolve())

		r.Get("/claims/{claim_id}/lease", leaseHandlers.Query())
		r.Get("/claims/{claim_id}/eviction", evictionHandlers.Query())
		r.Post("/claims/{claim_id}/eviction", evictionHandlers.Initiate())
		r.Delete("/claims/{claim_id}/eviction", evictionHandlers.Cancel())
		r.Post("/claims/{claim_id}/eviction/terminate", evictionHandlers.Terminate())

		r.Post("/presence", leaseHandlers.Presence())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Config.AdminAPIKey))
			r.Post("/claims", adminHandlers.RegisterClaim())
			r.Get("/leases", adminHandlers.Leases())
			r.Get("/ledger", adminHandlers.Ledger())
			r.Post("/topup", adminHandlers.Topup())
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
