package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/expenses"
	"github.com/minedor/minedor/internal/inventory"
	"github.com/minedor/minedor/internal/observability"
	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/production"
	"github.com/minedor/minedor/internal/purchasing"
	"github.com/minedor/minedor/internal/shared"
	"github.com/minedor/minedor/internal/timetracking"
	"github.com/minedor/minedor/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	SessionManager      *shared.SessionManager
	CSRFManager         *shared.CSRFManager
	AccessMiddleware    access.Middleware
	AccessHandler       *access.Handler
	UsersHandler        *users.Handler
	TimeTrackingHandler *timetracking.Handler
	ProductionHandler   *production.Handler
	InventoryHandler    *inventory.Handler
	PurchasingHandler   *purchasing.Handler
	ExpensesHandler     *expenses.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with the full middleware stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}
	r.Use(params.AccessMiddleware.Attach)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, httpx.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), r.Method+" "+r.URL.Path)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.UsersHandler != nil {
		r.Route("/auth", params.UsersHandler.MountAuthRoutes)
		r.Route("/users", params.UsersHandler.MountUserRoutes)
	}
	if params.AccessHandler != nil {
		r.Route("/access", params.AccessHandler.MountRoutes)
	}
	if params.TimeTrackingHandler != nil {
		r.Route("/pointage", params.TimeTrackingHandler.MountRoutes)
	}
	if params.ProductionHandler != nil {
		r.Route("/production", params.ProductionHandler.MountRoutes)
	}
	if params.InventoryHandler != nil {
		r.Route("/inventaire", params.InventoryHandler.MountRoutes)
	}
	if params.PurchasingHandler != nil {
		r.Route("/achats", params.PurchasingHandler.MountRoutes)
	}
	if params.ExpensesHandler != nil {
		r.Route("/depenses", params.ExpensesHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
