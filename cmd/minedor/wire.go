package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/app"
	"github.com/minedor/minedor/internal/expenses"
	"github.com/minedor/minedor/internal/inventory"
	"github.com/minedor/minedor/internal/observability"
	"github.com/minedor/minedor/internal/platform/db"
	"github.com/minedor/minedor/internal/production"
	"github.com/minedor/minedor/internal/purchasing"
	"github.com/minedor/minedor/internal/shared"
	"github.com/minedor/minedor/internal/timetracking"
	"github.com/minedor/minedor/internal/users"
)

const sessionCookieName = "minedor_session"

// permissionStore picks the backend of the persisted matrix.
func permissionStore(cfg *app.Config, rdb *redis.Client, pool *pgxpool.Pool) access.Store {
	switch cfg.PermissionsStore {
	case app.PermissionsPostgres:
		return access.NewPostgresStore(pool, cfg.PermissionsKey)
	case app.PermissionsMemory:
		return access.NewMemoryStore()
	default:
		return access.NewRedisStore(rdb, cfg.PermissionsKey)
	}
}

type repositories struct {
	users      users.Repository
	sessions   timetracking.Repository
	production production.Repository
	equipment  inventory.Repository
	purchases  purchasing.Repository
	expenses   expenses.Repository
	auditor    access.Auditor
}

func buildRepositories(ctx context.Context, cfg *app.Config, pool *pgxpool.Pool, logger *slog.Logger) (repositories, error) {
	loc, err := cfg.SiteLocation()
	if err != nil {
		return repositories{}, err
	}
	seed, err := users.SeedUsers(cfg.SeedPassword, bcrypt.DefaultCost)
	if err != nil {
		return repositories{}, fmt.Errorf("seed users: %w", err)
	}
	if cfg.StorageDriver != app.StoragePostgres {
		return repositories{
			users:      users.NewMemoryRepository(seed),
			sessions:   timetracking.NewMemoryRepository(timetracking.SeedSessions(loc)),
			production: production.NewMemoryRepository(production.SeedEntries()),
			equipment:  inventory.NewMemoryRepository(inventory.SeedEquipment()),
			purchases:  purchasing.NewMemoryRepository(purchasing.SeedPurchases()),
			expenses:   expenses.NewMemoryRepository(expenses.SeedExpenses()),
			auditor:    shared.NewMemoryAuditLog(logger),
		}, nil
	}

	userRepo := users.NewPostgresRepository(pool)
	purchaseRepo := purchasing.NewPostgresRepository(pool)
	expenseRepo := expenses.NewPostgresRepository(pool)
	sessionRepo := timetracking.NewPostgresRepository(pool)
	productionRepo := production.NewPostgresRepository(pool)
	equipmentRepo := inventory.NewPostgresRepository(pool)
	if !app.InTestMode() {
		if err := userRepo.Seed(ctx, seed); err != nil {
			return repositories{}, err
		}
		if err := purchaseRepo.Seed(ctx, purchasing.SeedPurchases()); err != nil {
			return repositories{}, err
		}
		if err := expenseRepo.Seed(ctx, expenses.SeedExpenses()); err != nil {
			return repositories{}, err
		}
		if err := sessionRepo.Seed(ctx, timetracking.SeedSessions(loc)); err != nil {
			return repositories{}, err
		}
		if err := productionRepo.Seed(ctx, production.SeedEntries()); err != nil {
			return repositories{}, err
		}
		if err := equipmentRepo.Seed(ctx, inventory.SeedEquipment()); err != nil {
			return repositories{}, err
		}
	}
	return repositories{
		users:      userRepo,
		sessions:   sessionRepo,
		production: productionRepo,
		equipment:  equipmentRepo,
		purchases:  purchaseRepo,
		expenses:   expenseRepo,
		auditor:    shared.NewAuditLogger(pool),
	}, nil
}

// buildRouter assembles every component of the HTTP service.
func buildRouter(ctx context.Context, cfg *app.Config, logger *slog.Logger, rdb *redis.Client, pool *pgxpool.Pool) (http.Handler, error) {
	if pool != nil && !app.InTestMode() {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
	}
	repos, err := buildRepositories(ctx, cfg, pool, logger)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	sessions := shared.NewSessionManager(rdb, sessionCookieName, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	money := shared.NewMoneyFormatter(cfg.AppLocale, cfg.CurrencySymbol)

	policy := access.NewPolicy(permissionStore(cfg, rdb, pool), logger)
	policy.Load(ctx)
	go policy.Watch(ctx, cfg.PermissionsRefresh)

	loc, err := cfg.SiteLocation()
	if err != nil {
		return nil, err
	}
	schedule := timetracking.Schedule{Location: loc, LateAfter: cfg.ShiftLateAfter}

	userService := users.NewService(repos.users)
	guard := access.Middleware{Policy: policy, Roles: userService, Logger: logger, Denials: metrics}

	return app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessions,
		CSRFManager:         csrf,
		AccessMiddleware:    guard,
		AccessHandler:       access.NewHandler(logger, policy, repos.auditor, guard),
		UsersHandler:        users.NewHandler(logger, userService, sessions, csrf, guard),
		TimeTrackingHandler: timetracking.NewHandler(logger, timetracking.NewService(repos.sessions, schedule), repos.auditor, guard),
		ProductionHandler:   production.NewHandler(logger, production.NewService(repos.production), repos.auditor, guard),
		InventoryHandler:    inventory.NewHandler(logger, inventory.NewService(repos.equipment), repos.auditor, guard),
		PurchasingHandler:   purchasing.NewHandler(logger, purchasing.NewService(repos.purchases, money), repos.auditor, guard),
		ExpensesHandler:     expenses.NewHandler(logger, expenses.NewService(repos.expenses, money), repos.auditor, guard),
		Metrics:             metrics,
	}), nil
}
