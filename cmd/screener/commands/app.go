package commands

import (
	"fmt"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/datacache"
	"github.com/wonny/screener/backend/internal/external/krx"
	"github.com/wonny/screener/backend/internal/external/naver"
	"github.com/wonny/screener/backend/internal/notify"
	"github.com/wonny/screener/backend/internal/provider"
	"github.com/wonny/screener/backend/internal/screening"
	"github.com/wonny/screener/backend/internal/store"
	"github.com/wonny/screener/backend/internal/strategy"
	"github.com/wonny/screener/backend/pkg/config"
	"github.com/wonny/screener/backend/pkg/database"
	"github.com/wonny/screener/backend/pkg/httputil"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/redis"
)

// app holds the wired production components shared by the CLI commands
// ⭐ SSOT: 프로덕션 조립은 이 파일에서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	provider *provider.Composite
	cache    *datacache.Manager
	results  *store.ResultRepository
	symbols  *store.SymbolRepository
	registry *strategy.Registry
}

// newApp loads config and wires the production dependency graph.
// Redis being down degrades to uncached operation; Postgres being down is fatal.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		redisClient = nil
	}
	var quoteCache *redis.Cache
	var limiter *redis.RateLimiter
	if redisClient != nil {
		quoteCache = redis.NewCache(redisClient, "screener")
		limiter = redis.NewRateLimiter(redisClient, "screener")
	}

	// Per-source HTTP clients: local token bucket plus the shared Redis
	// limiter, so one process alone and all processes together stay polite.
	krxHTTP := httputil.New(log, cfg.ProviderTimeout).WithRateLimit(2, 1)
	naverHTTP := httputil.New(log, cfg.ProviderTimeout).WithRateLimit(10, 5)

	krxClient := krx.NewClient(krxHTTP, log, cfg.KRX.BaseURL).WithRateLimiter(limiter)
	naverClient := naver.NewClient(naverHTTP, log, cfg.Naver.BaseURL).WithRateLimiter(limiter)

	registry, err := strategy.NewRegistry(cfg.StrategyDir)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		db.Close()
		return nil, fmt.Errorf("load strategies: %w", err)
	}

	prov := provider.NewComposite(krxClient, naverClient, quoteCache, maxAvgWindow(registry), log)

	bars := store.NewBarRepository(db.Pool)
	flows := store.NewFlowRepository(db.Pool)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		provider: prov,
		cache:    datacache.New(prov, bars, flows, cfg.ProviderTimeout, log),
		results:  store.NewResultRepository(db.Pool),
		symbols:  store.NewSymbolRepository(db.Pool),
		registry: registry,
	}, nil
}

// Close releases the app's connections
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// screener builds the pipeline around the app's wired stores
func (a *app) screener(notifier contracts.Notifier) *screening.Screener {
	return screening.New(a.provider, a.cache, a.results, notifier, a.cfg.ProviderTimeout, a.log)
}

// notifier assembles the notification fanout. Telegram only when a bot token
// is configured; console only when requested (interactive runs).
func (a *app) notifier(withConsole bool) contracts.Notifier {
	var channels []contracts.Notifier
	if a.cfg.Telegram.BotToken != "" {
		hc := httputil.New(a.log, a.cfg.ProviderTimeout)
		channels = append(channels, notify.NewTelegram(hc, a.log, a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, ""))
	}
	if withConsole {
		channels = append(channels, notify.NewConsole())
	}
	if len(channels) == 0 {
		return nil
	}
	return notify.NewMulti(channels...)
}

// maxAvgWindow returns the widest volume-tier window across all registered
// strategies, so the snapshot's rolling average covers every strategy.
func maxAvgWindow(registry *strategy.Registry) int {
	window := 0
	for _, name := range registry.Names() {
		cfg, err := registry.Get(name)
		if err != nil {
			continue
		}
		for _, tier := range cfg.VolumeTiers {
			if tier.Window > window {
				window = tier.Window
			}
		}
	}
	return window
}
