package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"agrichain/advisor/internal/business"
	"agrichain/advisor/internal/business/geocache"
	"agrichain/advisor/internal/business/market"
	"agrichain/advisor/internal/business/spoilage"
	"agrichain/advisor/internal/business/storm"
	"agrichain/advisor/internal/business/synthesis"
	"agrichain/advisor/pkg/catalog"
	"agrichain/advisor/pkg/config"
	"agrichain/advisor/pkg/infra/mysql"
	"agrichain/advisor/pkg/infra/openweather"
	"agrichain/advisor/pkg/infra/redis"
	"agrichain/advisor/pkg/infra/sqlite"
	"agrichain/advisor/pkg/logger"
)

// CacheStore 卫星缓存存储（sqlite 或 mysql）
type CacheStore interface {
	geocache.Store
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// App 组装好的依赖
type App struct {
	Service  *business.RecommendationService
	Rules    *sqlite.RuleStore
	Cache    CacheStore
	GeoCache *geocache.Cache
	Markets  *market.Selector
	Redis    *goredis.Client // 未配置 redis.addr 时为 nil

	closers []func() error
}

// Build 按配置组装推荐服务
// publisher 为 nil 时不发送回调与卫星刷新任务（CLI 场景）
func Build(ctx context.Context, cfg *config.Config, publisher business.Publisher, log logger.Logger) (*App, error) {
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	db, err := sqlite.Open(ctx, cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, db.Close)

	app.Rules = sqlite.NewRuleStore(db)
	if err := seedIfEmpty(ctx, app.Rules, log); err != nil {
		return nil, err
	}

	if app.Cache, err = openCache(ctx, cfg, db, app, log); err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		if app.Redis, err = redis.NewClient(ctx, cfg.Redis); err != nil {
			return nil, err
		}
		app.closers = append(app.closers, app.Redis.Close)
	}

	primary, secondary, err := marketProviders(cfg, app.Redis)
	if err != nil {
		return nil, err
	}
	app.Markets = market.NewSelector(primary, secondary, market.Options{
		ConsiderDistance:   cfg.Advisor.ConsiderDistance,
		TransportCostPerKm: cfg.Advisor.TransportCostPerKm,
	}, log)

	var provider storm.WeatherProvider
	if cfg.OpenWeather.APIKey != "" {
		client, err := openweather.NewClient(cfg.OpenWeather)
		if err != nil {
			return nil, err
		}
		provider = client
	} else {
		log.Warnf(ctx, "openweather.api_key not set, weather uses historical averages")
	}

	app.GeoCache = geocache.NewCache(app.Cache, cfg.Advisor.CacheTTLDays, log)

	opts := business.ServiceOptions{
		GeoCache:      app.GeoCache,
		Weather:       storm.NewAssessor(provider, log),
		Rules:         spoilage.NewMatcher(app.Rules, cfg.Advisor.RuleLimit, log),
		Market:        app.Markets,
		Synthesizer:   synthesis.NewSynthesizer(cfg.Advisor.StaleCacheDays, log),
		BranchTimeout: cfg.Advisor.BranchTimeout,
		Logger:        log,
	}
	if publisher != nil {
		opts.Publisher = publisher
		opts.CallbackQueue = CallbackQueue(cfg)
		opts.RefreshQueue = cfg.Advisor.SatelliteRefreshQueue
	}
	if app.Redis != nil {
		opts.Notifier = redis.NewPubSub(app.Redis)
		opts.NotifyChannel = cfg.Redis.NotifyChannel
	}

	if app.Service, err = business.NewRecommendationService(opts); err != nil {
		return nil, err
	}

	ok = true
	return app, nil
}

// Close 逆序释放连接
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// CallbackQueue 第一个配置了 callback_queue 的 worker
func CallbackQueue(cfg *config.Config) string {
	for _, w := range cfg.Workers {
		if w.CallbackQueue != "" {
			return w.CallbackQueue
		}
	}
	return ""
}

func seedIfEmpty(ctx context.Context, rules *sqlite.RuleStore, log logger.Logger) error {
	n, err := rules.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	seed, err := catalog.Rules()
	if err != nil {
		return err
	}
	written, err := rules.Seed(ctx, seed)
	if err != nil {
		return err
	}
	log.Infof(ctx, "rule store was empty, seeded %d rules from catalog", written)
	return nil
}

// openCache 配置了 mysql.dsn 时使用 mysql，否则复用 sqlite 连接
func openCache(ctx context.Context, cfg *config.Config, db *sql.DB, app *App, log logger.Logger) (CacheStore, error) {
	if cfg.MySQL.DSN == "" {
		return sqlite.NewCacheStore(db), nil
	}

	dao, err := mysql.NewSatelliteCacheDAO(cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, dao.Close)

	if err := dao.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate satellite cache: %w", err)
	}
	log.Infof(ctx, "satellite cache backed by mysql")
	return dao, nil
}

// marketProviders redis 可用时主数据源读行情快照，备用数据源始终为内置目录
func marketProviders(cfg *config.Config, client *goredis.Client) (market.Provider, market.Provider, error) {
	secondary, err := catalog.NewStaticProvider(cfg.Advisor.SecondaryMarketSource)
	if err != nil {
		return nil, nil, err
	}
	if client != nil {
		return redis.NewPriceSource(client, cfg.Redis.PriceKeyPrefix, cfg.Advisor.PrimaryMarketSource), secondary, nil
	}

	primary, err := catalog.NewStaticProvider(cfg.Advisor.PrimaryMarketSource)
	if err != nil {
		return nil, nil, err
	}
	return primary, secondary, nil
}
