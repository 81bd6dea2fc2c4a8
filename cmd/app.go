package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/collect"
	"github.com/dzhechko/B2BSalesAI/internal/config"
	"github.com/dzhechko/B2BSalesAI/internal/crm"
	"github.com/dzhechko/B2BSalesAI/internal/lock"
	"github.com/dzhechko/B2BSalesAI/internal/metrics"
	"github.com/dzhechko/B2BSalesAI/internal/provider"
	"github.com/dzhechko/B2BSalesAI/internal/recommend"
	"github.com/dzhechko/B2BSalesAI/internal/refine"
	"github.com/dzhechko/B2BSalesAI/internal/resilience"
	"github.com/dzhechko/B2BSalesAI/internal/service"
	"github.com/dzhechko/B2BSalesAI/internal/store"
	"github.com/dzhechko/B2BSalesAI/pkg/amocrm"
	"github.com/dzhechko/B2BSalesAI/pkg/anthropic"
	"github.com/dzhechko/B2BSalesAI/pkg/brave"
	"github.com/dzhechko/B2BSalesAI/pkg/gemini"
	"github.com/dzhechko/B2BSalesAI/pkg/perplexity"
	"github.com/dzhechko/B2BSalesAI/pkg/salesforce"
)

// appEnv holds the initialized dependencies shared by all commands.
type appEnv struct {
	Store   store.Store
	Service *service.Service

	closers []func()
}

// Close releases everything initApp opened, in reverse order.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initApp validates config for mode and builds the service graph.
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{}

	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	env.closers = append(env.closers, func() { _ = st.Close() })
	env.Store = st

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	locker, err := initLocker(ctx, cfg.Lock)
	if err != nil {
		env.Close()
		return nil, err
	}
	if r, ok := locker.(*lock.Redis); ok {
		env.closers = append(env.closers, func() { _ = r.Close() })
	}

	sf := initSalesforce(cfg.Salesforce)
	newAmo := amoFactory(cfg.AmoCRM)

	collectOpts := []collect.Option{
		collect.WithDirectory(crm.NewDirectory(st, newAmo, sf)),
		collect.WithGuard(newGuard(cfg)),
		collect.WithConfig(collect.Config{
			RefineTimeout: cfg.Collect.RefineTimeout(),
			Concurrent:    cfg.Collect.Concurrent,
		}),
	}
	if cfg.Refine.Enabled {
		collectOpts = append(collectOpts, collect.WithRefiner(refine.New(anthropicFactory(cfg.Anthropic),
			refine.WithModel(cfg.Refine.Model),
			refine.WithMaxTokens(cfg.Refine.MaxTokens),
		)))
	}
	collector := collect.New(st, searchAdapters(cfg), collectOpts...)

	generator := recommend.New(st, anthropicFactory(cfg.Anthropic),
		recommend.WithGemini(geminiFactory(cfg.Gemini)),
		recommend.WithDefaultModel(cfg.Recommend.DefaultModel),
		recommend.WithTimeout(cfg.Recommend.Timeout()),
	)

	env.Service = service.New(st, collector, generator,
		service.WithSyncer(crm.NewSyncer(st, newAmo, sf)),
		service.WithLocker(locker),
		service.WithLockTTL(cfg.Lock.TTL()),
	)

	return env, nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		return store.NewSQLite(sc.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{MaxConns: sc.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// initLocker dials Redis when configured and falls back to in-process locks.
func initLocker(ctx context.Context, lc config.LockConfig) (lock.Locker, error) {
	if lc.RedisAddr == "" {
		zap.L().Debug("lock: redis not configured, using in-process locks")
		return lock.NewMemory(), nil
	}
	r, err := lock.Dial(ctx, lock.RedisConfig{
		Addr:     lc.RedisAddr,
		Password: lc.RedisPassword,
		DB:       lc.RedisDB,
		Prefix:   lc.Prefix,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init locker")
	}
	return r, nil
}

// initSalesforce connects when credentials are configured. A failed
// connection disables Salesforce instead of failing startup.
func initSalesforce(sc config.SalesforceConfig) salesforce.Client {
	sfCfg := salesforce.Config{
		LoginURL:  sc.LoginURL,
		Username:  sc.Username,
		ClientID:  sc.ClientID,
		KeyPath:   sc.KeyPath,
		RateLimit: sc.RateLimit,
	}
	if !sfCfg.Enabled() {
		zap.L().Debug("salesforce not configured")
		return nil
	}
	c, err := salesforce.Connect(sfCfg)
	if err != nil {
		zap.L().Warn("salesforce connection failed, salesforce disabled", zap.Error(err))
		return nil
	}
	zap.L().Info("salesforce connected", zap.String("username", sc.Username))
	return c
}

// newGuard builds the provider call policy. Breaker transitions are logged
// and counted.
func newGuard(c *config.Config) *resilience.Guard {
	return resilience.NewGuard(
		resilience.BreakerConfig{
			FailureThreshold: c.Breaker.FailureThreshold,
			Cooldown:         c.Breaker.Cooldown(),
			OnStateChange:    onBreakerChange,
		},
		resilience.RetryPolicy{
			MaxAttempts: c.Collect.RetryAttempts,
			Backoff:     c.Collect.RetryBackoff(),
			Jitter:      0.2,
		},
		c.Collect.ProviderTimeout(),
	)
}

// onBreakerChange counts transitions per provider. Breaker names carry a
// ":<user id>" suffix that is kept out of the metric labels.
func onBreakerChange(name string, from, to resilience.BreakerState) {
	service, _, _ := strings.Cut(name, ":")
	metrics.BreakerTransitions.WithLabelValues(service, to.String()).Inc()
	zap.L().Warn("circuit breaker state change",
		zap.String("breaker", name),
		zap.String("service", service),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}

func searchAdapters(c *config.Config) []provider.Adapter {
	var braveOpts []brave.Option
	if c.Brave.BaseURL != "" {
		braveOpts = append(braveOpts, brave.WithBaseURL(c.Brave.BaseURL))
	}
	if c.Brave.Count > 0 {
		braveOpts = append(braveOpts, brave.WithCount(c.Brave.Count))
	}
	var pplxOpts []perplexity.Option
	if c.Perplexity.BaseURL != "" {
		pplxOpts = append(pplxOpts, perplexity.WithBaseURL(c.Perplexity.BaseURL))
	}

	return []provider.Adapter{
		provider.NewBroadSearch(func(key string) brave.Client {
			return brave.NewClient(key, braveOpts...)
		}),
		provider.NewAISearch(func(key string) perplexity.Client {
			return perplexity.NewClient(key, pplxOpts...)
		}, c.Perplexity.Model),
	}
}

func anthropicFactory(ac config.AnthropicConfig) func(string) anthropic.Client {
	var opts []anthropic.Option
	if ac.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(ac.BaseURL))
	}
	if ac.MaxRetries > 0 {
		opts = append(opts, anthropic.WithMaxRetries(ac.MaxRetries))
	}
	return func(key string) anthropic.Client {
		return anthropic.NewClient(key, opts...)
	}
}

func geminiFactory(gc config.GeminiConfig) recommend.GeminiFactory {
	var opts []gemini.Option
	if gc.Endpoint != "" {
		opts = append(opts, gemini.WithEndpoint(gc.Endpoint))
	}
	return func(ctx context.Context, key string) (gemini.Client, error) {
		return gemini.NewClient(ctx, key, opts...)
	}
}

func amoFactory(ac config.AmoCRMConfig) crm.AmoFactory {
	return func(subdomain, token string) amocrm.Client {
		var opts []amocrm.Option
		if ac.MaxPages > 0 {
			opts = append(opts, amocrm.WithMaxPages(ac.MaxPages))
		}
		if ac.BaseURL != "" {
			opts = append(opts, amocrm.WithBaseURL(ac.BaseURL))
		}
		return amocrm.NewClient(subdomain, token, opts...)
	}
}
