// Package collect runs the contact enrichment state machine: resolve the
// company, search it, refine, search the contact, refine, persist.
package collect

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/metrics"
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/internal/provider"
	"github.com/dzhechko/B2BSalesAI/internal/refine"
	"github.com/dzhechko/B2BSalesAI/internal/resilience"
)

const tracerName = "github.com/dzhechko/B2BSalesAI/internal/collect"

// Defaults for Config.
const (
	DefaultProviderTimeout = 20 * time.Second
	DefaultRefineTimeout   = 45 * time.Second
)

// Store is the persistence the collector needs.
type Store interface {
	GetContact(ctx context.Context, userID, contactID int64) (*model.Contact, error)
	GetSettings(ctx context.Context, userID int64) (*model.UserSettings, error)
	GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error)
	SaveCollectedData(ctx context.Context, userID, contactID int64, data *model.CollectedData) (*model.Contact, error)
}

// Directory resolves a contact's company name from the CRM.
type Directory interface {
	GetCompanyName(ctx context.Context, userID int64, contact *model.Contact) (string, error)
}

// Refiner turns phase evidence into refined facts.
type Refiner interface {
	Company(ctx context.Context, apiKey, companyName string, evidence []string) (*refine.CompanyFacts, error)
	Contact(ctx context.Context, apiKey, contactName, companyName string, evidence []string) (*refine.ContactFacts, error)
}

// Config tunes a Collector.
type Config struct {
	RefineTimeout time.Duration
	// Concurrent runs the providers of a phase in parallel. Results are
	// still merged and recorded in provider order.
	Concurrent bool
}

// Collector orchestrates one collection run per CollectData call.
type Collector struct {
	store     Store
	adapters  map[model.Service]provider.Adapter
	directory Directory
	refiner   Refiner
	guard     *resilience.Guard
	cfg       Config
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithDirectory sets the CRM directory used when a contact has no company.
func WithDirectory(d Directory) Option {
	return func(c *Collector) { c.directory = d }
}

// WithRefiner enables the refine phases.
func WithRefiner(r Refiner) Option {
	return func(c *Collector) { c.refiner = r }
}

// WithGuard sets the breaker, retry and timeout policy for provider calls.
func WithGuard(g *resilience.Guard) Option {
	return func(c *Collector) { c.guard = g }
}

// WithConfig sets the collector configuration.
func WithConfig(cfg Config) Option {
	return func(c *Collector) {
		if cfg.RefineTimeout <= 0 {
			cfg.RefineTimeout = DefaultRefineTimeout
		}
		c.cfg = cfg
	}
}

// WithTracerProvider sets the provider used for run spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Collector) { c.tracer = tp.Tracer(tracerName) }
}

// WithClock overrides the clock used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector over the given provider adapters.
func New(st Store, adapters []provider.Adapter, opts ...Option) *Collector {
	c := &Collector{
		store:    st,
		adapters: make(map[model.Service]provider.Adapter, len(adapters)),
		guard:    resilience.NewGuard(resilience.BreakerConfig{}, resilience.NoRetry, DefaultProviderTimeout),
		cfg:      Config{RefineTimeout: DefaultRefineTimeout},
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		now:      time.Now,
	}
	for _, a := range adapters {
		c.adapters[a.Service()] = a
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CollectData enriches one contact and persists the new snapshot. It fails
// with *model.NotFoundError for an unknown contact, *model.ConfigurationError
// when no provider is usable, and *model.CollectionError for anything else.
// Provider and refiner failures never fail the run.
func (c *Collector) CollectData(ctx context.Context, userID, contactID int64) (contact *model.Contact, err error) {
	start := time.Now()
	log := zap.L().With(
		zap.String("run_id", uuid.NewString()),
		zap.Int64("user_id", userID),
		zap.Int64("contact_id", contactID),
	)

	ctx, span := c.tracer.Start(ctx, "collect.run", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("contact.id", contactID),
	))
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.Runs.WithLabelValues("collect", outcome).Inc()
		metrics.RunDuration.WithLabelValues("collect").Observe(time.Since(start).Seconds())
		span.End()
	}()

	contact, err = c.store.GetContact(ctx, userID, contactID)
	if err != nil {
		return nil, c.wrap(contactID, err)
	}
	settings, err := c.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, c.wrap(contactID, err)
	}
	creds, err := c.store.GetCredentials(ctx, userID)
	if err != nil {
		return nil, c.wrap(contactID, err)
	}

	services := c.enabled(settings, creds)
	if len(services) == 0 {
		return nil, &model.ConfigurationError{
			Reason: "no search provider is both enabled in settings and configured with an API key",
		}
	}
	log.Info("collect: run started", zap.Int("providers", len(services)))

	data := model.NewCollectedData()
	m := newMerger(data)

	company := c.resolveCompany(ctx, userID, contact, log)
	if company == "" {
		log.Warn("collect: no company name, skipping search phases")
	} else {
		results := c.search(ctx, userID, model.PhaseCompany, CompanyQuery(company), services, creds, data, log)
		for _, r := range results {
			m.companyResult(r.source, r.result)
		}
		if ev := evidence(results); c.canRefine(creds, ev) {
			c.refineCompany(ctx, creds.AnthropicKey, company, ev, m, log)
		}

		if strings.TrimSpace(contact.Name) == "" {
			log.Warn("collect: contact has no name, skipping contact search")
		} else {
			results = c.search(ctx, userID, model.PhaseContact, ContactQuery(contact.Name, company), services, creds, data, log)
			for _, r := range results {
				m.contactResult(r.source, r.result)
			}
			if ev := evidence(results); c.canRefine(creds, ev) {
				c.refineContact(ctx, creds.AnthropicKey, contact.Name, company, ev, m, log)
			}
		}
	}

	pctx, pspan := c.tracer.Start(ctx, "collect.persist")
	saved, err := c.store.SaveCollectedData(pctx, userID, contactID, data)
	pspan.End()
	if err != nil {
		return nil, c.wrap(contactID, err)
	}

	log.Info("collect: run complete",
		zap.Int("queries", len(data.SearchQueries)),
		zap.Int("fields", len(data.FieldSources)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return saved, nil
}

func (c *Collector) wrap(contactID int64, err error) error {
	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	return &model.CollectionError{ContactID: contactID, Err: err}
}

// enabled returns the preferred, credentialed providers that have an adapter.
func (c *Collector) enabled(settings *model.UserSettings, creds *model.Credentials) []model.Service {
	var out []model.Service
	for _, s := range model.EnabledServices(settings, creds) {
		if _, ok := c.adapters[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Collector) resolveCompany(ctx context.Context, userID int64, contact *model.Contact, log *zap.Logger) string {
	if name := strings.TrimSpace(contact.Company); name != "" {
		return name
	}
	if c.directory == nil {
		return ""
	}
	name, err := c.directory.GetCompanyName(ctx, userID, contact)
	if err != nil {
		log.Warn("collect: company lookup failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(name)
}

func (c *Collector) canRefine(creds *model.Credentials, evidence []string) bool {
	return c.refiner != nil && creds.AnthropicKey != "" && len(evidence) > 0
}

func (c *Collector) refineCompany(ctx context.Context, apiKey, company string, ev []string, m *merger, log *zap.Logger) {
	ctx, span := c.tracer.Start(ctx, "collect.company_refine")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RefineTimeout)
	defer cancel()

	facts, err := c.refiner.Company(ctx, apiKey, company, ev)
	if err != nil {
		c.refineFailed(span, refine.StageCompany, err, log)
		return
	}
	metrics.RefineOutcomes.WithLabelValues(refine.StageCompany, metrics.OutcomeOK).Inc()
	m.companyFacts(facts)
}

func (c *Collector) refineContact(ctx context.Context, apiKey, name, company string, ev []string, m *merger, log *zap.Logger) {
	ctx, span := c.tracer.Start(ctx, "collect.contact_refine")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RefineTimeout)
	defer cancel()

	facts, err := c.refiner.Contact(ctx, apiKey, name, company, ev)
	if err != nil {
		c.refineFailed(span, refine.StageContact, err, log)
		return
	}
	metrics.RefineOutcomes.WithLabelValues(refine.StageContact, metrics.OutcomeOK).Inc()
	m.contactFacts(facts)
}

func (c *Collector) refineFailed(span trace.Span, stage string, err error, log *zap.Logger) {
	outcome := metrics.OutcomeFailed
	var pe *model.ExtractionParseError
	if errors.As(err, &pe) {
		outcome = metrics.OutcomeParse
	}
	metrics.RefineOutcomes.WithLabelValues(stage, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	log.Warn("collect: refine failed, keeping provider values",
		zap.String("stage", stage),
		zap.String("outcome", outcome),
		zap.Error(err),
	)
}

// CompanyQuery builds the company-phase search query.
func CompanyQuery(company string) string {
	return company + " отрасль выручка доходы сотрудники основные продукты финансовые результаты"
}

// ContactQuery builds the contact-phase search query.
func ContactQuery(name, company string) string {
	return name + " должность в " + company + " 3 последние публикации в соц сетях"
}
