// Package service is the caller layer shared by the CLI, HTTP and MCP
// surfaces. It serialises runs per contact and owns settings and key
// management.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/crm"
	"github.com/dzhechko/B2BSalesAI/internal/lock"
	"github.com/dzhechko/B2BSalesAI/internal/metrics"
	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// DefaultLockTTL outlives the slowest collection run: two phases of provider
// and refiner timeouts plus persistence.
const DefaultLockTTL = 5 * time.Minute

// Store is the persistence the service reads and writes directly.
type Store interface {
	GetContact(ctx context.Context, userID, contactID int64) (*model.Contact, error)
	ListContacts(ctx context.Context, userID int64) ([]model.Contact, error)
	GetSettings(ctx context.Context, userID int64) (*model.UserSettings, error)
	SaveSettings(ctx context.Context, s *model.UserSettings) error
	GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error)
	SaveCredentials(ctx context.Context, c *model.Credentials) error
}

// Collector runs a collection for one contact.
type Collector interface {
	CollectData(ctx context.Context, userID, contactID int64) (*model.Contact, error)
}

// Generator produces recommendations for one contact.
type Generator interface {
	Generate(ctx context.Context, userID, contactID int64, modelID string) ([]model.Recommendation, error)
}

// Syncer imports contacts from a CRM.
type Syncer interface {
	Sync(ctx context.Context, userID int64, source crm.Source) ([]model.Contact, error)
}

// Service wires the enrichment core behind per-contact locks.
type Service struct {
	store     Store
	collector Collector
	generator Generator
	syncer    Syncer
	locker    lock.Locker
	lockTTL   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithSyncer enables CRM sync.
func WithSyncer(s Syncer) Option {
	return func(svc *Service) { svc.syncer = s }
}

// WithLocker replaces the in-process locker, e.g. with a Redis one shared by
// several instances.
func WithLocker(l lock.Locker) Option {
	return func(svc *Service) { svc.locker = l }
}

// WithLockTTL bounds how long a crashed run can keep a contact locked.
func WithLockTTL(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.lockTTL = d
		}
	}
}

// New creates a Service.
func New(st Store, col Collector, gen Generator, opts ...Option) *Service {
	s := &Service{
		store:     st,
		collector: col,
		generator: gen,
		locker:    lock.NewMemory(),
		lockTTL:   DefaultLockTTL,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func contactKey(userID, contactID int64) string {
	return fmt.Sprintf("contact:%d:%d", userID, contactID)
}

// withLock runs fn while holding key. A held key fails fast with
// RunInProgressError.
func (s *Service) withLock(ctx context.Context, operation, key string, contactID int64, fn func(ctx context.Context) error) error {
	lease, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if errors.Is(err, lock.ErrHeld) {
		metrics.Runs.WithLabelValues(operation, metrics.OutcomeBusy).Inc()
		return &model.RunInProgressError{ContactID: contactID}
	}
	if err != nil {
		return eris.Wrapf(err, "service: %s", operation)
	}

	active := metrics.RunsActive.WithLabelValues(operation)
	active.Inc()
	defer func() {
		active.Dec()
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			zap.L().Warn("service: lock release failed", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn(ctx)
}

// CollectData runs one collection for the contact.
func (s *Service) CollectData(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	var out *model.Contact
	err := s.withLock(ctx, "collect", contactKey(userID, contactID), contactID, func(ctx context.Context) error {
		var err error
		out, err = s.collector.CollectData(ctx, userID, contactID)
		return err
	})
	return out, err
}

// GenerateRecommendations produces and stores a new recommendation batch.
// An empty modelID selects the generator's default model.
func (s *Service) GenerateRecommendations(ctx context.Context, userID, contactID int64, modelID string) ([]model.Recommendation, error) {
	var out []model.Recommendation
	err := s.withLock(ctx, "recommend", contactKey(userID, contactID), contactID, func(ctx context.Context) error {
		var err error
		out, err = s.generator.Generate(ctx, userID, contactID, modelID)
		return err
	})
	return out, err
}

// Sync imports contacts from source. One sync per user runs at a time.
func (s *Service) Sync(ctx context.Context, userID int64, source crm.Source) ([]model.Contact, error) {
	if s.syncer == nil {
		return nil, &model.ConfigurationError{Reason: "CRM sync is not configured"}
	}
	var out []model.Contact
	err := s.withLock(ctx, "sync", fmt.Sprintf("sync:%d", userID), 0, func(ctx context.Context) error {
		var err error
		out, err = s.syncer.Sync(ctx, userID, source)
		return err
	})
	return out, err
}

// Contact returns one contact.
func (s *Service) Contact(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	return s.store.GetContact(ctx, userID, contactID)
}

// Contacts lists the user's contacts, most recently updated first.
func (s *Service) Contacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	out, err := s.store.ListContacts(ctx, userID)
	if out == nil && err == nil {
		out = []model.Contact{}
	}
	return out, err
}
