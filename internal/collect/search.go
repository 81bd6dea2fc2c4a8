package collect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dzhechko/B2BSalesAI/internal/metrics"
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/internal/resilience"
)

// failedResponse is the audit text of a failed provider call.
const failedResponse = "Поиск не выполнен - проверьте API ключ или квоту"

// maxRawEvidence caps raw bodies used as refiner evidence.
const maxRawEvidence = 4000

type phaseResult struct {
	service model.Service
	source  model.Source
	result  *model.ProviderResult
}

type callOutcome struct {
	result *model.ProviderResult
	err    error
	at     time.Time
}

// breakerKey scopes a provider breaker to one user's credentials, so a bad
// key or exhausted quota never blocks another user's calls.
func breakerKey(svc model.Service, userID int64) string {
	return fmt.Sprintf("%s:%d", svc, userID)
}

// search queries every enabled provider once, appends one QueryRecord per
// provider in provider order and returns the successful results in that
// same order.
func (c *Collector) search(ctx context.Context, userID int64, phase model.Phase, query string, services []model.Service, creds *model.Credentials, data *model.CollectedData, log *zap.Logger) []phaseResult {
	ctx, span := c.tracer.Start(ctx, "collect."+string(phase)+"_search", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("providers", len(services)),
	))
	defer span.End()

	outcomes := make([]callOutcome, len(services))
	call := func(i int) {
		svc := services[i]
		adapter := c.adapters[svc]
		at := c.now().UTC()
		start := time.Now()
		res, err := resilience.Call(ctx, c.guard, breakerKey(svc, userID), func(ctx context.Context) (*model.ProviderResult, error) {
			return adapter.Search(ctx, query, creds.ProviderKey(svc))
		})
		metrics.ProviderDuration.WithLabelValues(string(svc)).Observe(time.Since(start).Seconds())
		if err == nil && res == nil {
			err = errors.New("provider returned no result")
		}
		outcomes[i] = callOutcome{result: res, err: err, at: at}
	}

	if c.cfg.Concurrent && len(services) > 1 {
		var g errgroup.Group
		for i := range services {
			g.Go(func() error {
				call(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range services {
			call(i)
		}
	}

	var ok []phaseResult
	for i, svc := range services {
		out := outcomes[i]
		rec := model.QueryRecord{
			Service:   svc,
			Phase:     phase,
			Query:     query,
			Timestamp: out.at,
		}
		if out.err != nil {
			err := asCallError(svc, phase, out.err)
			rec.Status = model.QueryStatusFailed
			rec.Response = fmt.Sprintf("%s: %v", failedResponse, err)
			metrics.ProviderCalls.WithLabelValues(string(svc), string(phase), metrics.OutcomeFailed).Inc()
			log.Warn("collect: provider call failed",
				zap.String("service", string(svc)),
				zap.String("phase", string(phase)),
				zap.Error(err),
			)
		} else {
			raw := out.result.Raw
			rec.Status = model.QueryStatusOK
			rec.Response = out.result.Summary()
			if !raw.Empty() {
				rec.RawResponse = &raw
			}
			metrics.ProviderCalls.WithLabelValues(string(svc), string(phase), metrics.OutcomeOK).Inc()
			ok = append(ok, phaseResult{service: svc, source: model.SourceFor(svc), result: out.result})
		}
		data.AppendQuery(rec)
	}
	span.SetAttributes(attribute.Int("succeeded", len(ok)))
	return ok
}

func asCallError(svc model.Service, phase model.Phase, err error) *model.ProviderCallError {
	var pce *model.ProviderCallError
	if errors.As(err, &pce) {
		out := *pce
		out.Service = svc
		out.Phase = phase
		return &out
	}
	return &model.ProviderCallError{Service: svc, Phase: phase, Err: err}
}

// evidence renders successful results for the refiner, in provider order.
// Results with neither structured fields nor a raw body are skipped.
func evidence(results []phaseResult) []string {
	var out []string
	for _, r := range results {
		text := r.result.Summary()
		if text == "" {
			text = truncate(r.result.Raw.Body, maxRawEvidence)
		}
		if text == "" {
			continue
		}
		out = append(out, fmt.Sprintf("[%s]\n%s", r.service, text))
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
