// Package provider adapts external search services into ProviderResults.
package provider

import (
	"context"
	"time"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// Adapter wraps one search service. Search returns a *model.ProviderCallError
// on transport failure, timeout, non-success status or empty content, and
// never retries.
type Adapter interface {
	Service() model.Service
	Search(ctx context.Context, query, credential string) (*model.ProviderResult, error)
}

// Clock returns the current time; injected for deterministic post dates.
type Clock func() time.Time

func callError(s model.Service, err error) error {
	return &model.ProviderCallError{Service: s, Err: err}
}
