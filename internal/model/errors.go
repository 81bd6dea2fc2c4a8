package model

import (
	"fmt"
)

// ConfigurationError means a run cannot start because the user lacks required
// settings or credentials. Nothing is persisted when it is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// NotFoundError means the referenced entity does not exist for the user.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ProviderCallError is a failed provider invocation. It is absorbed into the
// audit trail and never aborts a collection run.
type ProviderCallError struct {
	Service Service
	Phase   Phase
	Err     error
}

func (e *ProviderCallError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s %s search failed: %v", e.Service, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s search failed: %v", e.Service, e.Err)
}

func (e *ProviderCallError) Unwrap() error { return e.Err }

// ExtractionParseError means generative output could not be parsed into the
// expected structure.
type ExtractionParseError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *ExtractionParseError) Error() string {
	return fmt.Sprintf("%s: unparseable output: %v", e.Stage, e.Err)
}

func (e *ExtractionParseError) Unwrap() error { return e.Err }

// CollectionError wraps an unexpected failure of a collection run.
type CollectionError struct {
	ContactID int64
	Err       error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection for contact %d failed: %v", e.ContactID, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// RecommendationError means the recommendation deliverable could not be produced.
type RecommendationError struct {
	ContactID int64
	Err       error
}

func (e *RecommendationError) Error() string {
	return fmt.Sprintf("recommendations for contact %d failed: %v", e.ContactID, e.Err)
}

func (e *RecommendationError) Unwrap() error { return e.Err }

// RunInProgressError means another run holds the lock: a collection or
// recommendation run for ContactID, or a CRM sync when ContactID is zero.
type RunInProgressError struct {
	ContactID int64
}

func (e *RunInProgressError) Error() string {
	if e.ContactID == 0 {
		return "a CRM sync is already in progress"
	}
	return fmt.Sprintf("a run for contact %d is already in progress", e.ContactID)
}
