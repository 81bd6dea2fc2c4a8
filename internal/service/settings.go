package service

import (
	"context"
	"fmt"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// KeyStatus reports which credentials a user has stored without revealing
// them.
type KeyStatus struct {
	HasBraveKey      bool   `json:"hasBraveKey"`
	HasPerplexityKey bool   `json:"hasPerplexityKey"`
	HasAnthropicKey  bool   `json:"hasAnthropicKey"`
	HasGeminiKey     bool   `json:"hasGeminiKey"`
	HasAmoCRMToken   bool   `json:"hasAmoCrmToken"`
	AmoCRMSubdomain  string `json:"amoCrmSubdomain,omitempty"`
}

// Settings returns the user's preferences, defaults included.
func (s *Service) Settings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	return s.store.GetSettings(ctx, userID)
}

// SaveSettings validates and stores preferences.
func (s *Service) SaveSettings(ctx context.Context, userID int64, in model.UserSettings) (*model.UserSettings, error) {
	for _, svc := range in.SearchSystems {
		if !svc.Valid() {
			return nil, &model.ConfigurationError{Reason: fmt.Sprintf("unknown search system %q", svc)}
		}
	}
	switch in.Theme {
	case "":
		in.Theme = model.DefaultSettings(userID).Theme
	case "light", "dark":
	default:
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("unknown theme %q", in.Theme)}
	}
	in.UserID = userID
	if err := s.store.SaveSettings(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Keys reports which credentials are present.
func (s *Service) Keys(ctx context.Context, userID int64) (*KeyStatus, error) {
	c, err := s.store.GetCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &KeyStatus{
		HasBraveKey:      c.BraveKey != "",
		HasPerplexityKey: c.PerplexityKey != "",
		HasAnthropicKey:  c.AnthropicKey != "",
		HasGeminiKey:     c.GeminiKey != "",
		HasAmoCRMToken:   c.AmoCRMKey != "",
		AmoCRMSubdomain:  c.AmoCRMSubdomain,
	}, nil
}

// SaveKeys merges the non-empty keys of in into the stored credentials.
func (s *Service) SaveKeys(ctx context.Context, userID int64, in model.Credentials) (*KeyStatus, error) {
	cur, err := s.store.GetCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	cur.Merge(in)
	cur.UserID = userID
	if err := s.store.SaveCredentials(ctx, cur); err != nil {
		return nil, err
	}
	return s.Keys(ctx, userID)
}
