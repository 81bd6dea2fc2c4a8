package store

import (
	"context"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// Profile is the YAML document accepted by ImportProfile.
type Profile struct {
	Settings    *model.UserSettings `yaml:"settings"`
	Credentials *model.Credentials  `yaml:"credentials"`
}

// ImportProfile reads a YAML profile and applies it to one user. Settings
// replace the stored values for every key present in the document;
// credentials are merged so absent keys keep their stored value.
func ImportProfile(ctx context.Context, st Store, userID int64, r io.Reader) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, eris.New("store: import: empty profile")
		}
		return nil, eris.Wrap(err, "store: import: decode yaml")
	}

	if p.Settings != nil {
		cur, err := st.GetSettings(ctx, userID)
		if err != nil {
			return nil, err
		}
		if p.Settings.SearchSystems != nil {
			for _, s := range p.Settings.SearchSystems {
				if !s.Valid() {
					return nil, eris.Errorf("store: import: unknown search system %q", s)
				}
			}
			cur.SearchSystems = p.Settings.SearchSystems
		}
		if p.Settings.Playbook != "" {
			cur.Playbook = p.Settings.Playbook
		}
		if p.Settings.Theme != "" {
			cur.Theme = p.Settings.Theme
		}
		cur.UserID = userID
		if err := st.SaveSettings(ctx, cur); err != nil {
			return nil, err
		}
		p.Settings = cur
	}

	if p.Credentials != nil {
		cur, err := st.GetCredentials(ctx, userID)
		if err != nil {
			return nil, err
		}
		cur.Merge(*p.Credentials)
		cur.UserID = userID
		if err := st.SaveCredentials(ctx, cur); err != nil {
			return nil, err
		}
		p.Credentials = cur
	}
	return &p, nil
}
