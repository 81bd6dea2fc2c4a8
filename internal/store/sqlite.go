package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         INTEGER NOT NULL,
	crm_id          TEXT NOT NULL,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	position        TEXT NOT NULL DEFAULT '',
	company         TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'Активный',
	crm_data        TEXT,
	collected_data  TEXT,
	recommendations TEXT,
	last_updated    DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (user_id, crm_id)
);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id        INTEGER PRIMARY KEY,
	search_systems TEXT NOT NULL DEFAULT '[]',
	playbook       TEXT NOT NULL DEFAULT '',
	theme          TEXT NOT NULL DEFAULT 'light'
);

CREATE TABLE IF NOT EXISTS api_keys (
	user_id          INTEGER PRIMARY KEY,
	brave_key        TEXT NOT NULL DEFAULT '',
	perplexity_key   TEXT NOT NULL DEFAULT '',
	anthropic_key    TEXT NOT NULL DEFAULT '',
	gemini_key       TEXT NOT NULL DEFAULT '',
	amocrm_key       TEXT NOT NULL DEFAULT '',
	amocrm_subdomain TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_contacts_user_updated ON contacts(user_id, last_updated DESC);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	if c.CRMID == "" {
		return nil, eris.New("sqlite: upsert contact: empty crm id")
	}
	status := c.Status
	if status == "" {
		status = model.ContactStatusActive
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO contacts (user_id, crm_id, name, email, phone, position, company, status, crm_data, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, crm_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			position = excluded.position,
			company = excluded.company,
			status = excluded.status,
			crm_data = excluded.crm_data,
			last_updated = excluded.last_updated
		 RETURNING `+contactColumns,
		c.UserID, c.CRMID, c.Name, c.Email, c.Phone, c.Position, c.Company, string(status),
		nullableJSON(c.CRMData), time.Now().UTC(),
	)
	out, err := scanSQLiteContact(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert contact %s", c.CRMID)
	}
	return out, nil
}

func (s *SQLiteStore) GetContact(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ? AND user_id = ?`,
		contactID, userID,
	)
	c, err := scanSQLiteContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contactNotFound(contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get contact %d", contactID)
	}
	return c, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = ? ORDER BY last_updated DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Contact
	for rows.Next() {
		c, err := scanSQLiteContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list contacts")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) SaveCollectedData(ctx context.Context, userID, contactID int64, data *model.CollectedData) (*model.Contact, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal collected data")
	}
	return s.updateContactJSON(ctx, "collected_data", string(body), userID, contactID)
}

func (s *SQLiteStore) SaveRecommendations(ctx context.Context, userID, contactID int64, recs []model.Recommendation) (*model.Contact, error) {
	body, err := json.Marshal(recs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal recommendations")
	}
	return s.updateContactJSON(ctx, "recommendations", string(body), userID, contactID)
}

// updateContactJSON replaces one JSON column in a single statement.
func (s *SQLiteStore) updateContactJSON(ctx context.Context, column, body string, userID, contactID int64) (*model.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE contacts SET `+column+` = ?, last_updated = ? WHERE id = ? AND user_id = ? RETURNING `+contactColumns,
		body, time.Now().UTC(), contactID, userID,
	)
	c, err := scanSQLiteContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contactNotFound(contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save %s for contact %d", column, contactID)
	}
	return c, nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	var systems string
	out := &model.UserSettings{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT search_systems, playbook, theme FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&systems, &out.Playbook, &out.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get settings")
	}
	if err := json.Unmarshal([]byte(systems), &out.SearchSystems); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal search systems")
	}
	return out, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, st *model.UserSettings) error {
	systems, err := encodeSearchSystems(st.SearchSystems)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, search_systems, playbook, theme) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			search_systems = excluded.search_systems,
			playbook = excluded.playbook,
			theme = excluded.theme`,
		st.UserID, systems, st.Playbook, st.Theme,
	)
	return eris.Wrap(err, "sqlite: save settings")
}

func (s *SQLiteStore) GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error) {
	out := &model.Credentials{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT brave_key, perplexity_key, anthropic_key, gemini_key, amocrm_key, amocrm_subdomain
		 FROM api_keys WHERE user_id = ?`, userID,
	).Scan(&out.BraveKey, &out.PerplexityKey, &out.AnthropicKey, &out.GeminiKey, &out.AmoCRMKey, &out.AmoCRMSubdomain)
	if errors.Is(err, sql.ErrNoRows) {
		return out, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get credentials")
	}
	return out, nil
}

func (s *SQLiteStore) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (user_id, brave_key, perplexity_key, anthropic_key, gemini_key, amocrm_key, amocrm_subdomain)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			brave_key = excluded.brave_key,
			perplexity_key = excluded.perplexity_key,
			anthropic_key = excluded.anthropic_key,
			gemini_key = excluded.gemini_key,
			amocrm_key = excluded.amocrm_key,
			amocrm_subdomain = excluded.amocrm_subdomain`,
		c.UserID, c.BraveKey, c.PerplexityKey, c.AnthropicKey, c.GeminiKey, c.AmoCRMKey, c.AmoCRMSubdomain,
	)
	return eris.Wrap(err, "sqlite: save credentials")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	var status string
	var crmData, collected, recs sql.NullString
	if err := row.Scan(
		&c.ID, &c.UserID, &c.CRMID, &c.Name, &c.Email, &c.Phone, &c.Position, &c.Company,
		&status, &crmData, &collected, &recs, sqliteTime{&c.LastUpdated},
	); err != nil {
		return nil, err
	}
	c.Status = model.ContactStatus(status)
	if err := decodeContactJSON(&c, []byte(crmData.String), []byte(collected.String), []byte(recs.String)); err != nil {
		return nil, err
	}
	return &c, nil
}

// sqliteTime scans DATETIME values that arrive either typed or as text,
// which is the case for RETURNING columns.
type sqliteTime struct {
	t *time.Time
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (s sqliteTime) Scan(v any) error {
	var text string
	switch x := v.(type) {
	case nil:
		*s.t = time.Time{}
		return nil
	case time.Time:
		*s.t = x
		return nil
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		return eris.Errorf("sqlite: cannot scan %T into time", v)
	}
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			*s.t = t
			return nil
		}
	}
	return eris.Errorf("sqlite: unrecognised time %q", text)
}
