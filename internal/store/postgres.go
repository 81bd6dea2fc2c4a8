package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id              BIGSERIAL PRIMARY KEY,
	user_id         BIGINT NOT NULL,
	crm_id          TEXT NOT NULL,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	position        TEXT NOT NULL DEFAULT '',
	company         TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'Активный',
	crm_data        JSONB,
	collected_data  JSONB,
	recommendations JSONB,
	last_updated    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, crm_id)
);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id        BIGINT PRIMARY KEY,
	search_systems JSONB NOT NULL DEFAULT '[]',
	playbook       TEXT NOT NULL DEFAULT '',
	theme          TEXT NOT NULL DEFAULT 'light'
);

CREATE TABLE IF NOT EXISTS api_keys (
	user_id          BIGINT PRIMARY KEY,
	brave_key        TEXT NOT NULL DEFAULT '',
	perplexity_key   TEXT NOT NULL DEFAULT '',
	anthropic_key    TEXT NOT NULL DEFAULT '',
	gemini_key       TEXT NOT NULL DEFAULT '',
	amocrm_key       TEXT NOT NULL DEFAULT '',
	amocrm_subdomain TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_contacts_user_updated ON contacts(user_id, last_updated DESC);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	if c.CRMID == "" {
		return nil, eris.New("postgres: upsert contact: empty crm id")
	}
	status := c.Status
	if status == "" {
		status = model.ContactStatusActive
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO contacts (user_id, crm_id, name, email, phone, position, company, status, crm_data, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (user_id, crm_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			position = EXCLUDED.position,
			company = EXCLUDED.company,
			status = EXCLUDED.status,
			crm_data = EXCLUDED.crm_data,
			last_updated = EXCLUDED.last_updated
		 RETURNING `+contactColumns,
		c.UserID, c.CRMID, c.Name, c.Email, c.Phone, c.Position, c.Company, string(status),
		nullableJSON(c.CRMData), time.Now().UTC(),
	)
	out, err := scanPostgresContact(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert contact %s", c.CRMID)
	}
	return out, nil
}

func (s *PostgresStore) GetContact(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`,
		contactID, userID,
	)
	c, err := scanPostgresContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contactNotFound(contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get contact %d", contactID)
	}
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY last_updated DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		c, err := scanPostgresContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list contacts")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) SaveCollectedData(ctx context.Context, userID, contactID int64, data *model.CollectedData) (*model.Contact, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal collected data")
	}
	return s.updateContactJSON(ctx, "collected_data", body, userID, contactID)
}

func (s *PostgresStore) SaveRecommendations(ctx context.Context, userID, contactID int64, recs []model.Recommendation) (*model.Contact, error) {
	body, err := json.Marshal(recs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal recommendations")
	}
	return s.updateContactJSON(ctx, "recommendations", body, userID, contactID)
}

func (s *PostgresStore) updateContactJSON(ctx context.Context, column string, body []byte, userID, contactID int64) (*model.Contact, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE contacts SET `+column+` = $1, last_updated = $2 WHERE id = $3 AND user_id = $4 RETURNING `+contactColumns,
		string(body), time.Now().UTC(), contactID, userID,
	)
	c, err := scanPostgresContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contactNotFound(contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save %s for contact %d", column, contactID)
	}
	return c, nil
}

func (s *PostgresStore) GetSettings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	var systems []byte
	out := &model.UserSettings{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT search_systems, playbook, theme FROM user_settings WHERE user_id = $1`, userID,
	).Scan(&systems, &out.Playbook, &out.Theme)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get settings")
	}
	if err := json.Unmarshal(systems, &out.SearchSystems); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal search systems")
	}
	return out, nil
}

func (s *PostgresStore) SaveSettings(ctx context.Context, st *model.UserSettings) error {
	systems, err := encodeSearchSystems(st.SearchSystems)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, search_systems, playbook, theme) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
			search_systems = EXCLUDED.search_systems,
			playbook = EXCLUDED.playbook,
			theme = EXCLUDED.theme`,
		st.UserID, systems, st.Playbook, st.Theme,
	)
	return eris.Wrap(err, "postgres: save settings")
}

func (s *PostgresStore) GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error) {
	out := &model.Credentials{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT brave_key, perplexity_key, anthropic_key, gemini_key, amocrm_key, amocrm_subdomain
		 FROM api_keys WHERE user_id = $1`, userID,
	).Scan(&out.BraveKey, &out.PerplexityKey, &out.AnthropicKey, &out.GeminiKey, &out.AmoCRMKey, &out.AmoCRMSubdomain)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get credentials")
	}
	return out, nil
}

func (s *PostgresStore) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (user_id, brave_key, perplexity_key, anthropic_key, gemini_key, amocrm_key, amocrm_subdomain)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
			brave_key = EXCLUDED.brave_key,
			perplexity_key = EXCLUDED.perplexity_key,
			anthropic_key = EXCLUDED.anthropic_key,
			gemini_key = EXCLUDED.gemini_key,
			amocrm_key = EXCLUDED.amocrm_key,
			amocrm_subdomain = EXCLUDED.amocrm_subdomain`,
		c.UserID, c.BraveKey, c.PerplexityKey, c.AnthropicKey, c.GeminiKey, c.AmoCRMKey, c.AmoCRMSubdomain,
	)
	return eris.Wrap(err, "postgres: save credentials")
}

func scanPostgresContact(row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	var status string
	var crmData, collected, recs []byte
	if err := row.Scan(
		&c.ID, &c.UserID, &c.CRMID, &c.Name, &c.Email, &c.Phone, &c.Position, &c.Company,
		&status, &crmData, &collected, &recs, &c.LastUpdated,
	); err != nil {
		return nil, err
	}
	c.Status = model.ContactStatus(status)
	if err := decodeContactJSON(&c, crmData, collected, recs); err != nil {
		return nil, err
	}
	return &c, nil
}
