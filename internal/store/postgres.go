package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-sync/internal/db"
	"github.com/sells-group/contact-sync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"find_contact_by_remote_id": `SELECT ` + contactColumns + ` FROM contacts WHERE remote_id = $1 LIMIT 1`,
	"find_contact_by_email":     `SELECT ` + contactColumns + ` FROM contacts WHERE email = $1 ORDER BY id LIMIT 1`,
	"insert_contact":            `INSERT INTO contacts (remote_id, name, email, image, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
	"update_contact":            `UPDATE contacts SET remote_id = $1, name = $2, email = $3, image = $4, updated_at = $5 WHERE id = $6`,
	"insert_run":                `INSERT INTO sync_runs (id, kind, status, started_at) VALUES ($1, $2, $3, $4)`,
	"get_run":                   `SELECT ` + runColumns + ` FROM sync_runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
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

	// The prepared statements below reference the schema, so it has to
	// exist before the pool opens its first connection.
	if err := bootstrapSchema(ctx, pgxCfg.ConnConfig); err != nil {
		return nil, err
	}

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

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
	id         BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	remote_id  TEXT,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	image      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_remote_id ON contacts(remote_id) WHERE remote_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_contacts_unlinked ON contacts(id) WHERE remote_id IS NULL;

CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	created      INTEGER NOT NULL DEFAULT 0,
	updated      INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_kind ON sync_runs(kind);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at DESC);
`

func bootstrapSchema(ctx context.Context, connCfg *pgx.ConnConfig) error {
	conn, err := pgx.ConnectConfig(ctx, connCfg.Copy())
	if err != nil {
		return eris.Wrap(err, "postgres: connect")
	}
	defer conn.Close(ctx) //nolint:errcheck
	return migrateSchema(ctx, conn)
}

func migrateSchema(ctx context.Context, ex db.Execer) error {
	_, err := ex.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return migrateSchema(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindContactByRemoteID(ctx context.Context, remoteID string) (*model.Contact, error) {
	c, err := scanPgContact(s.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE remote_id = $1 LIMIT 1`,
		remoteID,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find contact by remote id %s", remoteID)
	}
	return c, nil
}

func (s *PostgresStore) FindContactByEmail(ctx context.Context, email string) (*model.Contact, error) {
	c, err := scanPgContact(s.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE email = $1 ORDER BY id LIMIT 1`,
		email,
	))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find contact by email")
	}
	return c, nil
}

func (s *PostgresStore) ListContactsByEmail(ctx context.Context, email string) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE email = $1 ORDER BY id`,
		email,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts by email")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanPgContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts by email iterate")
}

func (s *PostgresStore) CreateContact(ctx context.Context, c model.Contact) (*model.Contact, error) {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO contacts (remote_id, name, email, image, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.RemoteID, c.Name, c.Email, c.Image, now, now,
	).Scan(&c.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert contact")
	}

	c.CreatedAt = now
	c.UpdatedAt = now
	return &c, nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE contacts SET remote_id = $1, name = $2, email = $3, image = $4, updated_at = $5 WHERE id = $6`,
		c.RemoteID, c.Name, c.Email, c.Image, now, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contact %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contact not found: %d", c.ID)
	}
	c.UpdatedAt = now
	return nil
}

func (s *PostgresStore) ListContactsWithoutRemoteID(ctx context.Context, limit int) ([]model.Contact, error) {
	return s.ListContacts(ctx, ContactFilter{WithoutRemoteID: true, Limit: limit})
}

func (s *PostgresStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE true`
	args := []any{}
	argIdx := 1

	if filter.WithoutRemoteID {
		query += ` AND (remote_id IS NULL OR remote_id = '')`
	}
	if filter.Query != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+filter.Query+"%")
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanPgContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.RunKind) (*model.SyncRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, kind, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, string(kind), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.SyncRun{
		ID:        id,
		Kind:      kind,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, counts model.SyncCounts, runErr error) error {
	status, errText := finishStatus(runErr)
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET status = $1, created = $2, updated = $3, skipped = $4, failed = $5, error = $6, completed_at = $7 WHERE id = $8`,
		string(status), counts.Created, counts.Updated, counts.Skipped, counts.Failed, errText, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.SyncRun, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM sync_runs WHERE id = $1`,
		runID,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if r == nil {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// scanPgContact returns nil, nil on pgx.ErrNoRows.
func scanPgContact(row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.RemoteID, &c.Name, &c.Email, &c.Image, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanPgRun returns nil, nil on pgx.ErrNoRows.
func scanPgRun(row pgx.Row) (*model.SyncRun, error) {
	var r model.SyncRun
	err := row.Scan(&r.ID, &r.Kind, &r.Status,
		&r.Counts.Created, &r.Counts.Updated, &r.Counts.Skipped, &r.Counts.Failed,
		&r.Error, &r.StartedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
