package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-sync/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var contactCols = []string{"id", "remote_id", "name", "email", "image", "created_at", "updated_at"}

func TestPostgresStore_FindContactByRemoteID(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	remote := "101"

	mock.ExpectQuery(`SELECT id, remote_id, name, email, image, created_at, updated_at FROM contacts WHERE remote_id = \$1`).
		WithArgs("101").
		WillReturnRows(pgxmock.NewRows(contactCols).
			AddRow(int64(7), &remote, "Ada Lovelace", "ada@example.com", "", now, now))

	c, err := s.FindContactByRemoteID(context.Background(), "101")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "101", c.RemoteIDString())
	assert.Equal(t, "Ada Lovelace", c.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindContactByEmail_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM contacts WHERE email = \$1 ORDER BY id LIMIT 1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	c, err := s.FindContactByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindContactByEmail_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM contacts WHERE email`).
		WithArgs("x@example.com").
		WillReturnError(errors.New("connection refused"))

	_, err := s.FindContactByEmail(context.Background(), "x@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: find contact by email")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateContact(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO contacts (remote_id, name, email, image, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`)).
		WithArgs(pgxmock.AnyArg(), "Grace Hopper", "grace@example.com", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	c, err := s.CreateContact(context.Background(), model.Contact{Name: "Grace Hopper", Email: "grace@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.ID)
	assert.False(t, c.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateContact_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE contacts SET remote_id = \$1`).
		WithArgs(pgxmock.AnyArg(), "Name", "n@example.com", "", pgxmock.AnyArg(), int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateContact(context.Background(), &model.Contact{ID: 9, Name: "Name", Email: "n@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact not found: 9")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListContactsWithoutRemoteID(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE true AND \(remote_id IS NULL OR remote_id = ''\) ORDER BY id LIMIT \$1`).
		WithArgs(25).
		WillReturnRows(pgxmock.NewRows(contactCols).
			AddRow(int64(1), nil, "A", "a@example.com", "", now, now).
			AddRow(int64(2), nil, "B", "b@example.com", "", now, now))

	got, err := s.ListContactsWithoutRemoteID(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].RemoteID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListContactsQuery(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`name ILIKE \$1 OR email ILIKE \$1\) ORDER BY id LIMIT \$2 OFFSET \$3`).
		WithArgs("%ada%", 10, 20).
		WillReturnRows(pgxmock.NewRows(contactCols))

	got, err := s.ListContacts(context.Background(), ContactFilter{Query: "ada", Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO sync_runs`).
		WithArgs(pgxmock.AnyArg(), "push", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.RunKindPush)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun(t *testing.T) {
	tests := []struct {
		name       string
		runErr     error
		wantStatus string
		wantText   string
	}{
		{name: "complete", wantStatus: "complete"},
		{name: "failed", runErr: errors.New("sevdesk down"), wantStatus: "failed", wantText: "sevdesk down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockPostgresStore(t)

			mock.ExpectExec(`UPDATE sync_runs SET status = \$1`).
				WithArgs(tt.wantStatus, 1, 2, 3, 0, tt.wantText, pgxmock.AnyArg(), "run-1").
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			err := s.FinishRun(context.Background(), "run-1", model.SyncCounts{Created: 1, Updated: 2, Skipped: 3}, tt.runErr)
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, kind, status, created, updated, skipped, failed, error, started_at, completed_at FROM sync_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	done := started.Add(time.Minute)

	cols := []string{"id", "kind", "status", "created", "updated", "skipped", "failed", "error", "started_at", "completed_at"}
	mock.ExpectQuery(`FROM sync_runs WHERE true AND kind = \$1 ORDER BY started_at DESC LIMIT \$2`).
		WithArgs("pull", 100).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("run-1", model.RunKindPull, model.RunStatusComplete, 4, 1, 0, 0, "", started, &done))

	runs, err := s.ListRuns(context.Background(), RunFilter{Kind: model.RunKindPull})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 4, runs[0].Counts.Created)
	assert.Equal(t, time.Minute, runs[0].Duration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateSchema_SingleConnection(t *testing.T) {
	conn, err := pgxmock.NewConn(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer conn.Close(context.Background()) //nolint:errcheck

	conn.ExpectExec(`(?s)CREATE TABLE IF NOT EXISTS contacts .* CREATE TABLE IF NOT EXISTS sync_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, migrateSchema(context.Background(), conn))
	assert.NoError(t, conn.ExpectationsWereMet())
}

func TestMigrateSchema_Error(t *testing.T) {
	conn, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer conn.Close(context.Background()) //nolint:errcheck

	conn.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))

	err = migrateSchema(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: migrate")
}

// Connections prepare these statements as they open, so every table they
// touch must come from the bootstrap migration.
func TestPreparedStatements_TablesCreatedByMigration(t *testing.T) {
	tableRef := regexp.MustCompile(`(?:FROM|INTO|UPDATE)\s+(\w+)`)
	for name, stmt := range preparedStatements {
		matches := tableRef.FindAllStringSubmatch(stmt, -1)
		require.NotEmpty(t, matches, name)
		for _, m := range matches {
			assert.Contains(t, postgresMigration, "CREATE TABLE IF NOT EXISTS "+m[1], "%s uses table %s", name, m[1])
		}
	}
}

func TestPostgresStore_ListContactsByEmail(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	remote := "5"

	mock.ExpectQuery(`FROM contacts WHERE email = \$1 ORDER BY id$`).
		WithArgs("dup@example.com").
		WillReturnRows(pgxmock.NewRows(contactCols).
			AddRow(int64(3), nil, "First", "dup@example.com", "", now, now).
			AddRow(int64(9), &remote, "Second", "dup@example.com", "", now, now))

	got, err := s.ListContactsByEmail(context.Background(), "dup@example.com")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, "5", got[1].RemoteIDString())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS contacts`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
