package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-sync/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndFindContact", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.CreateContact(ctx, model.Contact{
			RemoteID: strPtr("101"),
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
			Image:    "avatars/ada.png",
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		byRemote, err := s.FindContactByRemoteID(ctx, "101")
		require.NoError(t, err)
		require.NotNil(t, byRemote)
		assert.Equal(t, created.ID, byRemote.ID)
		assert.Equal(t, "Ada Lovelace", byRemote.Name)
		assert.Equal(t, "avatars/ada.png", byRemote.Image)
		assert.Equal(t, "101", byRemote.RemoteIDString())

		byEmail, err := s.FindContactByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, created.ID, byEmail.ID)
	})

	t.Run("FindMissingReturnsNil", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c, err := s.FindContactByRemoteID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, c)

		c, err = s.FindContactByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("FindByEmailPicksLowestID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, err := s.CreateContact(ctx, model.Contact{Name: "First", Email: "dup@example.com"})
		require.NoError(t, err)
		_, err = s.CreateContact(ctx, model.Contact{Name: "Second", Email: "dup@example.com"})
		require.NoError(t, err)

		c, err := s.FindContactByEmail(ctx, "dup@example.com")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, first.ID, c.ID)

		all, err := s.ListContactsByEmail(ctx, "dup@example.com")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, first.ID, all[0].ID)
		assert.Equal(t, "Second", all[1].Name)

		none, err := s.ListContactsByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("RemoteIDUnique", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateContact(ctx, model.Contact{RemoteID: strPtr("7"), Name: "A", Email: "a@example.com"})
		require.NoError(t, err)
		_, err = s.CreateContact(ctx, model.Contact{RemoteID: strPtr("7"), Name: "B", Email: "b@example.com"})
		assert.Error(t, err)

		// Many unlinked contacts may coexist.
		_, err = s.CreateContact(ctx, model.Contact{Name: "C", Email: "c@example.com"})
		require.NoError(t, err)
		_, err = s.CreateContact(ctx, model.Contact{Name: "D", Email: "d@example.com"})
		require.NoError(t, err)
	})

	t.Run("UpdateContact", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c, err := s.CreateContact(ctx, model.Contact{Name: "Old", Email: "old@example.com"})
		require.NoError(t, err)

		c.Name = "New"
		c.Email = "new@example.com"
		c.RemoteID = strPtr("555")
		require.NoError(t, s.UpdateContact(ctx, c))

		got, err := s.FindContactByRemoteID(ctx, "555")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, "New", got.Name)
		assert.Equal(t, "new@example.com", got.Email)
	})

	t.Run("UpdateMissingContact", func(t *testing.T) {
		s := newStore(t)
		err := s.UpdateContact(context.Background(), &model.Contact{ID: 999, Name: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "contact not found")
	})

	t.Run("ListContactsWithoutRemoteID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var unlinked []int64
		for i, name := range []string{"A", "B", "C"} {
			c, err := s.CreateContact(ctx, model.Contact{Name: name, Email: name + "@example.com"})
			require.NoError(t, err)
			unlinked = append(unlinked, c.ID)
			if i == 0 {
				_, err = s.CreateContact(ctx, model.Contact{RemoteID: strPtr("9"), Name: "Linked", Email: "l@example.com"})
				require.NoError(t, err)
			}
		}

		got, err := s.ListContactsWithoutRemoteID(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, unlinked[0], got[0].ID)
		assert.Equal(t, unlinked[1], got[1].ID)
		for _, c := range got {
			assert.False(t, c.HasRemoteID())
		}
	})

	t.Run("ListContactsQuery", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, c := range []model.Contact{
			{Name: "Ada Lovelace", Email: "ada@example.com"},
			{Name: "Grace Hopper", Email: "grace@navy.mil"},
			{Name: "Alan Turing", Email: "alan@example.com"},
		} {
			_, err := s.CreateContact(ctx, c)
			require.NoError(t, err)
		}

		got, err := s.ListContacts(ctx, ContactFilter{Query: "example"})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.ListContacts(ctx, ContactFilter{Query: "hopper"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Grace Hopper", got[0].Name)

		got, err = s.ListContacts(ctx, ContactFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Grace Hopper", got[0].Name)
	})

	t.Run("RunLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunKindPull)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		counts := model.SyncCounts{Created: 3, Updated: 2, Skipped: 1}
		require.NoError(t, s.FinishRun(ctx, run.ID, counts, nil))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunKindPull, got.Kind)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		assert.Equal(t, counts, got.Counts)
		assert.Empty(t, got.Error)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("FailedRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunKindPush)
		require.NoError(t, err)
		require.NoError(t, s.FinishRun(ctx, run.ID, model.SyncCounts{Failed: 1}, errors.New("boom")))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "boom", got.Error)
		assert.Equal(t, 1, got.Counts.Failed)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run not found")
	})

	t.Run("FinishRunNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.FinishRun(context.Background(), "missing", model.SyncCounts{}, nil)
		require.Error(t, err)
	})

	t.Run("ListRunsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		pull, err := s.CreateRun(ctx, model.RunKindPull)
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, model.RunKindPush)
		require.NoError(t, err)
		require.NoError(t, s.FinishRun(ctx, pull.ID, model.SyncCounts{}, nil))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		pulls, err := s.ListRuns(ctx, RunFilter{Kind: model.RunKindPull})
		require.NoError(t, err)
		require.Len(t, pulls, 1)
		assert.Equal(t, pull.ID, pulls[0].ID)

		running, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
		require.NoError(t, err)
		require.Len(t, running, 1)
		assert.Equal(t, model.RunKindPush, running[0].Kind)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "twice.db"))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Ping(ctx))
}
