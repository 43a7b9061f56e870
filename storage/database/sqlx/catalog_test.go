package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
	"github.com/trezcool/masomo/tests"
)

func Test_orderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering string
		want     string
	}{
		{name: "default", want: " ORDER BY created_at ASC, id ASC"},
		{name: "label", ordering: "label", want: " ORDER BY lower(label) ASC, id ASC"},
		{name: "multiple", ordering: "-updated_at,label", want: " ORDER BY updated_at DESC, lower(label) ASC, id ASC"},
		{name: "unknown fields are ignored", ordering: "password;DROP TABLE folder", want: " ORDER BY created_at ASC, id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(core.ParseOrdering(tt.ordering)))
		})
	}
}

func Test_recordRow(t *testing.T) {
	rec := record.Record{
		ID:       "r1",
		FolderID: "f1",
		Label:    "Class sizes",
		Fields: []record.Field{
			record.NumberField{FieldBase: record.FieldBase{ID: "boys", Name: "Boys", Aggregate: record.AggregateSum}},
			record.FormulaField{FieldBase: record.FieldBase{ID: "score", Name: "Score", Aggregate: record.AggregateNone}, Terms: []record.Term{{FieldID: "boys"}}},
		},
	}
	row, err := toRecordRow(rec)
	require.NoError(t, err)
	assert.False(t, row.Description.Valid)

	got, err := row.record()
	require.NoError(t, err)
	assert.Equal(t, rec.Fields, got.Fields)
	assert.Equal(t, "", got.Description)
}

func Test_dbErr(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantShutdown bool
	}{
		{name: "connection failure", err: &pq.Error{Code: "08006", Message: "connection failure"}, wantShutdown: true},
		{name: "admin shutdown", err: &pq.Error{Code: "57P01", Message: "terminating connection"}, wantShutdown: true},
		{name: "query canceled", err: &pq.Error{Code: "57014", Message: "canceling statement"}},
		{name: "unique violation", err: &pq.Error{Code: "23505", Message: "duplicate key"}},
		{name: "other error", err: errors.New("lol")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dbErr(tt.err, "querying folders")
			assert.Equal(t, tt.wantShutdown, core.IsShutdown(err))
			assert.Contains(t, err.Error(), "querying folders: ")
		})
	}
}

func Test_containsPattern(t *testing.T) {
	tests := []struct {
		search string
		want   string
	}{
		{search: "stat", want: "%stat%"},
		{search: "100%", want: `%100\%%`},
		{search: "class_a", want: `%class\_a%`},
		{search: `a\b`, want: `%a\\b%`},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPattern(tt.search))
		})
	}
}

// The tests below need a postgres database (ENV=TEST TEST_STORAGE=postgres).

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewCatalogRepository(db)
	rows := NewRowRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	stats := testutil.CreateFolder(t, repo, "Statistics", "class stats", now.Add(time.Hour))
	budget := testutil.CreateFolder(t, repo, "Budget", "", now)

	t.Run("folder label uniqueness", func(t *testing.T) {
		assert.Equal(t, record.ErrFolderExists, repo.CheckFolderLabelUniqueness(ctx, "STATISTICS"))
		assert.NoError(t, repo.CheckFolderLabelUniqueness(ctx, "statistics", stats.ID))
	})

	t.Run("query folders", func(t *testing.T) {
		got, err := repo.QueryFolders(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []record.Folder{budget, stats}, got)

		got, err = repo.QueryFolders(ctx, &record.QueryFilter{Search: "STAT"}, core.ParseOrdering("-label"))
		require.NoError(t, err)
		assert.Equal(t, []record.Folder{stats}, got)

		for _, search := range []string{"%", "_", "Stat_stics"} {
			got, err = repo.QueryFolders(ctx, &record.QueryFilter{Search: search}, nil)
			require.NoError(t, err)
			assert.Empty(t, got, "wildcards match literally")
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetFolder(ctx, "lol")
		assert.Equal(t, record.ErrFolderNotFound, err)
		_, err = repo.GetRecord(ctx, "8d6f5f52-6c34-4f8b-9a44-3c3b7e0b8f11")
		assert.Equal(t, record.ErrRecordNotFound, err)
	})

	class := testutil.CreateRecord(t, repo, stats.ID, "Class sizes", testutil.ClassFields(), now)
	require.NoError(t, rows.ReplaceRows(ctx, class.ID, testutil.ClassRows()))

	t.Run("record round trip", func(t *testing.T) {
		got, err := repo.GetRecord(ctx, class.ID)
		require.NoError(t, err)
		assert.Equal(t, class, got)

		upd := got.AddField(record.TextField{FieldBase: record.FieldBase{ID: "note", Name: "Note", Aggregate: record.AggregateNone}})
		upd.UpdatedAt = now.Add(time.Minute)
		saved, err := repo.UpdateRecord(ctx, upd)
		require.NoError(t, err)
		assert.Len(t, saved.Fields, 4)
	})

	t.Run("rows", func(t *testing.T) {
		got, err := rows.Rows(ctx, class.ID)
		require.NoError(t, err)
		assert.Equal(t, testutil.ClassRows(), got)
	})

	t.Run("delete folder cascades", func(t *testing.T) {
		n, err := repo.DeleteFoldersByID(ctx, stats.ID, "lol")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = repo.GetRecord(ctx, class.ID)
		assert.Equal(t, record.ErrRecordNotFound, err)
		_, err = rows.Rows(ctx, class.ID)
		assert.Equal(t, record.ErrRecordNotFound, err)
	})
}
