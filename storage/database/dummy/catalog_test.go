package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
	"github.com/trezcool/masomo/tests"
)

func setup(t *testing.T) (record.Repository, *RowRepository) {
	db, err := Open()
	require.NoError(t, err)
	return NewCatalogRepository(db), NewRowRepository(db)
}

func TestCatalogRepository_folders(t *testing.T) {
	ctx := context.Background()
	repo, _ := setup(t)

	now := time.Now().UTC()
	stats := testutil.CreateFolder(t, repo, "Statistics", "class stats", now.Add(2*time.Hour))
	budget := testutil.CreateFolder(t, repo, "Budget", "", now)
	misc := testutil.CreateFolder(t, repo, "Misc", "stats & more", now.Add(time.Hour))

	t.Run("label uniqueness", func(t *testing.T) {
		assert.Equal(t, record.ErrFolderExists, repo.CheckFolderLabelUniqueness(ctx, "STATISTICS"))
		assert.NoError(t, repo.CheckFolderLabelUniqueness(ctx, "statistics", stats.ID))
		assert.NoError(t, repo.CheckFolderLabelUniqueness(ctx, "lol"))
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name     string
			filter   *record.QueryFilter
			ordering []core.DBOrdering
			want     []record.Folder
		}{
			{name: "all (oldest first)", want: []record.Folder{budget, misc, stats}},
			{name: "search", filter: &record.QueryFilter{Search: "STAT"}, want: []record.Folder{misc, stats}},
			{name: "search (unknown)", filter: &record.QueryFilter{Search: "lol"}, want: []record.Folder{}},
			{name: "search (wildcards match literally)", filter: &record.QueryFilter{Search: "%"}, want: []record.Folder{}},
			{name: "by label", ordering: core.ParseOrdering("label"), want: []record.Folder{budget, misc, stats}},
			{name: "by label desc", ordering: core.ParseOrdering("-label"), want: []record.Folder{stats, misc, budget}},
			{name: "newest first", ordering: core.ParseOrdering("-created_at"), want: []record.Folder{stats, misc, budget}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.QueryFolders(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		misc.Label = "Miscellaneous"
		misc.UpdatedAt = now.Add(3 * time.Hour)
		got, err := repo.UpdateFolder(ctx, misc)
		require.NoError(t, err)
		assert.Equal(t, misc, got)

		_, err = repo.UpdateFolder(ctx, record.Folder{ID: "lol"})
		assert.Equal(t, record.ErrFolderNotFound, err)
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetFolder(ctx, budget.ID)
		require.NoError(t, err)
		assert.Equal(t, budget, got)

		_, err = repo.GetFolder(ctx, "lol")
		assert.Equal(t, record.ErrFolderNotFound, err)
	})
}

func TestCatalogRepository_records(t *testing.T) {
	ctx := context.Background()
	repo, rows := setup(t)

	now := time.Now().UTC()
	stats := testutil.CreateFolder(t, repo, "Statistics", "")
	other := testutil.CreateFolder(t, repo, "Other", "")
	class := testutil.CreateRecord(t, repo, stats.ID, "Class sizes", testutil.ClassFields(), now)
	grades := testutil.CreateRecord(t, repo, stats.ID, "Grades", nil, now.Add(time.Hour))
	misc := testutil.CreateRecord(t, repo, other.ID, "Class trips", nil, now.Add(2*time.Hour))
	require.NoError(t, rows.ReplaceRows(ctx, class.ID, testutil.ClassRows()))

	t.Run("create in unknown folder", func(t *testing.T) {
		_, err := repo.CreateRecord(ctx, record.Record{FolderID: "lol", Label: "x"})
		assert.Equal(t, record.ErrFolderNotFound, err)
	})

	t.Run("label uniqueness is per folder", func(t *testing.T) {
		assert.Equal(t, record.ErrRecordExists, repo.CheckRecordLabelUniqueness(ctx, stats.ID, "class SIZES"))
		assert.NoError(t, repo.CheckRecordLabelUniqueness(ctx, stats.ID, "class sizes", class.ID))
		assert.NoError(t, repo.CheckRecordLabelUniqueness(ctx, other.ID, "Class sizes"))
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name   string
			filter *record.QueryFilter
			want   []record.Record
		}{
			{name: "all", want: []record.Record{class, grades, misc}},
			{name: "in folder", filter: &record.QueryFilter{FolderID: stats.ID}, want: []record.Record{class, grades}},
			{name: "search", filter: &record.QueryFilter{Search: "class"}, want: []record.Record{class, misc}},
			{name: "search in folder", filter: &record.QueryFilter{Search: "class", FolderID: other.ID}, want: []record.Record{misc}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.QueryRecords(ctx, tt.filter, nil)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("stored records are copies", func(t *testing.T) {
		got, err := repo.GetRecord(ctx, class.ID)
		require.NoError(t, err)
		got.Fields[0] = record.Rename(got.Fields[0], "changed")

		again, err := repo.GetRecord(ctx, class.ID)
		require.NoError(t, err)
		assert.Equal(t, "Boys", again.Fields[0].Base().Name)
	})

	t.Run("update keeps folder and creation time", func(t *testing.T) {
		upd := grades
		upd.FolderID = other.ID
		upd.CreatedAt = time.Time{}
		upd.Label = "Marks"
		got, err := repo.UpdateRecord(ctx, upd)
		require.NoError(t, err)
		assert.Equal(t, "Marks", got.Label)
		assert.Equal(t, stats.ID, got.FolderID)
		assert.Equal(t, grades.CreatedAt, got.CreatedAt)
	})

	t.Run("delete folder cascades", func(t *testing.T) {
		n, err := repo.DeleteFoldersByID(ctx, stats.ID, "lol")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = repo.GetRecord(ctx, class.ID)
		assert.Equal(t, record.ErrRecordNotFound, err)
		_, err = rows.Rows(ctx, class.ID)
		assert.Equal(t, record.ErrRecordNotFound, err)

		got, err := repo.QueryRecords(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []record.Record{misc}, got)
	})

	t.Run("delete records", func(t *testing.T) {
		n, err := repo.DeleteRecordsByID(ctx, misc.ID, "lol")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestRowRepository(t *testing.T) {
	ctx := context.Background()
	repo, rows := setup(t)

	folder := testutil.CreateFolder(t, repo, "Statistics", "")
	rec := testutil.CreateRecord(t, repo, folder.ID, "Class sizes", testutil.ClassFields())

	got, err := rows.Rows(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	in := testutil.ClassRows()
	require.NoError(t, rows.ReplaceRows(ctx, rec.ID, in))
	in[0]["boys"] = 1000.0

	got, err = rows.Rows(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.ClassRows(), got)

	got[0]["boys"] = 1000.0
	again, _ := rows.Rows(ctx, rec.ID)
	assert.Equal(t, 12.0, again[0]["boys"])

	assert.Equal(t, record.ErrRecordNotFound, rows.ReplaceRows(ctx, "lol", nil))
}
