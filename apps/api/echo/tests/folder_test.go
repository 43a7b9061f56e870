package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
	"github.com/trezcool/masomo/tests"
)

func Test_home(t *testing.T) {
	fx := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	fx.app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Records API!", rec.Body.String())
}

func Test_folderApi_create(t *testing.T) {
	fx := setup(t)
	testutil.CreateFolder(t, fx.repo, "Statistics", "")

	tests := []httpTest{
		{
			name: "blank label", method: http.MethodPost, path: "/v1/folders",
			body:     []byte(`{"label": "   "}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"label": "this field is required"}),
		},
		{
			name: "duplicate label", method: http.MethodPost, path: "/v1/folders",
			body:     []byte(`{"label": " STATISTICS "}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"label": record.ErrFolderExists.Error()}),
		},
		{
			name: "malformed body", method: http.MethodPost, path: "/v1/folders",
			body:     []byte(`{"label": `),
			wantCode: http.StatusBadRequest,
		},
	}
	runHttpTests(t, fx.app, tests)

	t.Run("created", func(t *testing.T) {
		var folder record.Folder
		rec := do(t, fx.app, http.MethodPost, "/v1/folders", []byte(`{"label": "  School  ", "description": "Class sizes"}`), &folder)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, folder.ID)
		assert.Equal(t, "School", folder.Label)
		assert.Equal(t, "Class sizes", folder.Description)

		got, err := fx.repo.GetFolder(context.Background(), folder.ID)
		require.NoError(t, err)
		assert.Equal(t, folder.Label, got.Label)
		assert.Equal(t, []string{core.EventFolderCreated}, fx.events.Kinds())
	})
}

func Test_folderApi_query(t *testing.T) {
	fx := setup(t)

	path := func(search, ordering string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		return "/v1/folders?" + v.Encode()
	}

	now := time.Now()
	stats := testutil.CreateFolder(t, fx.repo, "Statistics", "numbers", now)
	budget := testutil.CreateFolder(t, fx.repo, "Budget", "money & numbers", now.Add(time.Hour))
	misc := testutil.CreateFolder(t, fx.repo, "Misc", "", now.Add(2*time.Hour))

	tests := []httpTest{
		{name: "Get all", path: "/v1/folders", wantCode: http.StatusOK, wantData: marchallList(t, stats, budget, misc)},
		{name: "search (unknown)", path: path("lol", ""), wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "search=NUMBERS", path: path("NUMBERS", ""), wantCode: http.StatusOK, wantData: marchallList(t, stats, budget)},
		{name: "search=misc", path: path("misc", ""), wantCode: http.StatusOK, wantData: marchallList(t, misc)},
		{name: "ordering=label", path: path("", "label"), wantCode: http.StatusOK, wantData: marchallList(t, budget, misc, stats)},
		{name: "ordering=-created_at", path: path("", "-created_at"), wantCode: http.StatusOK, wantData: marchallList(t, misc, budget, stats)},
		{name: "ordering (unknown field)", path: path("", "lol"), wantCode: http.StatusOK, wantData: marchallList(t, stats, budget, misc)},
	}
	runHttpTests(t, fx.app, tests)
}

func Test_folderApi_detail(t *testing.T) {
	fx := setup(t)
	folder := testutil.CreateFolder(t, fx.repo, "Statistics", "numbers")
	other := testutil.CreateFolder(t, fx.repo, "Budget", "")

	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "retrieve", path: "/v1/folders/" + folder.ID, wantCode: http.StatusOK, wantData: marchallObj(t, folder)},
		{name: "retrieve (unknown)", path: "/v1/folders/lol", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "update (unknown)", method: http.MethodPut, path: "/v1/folders/lol", body: []byte(`{}`), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "delete (unknown)", method: http.MethodDelete, path: "/v1/folders/lol", wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "update (duplicate label)", method: http.MethodPut, path: "/v1/folders/" + folder.ID,
			body:     []byte(`{"label": "budget"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"label": record.ErrFolderExists.Error()}),
		},
	}
	runHttpTests(t, fx.app, tests)

	t.Run("update", func(t *testing.T) {
		var got record.Folder
		rec := do(t, fx.app, http.MethodPut, "/v1/folders/"+folder.ID, []byte(`{"description": "class sizes"}`), &got)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Statistics", got.Label, "label is kept when omitted")
		assert.Equal(t, "class sizes", got.Description)
		assert.True(t, got.UpdatedAt.After(folder.UpdatedAt) || got.UpdatedAt.Equal(folder.UpdatedAt))
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, fx.app, http.MethodDelete, "/v1/folders/"+other.ID, nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, err := fx.repo.GetFolder(context.Background(), other.ID)
		assert.Equal(t, record.ErrFolderNotFound, err)
	})
}

func Test_folderApi_destroyMultiple(t *testing.T) {
	fx := setup(t)
	f1 := testutil.CreateFolder(t, fx.repo, "One", "")
	f2 := testutil.CreateFolder(t, fx.repo, "Two", "")
	f3 := testutil.CreateFolder(t, fx.repo, "Three", "")
	rec := testutil.CreateRecord(t, fx.repo, f1.ID, "Class sizes", testutil.ClassFields())

	v := make(url.Values)
	v.Add("id", f1.ID)
	v.Add("id", f2.ID)
	resp := do(t, fx.app, http.MethodDelete, "/v1/folders?"+v.Encode(), nil, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	ctx := context.Background()
	folders, err := fx.repo.QueryFolders(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []record.Folder{f3}, folders)

	_, err = fx.repo.GetRecord(ctx, rec.ID)
	assert.Equal(t, record.ErrRecordNotFound, err, "records are deleted along with their folder")

	t.Run("no ids", func(t *testing.T) {
		resp := do(t, fx.app, http.MethodDelete, "/v1/folders", nil, nil)
		assert.Equal(t, http.StatusNoContent, resp.Code)
	})
}

func Test_folderApi_records(t *testing.T) {
	fx := setup(t)
	folder := testutil.CreateFolder(t, fx.repo, "Statistics", "")
	other := testutil.CreateFolder(t, fx.repo, "Budget", "")

	now := time.Now()
	sizes := testutil.CreateRecord(t, fx.repo, folder.ID, "Class sizes", testutil.ClassFields(), now)
	grades := testutil.CreateRecord(t, fx.repo, folder.ID, "Grades", nil, now.Add(time.Hour))
	testutil.CreateRecord(t, fx.repo, other.ID, "Expenses", nil)

	tests := []httpTest{
		{name: "query", path: "/v1/folders/" + folder.ID + "/records", wantCode: http.StatusOK, wantData: marchallList(t, sizes, grades)},
		{name: "search", path: "/v1/folders/" + folder.ID + "/records?search=grade", wantCode: http.StatusOK, wantData: marchallList(t, grades)},
		{name: "ordering", path: "/v1/folders/" + folder.ID + "/records?ordering=-label", wantCode: http.StatusOK, wantData: marchallList(t, grades, sizes)},
		{name: "query (unknown folder)", path: "/v1/folders/lol/records", wantCode: http.StatusNotFound},
		{
			name: "create (duplicate label)", method: http.MethodPost, path: "/v1/folders/" + folder.ID + "/records",
			body:     []byte(`{"label": "class SIZES"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"label": record.ErrRecordExists.Error()}),
		},
		{
			name: "create (invalid field type)", method: http.MethodPost, path: "/v1/folders/" + folder.ID + "/records",
			body:     []byte(`{"label": "Attendance", "fields": [{"name": "Day", "type": "lol"}]}`),
			wantCode: http.StatusBadRequest,
		},
	}
	runHttpTests(t, fx.app, tests)

	t.Run("create", func(t *testing.T) {
		body := []byte(`{
			"label": "Attendance",
			"fields": [
				{"name": "Day", "type": "date"},
				{"name": "Present", "type": "number", "aggregate": "sum"},
				{"name": "Weather", "type": "dropdown", "options": ["sunny", "rainy"]}
			]
		}`)
		var got record.Record
		rec := do(t, fx.app, http.MethodPost, "/v1/folders/"+other.ID+"/records", body, &got)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		assert.Equal(t, other.ID, got.FolderID)
		assert.Equal(t, "Attendance", got.Label)
		require.Len(t, got.Fields, 3)
		assert.Equal(t, record.TypeDate, got.Fields[0].Type())
		assert.Equal(t, record.AggregateSum, got.Fields[1].Base().Aggregate)
		assert.Equal(t, []string{"sunny", "rainy"}, got.Fields[2].(record.DropdownField).Options)
	})
}
