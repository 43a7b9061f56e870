package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
)

const (
	folderColumns = "id, label, description, created_at, updated_at"
	recordColumns = "id, folder_id, label, description, fields, created_at, updated_at"
)

type catalogRepository struct {
	db *sqlx.DB
}

var _ record.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) record.Repository {
	return &catalogRepository{db: db}
}

// Folders

func (repo *catalogRepository) CheckFolderLabelUniqueness(ctx context.Context, label string, excludedIDs ...string) error {
	q := "SELECT EXISTS (SELECT 1 FROM folder WHERE lower(label) = lower($1) AND NOT (id = ANY($2::uuid[])))"
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, label, pq.Array(validIDs(excludedIDs))); err != nil {
		return dbErr(err, "checking folder uniqueness")
	}
	if exists {
		return record.ErrFolderExists
	}
	return nil
}

func (repo *catalogRepository) CreateFolder(ctx context.Context, folder record.Folder) (record.Folder, error) {
	folder.ID = uuid.New().String()
	q := "INSERT INTO folder (" + folderColumns + ") VALUES (:id, :label, :description, :created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, toFolderRow(folder)); err != nil {
		return record.Folder{}, dbErr(err, "inserting folder")
	}
	return toFolderRow(folder).folder(), nil
}

func (repo *catalogRepository) QueryFolders(ctx context.Context, filter *record.QueryFilter, ordering []core.DBOrdering) ([]record.Folder, error) {
	q := "SELECT " + folderColumns + " FROM folder"
	var args []interface{}

	// folders with Label or Description matching the search keyword
	if filter != nil && filter.Search != "" {
		q += " WHERE label ILIKE ? OR description ILIKE ?"
		val := containsPattern(filter.Search)
		args = append(args, val, val)
	}
	q = repo.db.Rebind(q + orderBy(ordering))

	var rows []folderRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, dbErr(err, "querying folders")
	}
	folders := make([]record.Folder, 0, len(rows))
	for _, row := range rows {
		folders = append(folders, row.folder())
	}
	return folders, nil
}

func (repo *catalogRepository) GetFolder(ctx context.Context, id string) (record.Folder, error) {
	if !isUUID(id) {
		return record.Folder{}, record.ErrFolderNotFound
	}
	var row folderRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+folderColumns+" FROM folder WHERE id = $1", id); err != nil {
		return record.Folder{}, trapNoRowsErr(err, record.ErrFolderNotFound, "finding folder")
	}
	return row.folder(), nil
}

func (repo *catalogRepository) UpdateFolder(ctx context.Context, folder record.Folder) (record.Folder, error) {
	if !isUUID(folder.ID) {
		return record.Folder{}, record.ErrFolderNotFound
	}
	q := "UPDATE folder SET label = $2, description = $3, updated_at = $4 WHERE id = $1 RETURNING " + folderColumns
	row := toFolderRow(folder)
	var updated folderRow
	if err := repo.db.GetContext(ctx, &updated, q, row.ID, row.Label, row.Description, row.UpdatedAt); err != nil {
		return record.Folder{}, trapNoRowsErr(err, record.ErrFolderNotFound, "updating folder")
	}
	return updated.folder(), nil
}

// DeleteFoldersByID records are deleted by the folder_id cascade; their rows by the record_id one.
func (repo *catalogRepository) DeleteFoldersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, "folder", ids)
}

func (repo *catalogRepository) deleteByID(ctx context.Context, table string, ids []string) (int, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ANY($1::uuid[])", pq.Array(ids))
	if err != nil {
		return 0, dbErr(err, "deleting from "+table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbErr(err, "counting deleted rows")
	}
	return int(n), nil
}

// Records

func (repo *catalogRepository) CheckRecordLabelUniqueness(ctx context.Context, folderID, label string, excludedIDs ...string) error {
	if !isUUID(folderID) {
		return nil
	}
	q := "SELECT EXISTS (SELECT 1 FROM record WHERE folder_id = $1 AND lower(label) = lower($2) AND NOT (id = ANY($3::uuid[])))"
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, folderID, label, pq.Array(validIDs(excludedIDs))); err != nil {
		return dbErr(err, "checking record uniqueness")
	}
	if exists {
		return record.ErrRecordExists
	}
	return nil
}

func (repo *catalogRepository) CreateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	if !isUUID(rec.FolderID) {
		return record.Record{}, record.ErrFolderNotFound
	}
	rec.ID = uuid.New().String()
	row, err := toRecordRow(rec)
	if err != nil {
		return record.Record{}, err
	}
	q := "INSERT INTO record (" + recordColumns + ") VALUES (:id, :folder_id, :label, :description, :fields, :created_at, :updated_at)"
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return record.Record{}, record.ErrFolderNotFound
		}
		return record.Record{}, dbErr(err, "inserting record")
	}
	return row.record()
}

func (repo *catalogRepository) QueryRecords(ctx context.Context, filter *record.QueryFilter, ordering []core.DBOrdering) ([]record.Record, error) {
	q := "SELECT " + recordColumns + " FROM record"
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.FolderID != "" {
			if !isUUID(filter.FolderID) {
				return []record.Record{}, nil
			}
			where = append(where, "folder_id = ?")
			args = append(args, filter.FolderID)
		}
		if filter.Search != "" {
			where = append(where, "(label ILIKE ? OR description ILIKE ?)")
			val := containsPattern(filter.Search)
			args = append(args, val, val)
		}
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q = repo.db.Rebind(q + orderBy(ordering))

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, dbErr(err, "querying records")
	}
	recs := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo *catalogRepository) GetRecord(ctx context.Context, id string) (record.Record, error) {
	if !isUUID(id) {
		return record.Record{}, record.ErrRecordNotFound
	}
	var row recordRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+recordColumns+" FROM record WHERE id = $1", id); err != nil {
		return record.Record{}, trapNoRowsErr(err, record.ErrRecordNotFound, "finding record")
	}
	return row.record()
}

func (repo *catalogRepository) UpdateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	if !isUUID(rec.ID) {
		return record.Record{}, record.ErrRecordNotFound
	}
	row, err := toRecordRow(rec)
	if err != nil {
		return record.Record{}, err
	}
	q := "UPDATE record SET label = $2, description = $3, fields = $4, updated_at = $5 WHERE id = $1 RETURNING " + recordColumns
	var updated recordRow
	if err = repo.db.GetContext(ctx, &updated, q, row.ID, row.Label, row.Description, row.Fields, row.UpdatedAt); err != nil {
		return record.Record{}, trapNoRowsErr(err, record.ErrRecordNotFound, "updating record")
	}
	return updated.record()
}

func (repo *catalogRepository) DeleteRecordsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, "record", ids)
}
