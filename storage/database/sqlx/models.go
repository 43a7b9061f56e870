package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
)

type (
	folderRow struct {
		ID          string      `db:"id"`
		Label       string      `db:"label"`
		Description null.String `db:"description"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	recordRow struct {
		ID          string         `db:"id"`
		FolderID    string         `db:"folder_id"`
		Label       string         `db:"label"`
		Description null.String    `db:"description"`
		Fields      types.JSONText `db:"fields"` // []record.FieldSpec
		CreatedAt   time.Time      `db:"created_at"`
		UpdatedAt   time.Time      `db:"updated_at"`
	}
)

func toFolderRow(f record.Folder) folderRow {
	return folderRow{
		ID:          f.ID,
		Label:       f.Label,
		Description: null.NewString(f.Description, f.Description != ""),
		CreatedAt:   f.CreatedAt.UTC(),
		UpdatedAt:   f.UpdatedAt.UTC(),
	}
}

func (row folderRow) folder() record.Folder {
	return record.Folder{
		ID:          row.ID,
		Label:       row.Label,
		Description: row.Description.String,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func toRecordRow(r record.Record) (recordRow, error) {
	fields, err := json.Marshal(record.SpecsOf(r.Fields))
	if err != nil {
		return recordRow{}, errors.Wrap(err, "marshalling fields")
	}
	return recordRow{
		ID:          r.ID,
		FolderID:    r.FolderID,
		Label:       r.Label,
		Description: null.NewString(r.Description, r.Description != ""),
		Fields:      types.JSONText(fields),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}, nil
}

func (row recordRow) record() (record.Record, error) {
	var specs []record.FieldSpec
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &specs); err != nil {
			return record.Record{}, errors.Wrap(err, "unmarshalling fields")
		}
	}
	fields, err := record.FieldsOf(specs)
	if err != nil {
		return record.Record{}, errors.Wrapf(err, "decoding fields of record %s", row.ID)
	}
	return record.Record{
		ID:          row.ID,
		FolderID:    row.FolderID,
		Label:       row.Label,
		Description: row.Description.String,
		Fields:      fields,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}, nil
}

// validIDs drops the IDs that are not UUIDs: they cannot match any row.
func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return dbErr(err, msg)
}

// dbErr wraps err with msg. Lost connections and server shutdowns become core shutdown errors:
// the app cannot serve requests without its database.
func dbErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch {
		case pqErr.Code.Class() == "08", // connection_exception
			pqErr.Code == "57P01", pqErr.Code == "57P02", pqErr.Code == "57P03": // admin_shutdown, crash_shutdown, cannot_connect_now
			return errors.Wrap(core.NewShutdownError(pqErr.Message), msg)
		}
	}
	return errors.Wrap(err, msg)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern returns the ILIKE pattern matching values containing search literally.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

var orderingColumns = map[string]string{
	"label":      "lower(label)",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// orderBy builds an ORDER BY clause from the known ordering fields; others are ignored.
func orderBy(ordering []core.DBOrdering) string {
	list := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := orderingColumns[ord.Field]; ok {
			list = append(list, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(list) == 0 {
		list = append(list, "created_at ASC")
	}
	list = append(list, "id ASC")
	return " ORDER BY " + strings.Join(list, ", ")
}
