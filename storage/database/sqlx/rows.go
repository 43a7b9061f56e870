package sqlxrepos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/record"
)

type RowRepository struct {
	db *sqlx.DB
}

var (
	_ record.RowSource = (*RowRepository)(nil) // interface compliance check
	_ record.RowWriter = (*RowRepository)(nil)
)

func NewRowRepository(db *sqlx.DB) *RowRepository {
	return &RowRepository{db: db}
}

func (repo *RowRepository) checkRecord(ctx context.Context, q sqlx.QueryerContext, recordID string) error {
	if !isUUID(recordID) {
		return record.ErrRecordNotFound
	}
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, "SELECT EXISTS (SELECT 1 FROM record WHERE id = $1)", recordID); err != nil {
		return dbErr(err, "checking record")
	}
	if !exists {
		return record.ErrRecordNotFound
	}
	return nil
}

func (repo *RowRepository) Rows(ctx context.Context, recordID string) ([]record.Row, error) {
	if err := repo.checkRecord(ctx, repo.db, recordID); err != nil {
		return nil, err
	}

	var data []types.JSONText
	q := "SELECT data FROM record_row WHERE record_id = $1 ORDER BY position"
	if err := repo.db.SelectContext(ctx, &data, q, recordID); err != nil {
		return nil, dbErr(err, "querying rows")
	}
	rows := make([]record.Row, 0, len(data))
	for i, d := range data {
		var row record.Row
		if err := d.Unmarshal(&row); err != nil {
			return nil, errors.Wrapf(err, "unmarshalling row %d", i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReplaceRows sets the rows of the record identified by recordID, in a single transaction.
func (repo *RowRepository) ReplaceRows(ctx context.Context, recordID string, rows []record.Row) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbErr(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = repo.checkRecord(ctx, tx, recordID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM record_row WHERE record_id = $1", recordID); err != nil {
		return dbErr(err, "deleting rows")
	}
	for i, row := range rows {
		data, mErr := json.Marshal(row)
		if mErr != nil {
			err = errors.Wrapf(mErr, "marshalling row %d", i)
			return err
		}
		q := "INSERT INTO record_row (record_id, position, data) VALUES ($1, $2, $3)"
		if _, err = tx.ExecContext(ctx, q, recordID, i, types.JSONText(data)); err != nil {
			return dbErr(err, fmt.Sprintf("inserting row %d", i))
		}
	}
	if err = tx.Commit(); err != nil {
		return dbErr(err, "committing rows")
	}
	return nil
}
