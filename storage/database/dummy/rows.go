package dummydb

import (
	"context"

	"github.com/trezcool/masomo/core/record"
)

type RowRepository struct {
	records *recordTable
	rows    *rowTable
}

var (
	_ record.RowSource = (*RowRepository)(nil) // interface compliance check
	_ record.RowWriter = (*RowRepository)(nil)
)

func NewRowRepository(db *DB) *RowRepository {
	return &RowRepository{records: db.record, rows: db.row}
}

// Rows returns copies of the rows of the record identified by recordID.
func (repo *RowRepository) Rows(_ context.Context, recordID string) ([]record.Row, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()
	repo.rows.RLock()
	defer repo.rows.RUnlock()

	if _, ok := repo.records.table[recordID]; !ok {
		return nil, record.ErrRecordNotFound
	}
	return copyRows(repo.rows.table[recordID]), nil
}

// ReplaceRows sets the rows of the record identified by recordID.
func (repo *RowRepository) ReplaceRows(_ context.Context, recordID string, rows []record.Row) error {
	repo.records.RLock()
	defer repo.records.RUnlock()
	repo.rows.Lock()
	defer repo.rows.Unlock()

	if _, ok := repo.records.table[recordID]; !ok {
		return record.ErrRecordNotFound
	}
	repo.rows.table[recordID] = copyRows(rows)
	return nil
}

func copyRows(rows []record.Row) []record.Row {
	out := make([]record.Row, 0, len(rows))
	for _, r := range rows {
		row := make(record.Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		out = append(out, row)
	}
	return out
}
