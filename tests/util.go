package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
	"github.com/trezcool/masomo/storage/database"
)

func CreateFolder(t *testing.T, repo record.Repository, label, description string, createdAt ...time.Time) record.Folder {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	folder, err := repo.CreateFolder(context.Background(), record.Folder{
		Label:       label,
		Description: description,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateFolder() failed: %v", err)
	}
	return folder
}

func CreateRecord(t *testing.T, repo record.Repository, folderID, label string, fields []record.Field, createdAt ...time.Time) record.Record {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	rec, err := repo.CreateRecord(context.Background(), record.Record{
		FolderID:  folderID,
		Label:     label,
		Fields:    fields,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

// ClassFields returns the fields of a class sizes record: Boys & Girls summed, Score = Boys + Girls averaged.
func ClassFields() []record.Field {
	return []record.Field{
		record.NumberField{FieldBase: record.FieldBase{ID: "boys", Name: "Boys", Aggregate: record.AggregateSum}},
		record.NumberField{FieldBase: record.FieldBase{ID: "girls", Name: "Girls", Aggregate: record.AggregateSum}},
		record.FormulaField{
			FieldBase: record.FieldBase{ID: "score", Name: "Score", Aggregate: record.AggregateAvg},
			Terms:     []record.Term{{FieldID: "boys"}, {Operator: record.OpAdd, FieldID: "girls"}},
		},
	}
}

// ClassRows returns the rows matching ClassFields.
func ClassRows() []record.Row {
	return []record.Row{
		{"boys": 12.0, "girls": 8.0},
		{"boys": 15.0, "girls": 5.0},
		{"boys": 10.0, "girls": 10.0},
	}
}

// PrepareDB opens a migrated and emptied postgres test database.
// The test is skipped unless the postgres storage is configured (e.g. ENV=TEST TEST_STORAGE=postgres).
func PrepareDB(t *testing.T) *sqlx.DB {
	conf := core.NewConfig()
	if conf.Storage != core.StoragePostgres {
		t.Skip("postgres storage not configured")
	}
	ctx := context.Background()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(ctx, db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.ExecContext(ctx, "TRUNCATE folder CASCADE"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}
