// Package sample seeds the "Class sizes" sample record: Boys and Girls totals with an
// Average Score formula (Boys + Girls) over three classes.
package sample

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/record"
)

const (
	FolderLabel = "Statistics"
	RecordLabel = "Class sizes"
)

var classes = []struct{ boys, girls float64 }{
	{12, 8},
	{15, 5},
	{10, 10},
}

// Result is the seeded sample record and its table.
// Created is false when the folder already held the sample record, which is then left untouched.
type Result struct {
	Folder  record.Folder
	Record  record.Record
	Table   record.Table
	Created bool
}

// Seed creates the sample record and its rows in the folder labelled folderLabel (FolderLabel when empty).
// The folder is created when missing.
func Seed(ctx context.Context, svc record.Service, rows record.RowWriter, folderLabel string) (Result, error) {
	if folderLabel = strings.TrimSpace(folderLabel); folderLabel == "" {
		folderLabel = FolderLabel
	}
	folder, err := seedFolder(ctx, svc, folderLabel)
	if err != nil {
		return Result{}, err
	}

	res := Result{Folder: folder}
	if res.Record, err = findRecord(ctx, svc, folder.ID); err != nil {
		return Result{}, err
	}

	if res.Record.ID == "" {
		res.Record, err = svc.CreateRecord(ctx, record.NewRecord{
			FolderID:    folder.ID,
			Label:       RecordLabel,
			Description: "Pupils per class",
			Fields: []record.NewField{
				{Name: "Boys", Type: record.TypeNumber, Aggregate: record.AggregateSum},
				{Name: "Girls", Type: record.TypeNumber, Aggregate: record.AggregateSum},
				{
					Name:      "Score",
					Type:      record.TypeFormula,
					Aggregate: record.AggregateAvg,
					Terms:     []record.Term{{FieldID: "Boys"}, {Operator: record.OpAdd, FieldID: "Girls"}},
				},
			},
		})
		if err != nil {
			return Result{}, errors.Wrap(err, "creating record")
		}
		if err = rows.ReplaceRows(ctx, res.Record.ID, classRows(res.Record)); err != nil {
			return Result{}, errors.Wrap(err, "saving rows")
		}
		res.Created = true
	}

	if res.Table, err = svc.Table(ctx, res.Record.ID); err != nil {
		return Result{}, errors.Wrap(err, "computing table")
	}
	return res, nil
}

func classRows(rec record.Record) []record.Row {
	boys, girls := rec.Fields[0].Base().ID, rec.Fields[1].Base().ID
	rows := make([]record.Row, 0, len(classes))
	for _, c := range classes {
		rows = append(rows, record.Row{boys: c.boys, girls: c.girls})
	}
	return rows
}

// seedFolder returns the folder labelled label (case-insensitive), creating it when missing.
func seedFolder(ctx context.Context, svc record.Service, label string) (record.Folder, error) {
	folders, err := svc.QueryFolders(ctx, &record.QueryFilter{Search: label}, nil)
	if err != nil {
		return record.Folder{}, errors.Wrap(err, "querying folders")
	}
	for _, f := range folders {
		if strings.EqualFold(f.Label, label) {
			return f, nil
		}
	}

	folder, err := svc.CreateFolder(ctx, record.NewFolder{Label: label, Description: "Sample records"})
	if err != nil {
		return record.Folder{}, errors.Wrap(err, "creating folder")
	}
	return folder, nil
}

// findRecord returns the sample record of the folder identified by folderID, or a zero Record.
func findRecord(ctx context.Context, svc record.Service, folderID string) (record.Record, error) {
	recs, err := svc.QueryRecords(ctx, &record.QueryFilter{FolderID: folderID, Search: RecordLabel}, nil)
	if err != nil {
		return record.Record{}, errors.Wrap(err, "querying records")
	}
	for _, r := range recs {
		if strings.EqualFold(r.Label, RecordLabel) {
			return r, nil
		}
	}
	return record.Record{}, nil
}
