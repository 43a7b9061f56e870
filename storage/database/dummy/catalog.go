package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
)

// catalogRepository locks its tables in the folder > record > row order.
type catalogRepository struct {
	folders *folderTable
	records *recordTable
	rows    *rowTable
}

var _ record.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) record.Repository {
	return &catalogRepository{folders: db.folder, records: db.record, rows: db.row}
}

// Folders

func (repo *catalogRepository) queryFolders() []record.Folder {
	folders := make([]record.Folder, 0, len(repo.folders.table))
	for _, f := range repo.folders.table {
		folders = append(folders, *f)
	}
	return folders
}

func (repo *catalogRepository) CheckFolderLabelUniqueness(_ context.Context, label string, excludedIDs ...string) error {
	repo.folders.RLock()
	defer repo.folders.RUnlock()

	for _, f := range repo.folders.table {
		if strings.EqualFold(f.Label, label) && !isExcluded(f.ID, excludedIDs) {
			return record.ErrFolderExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateFolder(_ context.Context, folder record.Folder) (record.Folder, error) {
	repo.folders.Lock()
	defer repo.folders.Unlock()

	folder.ID = uuid.New().String()
	repo.folders.table[folder.ID] = &folder
	return folder, nil
}

func (repo *catalogRepository) QueryFolders(_ context.Context, filter *record.QueryFilter, ordering []core.DBOrdering) ([]record.Folder, error) {
	repo.folders.RLock()
	defer repo.folders.RUnlock()

	folders := repo.queryFolders()

	// folders with Label or Description matching the search keyword
	if filter != nil && filter.Search != "" {
		search := strings.ToLower(filter.Search)
		filtered := make([]record.Folder, 0, len(folders))
		for _, f := range folders {
			if strings.Contains(strings.ToLower(f.Label), search) ||
				strings.Contains(strings.ToLower(f.Description), search) {
				filtered = append(filtered, f)
			}
		}
		folders = filtered
	}

	sortEntries(len(folders), ordering, func(i int) entry {
		return entry{id: folders[i].ID, label: folders[i].Label, createdAt: folders[i].CreatedAt, updatedAt: folders[i].UpdatedAt}
	}, func(i, j int) { folders[i], folders[j] = folders[j], folders[i] })
	return folders, nil
}

func (repo *catalogRepository) GetFolder(_ context.Context, id string) (record.Folder, error) {
	repo.folders.RLock()
	defer repo.folders.RUnlock()

	if f, ok := repo.folders.table[id]; ok {
		return *f, nil
	}
	return record.Folder{}, record.ErrFolderNotFound
}

func (repo *catalogRepository) UpdateFolder(_ context.Context, folder record.Folder) (record.Folder, error) {
	repo.folders.Lock()
	defer repo.folders.Unlock()

	orig, ok := repo.folders.table[folder.ID]
	if !ok {
		return record.Folder{}, record.ErrFolderNotFound
	}
	orig.Label = folder.Label
	orig.Description = folder.Description
	orig.UpdatedAt = folder.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteFoldersByID(_ context.Context, ids ...string) (int, error) {
	repo.folders.Lock()
	defer repo.folders.Unlock()
	repo.records.Lock()
	defer repo.records.Unlock()
	repo.rows.Lock()
	defer repo.rows.Unlock()

	var deleted int
	for _, id := range ids {
		if _, ok := repo.folders.table[id]; !ok {
			continue
		}
		delete(repo.folders.table, id)
		deleted++

		for recID, rec := range repo.records.table {
			if rec.FolderID == id {
				delete(repo.records.table, recID)
				delete(repo.rows.table, recID)
			}
		}
	}
	return deleted, nil
}

// Records

func (repo *catalogRepository) CheckRecordLabelUniqueness(_ context.Context, folderID, label string, excludedIDs ...string) error {
	repo.records.RLock()
	defer repo.records.RUnlock()

	for _, rec := range repo.records.table {
		if rec.FolderID == folderID && strings.EqualFold(rec.Label, label) && !isExcluded(rec.ID, excludedIDs) {
			return record.ErrRecordExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateRecord(_ context.Context, rec record.Record) (record.Record, error) {
	repo.folders.RLock()
	defer repo.folders.RUnlock()
	repo.records.Lock()
	defer repo.records.Unlock()

	if _, ok := repo.folders.table[rec.FolderID]; !ok {
		return record.Record{}, record.ErrFolderNotFound
	}
	rec = rec.Clone()
	rec.ID = uuid.New().String()
	repo.records.table[rec.ID] = &rec
	return rec.Clone(), nil
}

func (repo *catalogRepository) QueryRecords(_ context.Context, filter *record.QueryFilter, ordering []core.DBOrdering) ([]record.Record, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	recs := make([]record.Record, 0, len(repo.records.table))
	for _, rec := range repo.records.table {
		recs = append(recs, rec.Clone())
	}

	if filter != nil && !filter.IsEmpty() {
		search := strings.ToLower(filter.Search)
		filtered := make([]record.Record, 0, len(recs))
		for _, rec := range recs {
			if filter.FolderID != "" && rec.FolderID != filter.FolderID {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(rec.Label), search) &&
				!strings.Contains(strings.ToLower(rec.Description), search) {
				continue
			}
			filtered = append(filtered, rec)
		}
		recs = filtered
	}

	sortEntries(len(recs), ordering, func(i int) entry {
		return entry{id: recs[i].ID, label: recs[i].Label, createdAt: recs[i].CreatedAt, updatedAt: recs[i].UpdatedAt}
	}, func(i, j int) { recs[i], recs[j] = recs[j], recs[i] })
	return recs, nil
}

func (repo *catalogRepository) GetRecord(_ context.Context, id string) (record.Record, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	if rec, ok := repo.records.table[id]; ok {
		return rec.Clone(), nil
	}
	return record.Record{}, record.ErrRecordNotFound
}

func (repo *catalogRepository) UpdateRecord(_ context.Context, rec record.Record) (record.Record, error) {
	repo.records.Lock()
	defer repo.records.Unlock()

	orig, ok := repo.records.table[rec.ID]
	if !ok {
		return record.Record{}, record.ErrRecordNotFound
	}
	updated := rec.Clone()
	updated.FolderID = orig.FolderID
	updated.CreatedAt = orig.CreatedAt
	repo.records.table[rec.ID] = &updated
	return updated.Clone(), nil
}

func (repo *catalogRepository) DeleteRecordsByID(_ context.Context, ids ...string) (int, error) {
	repo.records.Lock()
	defer repo.records.Unlock()
	repo.rows.Lock()
	defer repo.rows.Unlock()

	var deleted int
	for _, id := range ids {
		if _, ok := repo.records.table[id]; ok {
			delete(repo.records.table, id)
			deleted++
		}
		delete(repo.rows.table, id)
	}
	return deleted, nil
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, excl := range excludedIDs {
		if id == excl {
			return true
		}
	}
	return false
}
