package record

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

var (
	// errors
	ErrFolderNotFound = errors.New("folder not found")
	ErrRecordNotFound = errors.New("record not found")
	ErrFieldNotFound  = errors.New("field not found")
	ErrFolderExists   = errors.New("a folder with this label already exists")
	ErrRecordExists   = errors.New("a record with this label already exists in this folder")
	ErrFieldExists    = errors.New("a field with this name already exists in this record")
)

// IsNotFound reports whether err is one of the "not found" errors.
func IsNotFound(err error) bool {
	switch errors.Cause(err) {
	case ErrFolderNotFound, ErrRecordNotFound, ErrFieldNotFound:
		return true
	}
	return false
}

type (
	// Repository is the Folder & Record catalog.
	Repository interface {
		// CheckFolderLabelUniqueness returns ErrFolderExists when another folder is labelled label (case-insensitive).
		CheckFolderLabelUniqueness(ctx context.Context, label string, excludedIDs ...string) error
		CreateFolder(ctx context.Context, folder Folder) (Folder, error)
		// QueryFolders QueryFilter.Search does a case-insensitive match on Folder.Label or Folder.Description.
		QueryFolders(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Folder, error)
		GetFolder(ctx context.Context, id string) (Folder, error)
		UpdateFolder(ctx context.Context, folder Folder) (Folder, error)
		// DeleteFoldersByID deletes folders along with their records.
		DeleteFoldersByID(ctx context.Context, ids ...string) (int, error)

		// CheckRecordLabelUniqueness returns ErrRecordExists when another record of the folder is labelled label (case-insensitive).
		CheckRecordLabelUniqueness(ctx context.Context, folderID, label string, excludedIDs ...string) error
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteRecordsByID(ctx context.Context, ids ...string) (int, error)
	}

	// RowSource supplies the (read-only) rows of a Record.
	RowSource interface {
		Rows(ctx context.Context, recordID string) ([]Row, error)
	}

	// RowWriter is implemented by RowSources whose rows can be replaced (e.g. seeding).
	RowWriter interface {
		ReplaceRows(ctx context.Context, recordID string, rows []Row) error
	}

	// RowInvalidator is implemented by RowSources caching rows.
	RowInvalidator interface {
		Invalidate(ctx context.Context, recordIDs ...string) error
	}

	Service interface {
		CreateFolder(ctx context.Context, nf NewFolder) (Folder, error)
		QueryFolders(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Folder, error)
		GetFolder(ctx context.Context, id string) (Folder, error)
		UpdateFolder(ctx context.Context, id string, uf UpdateFolder) (Folder, error)
		DeleteFolders(ctx context.Context, ids ...string) error

		CreateRecord(ctx context.Context, nr NewRecord) (Record, error)
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		UpdateRecord(ctx context.Context, id string, ur UpdateRecord) (Record, error)
		DeleteRecords(ctx context.Context, ids ...string) error

		AddField(ctx context.Context, recordID string, nf NewField) (Record, error)
		UpdateField(ctx context.Context, recordID, fieldID string, uf UpdateField) (Record, error)
		ChangeFieldType(ctx context.Context, recordID, fieldID string, t FieldType) (Record, error)
		MoveField(ctx context.Context, recordID, fieldID string, to int) (Record, error)
		RemoveField(ctx context.Context, recordID, fieldID string) (Record, error)

		AddFormulaTerm(ctx context.Context, recordID, fieldID string) (Record, error)
		UpdateFormulaTerm(ctx context.Context, recordID, fieldID string, index int, tu TermUpdate) (Record, error)
		RemoveFormulaTerm(ctx context.Context, recordID, fieldID string, index int) (Record, error)
		Candidates(ctx context.Context, recordID, fieldID string) ([]FieldSpec, error)

		Table(ctx context.Context, recordID string) (Table, error)
		Validator() *validator.Validate
	}

	service struct {
		repo     Repository
		rows     RowSource
		events   core.EventPublisher
		logger   core.Logger
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil) // interface compliance check

// nowFunc is mockable
var nowFunc = func() time.Time { return time.Now().UTC() }

func NewService(
	repo Repository,
	rows RowSource,
	events core.EventPublisher,
	logger core.Logger,
	validate *validator.Validate,
) Service {
	return &service{
		repo:     repo,
		rows:     rows,
		events:   events,
		logger:   logger,
		validate: validate,
	}
}

func (svc *service) Validator() *validator.Validate {
	return svc.validate
}

// publish broadcasts catalog events. Delivery failures are logged, not returned:
// the catalog change has already been saved.
func (svc *service) publish(ctx context.Context, kind, folderID, recordID string) {
	evt := core.Event{Kind: kind, FolderID: folderID, RecordID: recordID, OccurredAt: nowFunc()}
	if err := svc.events.Publish(ctx, evt); err != nil {
		svc.logger.Error(fmt.Sprintf("publishing %s event", kind), errors.Wrap(err, "publishing event"))
	}
}

func (svc *service) invalidateRows(ctx context.Context, recordIDs ...string) {
	if inv, ok := svc.rows.(RowInvalidator); ok && len(recordIDs) > 0 {
		if err := inv.Invalidate(ctx, recordIDs...); err != nil {
			svc.logger.Warn("invalidating cached rows", errors.Wrap(err, "invalidating rows"))
		}
	}
}

func (svc *service) checkFolderLabel(ctx context.Context, label string, excludedIDs ...string) error {
	if err := svc.repo.CheckFolderLabelUniqueness(ctx, label, excludedIDs...); err != nil {
		if errors.Cause(err) == ErrFolderExists {
			return core.NewValidationError(err, core.FieldError{Field: "label", Error: err.Error()})
		}
		return errors.Wrap(err, "checking folder label uniqueness")
	}
	return nil
}

func (svc *service) checkRecordLabel(ctx context.Context, folderID, label string, excludedIDs ...string) error {
	if err := svc.repo.CheckRecordLabelUniqueness(ctx, folderID, label, excludedIDs...); err != nil {
		if errors.Cause(err) == ErrRecordExists {
			return core.NewValidationError(err, core.FieldError{Field: "label", Error: err.Error()})
		}
		return errors.Wrap(err, "checking record label uniqueness")
	}
	return nil
}

// Folders

func (svc *service) CreateFolder(ctx context.Context, nf NewFolder) (Folder, error) {
	if err := nf.Validate(svc.validate); err != nil {
		return Folder{}, err
	}
	if err := svc.checkFolderLabel(ctx, nf.Label); err != nil {
		return Folder{}, err
	}

	now := nowFunc()
	folder, err := svc.repo.CreateFolder(ctx, Folder{
		Label:       nf.Label,
		Description: nf.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Folder{}, errors.Wrap(err, "creating folder")
	}
	svc.publish(ctx, core.EventFolderCreated, folder.ID, "")
	return folder, nil
}

func (svc *service) QueryFolders(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Folder, error) {
	return svc.repo.QueryFolders(ctx, filter, ordering)
}

func (svc *service) GetFolder(ctx context.Context, id string) (Folder, error) {
	return svc.repo.GetFolder(ctx, id)
}

func (svc *service) UpdateFolder(ctx context.Context, id string, uf UpdateFolder) (Folder, error) {
	folder, err := svc.repo.GetFolder(ctx, id)
	if err != nil {
		return Folder{}, err
	}
	if err = uf.Validate(folder, svc.validate); err != nil {
		return Folder{}, err
	}
	if err = svc.checkFolderLabel(ctx, uf.Label, folder.ID); err != nil {
		return Folder{}, err
	}

	folder.Label = uf.Label
	if uf.Description != nil {
		folder.Description = *uf.Description
	}
	folder.UpdatedAt = nowFunc()
	if folder, err = svc.repo.UpdateFolder(ctx, folder); err != nil {
		return Folder{}, errors.Wrap(err, "updating folder")
	}
	svc.publish(ctx, core.EventFolderUpdated, folder.ID, "")
	return folder, nil
}

func (svc *service) DeleteFolders(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	recs, err := svc.repo.QueryRecords(ctx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying records")
	}
	inFolders := make(map[string]bool, len(ids))
	for _, id := range ids {
		inFolders[id] = true
	}
	var recIDs []string
	for _, rec := range recs {
		if inFolders[rec.FolderID] {
			recIDs = append(recIDs, rec.ID)
		}
	}

	if _, err = svc.repo.DeleteFoldersByID(ctx, ids...); err != nil {
		return errors.Wrap(err, "deleting folders")
	}
	svc.invalidateRows(ctx, recIDs...)
	for _, id := range ids {
		svc.publish(ctx, core.EventFolderDeleted, id, "")
	}
	return nil
}

// Records

func (svc *service) CreateRecord(ctx context.Context, nr NewRecord) (Record, error) {
	if _, err := svc.repo.GetFolder(ctx, nr.FolderID); err != nil {
		return Record{}, err
	}
	if err := nr.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	if err := svc.checkRecordLabel(ctx, nr.FolderID, nr.Label); err != nil {
		return Record{}, err
	}

	now := nowFunc()
	rec := Record{
		FolderID:    nr.FolderID,
		Label:       nr.Label,
		Description: nr.Description,
		Fields:      make([]Field, 0, len(nr.Fields)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, nf := range nr.Fields {
		f, err := svc.newField(rec, nf)
		if err != nil {
			return Record{}, err
		}
		rec = rec.AddField(f)
	}
	rec = rec.ResolveTermNames()
	if err := ValidateFormulas(rec); err != nil {
		return Record{}, err
	}

	rec, err := svc.repo.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "creating record")
	}
	svc.publish(ctx, core.EventRecordCreated, rec.FolderID, rec.ID)
	return rec, nil
}

func (svc *service) QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error) {
	if filter != nil && filter.FolderID != "" {
		if _, err := svc.repo.GetFolder(ctx, filter.FolderID); err != nil {
			return nil, err
		}
	}
	return svc.repo.QueryRecords(ctx, filter, ordering)
}

func (svc *service) GetRecord(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *service) UpdateRecord(ctx context.Context, id string, ur UpdateRecord) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err = ur.Validate(rec, svc.validate); err != nil {
		return Record{}, err
	}
	if err = svc.checkRecordLabel(ctx, rec.FolderID, ur.Label, rec.ID); err != nil {
		return Record{}, err
	}

	rec.Label = ur.Label
	if ur.Description != nil {
		rec.Description = *ur.Description
	}
	return svc.save(ctx, rec)
}

func (svc *service) DeleteRecords(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := svc.repo.GetRecord(ctx, id)
		if err != nil {
			if errors.Cause(err) == ErrRecordNotFound {
				continue
			}
			return errors.Wrap(err, "finding record")
		}
		recs = append(recs, rec)
	}

	if _, err := svc.repo.DeleteRecordsByID(ctx, ids...); err != nil {
		return errors.Wrap(err, "deleting records")
	}
	svc.invalidateRows(ctx, ids...)
	for _, rec := range recs {
		svc.publish(ctx, core.EventRecordDeleted, rec.FolderID, rec.ID)
	}
	return nil
}

// save persists a schema change made to rec.
func (svc *service) save(ctx context.Context, rec Record) (Record, error) {
	if err := ValidateFormulas(rec); err != nil {
		return Record{}, err
	}
	rec.UpdatedAt = nowFunc()
	rec, err := svc.repo.UpdateRecord(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "updating record")
	}
	svc.invalidateRows(ctx, rec.ID)
	svc.publish(ctx, core.EventRecordUpdated, rec.FolderID, rec.ID)
	return rec, nil
}

// Fields

// checkFieldName rejects field names already used in rec (case-insensitive):
// names label columns and legacy rows are keyed by name.
func checkFieldName(rec Record, name, excludedID string) error {
	for _, f := range rec.Fields {
		b := f.Base()
		if b.ID != excludedID && strings.EqualFold(b.Name, name) {
			return core.NewValidationError(ErrFieldExists, core.FieldError{Field: "name", Error: ErrFieldExists.Error()})
		}
	}
	return nil
}

func (svc *service) newField(rec Record, nf NewField) (Field, error) {
	if err := checkFieldName(rec, nf.Name, ""); err != nil {
		return nil, err
	}
	f, err := nf.spec(uuid.New().String()).Field()
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "type", Error: err.Error()})
	}
	return f, nil
}

func (svc *service) AddField(ctx context.Context, recordID string, nf NewField) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	if err = nf.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	f, err := svc.newField(rec, nf)
	if err != nil {
		return Record{}, err
	}
	return svc.save(ctx, rec.AddField(f))
}

func (svc *service) UpdateField(ctx context.Context, recordID, fieldID string, uf UpdateField) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	f, _, err := rec.Field(fieldID)
	if err != nil {
		return Record{}, err
	}
	if err = uf.Validate(svc.validate); err != nil {
		return Record{}, err
	}

	if uf.Name != "" {
		if err = checkFieldName(rec, uf.Name, fieldID); err != nil {
			return Record{}, err
		}
		f = Rename(f, uf.Name)
	}
	if uf.Aggregate != "" {
		f = SetAggregate(f, uf.Aggregate)
	}
	if uf.Options != nil {
		dd, ok := f.(DropdownField)
		if !ok {
			return Record{}, core.NewValidationError(nil, core.FieldError{Field: "options", Error: "options are only allowed on dropdown fields"})
		}
		dd.Options = append([]string{}, uf.Options...)
		f = dd
	}
	if uf.Terms != nil {
		ff, ok := f.(FormulaField)
		if !ok {
			return Record{}, core.NewValidationError(nil, core.FieldError{Field: "terms", Error: "terms are only allowed on formula fields"})
		}
		if len(uf.Terms) == 0 {
			return Record{}, core.NewValidationError(nil, core.FieldError{Field: "terms", Error: "a formula requires at least one term"})
		}
		ff.Terms = append([]Term{}, uf.Terms...)
		f = ff
	}

	if rec, err = rec.ReplaceField(f); err != nil {
		return Record{}, err
	}
	return svc.save(ctx, rec)
}

func (svc *service) ChangeFieldType(ctx context.Context, recordID, fieldID string, t FieldType) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	f, _, err := rec.Field(fieldID)
	if err != nil {
		return Record{}, err
	}
	if f, err = ChangeType(f, t); err != nil {
		return Record{}, core.NewValidationError(err, core.FieldError{Field: "type", Error: err.Error()})
	}
	if rec, err = rec.ReplaceField(f); err != nil {
		return Record{}, err
	}
	return svc.save(ctx, rec)
}

func (svc *service) MoveField(ctx context.Context, recordID, fieldID string, to int) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	if rec, err = rec.MoveField(fieldID, to); err != nil {
		return Record{}, err
	}
	return svc.save(ctx, rec)
}

func (svc *service) RemoveField(ctx context.Context, recordID, fieldID string) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	if rec, err = rec.RemoveField(fieldID); err != nil {
		return Record{}, err
	}
	return svc.save(ctx, rec)
}

// Formula terms

// editFormula applies edit to the formula field identified by fieldID and saves the record.
func (svc *service) editFormula(ctx context.Context, recordID, fieldID string, edit func(Field) (FormulaField, error)) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	f, _, err := rec.Field(fieldID)
	if err != nil {
		return Record{}, err
	}
	ff, err := edit(f)
	if err != nil {
		return Record{}, err
	}
	if rec, err = rec.ReplaceField(ff); err != nil {
		return Record{}, err
	}
	return svc.save(ctx, rec)
}

func (svc *service) AddFormulaTerm(ctx context.Context, recordID, fieldID string) (Record, error) {
	return svc.editFormula(ctx, recordID, fieldID, AddFormulaTerm)
}

func (svc *service) UpdateFormulaTerm(ctx context.Context, recordID, fieldID string, index int, tu TermUpdate) (Record, error) {
	if err := tu.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	return svc.editFormula(ctx, recordID, fieldID, func(f Field) (FormulaField, error) {
		return UpdateFormulaTerm(f, index, tu.Key, tu.Value)
	})
}

func (svc *service) RemoveFormulaTerm(ctx context.Context, recordID, fieldID string, index int) (Record, error) {
	return svc.editFormula(ctx, recordID, fieldID, func(f Field) (FormulaField, error) {
		return RemoveFormulaTerm(f, index)
	})
}

func (svc *service) Candidates(ctx context.Context, recordID, fieldID string) ([]FieldSpec, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if _, _, err = rec.Field(fieldID); err != nil {
		return nil, err
	}
	return SpecsOf(rec.CandidateFields(fieldID)), nil
}

// Table

func (svc *service) Table(ctx context.Context, recordID string) (Table, error) {
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Table{}, err
	}
	rows, err := svc.rows.Rows(ctx, recordID)
	if err != nil {
		return Table{}, errors.Wrap(err, "loading rows")
	}

	start := time.Now()
	table := ComputeTable(rec, rows)
	observeTable(rec, table, time.Since(start))
	return table, nil
}
