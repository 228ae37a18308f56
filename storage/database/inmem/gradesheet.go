package inmemdb

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
)

var (
	errDuplicateSheet = errors.New("sheet already exists")

	// sortable record fields
	orderingFields = map[string]bool{"name": true, "created_at": true, "updated_at": true}
)

type sheetRepository struct {
	db *sheetTable
}

var _ gradesheet.Repository = (*sheetRepository)(nil) // interface compliance check

func NewSheetRepository(db *DB) gradesheet.Repository {
	return &sheetRepository{db: db.sheet}
}

// copyRecord detaches the stored JSON from the caller's buffers.
func copyRecord(rec gradesheet.Record) gradesheet.Record {
	rec.Structure = copyJSON(rec.Structure)
	rec.LegacyColumns = copyJSON(rec.LegacyColumns)
	return rec
}

func copyJSON(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func (repo *sheetRepository) CreateSheet(_ context.Context, rec gradesheet.Record) (gradesheet.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t[rec.ID]; ok {
		return gradesheet.Record{}, errors.Wrap(errDuplicateSheet, rec.ID)
	}
	stored := copyRecord(rec)
	repo.db.t[rec.ID] = &stored
	return copyRecord(stored), nil
}

func (repo *sheetRepository) GetSheet(_ context.Context, id string) (gradesheet.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.t[id]; ok {
		return copyRecord(*rec), nil
	}
	return gradesheet.Record{}, gradesheet.ErrNotFound
}

func (repo *sheetRepository) QuerySheets(_ context.Context, ordering ...core.DBOrdering) ([]gradesheet.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]gradesheet.Record, 0, len(repo.db.t))
	for _, rec := range repo.db.t {
		recs = append(recs, copyRecord(*rec))
	}
	known := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if orderingFields[ord.Field] {
			known = append(known, ord)
		}
	}
	if len(known) == 0 {
		known = append(known, core.DBOrdering{Field: "created_at", Ascending: true})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, ord := range known {
			c := compareRecords(recs[i], recs[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

// compareRecords returns -1, 0 or 1.
func compareRecords(a, b gradesheet.Record, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

func (repo *sheetRepository) UpdateSheet(_ context.Context, rec gradesheet.Record) (gradesheet.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.t[rec.ID]
	if !ok {
		return gradesheet.Record{}, gradesheet.ErrNotFound
	}
	orig.Name = rec.Name
	orig.Structure = copyJSON(rec.Structure)
	orig.LegacyColumns = copyJSON(rec.LegacyColumns)
	orig.UpdatedAt = rec.UpdatedAt
	return copyRecord(*orig), nil
}

func (repo *sheetRepository) DeleteSheetsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.t, id)
	}
	return nil
}
