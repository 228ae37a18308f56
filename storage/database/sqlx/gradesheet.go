package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
)

// sortable columns of the gradesheet table
var orderingFields = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type sheetRow struct {
	ID            string      `db:"id"`
	Name          string      `db:"name"`
	Structure     null.String `db:"structure"`      // JSON
	LegacyColumns null.String `db:"legacy_columns"` // JSON
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

type sheetRepository struct {
	exec core.DBExecutor
}

var _ gradesheet.Repository = (*sheetRepository)(nil) // interface compliance check

func NewSheetRepository(exec core.DBExecutor) gradesheet.Repository {
	return &sheetRepository{exec: exec}
}

func (repo *sheetRepository) toRow(rec gradesheet.Record) sheetRow {
	return sheetRow{
		ID:            rec.ID,
		Name:          rec.Name,
		Structure:     null.NewString(string(rec.Structure), len(rec.Structure) > 0),
		LegacyColumns: null.NewString(string(rec.LegacyColumns), len(rec.LegacyColumns) > 0),
		CreatedAt:     rec.CreatedAt.UTC(),
		UpdatedAt:     rec.UpdatedAt.UTC(),
	}
}

func (repo *sheetRepository) fromRow(row sheetRow) gradesheet.Record {
	rec := gradesheet.Record{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.Structure.Valid {
		rec.Structure = json.RawMessage(row.Structure.String)
	}
	if row.LegacyColumns.Valid {
		rec.LegacyColumns = json.RawMessage(row.LegacyColumns.String)
	}
	return rec
}

func (repo *sheetRepository) CreateSheet(ctx context.Context, rec gradesheet.Record) (gradesheet.Record, error) {
	q := `INSERT INTO gradesheet (id, name, structure, legacy_columns, created_at, updated_at)
		VALUES (:id, :name, :structure, :legacy_columns, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, repo.toRow(rec)); err != nil {
		return gradesheet.Record{}, errors.Wrap(err, "inserting sheet")
	}
	return repo.GetSheet(ctx, rec.ID)
}

func (repo *sheetRepository) GetSheet(ctx context.Context, id string) (gradesheet.Record, error) {
	var row sheetRow
	q := repo.exec.Rebind(`SELECT * FROM gradesheet WHERE id = ?`)
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return gradesheet.Record{}, gradesheet.ErrNotFound
		}
		return gradesheet.Record{}, errors.Wrap(err, "selecting sheet")
	}
	return repo.fromRow(row), nil
}

func (repo *sheetRepository) QuerySheets(ctx context.Context, ordering ...core.DBOrdering) ([]gradesheet.Record, error) {
	q := `SELECT * FROM gradesheet ORDER BY ` + orderByClause(ordering)
	var rows []sheetRow
	if err := repo.exec.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting sheets")
	}
	recs := make([]gradesheet.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, repo.fromRow(row))
	}
	return recs, nil
}

func (repo *sheetRepository) UpdateSheet(ctx context.Context, rec gradesheet.Record) (gradesheet.Record, error) {
	q := `UPDATE gradesheet
		SET name = :name, structure = :structure, legacy_columns = :legacy_columns, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.exec.NamedExecContext(ctx, q, repo.toRow(rec))
	if err != nil {
		return gradesheet.Record{}, errors.Wrap(err, "updating sheet")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return gradesheet.Record{}, gradesheet.ErrNotFound
	}
	return repo.GetSheet(ctx, rec.ID)
}

func (repo *sheetRepository) DeleteSheetsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM gradesheet WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.exec.ExecContext(ctx, repo.exec.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting sheets")
	}
	return nil
}

// orderByClause only keeps known fields, so user input never reaches the query as is.
// Without a known field sheets come oldest first; ties are always broken by id.
func orderByClause(ordering []core.DBOrdering) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if field, ok := orderingFields[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: field, Ascending: ord.Ascending}.String())
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, core.DBOrdering{Field: "created_at", Ascending: true}.String())
	}
	clauses = append(clauses, core.DBOrdering{Field: "id", Ascending: true}.String())
	return strings.Join(clauses, ", ")
}
