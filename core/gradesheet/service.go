package gradesheet

import (
	"context"
	"encoding/json"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("grade sheet not found")
)

type (
	// Record is a sheet as the persistence layer stores it: the structure & legacy list are
	// opaque JSON values, possibly malformed.
	Record struct {
		ID            string
		Name          string
		Structure     json.RawMessage
		LegacyColumns json.RawMessage
		CreatedAt     time.Time // UTC
		UpdatedAt     time.Time // UTC
	}

	Repository interface {
		CreateSheet(ctx context.Context, rec Record) (Record, error)
		GetSheet(ctx context.Context, id string) (Record, error)
		QuerySheets(ctx context.Context, ordering ...core.DBOrdering) ([]Record, error)
		UpdateSheet(ctx context.Context, rec Record) (Record, error)
		DeleteSheetsByID(ctx context.Context, ids ...string) error
	}

	// Totals is the render-time view of a sheet's computed values.
	Totals struct {
		Columns           map[string]float64 `json:"columns"`
		GrandTotal        float64            `json:"grand_total"`
		PassingScore      float64            `json:"passing_score"`
		PassingPercentage float64            `json:"passing_percentage"`
	}

	Service interface {
		Create(ctx context.Context, ns NewSheet) (Sheet, error)
		Get(ctx context.Context, id string) (Sheet, error)
		Query(ctx context.Context, ordering ...core.DBOrdering) ([]Sheet, error)
		Save(ctx context.Context, id string, s Structure) (Sheet, error)
		Load(ctx context.Context, id string) (Structure, IDMap, error)
		Totals(ctx context.Context, id string) (Totals, error)
		AddGroup(ctx context.Context, id, name string) (Sheet, error)
		AddColumn(ctx context.Context, id, groupID string, nc NewColumn) (Sheet, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo       Repository
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		ids        IDGenerator
	}
)

var _ Service = (*service)(nil) // interface compliance check

// NewService returns the grade sheet Service. ids defaults to UUIDGenerator when nil.
func NewService(repo Repository, logger core.Logger, validate *validator.Validate, translator ut.Translator, ids IDGenerator) Service {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &service{
		repo:       repo,
		logger:     logger,
		validate:   validate,
		translator: translator,
		ids:        ids,
	}
}

func (svc *service) Create(ctx context.Context, ns NewSheet) (Sheet, error) {
	ns.Name = core.CleanString(ns.Name)
	if err := svc.validate.Struct(ns); err != nil {
		return Sheet{}, core.TranslateValidationErrors(err, svc.translator)
	}

	id, err := svc.ids.NewID()
	if err != nil {
		return Sheet{}, errors.Wrap(err, "generating sheet id")
	}
	now := NowFunc().UTC()
	rec := Record{
		ID:        id,
		Name:      ns.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch {
	case ns.Structure != nil:
		s, err := svc.checkStructure(*ns.Structure)
		if err != nil {
			return Sheet{}, err
		}
		if rec.Structure, err = json.Marshal(s); err != nil {
			return Sheet{}, errors.Wrap(err, "encoding structure")
		}
	case ns.LegacyColumns != nil:
		if rec.LegacyColumns, err = json.Marshal(ns.LegacyColumns); err != nil {
			return Sheet{}, errors.Wrap(err, "encoding legacy columns")
		}
	default:
		if rec.Structure, err = json.Marshal(Structure{Groups: []Group{}}); err != nil {
			return Sheet{}, errors.Wrap(err, "encoding structure")
		}
	}

	rec, err = svc.repo.CreateSheet(ctx, rec)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "creating sheet")
	}
	return svc.sheet(rec)
}

func (svc *service) Get(ctx context.Context, id string) (Sheet, error) {
	rec, err := svc.repo.GetSheet(ctx, id)
	if err != nil {
		return Sheet{}, err
	}
	return svc.sheet(rec)
}

func (svc *service) Query(ctx context.Context, ordering ...core.DBOrdering) ([]Sheet, error) {
	recs, err := svc.repo.QuerySheets(ctx, ordering...)
	if err != nil {
		return nil, errors.Wrap(err, "querying sheets")
	}
	sheets := make([]Sheet, 0, len(recs))
	for _, rec := range recs {
		sht, err := svc.sheet(rec)
		if err != nil {
			// one broken sheet must not hide the others
			svc.logger.Warn("skipping undecodable sheet", err, map[string]interface{}{"sheet": rec.ID})
			continue
		}
		sheets = append(sheets, sht)
	}
	return sheets, nil
}

// Save replaces the structure of a sheet. The legacy column list, if any, is dropped: once a
// structure is saved it is the only source of truth.
func (svc *service) Save(ctx context.Context, id string, s Structure) (Sheet, error) {
	s, err := svc.checkStructure(s)
	if err != nil {
		return Sheet{}, err
	}
	rec, err := svc.repo.GetSheet(ctx, id)
	if err != nil {
		return Sheet{}, err
	}
	if rec.Structure, err = json.Marshal(s); err != nil {
		return Sheet{}, errors.Wrap(err, "encoding structure")
	}
	rec.LegacyColumns = nil
	rec.UpdatedAt = NowFunc().UTC()

	rec, err = svc.repo.UpdateSheet(ctx, rec)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "updating sheet")
	}
	return svc.sheet(rec)
}

// Load pulls a stored sheet into an editing session: the returned structure carries fresh ids so
// that loading the same sheet twice never shares identifiers between sessions.
func (svc *service) Load(ctx context.Context, id string) (Structure, IDMap, error) {
	sht, err := svc.Get(ctx, id)
	if err != nil {
		return Structure{}, IDMap{}, err
	}
	if err := CheckCycles(*sht.Structure); err != nil {
		// still loadable: the resolver zeroes the looping contribution
		svc.logger.Warn("loading sheet with a reference cycle", err, map[string]interface{}{"sheet": id})
	}
	s, idMap, err := NewInstantiator(svc.ids).Instantiate(*sht.Structure)
	if err != nil {
		return Structure{}, IDMap{}, errors.Wrap(err, "instantiating structure")
	}
	return s, idMap, nil
}

func (svc *service) Totals(ctx context.Context, id string) (Totals, error) {
	sht, err := svc.Get(ctx, id)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(*sht.Structure), nil
}

func (svc *service) AddGroup(ctx context.Context, id, name string) (Sheet, error) {
	sht, err := svc.Get(ctx, id)
	if err != nil {
		return Sheet{}, err
	}
	s, err := AddGroup(*sht.Structure, core.CleanString(name), svc.ids)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "adding group")
	}
	return svc.Save(ctx, id, s)
}

// AddColumn validates the column against the sheet's current structure, then appends it with a
// fresh id. Invalid columns are never added.
func (svc *service) AddColumn(ctx context.Context, id, groupID string, nc NewColumn) (Sheet, error) {
	sht, err := svc.Get(ctx, id)
	if err != nil {
		return Sheet{}, err
	}
	if nc.ID, err = svc.ids.NewID(); err != nil {
		return Sheet{}, errors.Wrap(err, "generating column id")
	}
	if err := ValidateColumn(svc.validate, svc.translator, *sht.Structure, groupID, &nc); err != nil {
		return Sheet{}, err
	}
	s, err := AddColumn(*sht.Structure, groupID, nc)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "adding column")
	}
	return svc.Save(ctx, id, s)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteSheetsByID(ctx, ids...)
}

// checkStructure rejects structures that could not be read back or would loop, and returns the
// structure to store: a copy with its derived scores refreshed.
func (svc *service) checkStructure(s Structure) (Structure, error) {
	if err := ValidateStructure(s); err != nil {
		return Structure{}, err
	}
	if err := CheckCycles(s); err != nil {
		return Structure{}, core.NewValidationError(err, core.FieldError{Field: "structure", Error: err.Error()})
	}
	return SyncDerivedScores(s), nil
}

// sheet decodes a record, falling back to its legacy column list when the structure is malformed.
func (svc *service) sheet(rec Record) (Sheet, error) {
	// legacy upgrades get ids derived from the sheet so repeated reads agree
	s, err := Decode(rec.Structure, rec.LegacyColumns, &SequentialIDGenerator{Prefix: rec.ID + "-"})
	if err != nil {
		return Sheet{}, errors.Wrapf(err, "decoding sheet %s", rec.ID)
	}
	sht := Sheet{
		ID:        rec.ID,
		Name:      rec.Name,
		Structure: &s,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if len(rec.LegacyColumns) > 0 {
		if cols, err := ParseLegacy(rec.LegacyColumns); err == nil {
			sht.LegacyColumns = cols
		}
	}
	return sht, nil
}

// ComputeTotals resolves every column of s in a single pass.
func ComputeTotals(s Structure) Totals {
	r := NewResolver(s)
	totals := Totals{
		Columns:      r.Totals(),
		PassingScore: s.Settings.PassingScore,
	}
	if col, ok := s.GrandTotalColumn(); ok {
		totals.GrandTotal = r.Value(col.ID)
	}
	totals.PassingPercentage = r.Percentage(s.Settings.PassingScore)
	return totals
}
