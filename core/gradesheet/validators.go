package gradesheet

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
)

var (
	colKindTag  = "colkind"
	colKindText = "unknown column kind"

	refKeyTag  = "refkey"
	refKeyText = "references must be of the form groupId:columnId"

	// reference policy messages
	errTextUnknownGroup     = "references unknown group %q"
	errTextUnknownColumn    = "references unknown column %q"
	errTextNotEarlier       = "may only reference groups placed before this one"
	errTextSameGroup        = "cannot reference its own group; use a group internal sum instead"
	errTextNotInGroup       = "column %q is not in this group"
	errTextSelfReference    = "a column cannot reference itself"
	errTextRefsNotAllowed   = "not allowed for this column kind"
	errTextLegacyNotAllowed = "legacy group references cannot be used for new columns"

	// structure messages
	errTextIDRequired  = "this field is required"
	errTextIDSeparator = "cannot contain \"" + keySeparator + "\""
	errTextIDUsed      = "id %q already used in this structure"
	errTextNegative    = "must be 0 or greater"

	ErrCycle = errors.New("reference cycle detected")
)

// NewValidator returns a core validator with the grade sheet validators registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	RegisterValidators(validate, translator)
	return validate, translator
}

// RegisterValidators registers the grade sheet custom validators & their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(colKindTag, colKindValidation)
	core.RegisterCustomTranslation(validate, translator, colKindTag, colKindText)

	_ = validate.RegisterValidation(refKeyTag, refKeyValidation)
	core.RegisterCustomTranslation(validate, translator, refKeyTag, refKeyText)

	validate.RegisterStructValidation(legacyColumnStructValidation, LegacyColumn{})
}

// Custom Validators

func colKindValidation(fl validator.FieldLevel) bool {
	return Kind(fl.Field().String()).IsValid()
}

func refKeyValidation(fl validator.FieldLevel) bool {
	return IsCompositeKey(fl.Field().String())
}

func legacyColumnStructValidation(sl validator.StructLevel) {
	if lc, ok := sl.Current().Interface().(LegacyColumn); ok {
		if lc.MaxScore < 0 {
			sl.ReportError(lc.MaxScore, "maxScore", "MaxScore", "gte", "0")
		}
	}
}

// CanAddReference reports whether a column of the given kind, living in the group at
// consumerGroupIndex, may reference a column of the group at targetGroupIndex.
//   - GroupSum & GrandTotal group sources: strictly earlier groups only.
//   - ExternalSum: any group but its own.
//   - GroupInternalSum: its own group only.
//
// GrandTotal same-group sources go through the GroupInternalSum rule: pass KindGroupInternalSum.
func CanAddReference(s Structure, consumerGroupIndex, targetGroupIndex int, kind Kind) bool {
	if !inRange(consumerGroupIndex, len(s.Groups)) || !inRange(targetGroupIndex, len(s.Groups)) {
		return false
	}
	switch kind {
	case KindGroupSum, KindGrandTotal:
		return targetGroupIndex < consumerGroupIndex
	case KindExternalSum:
		return s.Groups[targetGroupIndex].ID != s.Groups[consumerGroupIndex].ID
	case KindGroupInternalSum:
		return targetGroupIndex == consumerGroupIndex
	}
	return false
}

// ValidateColumn checks a new column before it is added to the group: field constraints first,
// then every reference against the ordering and self-reference policy.
// Returns a *core.ValidationError listing every offending field.
func ValidateColumn(validate *validator.Validate, translator ut.Translator, s Structure, groupID string, nc *NewColumn) error {
	nc.Name = core.CleanString(nc.Name)
	if err := validate.Struct(nc); err != nil {
		return core.TranslateValidationErrors(err, translator)
	}

	gi := s.GroupIndex(groupID)
	if gi < 0 {
		return errors.Wrap(ErrGroupNotFound, groupID)
	}

	var flds []core.FieldError
	report := func(field, format string, args ...interface{}) {
		flds = append(flds, core.FieldError{Field: field, Error: fmt.Sprintf(format, args...)})
	}

	// only the reference fields of the column's kind may be set
	internalAllowed := nc.Kind == KindGroupInternalSum || nc.Kind == KindGrandTotal
	externalAllowed := nc.Kind == KindExternalSum
	groupAllowed := nc.Kind == KindGroupSum || nc.Kind == KindGrandTotal
	if len(nc.InternalSourceColumnIDs) > 0 && !internalAllowed {
		report("internalSourceColumnIds", errTextRefsNotAllowed)
	}
	if len(nc.ExternalSourceKeys) > 0 && !externalAllowed {
		report("externalSourceKeys", errTextRefsNotAllowed)
	}
	if len(nc.GroupSourceKeys) > 0 && !groupAllowed {
		report("groupSourceKeys", errTextRefsNotAllowed)
	}

	if internalAllowed {
		for _, id := range nc.InternalSourceColumnIDs {
			if id == nc.ID {
				report("internalSourceColumnIds", errTextSelfReference)
				continue
			}
			if _, ok := s.Groups[gi].Column(id); !ok {
				report("internalSourceColumnIds", errTextNotInGroup, id)
			}
		}
	}
	if externalAllowed {
		for _, key := range nc.ExternalSourceKeys {
			checkReference(s, gi, key, nc, KindExternalSum, "externalSourceKeys", report)
		}
	}
	if groupAllowed {
		for _, key := range nc.GroupSourceKeys {
			checkReference(s, gi, key, nc, nc.Kind, "groupSourceKeys", report)
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func checkReference(s Structure, consumerIndex int, key string, nc *NewColumn, kind Kind, field string, report func(string, string, ...interface{})) {
	ref := DecodeKey(key)
	if ref.Legacy() {
		report(field, errTextLegacyNotAllowed)
		return
	}
	if ref.ColumnID == nc.ID {
		report(field, errTextSelfReference)
		return
	}
	ti := s.GroupIndex(ref.GroupID)
	if ti < 0 {
		report(field, errTextUnknownGroup, ref.GroupID)
		return
	}
	if _, ok := s.Groups[ti].Column(ref.ColumnID); !ok {
		report(field, errTextUnknownColumn, key)
		return
	}
	if !CanAddReference(s, consumerIndex, ti, kind) {
		if kind == KindExternalSum {
			report(field, errTextSameGroup)
		} else {
			report(field, errTextNotEarlier)
		}
	}
}

// ValidateStructure checks the invariants every stored structure must hold: ids are set, unique
// across groups & columns and never contain the key separator, kinds are known and scores are
// not negative. Returns a *core.ValidationError keyed by the offending path.
func ValidateStructure(s Structure) error {
	var flds []core.FieldError
	report := func(field, format string, args ...interface{}) {
		flds = append(flds, core.FieldError{Field: field, Error: fmt.Sprintf(format, args...)})
	}

	used := make(map[string]bool)
	checkID := func(field, id string) {
		switch {
		case id == "":
			report(field, errTextIDRequired)
		case strings.Contains(id, keySeparator):
			report(field, errTextIDSeparator)
		case used[id]:
			report(field, errTextIDUsed, id)
		default:
			used[id] = true
		}
	}

	for gi, grp := range s.Groups {
		grpField := fmt.Sprintf("groups[%d]", gi)
		checkID(grpField+".id", grp.ID)
		for ci, col := range grp.Columns {
			colField := fmt.Sprintf("%s.columns[%d]", grpField, ci)
			checkID(colField+".id", col.ID)
			if !col.Kind.IsValid() {
				report(colField+".kind", colKindText)
			}
			if !col.Kind.IsDerived() && col.MaxScore < 0 {
				report(colField+".maxScore", errTextNegative)
			}
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// CheckCycles walks the reference graph of s and returns an ErrCycle wrapped error naming the
// first column found on a cycle. Structures built through ValidateColumn never have cycles;
// this guards structures coming straight from storage or imports.
func CheckCycles(s Structure) error {
	deps := referenceGraph(s)

	// permanent: fully visited, not on a cycle. temporary: on the current DFS path.
	permanent := make(map[string]bool, len(deps))
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return errors.Wrapf(ErrCycle, "involving column %q", id)
		}
		temporary[id] = true
		for _, dep := range deps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range s.ColumnIDs() {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// referenceGraph maps each derived column id to the ids of the columns its value is computed
// from, following the same fields the Resolver reads for its kind. Dangling references are dropped.
func referenceGraph(s Structure) map[string][]string {
	r := NewResolver(s)
	deps := make(map[string][]string, len(r.where))
	for gi, grp := range s.Groups {
		for _, col := range grp.Columns {
			if !col.Kind.IsDerived() {
				continue
			}
			var internal, keys []string
			switch col.Kind {
			case KindGroupInternalSum:
				internal = col.InternalSourceColumnIDs
			case KindExternalSum:
				keys = col.ExternalSourceKeys
			case KindGroupSum:
				keys = col.GroupSourceKeys
			case KindGrandTotal:
				internal, keys = col.InternalSourceColumnIDs, col.GroupSourceKeys
			}

			out := make([]string, 0, len(internal)+len(keys))
			for _, id := range internal {
				if loc, ok := r.where[id]; ok && loc[0] == gi {
					out = append(out, id)
				}
			}
			for _, key := range keys {
				ref := DecodeKey(key)
				if ref.Legacy() {
					if col.Kind == KindExternalSum {
						continue
					}
					if legacy, ok := ResolveLegacy(s, ref.GroupID); ok {
						out = append(out, legacy.ID)
					}
					continue
				}
				if loc, ok := r.where[ref.ColumnID]; ok && s.Groups[loc[0]].ID == ref.GroupID {
					out = append(out, ref.ColumnID)
				}
			}
			deps[col.ID] = out
		}
	}
	return deps
}
