package gradesheet

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMalformedStructure = errors.New("malformed grade sheet structure")

	legacyGroupName  = "Grades"
	legacyGroupColor = Palette[0]
)

// LegacyColumn is an entry of the flat column list sheets were stored as before structures.
type LegacyColumn struct {
	Name     string  `json:"name" validate:"required,notblank"`
	MaxScore float64 `json:"maxScore"`
}

// Parse decodes a serialized structure. Anything that is not an object with a "groups" array of
// well-formed groups is reported as ErrMalformedStructure; the input is never repaired.
func Parse(data []byte) (Structure, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil || shape == nil {
		return Structure{}, errors.Wrap(ErrMalformedStructure, "not an object")
	}
	rawGroups, ok := shape["groups"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(rawGroups), []byte("[")) {
		return Structure{}, errors.Wrap(ErrMalformedStructure, "missing groups array")
	}

	var s Structure
	if err := json.Unmarshal(data, &s); err != nil {
		return Structure{}, errors.Wrap(ErrMalformedStructure, err.Error())
	}
	for gi, grp := range s.Groups {
		if grp.ID == "" {
			return Structure{}, errors.Wrapf(ErrMalformedStructure, "group %d has no id", gi)
		}
		if strings.Contains(grp.ID, keySeparator) {
			return Structure{}, errors.Wrapf(ErrMalformedStructure, "group id %q contains %q", grp.ID, keySeparator)
		}
		for ci, col := range grp.Columns {
			if col.ID == "" {
				return Structure{}, errors.Wrapf(ErrMalformedStructure, "column %d of group %q has no id", ci, grp.ID)
			}
			if strings.Contains(col.ID, keySeparator) {
				return Structure{}, errors.Wrapf(ErrMalformedStructure, "column id %q contains %q", col.ID, keySeparator)
			}
			if col.Kind == "" {
				return Structure{}, errors.Wrapf(ErrMalformedStructure, "column %q has no kind", col.ID)
			}
		}
	}
	return s, nil
}

// ParseLegacy decodes a flat legacy column list.
func ParseLegacy(data []byte) ([]LegacyColumn, error) {
	var cols []LegacyColumn
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, errors.Wrap(err, "decoding legacy columns")
	}
	return cols, nil
}

// FromLegacy upgrades a flat column list to a structure: one group of Score columns.
// It is a one way conversion; structures are never written back in this form.
func FromLegacy(cols []LegacyColumn, ids IDGenerator) (Structure, error) {
	groupID, err := ids.NewID()
	if err != nil {
		return Structure{}, errors.Wrap(err, "generating group id")
	}
	grp := Group{
		ID:      groupID,
		Name:    legacyGroupName,
		Color:   legacyGroupColor,
		Columns: make([]Column, 0, len(cols)),
	}
	for _, lc := range cols {
		colID, err := ids.NewID()
		if err != nil {
			return Structure{}, errors.Wrap(err, "generating column id")
		}
		grp.Columns = append(grp.Columns, Column{
			ID:       colID,
			Name:     lc.Name,
			MaxScore: lc.MaxScore,
			Kind:     KindScore,
		})
	}
	return Structure{Groups: []Group{grp}}, nil
}

// Decode returns the structure of a stored sheet: its structured value when that parses,
// else the upgrade of its legacy column list. Both failing is ErrMalformedStructure.
func Decode(structured, legacy []byte, ids IDGenerator) (Structure, error) {
	if len(structured) > 0 {
		s, err := Parse(structured)
		if err == nil {
			return s, nil
		}
		if len(legacy) == 0 {
			return Structure{}, err
		}
	}
	if len(legacy) == 0 {
		return Structure{}, errors.Wrap(ErrMalformedStructure, "no structure stored")
	}
	cols, err := ParseLegacy(legacy)
	if err != nil {
		return Structure{}, errors.Wrap(ErrMalformedStructure, err.Error())
	}
	return FromLegacy(cols, ids)
}
