package gradesheet

import (
	"time"

	"github.com/pkg/errors"
)

// Kind tells how a Column gets its value.
type Kind string

const (
	KindScore            Kind = "score"
	KindGroupInternalSum Kind = "group_internal_sum"
	KindExternalSum      Kind = "external_sum"
	KindGroupSum         Kind = "group_sum"
	KindGrandTotal       Kind = "grand_total"
	KindPercentage       Kind = "percentage"
	KindLabel            Kind = "label"
)

var (
	AllKinds = []Kind{
		KindScore, KindGroupInternalSum, KindExternalSum, KindGroupSum,
		KindGrandTotal, KindPercentage, KindLabel,
	}

	errUnknownKind = errors.New("unknown column kind")
)

func (k Kind) IsValid() bool {
	for _, kind := range AllKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IsDerived reports whether the value of a column of this kind is computed from other columns.
func (k Kind) IsDerived() bool {
	switch k {
	case KindGroupInternalSum, KindExternalSum, KindGroupSum, KindGrandTotal:
		return true
	}
	return false
}

// IsNumeric is false for labels, which parents never sum.
func (k Kind) IsNumeric() bool { return k != KindLabel }

func (k *Kind) UnmarshalText(text []byte) error {
	kind := Kind(text)
	if !kind.IsValid() {
		return errors.Wrapf(errUnknownKind, "%q", string(text))
	}
	*k = kind
	return nil
}

type Column struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	MaxScore float64 `json:"maxScore"`
	Kind     Kind    `json:"kind"`

	// InternalSourceColumnIDs holds same-group column ids (GroupInternalSum, GrandTotal).
	InternalSourceColumnIDs []string `json:"internalSourceColumnIds,omitempty"`
	// ExternalSourceKeys holds composite "groupId:columnId" keys (ExternalSum).
	ExternalSourceKeys []string `json:"externalSourceKeys,omitempty"`
	// GroupSourceKeys holds composite keys or legacy bare group ids (GroupSum, GrandTotal).
	GroupSourceKeys []string `json:"groupSourceKeys,omitempty"`
}

func (c Column) clone() Column {
	c.InternalSourceColumnIDs = cloneStrings(c.InternalSourceColumnIDs)
	c.ExternalSourceKeys = cloneStrings(c.ExternalSourceKeys)
	c.GroupSourceKeys = cloneStrings(c.GroupSourceKeys)
	return c
}

type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Color   string   `json:"color"`
	Columns []Column `json:"columns"`
}

func (g Group) clone() Group {
	cols := make([]Column, len(g.Columns))
	for i, col := range g.Columns {
		cols[i] = col.clone()
	}
	g.Columns = cols
	return g
}

// ColumnIndex returns the position of the column in the group, or -1.
func (g Group) ColumnIndex(columnID string) int {
	for i, col := range g.Columns {
		if col.ID == columnID {
			return i
		}
	}
	return -1
}

func (g Group) Column(columnID string) (Column, bool) {
	if i := g.ColumnIndex(columnID); i >= 0 {
		return g.Columns[i], true
	}
	return Column{}, false
}

type Settings struct {
	ShowGrandTotal bool    `json:"showGrandTotal"`
	ShowPercentage bool    `json:"showPercentage"`
	PassingScore   float64 `json:"passingScore"`
}

// Structure is a grade sheet definition: an ordered sequence of groups plus display settings.
// A group's index defines which groups are "earlier" for totals.
type Structure struct {
	Groups   []Group  `json:"groups"`
	Settings Settings `json:"settings"`
}

// Clone returns a deep copy of s.
func (s Structure) Clone() Structure {
	groups := make([]Group, len(s.Groups))
	for i, grp := range s.Groups {
		groups[i] = grp.clone()
	}
	s.Groups = groups
	return s
}

// GroupIndex returns the position of the group, or -1.
func (s Structure) GroupIndex(groupID string) int {
	for i, grp := range s.Groups {
		if grp.ID == groupID {
			return i
		}
	}
	return -1
}

func (s Structure) Group(groupID string) (Group, bool) {
	if i := s.GroupIndex(groupID); i >= 0 {
		return s.Groups[i], true
	}
	return Group{}, false
}

// FindColumn looks a column up across the whole structure and returns it with its group index.
func (s Structure) FindColumn(columnID string) (Column, int, bool) {
	for gi, grp := range s.Groups {
		if col, ok := grp.Column(columnID); ok {
			return col, gi, true
		}
	}
	return Column{}, -1, false
}

// ColumnIDs returns every column id in traversal order.
func (s Structure) ColumnIDs() []string {
	ids := make([]string, 0)
	for _, grp := range s.Groups {
		for _, col := range grp.Columns {
			ids = append(ids, col.ID)
		}
	}
	return ids
}

// GrandTotalColumn returns the first GrandTotal column of the structure.
func (s Structure) GrandTotalColumn() (Column, bool) {
	for _, grp := range s.Groups {
		for _, col := range grp.Columns {
			if col.Kind == KindGrandTotal {
				return col, true
			}
		}
	}
	return Column{}, false
}

// Sheet is a persisted grade sheet. Sheets stored before structures existed only have
// LegacyColumns; their Structure is the upgrade of that list.
type Sheet struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Structure     *Structure     `json:"structure"`
	LegacyColumns []LegacyColumn `json:"legacy_columns,omitempty"`
	CreatedAt     time.Time      `json:"created_at"` // UTC
	UpdatedAt     time.Time      `json:"updated_at"` // UTC
}

// NewSheet contains information needed to create a new Sheet.
type NewSheet struct {
	Name          string         `json:"name" validate:"required,notblank"`
	Structure     *Structure     `json:"structure"`
	LegacyColumns []LegacyColumn `json:"legacy_columns" validate:"omitempty,dive"`
}

// NewColumn describes a column to add to a group.
type NewColumn struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name" validate:"required,notblank"`
	MaxScore                float64  `json:"maxScore" validate:"gte=0"`
	Kind                    Kind     `json:"kind" validate:"required,colkind"`
	InternalSourceColumnIDs []string `json:"internalSourceColumnIds" validate:"omitempty,dive,required"`
	ExternalSourceKeys      []string `json:"externalSourceKeys" validate:"omitempty,dive,refkey"`
	GroupSourceKeys         []string `json:"groupSourceKeys" validate:"omitempty,dive,refkey"`
}

func (nc NewColumn) column() Column {
	return Column{
		ID:                      nc.ID,
		Name:                    nc.Name,
		MaxScore:                nc.MaxScore,
		Kind:                    nc.Kind,
		InternalSourceColumnIDs: cloneStrings(nc.InternalSourceColumnIDs),
		ExternalSourceKeys:      cloneStrings(nc.ExternalSourceKeys),
		GroupSourceKeys:         cloneStrings(nc.GroupSourceKeys),
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
