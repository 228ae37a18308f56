package gradesheet

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrGroupNotFound   = errors.New("group not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrDuplicateID     = errors.New("id already used in this structure")

	// Palette holds the display colors handed out to new groups, in order.
	Palette = []string{
		"#3B82F6", // blue
		"#10B981", // green
		"#F59E0B", // amber
		"#EF4444", // red
		"#8B5CF6", // violet
		"#EC4899", // pink
		"#14B8A6", // teal
		"#F97316", // orange
	}

	defaultColumnName     = "Score"
	defaultColumnMaxScore = 10.0
)

// NextColor returns the first palette color no group of s uses yet.
// Once the palette is exhausted colors are reused in palette order.
func NextColor(s Structure) string {
	used := make(map[string]bool, len(s.Groups))
	for _, grp := range s.Groups {
		used[grp.Color] = true
	}
	for _, color := range Palette {
		if !used[color] {
			return color
		}
	}
	return Palette[len(s.Groups)%len(Palette)]
}

// The edit operations below never modify their input. The structure they return always has the
// MaxScore of its derived columns refreshed.

// AddGroup appends a group with an unused color and one default Score column.
func AddGroup(s Structure, name string, ids IDGenerator) (Structure, error) {
	groupID, err := ids.NewID()
	if err != nil {
		return Structure{}, errors.Wrap(err, "generating group id")
	}
	columnID, err := ids.NewID()
	if err != nil {
		return Structure{}, errors.Wrap(err, "generating column id")
	}
	if err := checkUnusedIDs(s, groupID, columnID); err != nil {
		return Structure{}, err
	}
	if name == "" {
		name = fmt.Sprintf("Group %d", len(s.Groups)+1)
	}

	out := s.Clone()
	out.Groups = append(out.Groups, Group{
		ID:    groupID,
		Name:  name,
		Color: NextColor(s),
		Columns: []Column{{
			ID:       columnID,
			Name:     defaultColumnName,
			MaxScore: defaultColumnMaxScore,
			Kind:     KindScore,
		}},
	})
	syncDerivedScores(&out)
	return out, nil
}

// AddColumn appends a column to the group. Derived columns must have been checked with
// ValidateColumn beforehand; AddColumn only enforces id uniqueness.
func AddColumn(s Structure, groupID string, nc NewColumn) (Structure, error) {
	gi := s.GroupIndex(groupID)
	if gi < 0 {
		return Structure{}, errors.Wrap(ErrGroupNotFound, groupID)
	}
	if nc.ID == "" {
		return Structure{}, errors.New("column id is required")
	}
	if err := checkUnusedIDs(s, nc.ID); err != nil {
		return Structure{}, err
	}

	out := s.Clone()
	out.Groups[gi].Columns = append(out.Groups[gi].Columns, nc.column())
	syncDerivedScores(&out)
	return out, nil
}

// RemoveColumn removes the column only; references to it elsewhere are left dangling.
func RemoveColumn(s Structure, groupID, columnID string) (Structure, error) {
	gi := s.GroupIndex(groupID)
	if gi < 0 {
		return Structure{}, errors.Wrap(ErrGroupNotFound, groupID)
	}
	ci := s.Groups[gi].ColumnIndex(columnID)
	if ci < 0 {
		return Structure{}, errors.Wrap(ErrColumnNotFound, columnID)
	}

	out := s.Clone()
	cols := out.Groups[gi].Columns
	out.Groups[gi].Columns = append(cols[:ci:ci], cols[ci+1:]...)
	syncDerivedScores(&out)
	return out, nil
}

// RemoveGroup removes the group and its columns; references to them elsewhere are left dangling.
func RemoveGroup(s Structure, groupID string) (Structure, error) {
	gi := s.GroupIndex(groupID)
	if gi < 0 {
		return Structure{}, errors.Wrap(ErrGroupNotFound, groupID)
	}

	out := s.Clone()
	out.Groups = append(out.Groups[:gi:gi], out.Groups[gi+1:]...)
	syncDerivedScores(&out)
	return out, nil
}

// ReorderColumns moves a column of the group from one position to another.
func ReorderColumns(s Structure, groupID string, from, to int) (Structure, error) {
	gi := s.GroupIndex(groupID)
	if gi < 0 {
		return Structure{}, errors.Wrap(ErrGroupNotFound, groupID)
	}
	n := len(s.Groups[gi].Columns)
	if !inRange(from, n) || !inRange(to, n) {
		return Structure{}, errors.Wrapf(ErrIndexOutOfRange, "moving column %d to %d (len %d)", from, to, n)
	}

	out := s.Clone()
	out.Groups[gi].Columns = move(out.Groups[gi].Columns, from, to)
	syncDerivedScores(&out)
	return out, nil
}

// ReorderGroups moves a group from one position to another. Stored references are kept as is:
// existing totals keep summing what they were built to sum, only future references are affected.
func ReorderGroups(s Structure, from, to int) (Structure, error) {
	n := len(s.Groups)
	if !inRange(from, n) || !inRange(to, n) {
		return Structure{}, errors.Wrapf(ErrIndexOutOfRange, "moving group %d to %d (len %d)", from, to, n)
	}

	out := s.Clone()
	out.Groups = move(out.Groups, from, to)
	syncDerivedScores(&out)
	return out, nil
}

func checkUnusedIDs(s Structure, ids ...string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || s.GroupIndex(id) >= 0 {
			return errors.Wrap(ErrDuplicateID, id)
		}
		if _, _, ok := s.FindColumn(id); ok {
			return errors.Wrap(ErrDuplicateID, id)
		}
		seen[id] = true
	}
	return nil
}

func inRange(i, n int) bool { return i >= 0 && i < n }

func move[T any](items []T, from, to int) []T {
	item := items[from]
	items = append(items[:from], items[from+1:]...)
	items = append(items[:to], append([]T{item}, items[to:]...)...)
	return items
}
