package gradesheet

import "strings"

// keySeparator joins the group and column halves of a composite key.
const keySeparator = ":"

// RefKey is a decoded reference key. A legacy key only carries a group id and stands for
// that group's conventional total.
type RefKey struct {
	GroupID  string
	ColumnID string
	legacy   bool
}

// LegacyKey returns the bare-group form of a reference.
func LegacyKey(groupID string) RefKey { return RefKey{GroupID: groupID, legacy: true} }

// Legacy reports whether the key is a bare group id.
func (k RefKey) Legacy() bool { return k.legacy }

func (k RefKey) String() string {
	if k.Legacy() {
		return k.GroupID
	}
	return EncodeKey(k.GroupID, k.ColumnID)
}

// EncodeKey returns the composite "groupId:columnId" key.
func EncodeKey(groupID, columnID string) string {
	return groupID + keySeparator + columnID
}

// DecodeKey splits a key on its first ":". A key without ":" is a legacy group id.
func DecodeKey(key string) RefKey {
	i := strings.Index(key, keySeparator)
	if i < 0 {
		return LegacyKey(key)
	}
	return RefKey{GroupID: key[:i], ColumnID: key[i+len(keySeparator):]}
}

// IsCompositeKey reports whether key is a well-formed composite key with both halves set.
func IsCompositeKey(key string) bool {
	ref := DecodeKey(key)
	return !ref.Legacy() && ref.GroupID != "" && ref.ColumnID != ""
}

// ResolveLegacy finds the column a legacy bare-group reference stands for: the first
// GroupInternalSum column of the group. When ok is false the group either does not exist
// or has no such column, and readers fall back to LegacyGroupValue.
// Only ever used when reading; new references are always composite.
func ResolveLegacy(s Structure, groupID string) (Column, bool) {
	grp, ok := s.Group(groupID)
	if !ok {
		return Column{}, false
	}
	for _, col := range grp.Columns {
		if col.Kind == KindGroupInternalSum {
			return col, true
		}
	}
	return Column{}, false
}
