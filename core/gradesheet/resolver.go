package gradesheet

// Resolve computes the value of a column. Unknown columns resolve to 0.
func Resolve(s Structure, columnID string) float64 {
	return NewResolver(s).Value(columnID)
}

// Resolver computes column values over one structure snapshot, memoizing every column it
// visits so a single pass resolves each column at most once.
// A Resolver is not safe for concurrent use; create one per pass.
type Resolver struct {
	s Structure

	// location of every column: group index & column index
	where      map[string][2]int
	memo       map[string]float64
	inProgress map[string]bool
	// set while the current computation read a column that was still in progress
	hitCycle bool
}

func NewResolver(s Structure) *Resolver {
	where := make(map[string][2]int)
	for gi, grp := range s.Groups {
		for ci, col := range grp.Columns {
			if _, dup := where[col.ID]; !dup { // first one wins on (invalid) duplicate ids
				where[col.ID] = [2]int{gi, ci}
			}
		}
	}
	return &Resolver{
		s:          s,
		where:      where,
		memo:       make(map[string]float64),
		inProgress: make(map[string]bool),
	}
}

// Value returns the value of the column, 0 for dangling ids.
func (r *Resolver) Value(columnID string) float64 {
	if v, ok := r.memo[columnID]; ok {
		return v
	}
	loc, ok := r.where[columnID]
	if !ok {
		return 0
	}
	// a structure that skipped the validator may loop back on itself: the re-entered column
	// contributes nothing instead of recursing forever.
	if r.inProgress[columnID] {
		r.hitCycle = true
		return 0
	}

	outerHit := r.hitCycle
	r.hitCycle = false
	r.inProgress[columnID] = true
	v := r.compute(loc[0], r.s.Groups[loc[0]].Columns[loc[1]])
	delete(r.inProgress, columnID)

	// a value cut short by a cycle depends on where the walk entered the cycle: keep it out
	// of the memo so every column is always resolved from itself.
	if !r.hitCycle {
		r.memo[columnID] = v
	}
	r.hitCycle = r.hitCycle || outerHit
	return v
}

// Totals returns the value of every column of the structure, keyed by column id.
func (r *Resolver) Totals() map[string]float64 {
	totals := make(map[string]float64, len(r.where))
	for _, id := range r.s.ColumnIDs() {
		if _, ok := totals[id]; !ok {
			totals[id] = r.Value(id)
		}
	}
	return totals
}

// Percentage returns value as a percentage of the structure's grand total, or 0 when there is
// no grand total or it is 0.
func (r *Resolver) Percentage(value float64) float64 {
	col, ok := r.s.GrandTotalColumn()
	if !ok {
		return 0
	}
	max := r.Value(col.ID)
	if max == 0 {
		return 0
	}
	return value / max * 100
}

func (r *Resolver) compute(groupIndex int, col Column) float64 {
	switch col.Kind {
	case KindGroupInternalSum:
		return r.sumInternal(groupIndex, col.InternalSourceColumnIDs)
	case KindExternalSum:
		var sum float64
		for _, key := range col.ExternalSourceKeys {
			ref := DecodeKey(key)
			if ref.Legacy() {
				continue
			}
			sum += r.compositeValue(ref)
		}
		return sum
	case KindGroupSum:
		return r.sumGroupSources(col.GroupSourceKeys)
	case KindGrandTotal:
		return r.sumGroupSources(col.GroupSourceKeys) + r.sumInternal(groupIndex, col.InternalSourceColumnIDs)
	default: // Score, Percentage, Label
		return col.MaxScore
	}
}

// sumInternal sums columns of the given group; ids outside of it contribute 0.
func (r *Resolver) sumInternal(groupIndex int, ids []string) float64 {
	var sum float64
	for _, id := range ids {
		if loc, ok := r.where[id]; ok && loc[0] == groupIndex {
			sum += r.numeric(id)
		}
	}
	return sum
}

func (r *Resolver) sumGroupSources(keys []string) float64 {
	var sum float64
	for _, key := range keys {
		ref := DecodeKey(key)
		if ref.Legacy() {
			sum += r.legacyValue(ref.GroupID)
			continue
		}
		sum += r.compositeValue(ref)
	}
	return sum
}

// compositeValue resolves a "groupId:columnId" reference; the column must live in that group.
func (r *Resolver) compositeValue(ref RefKey) float64 {
	loc, ok := r.where[ref.ColumnID]
	if !ok || r.s.Groups[loc[0]].ID != ref.GroupID {
		return 0
	}
	return r.numeric(ref.ColumnID)
}

// legacyValue resolves a bare group id: the group's first GroupInternalSum column, else the sum of
// its Score columns.
func (r *Resolver) legacyValue(groupID string) float64 {
	if col, ok := ResolveLegacy(r.s, groupID); ok {
		return r.Value(col.ID)
	}
	return LegacyGroupValue(r.s, groupID)
}

// numeric is Value, except labels never count towards a sum.
func (r *Resolver) numeric(columnID string) float64 {
	loc := r.where[columnID]
	if !r.s.Groups[loc[0]].Columns[loc[1]].Kind.IsNumeric() {
		return 0
	}
	return r.Value(columnID)
}

// LegacyGroupValue sums the Score columns of a group; it is the fallback value of a legacy
// reference to a group without a GroupInternalSum column.
func LegacyGroupValue(s Structure, groupID string) float64 {
	grp, ok := s.Group(groupID)
	if !ok {
		return 0
	}
	var sum float64
	for _, col := range grp.Columns {
		if col.Kind == KindScore {
			sum += col.MaxScore
		}
	}
	return sum
}

// SyncDerivedScores returns a copy of s in which the MaxScore of every derived column holds the
// value the Resolver computes for it.
func SyncDerivedScores(s Structure) Structure {
	out := s.Clone()
	syncDerivedScores(&out)
	return out
}

func syncDerivedScores(s *Structure) {
	totals := NewResolver(*s).Totals()
	for gi := range s.Groups {
		for ci := range s.Groups[gi].Columns {
			col := &s.Groups[gi].Columns[ci]
			if col.Kind.IsDerived() {
				col.MaxScore = totals[col.ID]
			}
		}
	}
}
