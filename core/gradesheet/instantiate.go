package gradesheet

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// IDGenerator hands out fresh identifiers for groups and columns.
type IDGenerator interface {
	NewID() (string, error)
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() (string, error)

func (f IDGeneratorFunc) NewID() (string, error) { return f() }

// UUIDGenerator generates random (v4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SequentialIDGenerator generates Prefix1, Prefix2, ...
type SequentialIDGenerator struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (g *SequentialIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.Prefix + strconv.Itoa(g.n), nil
}

// IDMap records the old -> new identifiers assigned by Instantiate.
type IDMap struct {
	Groups  map[string]string `json:"groups"`
	Columns map[string]string `json:"columns"`
}

// Column returns the new id of a column, or the id itself when it was not remapped.
func (m IDMap) Column(oldID string) string {
	if newID, ok := m.Columns[oldID]; ok {
		return newID
	}
	return oldID
}

// Group returns the new id of a group, or the id itself when it was not remapped.
func (m IDMap) Group(oldID string) string {
	if newID, ok := m.Groups[oldID]; ok {
		return newID
	}
	return oldID
}

// Instantiator clones stored structures with fresh identifiers.
type Instantiator struct {
	ids IDGenerator
}

func NewInstantiator(ids IDGenerator) *Instantiator {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Instantiator{ids: ids}
}

// Instantiate clones stored with the default UUID generator.
func Instantiate(stored Structure) (Structure, IDMap, error) {
	return NewInstantiator(nil).Instantiate(stored)
}

// Instantiate returns a copy of stored in which every group & column has a new identifier and
// every reference is rewritten to match, so that two instantiations of the same structure never
// share an id. Resolving any column of the copy gives the same value as its original.
//
// References the maps do not know (dangling or partially migrated data) are left untouched.
// Legacy bare-group references stay legacy; only the group id is remapped.
func (in *Instantiator) Instantiate(stored Structure) (Structure, IDMap, error) {
	idMap := IDMap{
		Groups:  make(map[string]string),
		Columns: make(map[string]string),
	}

	// fresh ids must be unique among themselves and never reuse an id stored knows of,
	// dangling references included, or a dangling reference could come back to life.
	used := make(map[string]bool)
	for _, grp := range stored.Groups {
		used[grp.ID] = true
		for _, col := range grp.Columns {
			used[col.ID] = true
			for _, id := range col.InternalSourceColumnIDs {
				used[id] = true
			}
			for _, key := range append(cloneStrings(col.ExternalSourceKeys), col.GroupSourceKeys...) {
				ref := DecodeKey(key)
				used[ref.GroupID] = true
				used[ref.ColumnID] = true
			}
		}
	}
	fresh := func() (string, error) {
		id, err := in.ids.NewID()
		if err != nil {
			return "", errors.Wrap(err, "generating id")
		}
		if id == "" {
			return "", errors.New("generated an empty id")
		}
		if used[id] {
			return "", errors.Wrapf(ErrDuplicateID, "generated id %q collides", id)
		}
		used[id] = true
		return id, nil
	}

	// 1. assign ids in traversal order
	for _, grp := range stored.Groups {
		if _, dup := idMap.Groups[grp.ID]; dup {
			return Structure{}, IDMap{}, errors.Wrapf(ErrDuplicateID, "group %q", grp.ID)
		}
		newID, err := fresh()
		if err != nil {
			return Structure{}, IDMap{}, err
		}
		idMap.Groups[grp.ID] = newID

		for _, col := range grp.Columns {
			if _, dup := idMap.Columns[col.ID]; dup {
				return Structure{}, IDMap{}, errors.Wrapf(ErrDuplicateID, "column %q", col.ID)
			}
			newID, err := fresh()
			if err != nil {
				return Structure{}, IDMap{}, err
			}
			idMap.Columns[col.ID] = newID
		}
	}

	// 2. rebuild groups & columns, 3. rewrite references
	out := stored.Clone()
	for gi := range out.Groups {
		grp := &out.Groups[gi]
		grp.ID = idMap.Groups[grp.ID]
		for ci := range grp.Columns {
			col := &grp.Columns[ci]
			col.ID = idMap.Columns[col.ID]
			col.InternalSourceColumnIDs = remapIDs(col.InternalSourceColumnIDs, idMap)
			col.ExternalSourceKeys = remapKeys(col.ExternalSourceKeys, idMap)
			col.GroupSourceKeys = remapKeys(col.GroupSourceKeys, idMap)
		}
	}
	syncDerivedScores(&out)
	return out, idMap, nil
}

func remapIDs(ids []string, idMap IDMap) []string {
	for i, id := range ids {
		ids[i] = idMap.Column(id)
	}
	return ids
}

func remapKeys(keys []string, idMap IDMap) []string {
	for i, key := range keys {
		ref := DecodeKey(key)
		if ref.Legacy() {
			keys[i] = idMap.Group(ref.GroupID)
			continue
		}
		keys[i] = EncodeKey(idMap.Group(ref.GroupID), idMap.Column(ref.ColumnID))
	}
	return keys
}
