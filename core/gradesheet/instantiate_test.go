package gradesheet

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantiate_preservesValues(t *testing.T) {
	stored := sample()
	stored.Settings = Settings{ShowGrandTotal: true, PassingScore: 20}

	out, idMap, err := Instantiate(stored)
	require.NoError(t, err)

	assert.Equal(t, stored.Settings, out.Settings)
	want := NewResolver(stored).Totals()
	got := NewResolver(out).Totals()
	require.Len(t, got, len(want))
	for oldID, value := range want {
		newID := idMap.Column(oldID)
		assert.NotEqual(t, oldID, newID)
		assert.Equal(t, value, got[newID], "column %s", oldID)
	}

	// the stored structure is left untouched
	assert.Equal(t, sample().Groups, stored.Groups)
}

func TestInstantiate_freshIDs(t *testing.T) {
	stored := sample()
	in := NewInstantiator(&SequentialIDGenerator{Prefix: "n"})

	first, _, err := in.Instantiate(stored)
	require.NoError(t, err)
	second, _, err := in.Instantiate(stored)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, s := range []Structure{stored, first, second} {
		for _, grp := range s.Groups {
			assert.False(t, seen[grp.ID], "group id %q reused", grp.ID)
			seen[grp.ID] = true
			for _, col := range grp.Columns {
				assert.False(t, seen[col.ID], "column id %q reused", col.ID)
				seen[col.ID] = true
			}
		}
	}
	assert.Equal(t, 35.0, Resolve(first, first.Groups[1].Columns[2].ID))
	assert.Equal(t, 35.0, Resolve(second, second.Groups[1].Columns[2].ID))
}

func TestInstantiate_references(t *testing.T) {
	stored := structure(
		group("A", score("a1", 3), score("a2", 4)),
		group("B",
			score("b1", 1),
			internalSum("b-int", "b1", "gone"),
			externalSum("b-ext", "A:a1", "X:y"),
			groupSum("b-sum", "A", "A:a2"),
			grandTotal("b-grand", []string{"b1"}, "A"),
		),
	)
	ids := &SequentialIDGenerator{Prefix: "n"}

	out, idMap, err := NewInstantiator(ids).Instantiate(stored)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"A": "n1", "B": "n4"}, idMap.Groups)
	assert.Equal(t, "n2", idMap.Column("a1"))
	assert.Equal(t, "gone", idMap.Column("gone"))
	assert.Equal(t, "X", idMap.Group("X"))

	cols := out.Groups[1].Columns
	assert.Equal(t, []string{"n5", "gone"}, cols[1].InternalSourceColumnIDs)
	assert.Equal(t, []string{"n1:n2", "X:y"}, cols[2].ExternalSourceKeys)
	assert.Equal(t, []string{"n1", "n1:n3"}, cols[3].GroupSourceKeys)
	assert.Equal(t, []string{"n5"}, cols[4].InternalSourceColumnIDs)
	assert.Equal(t, []string{"n1"}, cols[4].GroupSourceKeys)

	assert.True(t, DecodeKey(cols[3].GroupSourceKeys[0]).Legacy(), "legacy keys stay legacy")
	assert.Equal(t, Resolve(stored, "b-sum"), Resolve(out, idMap.Column("b-sum")))
	assert.Equal(t, 8.0, Resolve(out, idMap.Column("b-grand")))
}

func TestInstantiate_errors(t *testing.T) {
	t.Run("duplicate group ids", func(t *testing.T) {
		_, _, err := Instantiate(structure(group("A"), group("A")))
		assert.Equal(t, ErrDuplicateID, errors.Cause(err))
	})

	t.Run("duplicate column ids", func(t *testing.T) {
		_, _, err := Instantiate(structure(group("A", score("c", 1)), group("B", score("c", 2))))
		assert.Equal(t, ErrDuplicateID, errors.Cause(err))
	})

	t.Run("generator reuses a stored id", func(t *testing.T) {
		stale := IDGeneratorFunc(func() (string, error) { return "a1", nil })
		_, _, err := NewInstantiator(stale).Instantiate(sample())
		assert.Equal(t, ErrDuplicateID, errors.Cause(err))
	})

	t.Run("generator reuses a dangling id", func(t *testing.T) {
		s := structure(group("A", internalSum("x", "ghost")))
		ids := []string{"g", "ghost"}
		gen := IDGeneratorFunc(func() (string, error) {
			id := ids[0]
			ids = ids[1:]
			return id, nil
		})
		_, _, err := NewInstantiator(gen).Instantiate(s)
		assert.Equal(t, ErrDuplicateID, errors.Cause(err))
	})

	t.Run("generator fails", func(t *testing.T) {
		boom := errors.New("boom")
		_, _, err := NewInstantiator(IDGeneratorFunc(func() (string, error) { return "", boom })).Instantiate(sample())
		assert.Equal(t, boom, errors.Cause(err))
	})

	t.Run("empty structure", func(t *testing.T) {
		out, idMap, err := Instantiate(Structure{})
		require.NoError(t, err)
		assert.Empty(t, out.Groups)
		assert.Empty(t, idMap.Columns)
	})
}

func TestUUIDGenerator(t *testing.T) {
	a, err := UUIDGenerator{}.NewID()
	require.NoError(t, err)
	b, err := UUIDGenerator{}.NewID()
	require.NoError(t, err)
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

// mixedStructure mixes composite & legacy keys, dangling references and a legacy group whose
// total is a GroupInternalSum.
func mixedStructure() Structure {
	return structure(
		group("A", score("a1", 3), score("a2", 4), label("a-note"), internalSum("a-total", "a1", "a2", "ghost")),
		group("B", score("b1", 5), score("b2", 6)),
		group("C",
			score("c1", 1),
			internalSum("c-int", "c1", "a1"),
			externalSum("c-ext", "A:a2", "B:b1", "X:y", "A:gone", "B"),
			groupSum("c-sum", "A", "B", "B:b2", "Z"),
			grandTotal("c-grand", []string{"c1", "c-int"}, "A", "B:b1", "A:ghost"),
			Column{ID: "c-pct", Name: "c-pct", Kind: KindPercentage, MaxScore: 100},
		),
	)
}

func TestInstantiate_roundTripEveryColumn(t *testing.T) {
	stored := SyncDerivedScores(mixedStructure())

	out, idMap, err := NewInstantiator(&SequentialIDGenerator{Prefix: "n"}).Instantiate(stored)
	require.NoError(t, err)

	want := NewResolver(stored).Totals()
	got := NewResolver(out).Totals()
	require.Len(t, got, len(want))
	for _, oldID := range stored.ColumnIDs() {
		newID := idMap.Column(oldID)
		assert.NotEqual(t, oldID, newID)
		assert.Equal(t, want[oldID], got[newID], "column %s", oldID)
		assert.Equal(t, Resolve(stored, oldID), Resolve(out, newID), "column %s", oldID)
	}
	assertDerivedSynced(t, out)

	// dangling references are carried over as they were
	cols := out.Groups[2].Columns
	assert.Contains(t, cols[2].ExternalSourceKeys, "X:y")
	assert.Contains(t, cols[2].ExternalSourceKeys, idMap.Group("A")+":gone")
	assert.Contains(t, cols[3].GroupSourceKeys, "Z")
	assert.Contains(t, out.Groups[0].Columns[3].InternalSourceColumnIDs, "ghost")
}

func TestInstantiate_chained(t *testing.T) {
	stored := SyncDerivedScores(mixedStructure())
	in := NewInstantiator(&SequentialIDGenerator{Prefix: "n"})

	first, firstMap, err := in.Instantiate(stored)
	require.NoError(t, err)
	second, secondMap, err := in.Instantiate(first)
	require.NoError(t, err)

	ids := func(s Structure) map[string]bool {
		out := make(map[string]bool)
		for _, grp := range s.Groups {
			out[grp.ID] = true
			for _, col := range grp.Columns {
				out[col.ID] = true
			}
		}
		return out
	}
	storedIDs, firstIDs := ids(stored), ids(first)
	for id := range ids(second) {
		assert.False(t, storedIDs[id], "id %q shared with the stored structure", id)
		assert.False(t, firstIDs[id], "id %q shared with the first instantiation", id)
	}

	want := NewResolver(stored).Totals()
	got := NewResolver(second).Totals()
	require.Len(t, got, len(want))
	for _, oldID := range stored.ColumnIDs() {
		newID := secondMap.Column(firstMap.Column(oldID))
		assert.Equal(t, want[oldID], got[newID], "column %s", oldID)
	}
	assertDerivedSynced(t, second)
}

func TestInstantiate_staleScores(t *testing.T) {
	// derived max scores stored by older versions are refreshed
	stale := sample()
	stale.Groups[1].Columns[2].MaxScore = 1

	out, idMap, err := Instantiate(stale)
	require.NoError(t, err)
	col, _, ok := out.FindColumn(idMap.Column("b-grand"))
	require.True(t, ok)
	assert.Equal(t, 35.0, col.MaxScore)
	assertDerivedSynced(t, out)
}
