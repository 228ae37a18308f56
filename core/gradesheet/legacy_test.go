package gradesheet

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data, err := json.Marshal(sample())
	require.NoError(t, err)

	s, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, sample(), s)

	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ``},
		{name: "null", data: `null`},
		{name: "array", data: `[{"name": "Quiz", "maxScore": 3}]`},
		{name: "string", data: `"groups"`},
		{name: "no groups", data: `{"settings": {}}`},
		{name: "groups not an array", data: `{"groups": {}}`},
		{name: "null groups", data: `{"groups": null}`},
		{name: "group without id", data: `{"groups": [{"name": "A", "columns": []}]}`},
		{name: "column without id", data: `{"groups": [{"id": "A", "columns": [{"kind": "score"}]}]}`},
		{name: "column without kind", data: `{"groups": [{"id": "A", "columns": [{"id": "a1"}]}]}`},
		{name: "unknown kind", data: `{"groups": [{"id": "A", "columns": [{"id": "a1", "kind": "weird"}]}]}`},
		{name: "separator in group id", data: `{"groups": [{"id": "A:1", "columns": []}]}`},
		{name: "separator in column id", data: `{"groups": [{"id": "A", "columns": [{"id": "a:1", "kind": "score"}]}]}`},
		{name: "wrong type", data: `{"groups": [{"id": "A", "columns": [{"id": "a1", "kind": "score", "maxScore": "10"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Equal(t, ErrMalformedStructure, errors.Cause(err))
		})
	}
}

func TestParse_empty(t *testing.T) {
	s, err := Parse([]byte(`{"groups": []}`))
	require.NoError(t, err)
	assert.Empty(t, s.Groups)
	assert.Equal(t, Settings{}, s.Settings)
}

func TestFromLegacy(t *testing.T) {
	cols := []LegacyColumn{{Name: "Quiz", MaxScore: 3}, {Name: "Exam", MaxScore: 4}}

	s, err := FromLegacy(cols, &SequentialIDGenerator{Prefix: "l"})
	require.NoError(t, err)
	assert.Equal(t, Structure{Groups: []Group{{
		ID:    "l1",
		Name:  "Grades",
		Color: Palette[0],
		Columns: []Column{
			{ID: "l2", Name: "Quiz", MaxScore: 3, Kind: KindScore},
			{ID: "l3", Name: "Exam", MaxScore: 4, Kind: KindScore},
		},
	}}}, s)

	// a legacy reference to the upgraded group resolves to the sum of its scores
	s.Groups = append(s.Groups, group("B", groupSum("b-sum", "l1")))
	assert.Equal(t, 7.0, Resolve(s, "b-sum"))
}

func TestDecode(t *testing.T) {
	structured, err := json.Marshal(sample())
	require.NoError(t, err)
	legacy := []byte(`[{"name": "Quiz", "maxScore": 3}]`)
	ids := func() IDGenerator { return &SequentialIDGenerator{Prefix: "l"} }

	tests := []struct {
		name       string
		structured []byte
		legacy     []byte
		wantGroup  string
		wantErr    error
	}{
		{name: "structured", structured: structured, wantGroup: "A"},
		{name: "structured wins over legacy", structured: structured, legacy: legacy, wantGroup: "A"},
		{name: "legacy only", legacy: legacy, wantGroup: "l1"},
		{name: "malformed structure falls back", structured: []byte(`{"groups": 1}`), legacy: legacy, wantGroup: "l1"},
		{name: "malformed structure", structured: []byte(`{"groups": 1}`), wantErr: ErrMalformedStructure},
		{name: "malformed legacy", legacy: []byte(`{}`), wantErr: ErrMalformedStructure},
		{name: "nothing stored", wantErr: ErrMalformedStructure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode(tt.structured, tt.legacy, ids())
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGroup, s.Groups[0].ID)
		})
	}
}

func TestKind_UnmarshalText(t *testing.T) {
	for _, kind := range AllKinds {
		var k Kind
		require.NoError(t, k.UnmarshalText([]byte(kind)))
		assert.Equal(t, kind, k)
	}

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("Score")))
	assert.Equal(t, Kind(""), k)
}
