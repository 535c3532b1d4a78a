package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func collect(key, raw string) []string {
	var out []string
	for v := range Values(key, gjson.Parse(raw)) {
		out = append(out, v.Raw)
	}
	return out
}

func TestValues_AbsentKey(t *testing.T) {
	docs := []string{
		`{}`,
		`{"a": 1, "b": "x", "c": true, "d": null}`,
		`{"a": {"b": [{"c": {"d": 1}}, 2, "three"]}}`,
		`[{"target": 1}]`,
		`"target"`,
		``,
	}
	for _, raw := range docs {
		assert.Empty(t, collect("target", raw), "doc %q", raw)
	}
}

func TestValues_AllDepths(t *testing.T) {
	raw := `{
		"target": 0,
		"one": {"target": 1},
		"deep": {"l1": {"l2": [{"l3": {"l4": {"target": 5}}}]}}
	}`
	assert.Equal(t, []string{"0", "1", "5"}, collect("target", raw))
}

func TestValues_DocumentOrder(t *testing.T) {
	raw := `{
		"z": {"k": "first"},
		"a": [{"k": "second"}, {"x": {"k": "third"}}],
		"k": "fourth",
		"m": {"k": "fifth"}
	}`
	assert.Equal(t, []string{`"first"`, `"second"`, `"third"`, `"fourth"`, `"fifth"`}, collect("k", raw))
}

func TestValues_MatchIsStillSearched(t *testing.T) {
	raw := `{"k": {"id": 1, "inner": {"k": {"id": 2}}}}`

	got := collect("k", raw)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), gjson.Get(got[0], "id").Int())
	assert.Equal(t, `{"id": 2}`, got[1])
}

func TestValues_SkipsArraysOfArrays(t *testing.T) {
	raw := `{"rows": [[{"k": "hidden"}], {"k": "visible"}]}`
	assert.Equal(t, []string{`"visible"`}, collect("k", raw))
}

func TestValues_HeterogeneousValues(t *testing.T) {
	raw := `{"list": [1, "two", false, null, {"k": 3.5}, [4]], "n": 7, "k": [1, 2]}`
	assert.Equal(t, []string{"3.5", "[1, 2]"}, collect("k", raw))
}

func TestValues_StopsOnBreak(t *testing.T) {
	raw := `{"a": {"k": 1}, "b": [{"k": 2}, {"k": 3}], "k": 4}`

	var seen []int64
	for v := range Values("k", gjson.Parse(raw)) {
		seen = append(seen, v.Int())
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []int64{1, 2}, seen)
}

func TestFirstAndCount(t *testing.T) {
	doc := gjson.Parse(`{"a": [{"k": "x"}, {"k": "y"}], "k": "z"}`)

	v, ok := First("k", doc)
	require.True(t, ok)
	assert.Equal(t, "x", v.String())
	assert.Equal(t, 3, Count("k", doc))

	_, ok = First("missing", doc)
	assert.False(t, ok)
	assert.Zero(t, Count("missing", doc))
}
