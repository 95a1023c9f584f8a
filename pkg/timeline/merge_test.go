package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(raws ...string) []Entry {
	out := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		out = append(out, MustEntry(raw))
	}
	return out
}

func ids(es []Entry) []int64 {
	out := make([]int64, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}

func byID(es []Entry) map[int64]string {
	out := make(map[int64]string, len(es))
	for _, e := range es {
		out[e.ID] = e.Get("text").String()
	}
	return out
}

func TestMergeScenario(t *testing.T) {
	existing := entries(`{"id":1,"text":"a"}`, `{"id":2,"text":"b"}`)
	incoming := entries(`{"id":2,"text":"b-updated"}`, `{"id":3,"text":"c"}`)

	merged := Merge(existing, incoming)

	assert.Equal(t, map[int64]string{1: "a", 2: "b-updated", 3: "c"}, byID(merged))
	assert.Equal(t, []int64{1, 2, 3}, ids(merged))
}

func TestMergeIsIdempotent(t *testing.T) {
	tl := entries(`{"id":5,"text":"x"}`, `{"id":9,"user":{"b":1,"a":2}}`, `{"id":1}`)

	merged := Merge(tl, tl)

	require.Len(t, merged, len(tl))
	for i := range tl {
		assert.True(t, tl[i].Equal(merged[i]), "entry %d changed", i)
	}
}

func TestMergeIsUnionOnID(t *testing.T) {
	a := entries(`{"id":1}`, `{"id":4}`, `{"id":6}`)
	b := entries(`{"id":4}`, `{"id":2}`, `{"id":6}`, `{"id":7}`)

	merged := Merge(a, b)

	assert.ElementsMatch(t, []int64{1, 2, 4, 6, 7}, ids(merged))
}

func TestMergeLastWriteWins(t *testing.T) {
	a := entries(`{"id":7,"text":"old","likes":1}`)
	b := entries(`{"id":7,"text":"new"}`)

	merged := Merge(a, b)

	require.Len(t, merged, 1)
	assert.Equal(t, "new", merged[0].Get("text").String())
	// whole payload is replaced, not deep-merged
	assert.False(t, merged[0].Get("likes").Exists())
}

func TestMergePreferExisting(t *testing.T) {
	a := entries(`{"id":7,"text":"old"}`)
	b := entries(`{"id":7,"text":"new"}`, `{"id":8,"text":"fresh"}`)

	merged := MergeWith(PreferExisting, a, b)

	assert.Equal(t, map[int64]string{7: "old", 8: "fresh"}, byID(merged))
}

func TestMergeCollapsesDuplicatesWithinInput(t *testing.T) {
	incoming := entries(`{"id":3,"text":"page1"}`, `{"id":3,"text":"page2"}`)

	merged := Merge(nil, incoming)

	require.Len(t, merged, 1)
	assert.Equal(t, "page2", merged[0].Get("text").String())
}

func TestMergeIsDeterministic(t *testing.T) {
	a := entries(`{"id":10}`, `{"id":3}`, `{"id":8}`)
	b := entries(`{"id":1}`, `{"id":8}`, `{"id":20}`)

	first := Merge(a, b)
	for i := 0; i < 20; i++ {
		assert.Equal(t, ids(first), ids(Merge(a, b)))
	}
	assert.Equal(t, []int64{10, 3, 8, 1, 20}, ids(first))
}

func TestMergeEmptyInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))
	assert.Equal(t, []int64{1}, ids(Merge(nil, entries(`{"id":1}`))))
	assert.Equal(t, []int64{1}, ids(Merge(entries(`{"id":1}`), nil)))
}

func TestNewIDs(t *testing.T) {
	existing := entries(`{"id":1}`, `{"id":2}`)
	incoming := entries(`{"id":2}`, `{"id":3}`, `{"id":3}`, `{"id":4}`)

	assert.Equal(t, []int64{3, 4}, NewIDs(existing, incoming))
	assert.Empty(t, NewIDs(existing, existing))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PreferIncoming, p)

	p, err = ParsePolicy("existing")
	require.NoError(t, err)
	assert.Equal(t, PreferExisting, p)

	p, err = ParsePolicy("Existing")
	require.NoError(t, err)
	assert.Equal(t, PreferExisting, p)

	p, err = ParsePolicy(" INCOMING ")
	require.NoError(t, err)
	assert.Equal(t, PreferIncoming, p)

	_, err = ParsePolicy("newest")
	assert.Error(t, err)
}
