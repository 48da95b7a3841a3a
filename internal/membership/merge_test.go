package membership

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/agentic-research/eraload/internal/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collections(t *testing.T, tbl *Table) map[string][]string {
	t.Helper()
	out := make(map[string][]string)
	for _, e := range tbl.Entries() {
		out[e.Item] = e.Collections()
	}
	return out
}

func TestMerge_Scenario(t *testing.T) {
	target := New("T", []Entry{
		{Item: "A", Owner: "c1", Additional: []string{"c2"}},
		{Item: "B", Owner: "c3"},
	})
	prev := New("P", []Entry{
		{Item: "B", Owner: "c4"},
		{Item: "C", Owner: "c5"},
	})

	merged := target.Merge(prev)
	assert.Equal(t, map[string][]string{
		"A": {"c1", "c2"},
		"B": {"c4", "c3"},
	}, collections(t, merged))
	assert.Equal(t, "Merged(T,P)", merged.Label())

	b, _ := merged.Get("B")
	assert.Equal(t, "c4", b.Owner, "owner comes from the oldest period")
}

func TestMerge_NoPrevious(t *testing.T) {
	target := New("T", []Entry{
		{Item: "A", Owner: "c1", Additional: []string{"c2", "c3"}},
		{Item: "B", Owner: "c3"},
	})
	merged := target.Merge(nil)
	assert.Equal(t, map[string][]string{"A": {"c1", "c2", "c3"}}, collections(t, merged))
	assert.Equal(t, "Merged(T,nil)", merged.Label())
}

func TestMerge_MultiInBoth(t *testing.T) {
	target := New("T", []Entry{{Item: "A", Owner: "c2", Additional: []string{"c3"}}})
	prev := New("P", []Entry{{Item: "A", Owner: "c0", Additional: []string{"c1"}}})
	merged := target.Merge(prev)
	assert.Equal(t, map[string][]string{"A": {"c0", "c1", "c2", "c3"}}, collections(t, merged))
}

func TestMerge_KeepsRepeatedCollections(t *testing.T) {
	target := New("T", []Entry{{Item: "A", Owner: "c1"}})
	prev := New("P", []Entry{{Item: "A", Owner: "c1"}})

	merged := target.Merge(prev)
	assert.Equal(t, map[string][]string{"A": {"c1", "c1"}}, collections(t, merged))

	err := merged.Validate()
	assert.ErrorIs(t, err, faults.ErrInvariant)
	var inv *faults.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "A", inv.ID)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	target := New("T", []Entry{{Item: "A", Owner: "c1", Additional: []string{"c2"}}})
	prev := New("P", []Entry{{Item: "A", Owner: "c0", Additional: []string{"x"}}})
	_ = target.Merge(prev)

	a, _ := target.Get("A")
	assert.Equal(t, []string{"c1", "c2"}, a.Collections())
	p, _ := prev.Get("A")
	assert.Equal(t, []string{"c0", "x"}, p.Collections())
}

func TestExclude(t *testing.T) {
	target := New("T", []Entry{
		{Item: "A", Owner: "c1", Additional: []string{"c2"}},
		{Item: "B", Owner: "c3"},
		{Item: "D", Owner: "c6"},
	})
	prev := New("P", []Entry{{Item: "B", Owner: "c4"}})
	merged := target.Merge(prev)

	rest := target.Exclude(merged)
	assert.Equal(t, map[string][]string{"D": {"c6"}}, collections(t, rest))
	assert.Equal(t, "ExcludeFrom(T,Merged(T,P))", rest.Label())

	all := target.Exclude(nil)
	assert.Equal(t, 3, all.Len())
}

func TestWriteCSV(t *testing.T) {
	tbl := New("T", []Entry{
		{Item: "123/9", Owner: "123/4"},
		{Item: "123/10", Owner: "123/1", Additional: []string{"123/2"}},
	})
	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(context.Background(), &buf, nil))
	assert.Equal(t, `item_hdl,col_hdls
"123/10","123/1||123/2"
"123/9","123/4"
`, buf.String())
}

type fakeEnricher struct{ fail bool }

func (f fakeEnricher) Headers() []string { return []string{"rmid", "item_name"} }

func (f fakeEnricher) Fields(_ context.Context, e Entry) ([]string, error) {
	if f.fail {
		return nil, errors.New("db down")
	}
	return []string{"RM" + e.Item, `Say "hi"`}, nil
}

func TestWriteCSV_Enriched(t *testing.T) {
	tbl := New("T", []Entry{{Item: "1", Owner: "2"}})

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(context.Background(), &buf, fakeEnricher{}))
	assert.Equal(t, "item_hdl,col_hdls,rmid,item_name\n\"1\",\"2\",\"RM1\",\"Say \"\"hi\"\"\"\n", buf.String())

	buf.Reset()
	err := tbl.WriteCSV(context.Background(), &buf, fakeEnricher{fail: true})
	assert.ErrorContains(t, err, "db down")
}

// failingEnricher resolves the first ok entries and then reports a missing
// handle.
type failingEnricher struct {
	ok    int
	calls int
}

func (f *failingEnricher) Headers() []string { return []string{"rmid"} }

func (f *failingEnricher) Fields(_ context.Context, e Entry) ([]string, error) {
	f.calls++
	if f.calls > f.ok {
		return nil, &faults.ReferenceError{Kind: "collection handle", Key: e.Owner}
	}
	return []string{"RM" + e.Item}, nil
}

type countingWriter struct{ n int }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}

func TestWriteCSV_FailedLookupWritesNothing(t *testing.T) {
	entries := make([]Entry, 0, 500)
	for i := 0; i < 500; i++ {
		entries = append(entries, Entry{
			Item:       fmt.Sprintf("123/%05d", i),
			Owner:      fmt.Sprintf("123/9%04d", i),
			Additional: []string{"123/1"},
		})
	}
	tbl := New("T", entries)

	enrich := &failingEnricher{ok: 400}
	var w countingWriter
	err := tbl.WriteCSV(context.Background(), &w, enrich)
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrReference)
	assert.Contains(t, err.Error(), "123/00400")
	assert.Equal(t, 401, enrich.calls)
	assert.Zero(t, w.n, "no rows reach the writer when a lookup fails")

	data, err := tbl.RenderCSV(context.Background(), &failingEnricher{ok: 500})
	require.NoError(t, err)
	w = countingWriter{}
	require.NoError(t, tbl.WriteCSV(context.Background(), &w, &failingEnricher{ok: 500}))
	assert.Equal(t, len(data), w.n)
}
