package membership

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// universe interns the item identifiers of one or more tables in sorted
// order, so bitmap iteration yields items sorted by identifier.
type universe struct {
	ids   []string
	index map[string]uint32
}

func newUniverse(tables ...*Table) *universe {
	u := &universe{index: make(map[string]uint32)}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for item := range t.entries {
			if _, ok := u.index[item]; !ok {
				u.index[item] = 0
				u.ids = append(u.ids, item)
			}
		}
	}
	sort.Strings(u.ids)
	for i, id := range u.ids {
		u.index[id] = uint32(i)
	}
	return u
}

// bitmap returns the set of items in t whose entry satisfies keep.
func (u *universe) bitmap(t *Table, keep func(Entry) bool) *roaring.Bitmap {
	bm := roaring.New()
	if t == nil {
		return bm
	}
	for item, e := range t.entries {
		if keep(e) {
			bm.Add(u.index[item])
		}
	}
	return bm
}

func anyEntry(Entry) bool { return true }

// Merge combines this (target period) table with prev, the table of all
// earlier periods, which may be nil.
//
// An item of the target table is selected when it already belongs to more
// than one collection in the target period, or when it belongs to exactly
// one and prev also lists it. Each selected item maps to prev's list
// followed by the target's list. The lists are concatenated as-is: both
// sources are expected to list the owning collection first, and a
// collection present in both periods appears twice. Items that are not
// selected are left out.
func (t *Table) Merge(prev *Table) *Table {
	u := newUniverse(t, prev)

	selected := u.bitmap(t, func(e Entry) bool { return e.Len() > 1 })
	if prev != nil {
		single := u.bitmap(t, func(e Entry) bool { return e.Len() == 1 })
		single.And(u.bitmap(prev, anyEntry))
		selected.Or(single)
	}

	prevLabel := "nil"
	if prev != nil {
		prevLabel = prev.label
	}
	merged := &Table{
		label:   fmt.Sprintf("Merged(%s,%s)", t.label, prevLabel),
		entries: make(map[string]Entry, selected.GetCardinality()),
	}
	it := selected.Iterator()
	for it.HasNext() {
		item := u.ids[it.Next()]
		cur := t.entries[item]
		old, ok := prev.Get(item)
		if !ok {
			merged.entries[item] = Entry{Item: item, Owner: cur.Owner, Additional: cloneStrings(cur.Additional)}
			continue
		}
		additional := make([]string, 0, len(old.Additional)+cur.Len())
		additional = append(additional, old.Additional...)
		additional = append(additional, cur.Collections()...)
		merged.entries[item] = Entry{Item: item, Owner: old.Owner, Additional: additional}
	}
	return merged
}

// Exclude returns the items of t that do not appear in other.
func (t *Table) Exclude(other *Table) *Table {
	u := newUniverse(t, other)
	keep := u.bitmap(t, anyEntry)
	keep.AndNot(u.bitmap(other, anyEntry))

	otherLabel := "nil"
	if other != nil {
		otherLabel = other.label
	}
	out := &Table{
		label:   fmt.Sprintf("ExcludeFrom(%s,%s)", t.label, otherLabel),
		entries: make(map[string]Entry, keep.GetCardinality()),
	}
	it := keep.Iterator()
	for it.HasNext() {
		item := u.ids[it.Next()]
		e := t.entries[item]
		out.entries[item] = Entry{Item: item, Owner: e.Owner, Additional: cloneStrings(e.Additional)}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
