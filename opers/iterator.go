package opers

import (
	"github.com/rbramwell/crate/expr"
)

// RowIterator produces output rows lazily, one group table entry per Next
// call. Aggregates are finished at pull time so untouched entries cost
// nothing. The iterator is not restartable and is not safe for concurrent
// use.
type RowIterator struct {
	entries []*groupEntry
	base    *grouperBase
	pos     int
}

func newRowIterator(entries []*groupEntry, base *grouperBase) *RowIterator {
	return &RowIterator{entries: entries, base: base}
}

func (r *RowIterator) Next() (bool, expr.Row, error) {
	if r.pos == -1 || r.pos >= len(r.entries) {
		r.pos = -1
		return false, nil, nil
	}
	row, err := r.base.transformToRow(r.entries[r.pos])
	if err != nil {
		r.pos = -1
		return false, nil, err
	}
	r.pos++
	return true, row, nil
}
