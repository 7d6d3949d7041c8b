package expr

import (
	"github.com/rbramwell/crate/types"
)

// Row is one tuple of column values flowing between pipeline stages.
// A row handed downstream must not be mutated afterwards.
type Row []any

// CollectExpression is re-evaluated once per accepted row, before any key or
// aggregate input is pulled, so that all Inputs observe consistent column
// bindings for that row.
type CollectExpression interface {
	StartCollect()
	SetNextRow(row Row)
}

// Input pulls one column's value as bound by the most recent row-scoped
// evaluation.
type Input interface {
	Value() any
	ResultType() types.ColumnType
}

// ColumnExpression binds a single column of the current row. It serves both
// as the row-scoped evaluator and as the Input that key extraction and
// aggregate functions read from.
type ColumnExpression struct {
	colIndex int
	colType  types.ColumnType
	value    any
}

func NewColumnExpression(colIndex int, colType types.ColumnType) *ColumnExpression {
	return &ColumnExpression{colIndex: colIndex, colType: colType}
}

func (c *ColumnExpression) StartCollect() {
	c.value = nil
}

func (c *ColumnExpression) SetNextRow(row Row) {
	if c.colIndex < len(row) {
		c.value = row[c.colIndex]
	} else {
		c.value = nil
	}
}

func (c *ColumnExpression) Value() any {
	return c.value
}

func (c *ColumnExpression) ResultType() types.ColumnType {
	return c.colType
}
