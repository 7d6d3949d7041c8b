package opers

import (
	"math"
	"testing"

	"github.com/rbramwell/crate/aggregation"
	"github.com/rbramwell/crate/breaker"
	"github.com/rbramwell/crate/expr"
	"github.com/rbramwell/crate/types"
	"github.com/stretchr/testify/require"
)

func TestSingleAndManyKeyGroupersEquivalent(t *testing.T) {
	rows := []expr.Row{
		{"a", int64(1)},
		{"b", int64(2)},
		{"a", int64(3)},
		{"c", int64(4)},
		{"b", int64(5)},
	}
	single := createTestGrouper(t, true)
	many := createTestGrouper(t, false)
	for _, row := range rows {
		_, err := single.setNextRow(row)
		require.NoError(t, err)
		_, err = many.setNextRow(row)
		require.NoError(t, err)
	}
	singleRows, err := single.finish()
	require.NoError(t, err)
	manyRows, err := many.finish()
	require.NoError(t, err)
	require.Equal(t, sortedRows(singleRows), sortedRows(manyRows))
}

// createTestGrouper builds a grouper over a single string key column with a
// sum aggregate, forcing the composite key path when single is false.
func createTestGrouper(t *testing.T, single bool) grouper {
	t.Helper()
	keyExpr := expr.NewColumnExpression(0, types.ColumnTypeString)
	aggExpr := expr.NewColumnExpression(1, types.ColumnTypeInt)
	collectExpressions := []expr.CollectExpression{keyExpr, aggExpr}
	sumFunc, ok := aggregation.GetAggFunc("sum")
	require.True(t, ok)
	collectors := []*aggregation.Collector{aggregation.NewCollector(sumFunc, aggExpr)}
	p := &GroupingProjector{
		collectExpressions: collectExpressions,
		ram:                breaker.NewRamAccounting(breaker.NewBreaker("test", 0)),
	}
	var gr grouper
	var err error
	if single {
		gr, err = newSingleKeyGrouper(p, keyExpr, types.ColumnTypeString, collectExpressions, collectors)
	} else {
		gr, err = newManyKeyGrouper(p, []expr.Input{keyExpr}, []types.ColumnType{types.ColumnTypeString},
			collectExpressions, collectors)
	}
	require.NoError(t, err)
	return gr
}

func TestFloatNaNKeysFormOneGroup(t *testing.T) {
	for _, single := range []bool{true, false} {
		gr, ram := createCountGrouper(t, types.ColumnTypeFloat, single)
		_, err := gr.setNextRow(expr.Row{math.NaN(), int64(1)})
		require.NoError(t, err)
		afterFirst := ram.TotalBytes()

		// a repeated NaN key is the same group and must not charge again
		_, err = gr.setNextRow(expr.Row{math.NaN(), int64(1)})
		require.NoError(t, err)
		require.Equal(t, afterFirst, ram.TotalBytes())

		_, err = gr.setNextRow(expr.Row{1.5, int64(1)})
		require.NoError(t, err)
		rows, err := gr.finish()
		require.NoError(t, err)
		require.Equal(t, 2, len(rows))
		counts := map[bool]int64{}
		for _, row := range rows {
			counts[math.IsNaN(row[0].(float64))] = row[1].(int64)
		}
		require.Equal(t, int64(2), counts[true])
		require.Equal(t, int64(1), counts[false])
	}
}

func TestFloatNegativeZeroKeyDistinct(t *testing.T) {
	negZero := math.Copysign(0, -1)
	for _, single := range []bool{true, false} {
		gr, _ := createCountGrouper(t, types.ColumnTypeFloat, single)
		_, err := gr.setNextRow(expr.Row{0.0, int64(1)})
		require.NoError(t, err)
		_, err = gr.setNextRow(expr.Row{negZero, int64(1)})
		require.NoError(t, err)
		rows, err := gr.finish()
		require.NoError(t, err)
		require.Equal(t, 2, len(rows))
	}
}

func createCountGrouper(t *testing.T, keyType types.ColumnType, single bool) (grouper, *breaker.RamAccounting) {
	t.Helper()
	keyExpr := expr.NewColumnExpression(0, keyType)
	aggExpr := expr.NewColumnExpression(1, types.ColumnTypeInt)
	collectExpressions := []expr.CollectExpression{keyExpr, aggExpr}
	countFunc, ok := aggregation.GetAggFunc("count")
	require.True(t, ok)
	collectors := []*aggregation.Collector{aggregation.NewCollector(countFunc, aggExpr)}
	ram := breaker.NewRamAccounting(breaker.NewBreaker("test", 0))
	p := &GroupingProjector{collectExpressions: collectExpressions, ram: ram}
	var gr grouper
	var err error
	if single {
		gr, err = newSingleKeyGrouper(p, keyExpr, keyType, collectExpressions, collectors)
	} else {
		gr, err = newManyKeyGrouper(p, []expr.Input{keyExpr}, []types.ColumnType{keyType},
			collectExpressions, collectors)
	}
	require.NoError(t, err)
	return gr, ram
}

func TestEncodeKeyInjective(t *testing.T) {
	stringPair := []types.ColumnType{types.ColumnTypeString, types.ColumnTypeString}

	// adjacent variable width values must not run together
	key1, err := encodeKey([]any{"ab", "c"}, stringPair)
	require.NoError(t, err)
	key2, err := encodeKey([]any{"a", "bc"}, stringPair)
	require.NoError(t, err)
	require.NotEqual(t, key1, key2)

	// null is distinct from the empty string
	key1, err = encodeKey([]any{nil, "x"}, stringPair)
	require.NoError(t, err)
	key2, err = encodeKey([]any{"", "x"}, stringPair)
	require.NoError(t, err)
	require.NotEqual(t, key1, key2)

	// equal tuples encode identically
	key1, err = encodeKey([]any{"ab", "c"}, stringPair)
	require.NoError(t, err)
	key2, err = encodeKey([]any{"ab", "c"}, stringPair)
	require.NoError(t, err)
	require.Equal(t, key1, key2)
}

func TestEncodeKeyAllTypes(t *testing.T) {
	keyTypes := []types.ColumnType{
		types.ColumnTypeInt,
		types.ColumnTypeFloat,
		types.ColumnTypeBool,
		types.ColumnTypeString,
		types.ColumnTypeBytes,
		types.ColumnTypeTimestamp,
		&types.DecimalType{Precision: 10, Scale: 2},
	}
	dec, err := types.NewDecimalFromString("123.45", 10, 2)
	require.NoError(t, err)
	keyVals := []any{int64(7), 1.5, true, "s", []byte{1, 2}, types.NewTimestamp(1000), dec}
	key1, err := encodeKey(keyVals, keyTypes)
	require.NoError(t, err)
	key2, err := encodeKey(keyVals, keyTypes)
	require.NoError(t, err)
	require.Equal(t, key1, key2)

	keyVals[0] = int64(8)
	key3, err := encodeKey(keyVals, keyTypes)
	require.NoError(t, err)
	require.NotEqual(t, key1, key3)
}

func TestManyKeyChargeIncludesAllElements(t *testing.T) {
	keyExpr1 := expr.NewColumnExpression(0, types.ColumnTypeString)
	keyExpr2 := expr.NewColumnExpression(1, types.ColumnTypeInt)
	aggExpr := expr.NewColumnExpression(2, types.ColumnTypeInt)
	collectExpressions := []expr.CollectExpression{keyExpr1, keyExpr2, aggExpr}
	countFunc, ok := aggregation.GetAggFunc("count")
	require.True(t, ok)
	collectors := []*aggregation.Collector{aggregation.NewCollector(countFunc, aggExpr)}
	ram := breaker.NewRamAccounting(breaker.NewBreaker("test", 0))
	p := &GroupingProjector{collectExpressions: collectExpressions, ram: ram}
	gr, err := newManyKeyGrouper(p, []expr.Input{keyExpr1, keyExpr2},
		[]types.ColumnType{types.ColumnTypeString, types.ColumnTypeInt}, collectExpressions, collectors)
	require.NoError(t, err)
	require.Equal(t, int64(tableOverheadBytes), ram.TotalBytes())

	_, err = gr.setNextRow(expr.Row{"abc", int64(1), int64(1)})
	require.NoError(t, err)
	// tuple and entry overhead, plus string (header + 3) and int estimates
	// with one element overhead each
	expected := int64(tableOverheadBytes + tupleOverheadBytes + entryOverheadBytes +
		(16 + 3 + tupleElementOverheadBytes) + (8 + tupleElementOverheadBytes))
	require.Equal(t, expected, ram.TotalBytes())

	// same key tuple charges nothing further
	_, err = gr.setNextRow(expr.Row{"abc", int64(1), int64(2)})
	require.NoError(t, err)
	require.Equal(t, expected, ram.TotalBytes())
}

func TestSingleKeyBytesKeysCompareByContent(t *testing.T) {
	keyExpr := expr.NewColumnExpression(0, types.ColumnTypeBytes)
	aggExpr := expr.NewColumnExpression(1, types.ColumnTypeInt)
	collectExpressions := []expr.CollectExpression{keyExpr, aggExpr}
	countFunc, ok := aggregation.GetAggFunc("count")
	require.True(t, ok)
	collectors := []*aggregation.Collector{aggregation.NewCollector(countFunc, aggExpr)}
	p := &GroupingProjector{
		collectExpressions: collectExpressions,
		ram:                breaker.NewRamAccounting(breaker.NewBreaker("test", 0)),
	}
	gr, err := newSingleKeyGrouper(p, keyExpr, types.ColumnTypeBytes, collectExpressions, collectors)
	require.NoError(t, err)

	// distinct slices with equal content are the same key
	_, err = gr.setNextRow(expr.Row{[]byte{1, 2, 3}, int64(1)})
	require.NoError(t, err)
	_, err = gr.setNextRow(expr.Row{[]byte{1, 2, 3}, int64(1)})
	require.NoError(t, err)
	rows, err := gr.finish()
	require.NoError(t, err)
	require.Equal(t, 1, len(rows))
	require.Equal(t, []byte{1, 2, 3}, rows[0][0])
	require.Equal(t, int64(2), rows[0][1])
}
