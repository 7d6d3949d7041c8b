package aggregation

import (
	"bytes"
	"strings"

	"github.com/rbramwell/crate/breaker"
	"github.com/rbramwell/crate/errors"
	"github.com/rbramwell/crate/types"
)

// AggFunc computes one aggregate over the values of a group. State is an
// opaque accumulator owned by the caller; Update returns the new state so
// value-typed accumulators work without indirection.
type AggFunc interface {
	InitState(ram *breaker.RamAccounting) any
	Update(state any, val any) (any, error)
	Finish(state any) (any, error)
	ReturnTypeForExpressionType(t types.ColumnType) types.ColumnType
}

var aggFuncsMap = map[string]AggFunc{
	"count": caf,
	"sum":   saf,
	"min":   minAgg,
	"max":   maxAgg,
	"avg":   avgAgg,
}

var caf = &CountAggFunc{}
var saf = &SumAggFunc{}
var minAgg = &MinAggFunc{}
var maxAgg = &MaxAggFunc{}
var avgAgg = &AvgAggFunc{}

func GetAggFunc(name string) (AggFunc, bool) {
	aggFunc, ok := aggFuncsMap[name]
	return aggFunc, ok
}

type CountAggFunc struct {
}

func (c CountAggFunc) InitState(_ *breaker.RamAccounting) any {
	return int64(0)
}

func (c CountAggFunc) Update(state any, _ any) (any, error) {
	return state.(int64) + 1, nil
}

func (c CountAggFunc) Finish(state any) (any, error) {
	return state, nil
}

func (c CountAggFunc) ReturnTypeForExpressionType(types.ColumnType) types.ColumnType {
	return types.ColumnTypeInt
}

type SumAggFunc struct {
}

func (s SumAggFunc) InitState(_ *breaker.RamAccounting) any {
	return nil
}

func (s SumAggFunc) Update(state any, val any) (any, error) {
	switch v := val.(type) {
	case int64:
		var sum int64
		if state != nil {
			sum = state.(int64)
		}
		return sum + v, nil
	case float64:
		var sum float64
		if state != nil {
			sum = state.(float64)
		}
		return sum + v, nil
	case types.Decimal:
		if state == nil {
			return v, nil
		}
		sum := state.(types.Decimal)
		return sum.Add(&v)
	default:
		return nil, errors.Errorf("cannot sum values of type %T", val)
	}
}

func (s SumAggFunc) Finish(state any) (any, error) {
	return state, nil
}

func (s SumAggFunc) ReturnTypeForExpressionType(t types.ColumnType) types.ColumnType {
	return t
}

type MinAggFunc struct {
}

func (m MinAggFunc) InitState(_ *breaker.RamAccounting) any {
	return nil
}

func (m MinAggFunc) Update(state any, val any) (any, error) {
	if state == nil {
		return val, nil
	}
	less, err := compareValues(val, state)
	if err != nil {
		return nil, err
	}
	if less {
		return val, nil
	}
	return state, nil
}

func (m MinAggFunc) Finish(state any) (any, error) {
	return state, nil
}

func (m MinAggFunc) ReturnTypeForExpressionType(t types.ColumnType) types.ColumnType {
	return t
}

type MaxAggFunc struct {
}

func (m MaxAggFunc) InitState(_ *breaker.RamAccounting) any {
	return nil
}

func (m MaxAggFunc) Update(state any, val any) (any, error) {
	if state == nil {
		return val, nil
	}
	less, err := compareValues(state, val)
	if err != nil {
		return nil, err
	}
	if less {
		return val, nil
	}
	return state, nil
}

func (m MaxAggFunc) Finish(state any) (any, error) {
	return state, nil
}

func (m MaxAggFunc) ReturnTypeForExpressionType(t types.ColumnType) types.ColumnType {
	return t
}

// compareValues reports whether v1 sorts strictly before v2 under the
// column type's natural ordering.
func compareValues(v1 any, v2 any) (bool, error) {
	switch val1 := v1.(type) {
	case int64:
		return val1 < v2.(int64), nil
	case float64:
		return val1 < v2.(float64), nil
	case string:
		return strings.Compare(val1, v2.(string)) < 0, nil
	case []byte:
		return bytes.Compare(val1, v2.([]byte)) < 0, nil
	case types.Timestamp:
		return val1.Val < v2.(types.Timestamp).Val, nil
	case types.Decimal:
		val2 := v2.(types.Decimal)
		return val1.LessThan(&val2), nil
	default:
		return false, errors.Errorf("cannot compare values of type %T", v1)
	}
}

type AvgAggFunc struct {
}

type avgState struct {
	tot       float64
	count     int64
	timestamp bool
}

func (a AvgAggFunc) InitState(_ *breaker.RamAccounting) any {
	return &avgState{}
}

func (a AvgAggFunc) Update(state any, val any) (any, error) {
	st := state.(*avgState)
	switch v := val.(type) {
	case int64:
		st.tot += float64(v)
	case float64:
		st.tot += v
	case types.Decimal:
		st.tot += v.ToFloat64()
	case types.Timestamp:
		st.tot += float64(v.Val)
		st.timestamp = true
	default:
		return nil, errors.Errorf("cannot average values of type %T", val)
	}
	st.count++
	return st, nil
}

func (a AvgAggFunc) Finish(state any) (any, error) {
	st := state.(*avgState)
	if st.count == 0 {
		return nil, nil
	}
	avg := st.tot / float64(st.count)
	if st.timestamp {
		return types.NewTimestamp(int64(avg)), nil
	}
	return avg, nil
}

func (a AvgAggFunc) ReturnTypeForExpressionType(t types.ColumnType) types.ColumnType {
	if t.ID() == types.ColumnTypeIDTimestamp {
		return types.ColumnTypeTimestamp
	}
	return types.ColumnTypeFloat
}
