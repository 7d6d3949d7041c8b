package breaker

import (
	"github.com/rbramwell/crate/errors"
	"github.com/rbramwell/crate/types"
)

// SizeEstimator approximates the retained heap cost of one column value.
// Estimates only need to be stable and roughly proportional to reality -
// they feed the breaker, they are not an allocator.
type SizeEstimator interface {
	EstimateSize(val any) int64
}

// variable-width values carry a fixed slice/string header cost on top of
// their payload
const varSizeHeaderBytes = 16

func EstimatorForType(columnType types.ColumnType) (SizeEstimator, error) {
	switch columnType.ID() {
	case types.ColumnTypeIDInt, types.ColumnTypeIDFloat, types.ColumnTypeIDTimestamp:
		return constSizeEstimator(8), nil
	case types.ColumnTypeIDBool:
		return constSizeEstimator(1), nil
	case types.ColumnTypeIDDecimal:
		return constSizeEstimator(16), nil
	case types.ColumnTypeIDString:
		return stringSizeEstimator{}, nil
	case types.ColumnTypeIDBytes:
		return bytesSizeEstimator{}, nil
	default:
		return nil, errors.Errorf("cannot estimate size for values of type '%s'", columnType.String())
	}
}

type constSizeEstimator int64

func (c constSizeEstimator) EstimateSize(_ any) int64 {
	return int64(c)
}

type stringSizeEstimator struct {
}

func (s stringSizeEstimator) EstimateSize(val any) int64 {
	if val == nil {
		return 0
	}
	return varSizeHeaderBytes + int64(len(val.(string)))
}

type bytesSizeEstimator struct {
}

func (b bytesSizeEstimator) EstimateSize(val any) int64 {
	if val == nil {
		return 0
	}
	return varSizeHeaderBytes + int64(len(val.([]byte)))
}
