package breaker

import (
	"testing"

	"github.com/rbramwell/crate/errors"
	"github.com/rbramwell/crate/types"
	"github.com/stretchr/testify/require"
)

func TestBreakerTripsOverLimit(t *testing.T) {
	b := NewBreaker("query", 100)
	require.NoError(t, b.AddBytes(60))
	require.NoError(t, b.AddBytes(40))
	err := b.AddBytes(1)
	require.Error(t, err)
	require.True(t, errors.IsMemoryLimitExceeded(err))
	// charges are not rolled back on trip
	require.Equal(t, int64(101), b.Used())
}

func TestBreakerZeroLimitDisabled(t *testing.T) {
	b := NewBreaker("query", 0)
	require.NoError(t, b.AddBytes(1<<40))
}

func TestRamAccountingTracksPerOperationTotal(t *testing.T) {
	b := NewBreaker("query", 0)
	ram1 := NewRamAccounting(b)
	ram2 := NewRamAccounting(b)
	require.NoError(t, ram1.AddBytes(100))
	require.NoError(t, ram2.AddBytes(50))
	require.Equal(t, int64(100), ram1.TotalBytes())
	require.Equal(t, int64(50), ram2.TotalBytes())
	require.Equal(t, int64(150), b.Used())
}

func TestRamAccountingSharedBreakerTrips(t *testing.T) {
	b := NewBreaker("query", 120)
	ram1 := NewRamAccounting(b)
	ram2 := NewRamAccounting(b)
	require.NoError(t, ram1.AddBytes(100))
	err := ram2.AddBytes(50)
	require.True(t, errors.IsMemoryLimitExceeded(err))
}

func TestEstimatorForType(t *testing.T) {
	est, err := EstimatorForType(types.ColumnTypeInt)
	require.NoError(t, err)
	require.Equal(t, int64(8), est.EstimateSize(int64(123)))

	est, err = EstimatorForType(types.ColumnTypeBool)
	require.NoError(t, err)
	require.Equal(t, int64(1), est.EstimateSize(true))

	est, err = EstimatorForType(types.ColumnTypeString)
	require.NoError(t, err)
	require.Equal(t, int64(varSizeHeaderBytes+5), est.EstimateSize("hello"))
	require.Equal(t, int64(0), est.EstimateSize(nil))

	est, err = EstimatorForType(types.ColumnTypeBytes)
	require.NoError(t, err)
	require.Equal(t, int64(varSizeHeaderBytes+3), est.EstimateSize([]byte{1, 2, 3}))

	est, err = EstimatorForType(&types.DecimalType{Precision: 10, Scale: 2})
	require.NoError(t, err)
	require.Equal(t, int64(16), est.EstimateSize(types.Decimal{}))

	_, err = EstimatorForType(types.ColumnTypeUnknown)
	require.Error(t, err)
}
