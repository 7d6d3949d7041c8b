package opers

import (
	"math"

	"github.com/rbramwell/crate/aggregation"
	"github.com/rbramwell/crate/breaker"
	"github.com/rbramwell/crate/common"
	"github.com/rbramwell/crate/encoding"
	"github.com/rbramwell/crate/errors"
	"github.com/rbramwell/crate/expr"
	"github.com/rbramwell/crate/types"
)

// accounting overheads charged against the breaker, per the group table's
// bookkeeping structures
const (
	tableOverheadBytes        = 48
	entryOverheadBytes        = 24
	tupleOverheadBytes        = 12
	tupleElementOverheadBytes = 4
)

// grouper is the accumulation engine behind a GroupingProjector. Two
// implementations share the contract: one keyed directly by a scalar value,
// one keyed by an encoded tuple of two or more columns.
type grouper interface {
	setNextRow(row expr.Row) (bool, error)
	finish() ([]expr.Row, error)
	iterator() *RowIterator
}

type groupEntry struct {
	keyVals []any
	states  []any
}

type grouperBase struct {
	p                  *GroupingProjector
	collectExpressions []expr.CollectExpression
	collectors         []*aggregation.Collector
}

func (b *grouperBase) evalExpressions(row expr.Row) {
	for _, collectExpression := range b.collectExpressions {
		collectExpression.SetNextRow(row)
	}
}

// createStates starts one slot per aggregate expression and folds the
// current row in, returning the initial accumulator states for a new key.
func (b *grouperBase) createStates() ([]any, error) {
	states := make([]any, len(b.collectors))
	for i, collector := range b.collectors {
		collector.StartCollect(b.p.ram)
		if err := collector.ProcessRow(); err != nil {
			return nil, err
		}
		states[i] = collector.State()
	}
	return states, nil
}

// updateStates rehydrates each slot with the key's stored state and folds
// the current row in, writing the new states back in place.
func (b *grouperBase) updateStates(states []any) error {
	for i, collector := range b.collectors {
		collector.SetState(states[i])
		if err := collector.ProcessRow(); err != nil {
			return err
		}
		states[i] = collector.State()
	}
	return nil
}

// transformToRow builds one output row from a group table entry: the key's
// component values in key-column order followed by one finished value per
// aggregate expression.
func (b *grouperBase) transformToRow(entry *groupEntry) (expr.Row, error) {
	row := make(expr.Row, len(entry.keyVals)+len(b.collectors))
	numKeyCols := copy(row, entry.keyVals)
	for i, collector := range b.collectors {
		collector.SetState(entry.states[i])
		val, err := collector.FinishCollect()
		if err != nil {
			return nil, err
		}
		row[numKeyCols+i] = val
	}
	return row, nil
}

// finishEntries drains the group table into output rows, pushing each to the
// downstream as it is produced. A failure recorded by any upstream is
// authoritative: it is forwarded and no result is emitted. A false return
// from the downstream stops further pushes but the full result set is still
// computed, and completion is still signalled exactly once.
func (b *grouperBase) finishEntries(entries []*groupEntry) ([]expr.Row, error) {
	ds := b.p.currentDownstream()
	if failure := b.p.storedFailure(); failure != nil {
		if ds != nil {
			ds.UpstreamFailed(failure)
		}
		return nil, failure
	}
	rows := make([]expr.Row, 0, len(entries))
	sendToDownstream := ds != nil
	var pushErr error
	for _, entry := range entries {
		row, err := b.transformToRow(entry)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if sendToDownstream {
			cont, err := ds.SetNextRow(row)
			if err != nil {
				pushErr = err
				sendToDownstream = false
			} else {
				sendToDownstream = cont
			}
		}
	}
	if ds != nil {
		ds.UpstreamFinished()
	}
	return rows, pushErr
}

// singleKeyGrouper keys the group table with the raw scalar key value -
// no per-row key container allocation and cheap equality.
type singleKeyGrouper struct {
	grouperBase
	keyInput      expr.Input
	keyType       types.ColumnType
	sizeEstimator breaker.SizeEstimator
	result        map[any][]any
}

func newSingleKeyGrouper(p *GroupingProjector, keyInput expr.Input, keyType types.ColumnType,
	collectExpressions []expr.CollectExpression, collectors []*aggregation.Collector) (*singleKeyGrouper, error) {
	sizeEstimator, err := breaker.EstimatorForType(keyType)
	if err != nil {
		return nil, err
	}
	g := &singleKeyGrouper{
		grouperBase: grouperBase{
			p:                  p,
			collectExpressions: collectExpressions,
			collectors:         collectors,
		},
		keyInput:      keyInput,
		keyType:       keyType,
		sizeEstimator: sizeEstimator,
		result:        map[any][]any{},
	}
	// hash map overhead
	if err := p.ram.AddBytes(tableOverheadBytes); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *singleKeyGrouper) setNextRow(row expr.Row) (bool, error) {
	g.evalExpressions(row)

	key := g.keyInput.Value()
	mapKey := scalarMapKey(key)
	states, ok := g.result[mapKey]
	if !ok {
		states, err := g.createStates()
		if err != nil {
			return false, err
		}
		if err := g.p.ram.AddBytes(g.sizeEstimator.EstimateSize(key) + entryOverheadBytes); err != nil {
			return false, err
		}
		g.result[mapKey] = states
	} else {
		if err := g.updateStates(states); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (g *singleKeyGrouper) entries() []*groupEntry {
	entries := make([]*groupEntry, 0, len(g.result))
	for mapKey, states := range g.result {
		entries = append(entries, &groupEntry{
			keyVals: []any{scalarKeyValue(mapKey, g.keyType)},
			states:  states,
		})
	}
	return entries
}

func (g *singleKeyGrouper) finish() ([]expr.Row, error) {
	return g.finishEntries(g.entries())
}

func (g *singleKeyGrouper) iterator() *RowIterator {
	return newRowIterator(g.entries(), &g.grouperBase)
}

// Byte slices are not comparable so they are interned as strings for table
// lookup, and float keys are looked up by bit pattern so that NaN rows form
// one group instead of one group per row. scalarKeyValue reverses the
// conversions for output.
func scalarMapKey(key any) any {
	switch k := key.(type) {
	case []byte:
		return string(k)
	case float64:
		return floatKeyBits(k)
	}
	return key
}

func scalarKeyValue(mapKey any, keyType types.ColumnType) any {
	if mapKey == nil {
		return nil
	}
	switch keyType.ID() {
	case types.ColumnTypeIDBytes:
		return []byte(mapKey.(string))
	case types.ColumnTypeIDFloat:
		return math.Float64frombits(mapKey.(uint64))
	}
	return mapKey
}

const canonicalNaNBits = 0x7ff8000000000000

// floatKeyBits canonicalizes NaN payloads so all NaN key values are the same
// group key. Negative zero keeps its own bit pattern and stays a distinct
// group from zero.
func floatKeyBits(f float64) uint64 {
	if math.IsNaN(f) {
		return canonicalNaNBits
	}
	return math.Float64bits(f)
}

// manyKeyGrouper keys the group table with an encoded composite of two or
// more columns, keeping the decoded tuple alongside the states for output.
// This path pays one key encode per row plus a size estimate per column on
// first sight of a key.
type manyKeyGrouper struct {
	grouperBase
	keyInputs      []expr.Input
	keyTypes       []types.ColumnType
	sizeEstimators []breaker.SizeEstimator
	result         map[string]*groupEntry
}

func newManyKeyGrouper(p *GroupingProjector, keyInputs []expr.Input, keyTypes []types.ColumnType,
	collectExpressions []expr.CollectExpression, collectors []*aggregation.Collector) (*manyKeyGrouper, error) {
	sizeEstimators := make([]breaker.SizeEstimator, len(keyTypes))
	for i, keyType := range keyTypes {
		sizeEstimator, err := breaker.EstimatorForType(keyType)
		if err != nil {
			return nil, err
		}
		sizeEstimators[i] = sizeEstimator
	}
	g := &manyKeyGrouper{
		grouperBase: grouperBase{
			p:                  p,
			collectExpressions: collectExpressions,
			collectors:         collectors,
		},
		keyInputs:      keyInputs,
		keyTypes:       keyTypes,
		sizeEstimators: sizeEstimators,
		result:         map[string]*groupEntry{},
	}
	// hash map overhead
	if err := p.ram.AddBytes(tableOverheadBytes); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *manyKeyGrouper) setNextRow(row expr.Row) (bool, error) {
	g.evalExpressions(row)

	keyVals := make([]any, len(g.keyInputs))
	for i, keyInput := range g.keyInputs {
		keyVals[i] = keyInput.Value()
	}
	encodedKey, err := encodeKey(keyVals, g.keyTypes)
	if err != nil {
		return false, err
	}
	mapKey := common.ByteSliceToStringZeroCopy(encodedKey)

	entry, ok := g.result[mapKey]
	if !ok {
		states, err := g.createStates()
		if err != nil {
			return false, err
		}
		// key tuple overhead plus the estimated size of each element
		keyBytes := int64(tupleOverheadBytes + entryOverheadBytes)
		for i, keyVal := range keyVals {
			keyBytes += g.sizeEstimators[i].EstimateSize(keyVal) + tupleElementOverheadBytes
		}
		if err := g.p.ram.AddBytes(keyBytes); err != nil {
			return false, err
		}
		g.result[mapKey] = &groupEntry{keyVals: keyVals, states: states}
	} else {
		if err := g.updateStates(entry.states); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (g *manyKeyGrouper) entries() []*groupEntry {
	entries := make([]*groupEntry, 0, len(g.result))
	for _, entry := range g.result {
		entries = append(entries, entry)
	}
	return entries
}

func (g *manyKeyGrouper) finish() ([]expr.Row, error) {
	return g.finishEntries(g.entries())
}

func (g *manyKeyGrouper) iterator() *RowIterator {
	return newRowIterator(g.entries(), &g.grouperBase)
}

// encodeKey produces an injective byte encoding of the key tuple - variable
// width values are length prefixed so distinct tuples never collide.
func encodeKey(keyVals []any, keyTypes []types.ColumnType) ([]byte, error) {
	buff := make([]byte, 0, 32)
	for i, keyVal := range keyVals {
		if keyVal == nil {
			buff = append(buff, 0)
			continue
		}
		buff = append(buff, 1)
		switch keyTypes[i].ID() {
		case types.ColumnTypeIDInt:
			buff = encoding.AppendUint64ToBufferLE(buff, uint64(keyVal.(int64)))
		case types.ColumnTypeIDFloat:
			buff = encoding.AppendUint64ToBufferLE(buff, floatKeyBits(keyVal.(float64)))
		case types.ColumnTypeIDBool:
			buff = encoding.AppendBoolToBuffer(buff, keyVal.(bool))
		case types.ColumnTypeIDDecimal:
			buff = encoding.AppendDecimalToBuffer(buff, keyVal.(types.Decimal))
		case types.ColumnTypeIDString:
			buff = encoding.AppendStringToBufferLE(buff, keyVal.(string))
		case types.ColumnTypeIDBytes:
			buff = encoding.AppendBytesToBufferLE(buff, keyVal.([]byte))
		case types.ColumnTypeIDTimestamp:
			buff = encoding.AppendUint64ToBufferLE(buff, uint64(keyVal.(types.Timestamp).Val))
		default:
			return nil, errors.Errorf("cannot encode key value of type '%s'", keyTypes[i].String())
		}
	}
	return buff, nil
}
