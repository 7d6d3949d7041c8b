package opers

import (
	"sync"
	"sync/atomic"

	"github.com/rbramwell/crate/aggregation"
	"github.com/rbramwell/crate/breaker"
	"github.com/rbramwell/crate/errors"
	"github.com/rbramwell/crate/expr"
	log "github.com/rbramwell/crate/logger"
	"github.com/rbramwell/crate/types"
)

// GroupingProjector accumulates incoming rows into per-key aggregate states
// and emits one row per distinct key once every upstream has finished. Rows
// may arrive from multiple upstreams concurrently; accumulation is serialized
// on a single lock while completion bookkeeping stays lock-free.
type GroupingProjector struct {
	collectExpressions []expr.CollectExpression
	ram                *breaker.RamAccounting

	// lock serializes the whole lookup-or-insert step, including the
	// memory charge, across all row-accepting callers
	lock    sync.Mutex
	grouper grouper

	downstreamLock sync.RWMutex
	downstream     Projector

	remainingUpstreams int32
	finalized          atomic.Bool
	failure            atomic.Value
}

var _ Projector = (*GroupingProjector)(nil)

func NewGroupingProjector(keyTypes []types.ColumnType, keyInputs []expr.Input,
	collectExpressions []expr.CollectExpression, collectors []*aggregation.Collector,
	ram *breaker.RamAccounting) (*GroupingProjector, error) {
	if len(keyTypes) != len(keyInputs) {
		return nil, errors.Errorf("number of key types (%d) must match number of key inputs (%d)",
			len(keyTypes), len(keyInputs))
	}
	if len(keyInputs) == 0 {
		return nil, errors.New("grouping projector requires at least one key input")
	}
	for _, keyType := range keyTypes {
		if keyType == nil {
			return nil, errors.New("must have a type for each key input")
		}
	}
	for _, keyType := range keyTypes {
		if keyType.ID() == types.ColumnTypeIDUnknown {
			return nil, errors.Errorf("key input types must be known, got: %s",
				types.ColumnTypesToString(keyTypes))
		}
	}
	g := &GroupingProjector{
		collectExpressions: collectExpressions,
		ram:                ram,
	}
	var err error
	if len(keyInputs) == 1 {
		g.grouper, err = newSingleKeyGrouper(g, keyInputs[0], keyTypes[0], collectExpressions, collectors)
	} else {
		g.grouper, err = newManyKeyGrouper(g, keyInputs, keyTypes, collectExpressions, collectors)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Downstream wires the next pipeline stage. The projector registers itself
// as that stage's upstream so completion and failure signals compose along
// the pipeline. Must be called before the grouping phase starts.
func (g *GroupingProjector) Downstream(downstream Projector) {
	downstream.RegisterUpstream(g)
	g.downstreamLock.Lock()
	g.downstream = downstream
	g.downstreamLock.Unlock()
}

func (g *GroupingProjector) RegisterUpstream(_ Projector) {
	atomic.AddInt32(&g.remainingUpstreams, 1)
}

func (g *GroupingProjector) StartProjection() {
	for _, collectExpression := range g.collectExpressions {
		collectExpression.StartCollect()
	}
	if atomic.LoadInt32(&g.remainingUpstreams) <= 0 {
		g.UpstreamFinished()
	}
}

func (g *GroupingProjector) SetNextRow(row expr.Row) (bool, error) {
	g.lock.Lock()
	gr := g.grouper
	if gr == nil {
		// finalization already ran - the upstream signalled completion
		// before its row-producing calls returned
		g.lock.Unlock()
		return false, nil
	}
	cont, err := gr.setNextRow(row)
	g.lock.Unlock()
	if err != nil {
		if errors.IsMemoryLimitExceeded(err) {
			ds := g.severDownstream()
			if ds != nil {
				ds.UpstreamFailed(err)
			}
		}
		return false, err
	}
	return cont, nil
}

func (g *GroupingProjector) UpstreamFinished() {
	if atomic.AddInt32(&g.remainingUpstreams, -1) <= 0 {
		g.finishGrouping()
	}
	if log.DebugEnabled {
		log.Debugf("grouping operation size is: %d bytes", g.ram.TotalBytes())
	}
}

func (g *GroupingProjector) UpstreamFailed(err error) {
	if atomic.AddInt32(&g.remainingUpstreams, -1) <= 0 {
		if !g.finalized.CompareAndSwap(false, true) {
			return
		}
		// no result is computed - the grouper is discarded as-is
		g.takeGrouper()
		ds := g.currentDownstream()
		if ds != nil {
			ds.UpstreamFailed(err)
		}
		return
	}
	g.failure.Store(err)
}

func (g *GroupingProjector) finishGrouping() {
	if !g.finalized.CompareAndSwap(false, true) {
		return
	}
	gr := g.takeGrouper()
	if gr == nil {
		return
	}
	if _, err := gr.finish(); err != nil {
		log.Errorf("grouping projector failed to finish: %v", err)
	}
}

// RowIterator returns a lazy, non-restartable view over the current group
// table, producing one output row per pull. It is an alternative to the
// eager finish and must only be used once all rows have been accepted.
func (g *GroupingProjector) RowIterator() (*RowIterator, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.grouper == nil {
		return nil, errors.New("grouping projector is already finished")
	}
	return g.grouper.iterator(), nil
}

// takeGrouper detaches the grouper, waiting for any in-flight row acceptance
// to complete first. After this no further rows are accumulated and the
// group table is free for reclamation.
func (g *GroupingProjector) takeGrouper() grouper {
	g.lock.Lock()
	defer g.lock.Unlock()
	gr := g.grouper
	g.grouper = nil
	return gr
}

func (g *GroupingProjector) currentDownstream() Projector {
	g.downstreamLock.RLock()
	defer g.downstreamLock.RUnlock()
	return g.downstream
}

func (g *GroupingProjector) severDownstream() Projector {
	g.downstreamLock.Lock()
	defer g.downstreamLock.Unlock()
	ds := g.downstream
	g.downstream = nil
	return ds
}

func (g *GroupingProjector) storedFailure() error {
	err := g.failure.Load()
	if err == nil {
		return nil
	}
	return err.(error)
}
