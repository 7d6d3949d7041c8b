package aggregation

import (
	"github.com/rbramwell/crate/breaker"
	"github.com/rbramwell/crate/expr"
	"github.com/rbramwell/crate/types"
)

// Collector is the aggregation slot for one aggregate expression. The group
// table owns the accumulator states; a Collector is rehydrated with a stored
// state via SetState before ProcessRow or FinishCollect run against it.
type Collector struct {
	aggFunc AggFunc
	input   expr.Input
	state   any
}

func NewCollector(aggFunc AggFunc, input expr.Input) *Collector {
	return &Collector{aggFunc: aggFunc, input: input}
}

func (c *Collector) StartCollect(ram *breaker.RamAccounting) {
	c.state = c.aggFunc.InitState(ram)
}

// ProcessRow folds the input's current value into the accumulator. Null
// values do not contribute.
func (c *Collector) ProcessRow() error {
	val := c.input.Value()
	if val == nil {
		return nil
	}
	state, err := c.aggFunc.Update(c.state, val)
	if err != nil {
		return err
	}
	c.state = state
	return nil
}

func (c *Collector) State() any {
	return c.state
}

func (c *Collector) SetState(state any) {
	c.state = state
}

func (c *Collector) FinishCollect() (any, error) {
	return c.aggFunc.Finish(c.state)
}

func (c *Collector) ResultType() types.ColumnType {
	return c.aggFunc.ReturnTypeForExpressionType(c.input.ResultType())
}
