package opers

import (
	"github.com/rbramwell/crate/expr"
)

// Projector is one stage of a push-based execution pipeline. Upstream stages
// push rows in with SetNextRow and announce themselves with RegisterUpstream;
// the stage emits its own output to the downstream wired at construction.
//
// SetNextRow returns true while the projector can accept further rows. A
// false return is flow control, not failure - fatal conditions come back as
// an error. Completion requires every registered upstream to call either
// UpstreamFinished or UpstreamFailed exactly once, after its last
// SetNextRow call has returned.
type Projector interface {
	StartProjection()
	SetNextRow(row expr.Row) (bool, error)
	RegisterUpstream(upstream Projector)
	UpstreamFinished()
	UpstreamFailed(err error)
	Downstream(downstream Projector)
}
