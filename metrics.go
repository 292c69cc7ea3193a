package qflow

import (
	"github.com/qflow-sim/qflow/qmetrics"
	"github.com/qflow-sim/qflow/qstate"
)

func observeDispatch(op string, inverted bool) {
	qmetrics.Observe(op, inverted)
}

// mergeAndPrune is the choke point had, qft, perp_init and perp_init_inv
// funnel their raw candidate lists through, so the branch-count gauge and
// pruned-branch counter are updated without each of those call sites
// repeating the bookkeeping. init's uniform and weighted cases replace the
// branch list directly and do not pass through here.
func (s *Simulator) mergeAndPrune(raw []*qstate.Branch) {
	merged, dropped := qstate.MergeAndPrune(raw, s.cfg.Threshold)
	s.branches = merged
	qmetrics.AddPruned(dropped)
	qmetrics.SetBranchCount(len(merged))
}
