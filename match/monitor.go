package match

import (
	"github.com/poiesic/stanza/core"
)

// MatchMonitor provides hooks to observe the matching process.
// Implement this interface to trace intermediate steps and results of a request.
// Hooks are called sequentially from the goroutine running the request.
type MatchMonitor interface {
	Start(text string)
	AfterQueryAnalysis(analysis *core.Analysis)
	AfterCandidateRetrieval(candidates []core.Candidate)
	AfterRanking(results []*core.MatchResult)
	Adapted(result *core.MatchResult, err error)
	Finish(results []*core.MatchResult)
}

// noopMonitor is a no-op implementation of MatchMonitor
type noopMonitor struct{}

var _ MatchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                             {}
func (n *noopMonitor) AfterQueryAnalysis(_ *core.Analysis)        {}
func (n *noopMonitor) AfterCandidateRetrieval(_ []core.Candidate) {}
func (n *noopMonitor) AfterRanking(_ []*core.MatchResult)         {}
func (n *noopMonitor) Adapted(_ *core.MatchResult, _ error)       {}
func (n *noopMonitor) Finish(_ []*core.MatchResult)               {}
