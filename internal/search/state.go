package search

import "github.com/torosent/capfire/internal/metrics"

// Probe is one tested level and its verdict.
type Probe struct {
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
	Stats       metrics.Stats `json:"stats" yaml:"stats"`
	Passed      bool          `json:"passed" yaml:"passed"`
}

// State tracks a binary search. Lower is the highest level known to pass
// (start-1 before any pass) and Upper the lowest level known to fail
// (max+1 until a failure is seen). The answer always lies in [Lower, Upper).
type State struct {
	Lower         int
	Upper         int
	Current       int
	BestKnownGood int
	Found         bool
	Iterations    int
	History       []Probe
}

func newBinaryState(start, max int) *State {
	return &State{Lower: start - 1, Upper: max + 1}
}

// Done reports whether no untested level remains between the bounds.
func (s *State) Done() bool {
	return s.Upper-s.Lower <= 1
}

// Next returns the next level to probe.
func (s *State) Next() int {
	s.Current = s.Lower + (s.Upper-s.Lower)/2
	return s.Current
}

// Record narrows the bounds with the verdict for the current level.
func (s *State) Record(p Probe) {
	s.Iterations++
	s.History = append(s.History, p)
	if p.Passed {
		s.Lower = p.Concurrency
		s.BestKnownGood = p.Concurrency
		s.Found = true
		return
	}
	s.Upper = p.Concurrency
}
