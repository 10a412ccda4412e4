// Package markov implements a generic online Hidden Markov Model filter,
// ported from BMW's barefoot map-matching library (markov.Filter). It knows
// nothing about roads or GPS: Candidate, Transition and Sample are supplied
// by a concrete user (pkg/matcher) that knows how to compute emission and
// transition probabilities for its own domain.
package markov

import "time"

// Sample is one measurement in the observed sequence.
type Sample interface {
	Time() time.Time
}

// StateTransition is the link between two consecutive state candidates. Its
// only generic-filter-visible property is the number of edges in its route,
// used to break seqprob ties deterministically (shorter route wins).
type StateTransition interface {
	RouteLength() int
}

// StateCandidate is one hypothesis for the hidden state at a given sample.
// C is the concrete candidate type implementing this interface (typically
// a pointer type), so the filter can track predecessor chains without
// needing reflection or nil-comparable generics.
type StateCandidate[C any, T StateTransition] interface {
	// EdgeID identifies the candidate's location for the arbitrary,
	// deterministic tie-break used when two transitions have equal seqprob
	// and equal route length.
	EdgeID() int64

	Predecessor() (C, bool)
	SetPredecessor(C)

	Transition() (T, bool)
	SetTransition(T)

	FiltProb() float64
	SetFiltProb(float64)

	SeqProb() float64
	SetSeqProb(float64)

	SetTime(time.Time)
}

// WeightedCandidate pairs a candidate with its emission probability.
type WeightedCandidate[C any] struct {
	Candidate C
	Emission  float64
}

// WeightedTransition pairs a transition with its transition probability. A
// nil/zero Probability with Transition's zero value signals "no transition"
// when Ok is false.
type WeightedTransition[T any] struct {
	Transition  T
	Probability float64
	Ok          bool
}

// Filter is the generic forward-pass HMM filter. CandidateSource and
// TransitionSource are supplied by the concrete matcher.
type Filter[C StateCandidate[C, T], T StateTransition, S Sample] struct {
	// Candidates returns, for a sample and its predecessor state vector,
	// the set of state candidates with their emission probabilities.
	Candidates func(predecessors []C, sample S, radius *float64) []WeightedCandidate[C]

	// Transition returns the transition (and its probability) from a
	// predecessor candidate (observed at `previous`) to a candidate
	// (observed at `sample`), or Ok=false if no transition exists.
	Transition func(previousSample S, predecessor C, sample S, candidate C) WeightedTransition[T]

	// OnBreak, if set, is called when the filter detects an HMM break: no
	// transitions were found from a non-empty predecessor set, or no
	// candidates at all were emitted for the sample.
	OnBreak func(sample S, reason string)
}

// Execute runs one filter iteration, producing the state vector for sample
// given the predecessor state vector (possibly empty, e.g. on restart or
// after a break) and the previous sample.
func (f *Filter[C, T, S]) Execute(predecessors []C, previous, sample S, radius *float64) []C {
	candidates := f.Candidates(predecessors, sample, radius)

	result := make([]C, 0, len(candidates))
	normsum := 0.0

	if len(predecessors) > 0 {
		for _, wc := range candidates {
			candidate := wc.Candidate
			candidate.SetSeqProb(negInf)

			var previousPredecessor C
			havePrevPredecessor := false

			for _, predecessor := range predecessors {
				wt := f.Transition(previous, predecessor, sample, candidate)
				if !wt.Ok || wt.Probability == 0 {
					continue
				}

				candidate.SetFiltProb(candidate.FiltProb() + wt.Probability*predecessor.FiltProb())
				seqprob := predecessor.SeqProb() + log10(wt.Probability) + log10(wc.Emission)

				switch {
				case seqprob > candidate.SeqProb():
					previousPredecessor = modifyCandidate(candidate, predecessor, wt.Transition, seqprob)
					havePrevPredecessor = true
				case seqprob == candidate.SeqProb():
					previousPredecessor, havePrevPredecessor = breakSeqProbTie(
						candidate, predecessor, wt.Transition, seqprob, previousPredecessor, havePrevPredecessor)
				}
			}
			_ = previousPredecessor
			_ = havePrevPredecessor

			if isNaN(candidate.FiltProb()) || candidate.FiltProb() == 0 {
				continue
			}
			candidate.SetTime(sample.Time())
			candidate.SetFiltProb(candidate.FiltProb() * wc.Emission)
			result = append(result, candidate)
			normsum += candidate.FiltProb()
		}
	}

	if len(candidates) > 0 && len(result) == 0 && len(predecessors) > 0 {
		if f.OnBreak != nil {
			f.OnBreak(sample, "no state transitions")
		}
	}

	if len(result) == 0 || len(predecessors) == 0 {
		for _, wc := range candidates {
			if wc.Emission == 0 {
				continue
			}
			candidate := wc.Candidate
			normsum += wc.Emission
			candidate.SetFiltProb(wc.Emission)
			candidate.SetSeqProb(log10(wc.Emission))
			candidate.SetTime(sample.Time())
			result = append(result, candidate)
		}
	}

	if len(result) == 0 {
		if f.OnBreak != nil {
			f.OnBreak(sample, "no state emissions")
		}
	}

	for _, candidate := range result {
		ratio := candidate.FiltProb() / normsum
		if isNaN(ratio) || isNaN(normsum) {
			candidate.SetFiltProb(0)
		} else {
			candidate.SetFiltProb(ratio)
		}
	}

	return result
}

// breakSeqProbTie applies the deterministic tie-break for equal seqprob:
// first prefer the transition with fewer route edges, then fall back to
// the arbitrary-but-deterministic rule of preferring the candidate whose
// predecessor has the smaller edge id.
func breakSeqProbTie[C StateCandidate[C, T], T StateTransition](
	candidate, predecessor C, transition T, seqprob float64, previousPredecessor C, havePrev bool,
) (C, bool) {
	currentBest, haveBest := candidate.Transition()

	if haveBest && routeLen(currentBest) != routeLen(transition) {
		if routeLen(currentBest) > routeLen(transition) {
			return modifyCandidate(candidate, predecessor, transition, seqprob), true
		}
		return previousPredecessor, havePrev
	}

	if !havePrev || predecessor.EdgeID() < previousPredecessor.EdgeID() {
		return modifyCandidate(candidate, predecessor, transition, seqprob), true
	}
	return previousPredecessor, havePrev
}

func routeLen(t StateTransition) int { return t.RouteLength() }

func modifyCandidate[C StateCandidate[C, T], T StateTransition](candidate, predecessor C, transition T, seqprob float64) C {
	candidate.SetPredecessor(predecessor)
	candidate.SetTransition(transition)
	candidate.SetSeqProb(seqprob)
	return predecessor
}
