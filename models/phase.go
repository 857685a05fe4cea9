package models

// MatchPhase names a round of the 8-team double-ladder bracket.
type MatchPhase string

const (
	PhaseQuarterfinals    MatchPhase = "quarter-finals"
	PhaseSemifinalsGold   MatchPhase = "semifinals-gold"
	PhaseSemifinalsSilver MatchPhase = "semifinals-silver"
	PhaseFinalGold        MatchPhase = "final-gold"
	PhaseFinalSilver      MatchPhase = "final-silver"
)

// AllPhases is ordered by generation: a phase can only be generated after
// every phase it feeds from is fully finished.
var AllPhases = []MatchPhase{
	PhaseQuarterfinals,
	PhaseSemifinalsGold,
	PhaseSemifinalsSilver,
	PhaseFinalGold,
	PhaseFinalSilver,
}

func (p MatchPhase) Valid() bool {
	switch p {
	case PhaseQuarterfinals, PhaseSemifinalsGold, PhaseSemifinalsSilver, PhaseFinalGold, PhaseFinalSilver:
		return true
	}
	return false
}

// FeederPhase returns the phase whose results seed p. The quarter-finals are
// seeded from the tournament team list, so ok is false for them.
func (p MatchPhase) FeederPhase() (MatchPhase, bool) {
	switch p {
	case PhaseSemifinalsGold, PhaseSemifinalsSilver:
		return PhaseQuarterfinals, true
	case PhaseFinalGold:
		return PhaseSemifinalsGold, true
	case PhaseFinalSilver:
		return PhaseSemifinalsSilver, true
	}
	return "", false
}

// Successors returns the phases generated once p is fully finished.
// The finals have no successors.
func (p MatchPhase) Successors() []MatchPhase {
	switch p {
	case PhaseQuarterfinals:
		return []MatchPhase{PhaseSemifinalsGold, PhaseSemifinalsSilver}
	case PhaseSemifinalsGold:
		return []MatchPhase{PhaseFinalGold}
	case PhaseSemifinalsSilver:
		return []MatchPhase{PhaseFinalSilver}
	}
	return nil
}

// MatchCount returns how many matches the phase consists of.
func (p MatchPhase) MatchCount() int {
	switch p {
	case PhaseQuarterfinals:
		return 4
	case PhaseSemifinalsGold, PhaseSemifinalsSilver:
		return 2
	case PhaseFinalGold, PhaseFinalSilver:
		return 1
	}
	return 0
}

// TakesWinners reports whether the phase is fed by the winners of its feeder
// phase. The silver semifinals are the only phase fed by losers.
func (p MatchPhase) TakesWinners() bool {
	return p != PhaseSemifinalsSilver
}
