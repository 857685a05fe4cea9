// Package brackets holds the pure topology of the 8-team double-ladder
// bracket: quarter-final seeding and the derivation of every later round from
// finished match results. Nothing here touches storage; the service layer
// decides when a derivation is applied.
package brackets

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/trucolab/truco-league/models"
)

var (
	ErrTeamCount         = errors.New("bracket requires exactly 8 teams")
	ErrFeederNotFinished = errors.New("feeder round is not fully finished")
	ErrFeederCount       = errors.New("unexpected number of feeder matches")
	ErrPhaseNotDerivable = errors.New("phase is not derived from prior results")
)

// Pairing is one match-to-be: two roster snapshots taken at derivation time.
type Pairing struct {
	Home models.TeamSnapshot
	Away models.TeamSnapshot
}

// SeedQuarterfinals pairs the 8 teams into the 4 quarter-finals by adjacent
// seeding order: (T0 vs T1), (T2 vs T3), (T4 vs T5), (T6 vs T7). When rng is
// non-nil the seeding order is shuffled first.
func SeedQuarterfinals(teams []models.Team, rng *rand.Rand) ([]Pairing, error) {
	if len(teams) != models.BracketTeamCount {
		return nil, fmt.Errorf("%w: got %d", ErrTeamCount, len(teams))
	}

	seeded := make([]models.Team, len(teams))
	copy(seeded, teams)
	if rng != nil {
		rng.Shuffle(len(seeded), func(i, j int) {
			seeded[i], seeded[j] = seeded[j], seeded[i]
		})
	}

	pairings := make([]Pairing, 0, len(seeded)/2)
	for i := 0; i < len(seeded); i += 2 {
		pairings = append(pairings, Pairing{
			Home: seeded[i].Snapshot(),
			Away: seeded[i+1].Snapshot(),
		})
	}
	return pairings, nil
}

// NextPairings derives the pairings for phase from the finished matches of
// its feeder round. Gold phases advance winners, the silver semifinals take
// the quarter-final losers down into the consolation ladder, and the silver
// final again takes winners (of the silver semifinals). Feeder matches are
// paired by their order within the round: slot 0 meets slot 1, slot 2 meets
// slot 3.
func NextPairings(phase models.MatchPhase, feeder []*models.Match) ([]Pairing, error) {
	feederPhase, ok := phase.FeederPhase()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPhaseNotDerivable, phase)
	}
	if len(feeder) != feederPhase.MatchCount() {
		return nil, fmt.Errorf("%w: phase %s wants %d, got %d",
			ErrFeederCount, phase, feederPhase.MatchCount(), len(feeder))
	}

	ordered := make([]*models.Match, len(feeder))
	copy(ordered, feeder)
	sort.Slice(ordered, func(i, j int) bool {
		return orderInPhase(ordered[i]) < orderInPhase(ordered[j])
	})

	advancing := make([]models.TeamSnapshot, 0, len(ordered))
	for _, m := range ordered {
		var snap models.TeamSnapshot
		var finished bool
		if phase.TakesWinners() {
			snap, finished = m.Winner()
		} else {
			snap, finished = m.Loser()
		}
		if !finished {
			return nil, fmt.Errorf("%w: match %d", ErrFeederNotFinished, m.ID)
		}
		advancing = append(advancing, snap)
	}

	pairings := make([]Pairing, 0, len(advancing)/2)
	for i := 0; i < len(advancing); i += 2 {
		pairings = append(pairings, Pairing{Home: advancing[i], Away: advancing[i+1]})
	}
	return pairings, nil
}

func orderInPhase(m *models.Match) int {
	if m.OrderInPhase == nil {
		return m.ID
	}
	return *m.OrderInPhase
}
