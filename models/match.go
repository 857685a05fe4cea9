package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxScore is the score at which a truco match ends. The first team to reach
// it wins, in the same update that scored the point.
const MaxScore = 30

type MatchStatus string

const (
	MatchInProgress MatchStatus = "in_progress"
	MatchFinished   MatchStatus = "finished"
)

type MatchType string

const (
	MatchFriendly   MatchType = "friendly"
	MatchTournament MatchType = "tournament"
)

// State machine violations. Deltas that would leave a score outside
// [0, MaxScore] are rejected outright, never clamped.
var (
	ErrMatchAlreadyFinished = errors.New("match is already finished")
	ErrScoreOutOfBounds     = errors.New("score delta would leave score outside the valid range")
	ErrInvalidTeamIndex     = errors.New("team index must be 0 or 1")
)

// MatchSide is one team's entry in a match: the roster snapshot taken at
// match-creation time plus the running score.
type MatchSide struct {
	TeamSnapshot
	Score int `json:"score"`
}

// Match is a single game between two teams. Tournament matches carry the
// tournament id, a phase and their slot within the phase; friendly matches
// carry none of those.
type Match struct {
	ID           int          `json:"id"`
	TournamentID *int         `json:"tournament_id,omitempty"`
	Type         MatchType    `json:"type"`
	Phase        *MatchPhase  `json:"phase,omitempty"`
	OrderInPhase *int         `json:"order_in_phase,omitempty"`
	Sides        [2]MatchSide `json:"teams"`
	WinnerTeamID *uuid.UUID   `json:"winner,omitempty"`
	Status       MatchStatus  `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ApplyScoreDelta advances the state machine: it adjusts one side's score
// while the match is in progress and, if that score reaches exactly MaxScore,
// finishes the match and records the winner in the same step. Out-of-bounds
// results reject the whole delta and leave both scores untouched.
func (m *Match) ApplyScoreDelta(teamIndex, delta int) error {
	if teamIndex != 0 && teamIndex != 1 {
		return ErrInvalidTeamIndex
	}
	if m.Status == MatchFinished {
		return ErrMatchAlreadyFinished
	}

	next := m.Sides[teamIndex].Score + delta
	if next < 0 || next > MaxScore {
		return ErrScoreOutOfBounds
	}

	m.Sides[teamIndex].Score = next
	if next == MaxScore {
		winner := m.Sides[teamIndex].TeamID
		m.WinnerTeamID = &winner
		m.Status = MatchFinished
	}
	return nil
}

// Winner returns the snapshot of the winning side. ok is false while the
// match is still in progress.
func (m *Match) Winner() (TeamSnapshot, bool) {
	if m.Status != MatchFinished || m.WinnerTeamID == nil {
		return TeamSnapshot{}, false
	}
	for _, side := range m.Sides {
		if side.TeamID == *m.WinnerTeamID {
			return side.TeamSnapshot, true
		}
	}
	return TeamSnapshot{}, false
}

// Loser returns the snapshot of the losing side. ok is false while the match
// is still in progress.
func (m *Match) Loser() (TeamSnapshot, bool) {
	if m.Status != MatchFinished || m.WinnerTeamID == nil {
		return TeamSnapshot{}, false
	}
	for _, side := range m.Sides {
		if side.TeamID != *m.WinnerTeamID {
			return side.TeamSnapshot, true
		}
	}
	return TeamSnapshot{}, false
}
