package models

import "github.com/google/uuid"

// Team sizes by match format: duos play 2-a-side, trios 3-a-side.
const (
	TeamSizeDuo  = 2
	TeamSizeTrio = 3
)

// Team is an ordered, fixed-size group of participants. The ID is minted when
// the team is built and is the join key used by every match in the bracket.
// Membership is immutable once the tournament bracket has been generated.
type Team struct {
	ID      uuid.UUID     `json:"team_id"`
	Name    string        `json:"name"`
	Players []Participant `json:"players"`
}

// Snapshot returns the team's roster as copied into match records. Matches
// store the snapshot, not a reference, so later renames do not rewrite
// history.
func (t Team) Snapshot() TeamSnapshot {
	players := make([]Participant, len(t.Players))
	copy(players, t.Players)
	return TeamSnapshot{
		TeamID:  t.ID,
		Name:    t.Name,
		Players: players,
	}
}

// TeamSnapshot is the denormalized team entry embedded in a match.
type TeamSnapshot struct {
	TeamID  uuid.UUID     `json:"team_id"`
	Name    string        `json:"name"`
	Players []Participant `json:"players"`
}

// HasRegisteredUser reports whether the given registered user is on the team.
func (t Team) HasRegisteredUser(userID int) bool {
	for _, p := range t.Players {
		if p.Kind == ParticipantRegistered && p.UserID != nil && *p.UserID == userID {
			return true
		}
	}
	return false
}
