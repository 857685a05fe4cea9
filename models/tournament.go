package models

import (
	"time"

	"github.com/google/uuid"
)

// BracketTeamCount is the only roster size the bracket supports: four
// quarter-finals feeding the gold and silver ladders.
const BracketTeamCount = 8

type TournamentStatus string

const (
	TournamentUpcoming   TournamentStatus = "upcoming"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentCompleted  TournamentStatus = "completed"
)

// Tournament owns the fixed team list and, through the matches table, the
// bracket derived from it. Teams are embedded documents: they exist only
// within the tournament and their order is the seeding order.
type Tournament struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	StartDate   time.Time        `json:"start_date"`
	Status      TournamentStatus `json:"status"`
	Teams       []Team           `json:"teams"`
	LogoKey     *string          `json:"-"`
	LogoURL     *string          `json:"logo_url,omitempty"`
	CreatedBy   int              `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TeamByID returns the embedded team with the given identifier.
func (t *Tournament) TeamByID(id uuid.UUID) (Team, bool) {
	for _, team := range t.Teams {
		if team.ID == id {
			return team, true
		}
	}
	return Team{}, false
}
