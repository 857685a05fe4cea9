package models

import "time"

// UserLeagueStats is one user's row in a league's additive ledger.
type UserLeagueStats struct {
	UserID            int `json:"user_id"`
	Points            int `json:"points"`
	Wins              int `json:"wins"`
	Losses            int `json:"losses"`
	TournamentsPlayed int `json:"tournaments_played"`
}

// League groups tournaments and accumulates per-user stats as they complete.
// The ledger is append/add only: completing a tournament never rewrites
// earlier entries.
type League struct {
	ID            int               `json:"id"`
	Name          string            `json:"name"`
	Description   *string           `json:"description,omitempty"`
	TournamentIDs []int             `json:"tournament_ids"`
	UserStats     []UserLeagueStats `json:"user_stats"`
	IsActive      bool              `json:"is_active"`
	CreatedBy     int               `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
}

// StatsFor returns a pointer to the user's ledger row, creating it if absent.
func (l *League) StatsFor(userID int) *UserLeagueStats {
	for i := range l.UserStats {
		if l.UserStats[i].UserID == userID {
			return &l.UserStats[i]
		}
	}
	l.UserStats = append(l.UserStats, UserLeagueStats{UserID: userID})
	return &l.UserStats[len(l.UserStats)-1]
}
