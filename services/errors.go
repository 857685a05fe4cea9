package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapper. Every
// error here is detected before any persistence write, so a failed request
// never leaves partial state behind.
var (
	// Not found
	ErrNotFound           = errors.New("requested resource not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrLeagueNotFound     = errors.New("league not found")
	ErrTeamNotFound       = errors.New("team not found in this tournament")

	// Validation
	ErrValidationFailed      = errors.New("validation failed")
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrTeamSizeInvalid       = errors.New("team must have exactly 2 (duo) or 3 (trio) players")
	ErrPlayerNameRequired    = errors.New("player name is required")
	ErrPlayerAlreadyInTeam   = errors.New("registered player already belongs to a team in this tournament")
	ErrTournamentTeamCount   = errors.New("tournament must have exactly 8 teams to generate the bracket")
	ErrTournamentTeamsLocked = errors.New("team list is locked once the bracket has been generated")
	ErrMatchTeamsInvalid     = errors.New("match requires exactly two team entries with team ids")
	ErrMatchWinnerInvalid    = errors.New("winner must be one of the match's two teams")
	ErrMatchTournamentNeeded = errors.New("tournament matches must reference a tournament")
	ErrPhaseInvalid          = errors.New("unknown bracket phase")

	// Invalid transitions
	ErrMatchFinished    = errors.New("match is finished, no further score changes are accepted")
	ErrScoreOutOfBounds = errors.New("score delta would leave score outside [0, 30]")

	// Conflicts: the losing caller must re-fetch state, nothing was written
	ErrRoundAlreadyGenerated = errors.New("round has already been generated for this tournament")
	ErrMatchUpdateConflict   = errors.New("match was updated concurrently, re-fetch and retry")

	// Auth
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrPasswordTooShort       = errors.New("password is too short")
)
