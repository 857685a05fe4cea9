package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/repositories"
)

type CreateTeamInput struct {
	Name    string             `json:"name"`
	Members []models.PlayerRef `json:"members"`
}

// TeamService is the team builder: it resolves the member references, checks
// the roster against the tournament and mints the team identifier that every
// match will use as its join key. Membership stays editable only while the
// tournament is upcoming; once the bracket exists the roster is frozen.
type TeamService interface {
	AddTeamToTournament(ctx context.Context, tournamentID int, input CreateTeamInput) (*models.Team, error)
	UpdateTeamInTournament(ctx context.Context, tournamentID int, teamID uuid.UUID, input CreateTeamInput) (*models.Team, error)
	RemoveTeamFromTournament(ctx context.Context, tournamentID int, teamID uuid.UUID) error
}

type teamService struct {
	db             repositories.TxBeginner
	tournamentRepo repositories.TournamentRepository
	resolver       ParticipantResolver
}

func NewTeamService(db repositories.TxBeginner, tournamentRepo repositories.TournamentRepository, resolver ParticipantResolver) TeamService {
	return &teamService{
		db:             db,
		tournamentRepo: tournamentRepo,
		resolver:       resolver,
	}
}

func (s *teamService) AddTeamToTournament(ctx context.Context, tournamentID int, input CreateTeamInput) (*models.Team, error) {
	players, err := s.resolveRoster(ctx, &input)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The row lock serializes concurrent team additions, so two callers
	// cannot both pass the duplicate-assignment check for the same player.
	tournament, err := s.lockEditableTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	if len(tournament.Teams) >= models.BracketTeamCount {
		return nil, fmt.Errorf("%w: tournament already has %d teams", ErrValidationFailed, len(tournament.Teams))
	}
	if err := checkRosterAgainstTournament(tournament, players, uuid.Nil); err != nil {
		return nil, err
	}

	team := models.Team{
		ID:      uuid.New(),
		Name:    input.Name,
		Players: players,
	}

	teams := append(tournament.Teams, team)
	if err := s.tournamentRepo.UpdateTeams(ctx, tx, tournamentID, teams); err != nil {
		return nil, fmt.Errorf("failed to store team for tournament %d: %w", tournamentID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit team creation: %w", err)
	}
	return &team, nil
}

// UpdateTeamInTournament replaces a team's name and roster in place, keeping
// its identifier stable so any references to the team survive the edit.
func (s *teamService) UpdateTeamInTournament(ctx context.Context, tournamentID int, teamID uuid.UUID, input CreateTeamInput) (*models.Team, error) {
	players, err := s.resolveRoster(ctx, &input)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tournament, err := s.lockEditableTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, existing := range tournament.Teams {
		if existing.ID == teamID {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, ErrTeamNotFound
	}
	if err := checkRosterAgainstTournament(tournament, players, teamID); err != nil {
		return nil, err
	}

	team := models.Team{
		ID:      teamID,
		Name:    input.Name,
		Players: players,
	}
	tournament.Teams[index] = team

	if err := s.tournamentRepo.UpdateTeams(ctx, tx, tournamentID, tournament.Teams); err != nil {
		return nil, fmt.Errorf("failed to store team for tournament %d: %w", tournamentID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit team update: %w", err)
	}
	return &team, nil
}

func (s *teamService) RemoveTeamFromTournament(ctx context.Context, tournamentID int, teamID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tournament, err := s.lockEditableTournament(ctx, tx, tournamentID)
	if err != nil {
		return err
	}

	teams := make([]models.Team, 0, len(tournament.Teams))
	found := false
	for _, existing := range tournament.Teams {
		if existing.ID == teamID {
			found = true
			continue
		}
		teams = append(teams, existing)
	}
	if !found {
		return ErrTeamNotFound
	}

	if err := s.tournamentRepo.UpdateTeams(ctx, tx, tournamentID, teams); err != nil {
		return fmt.Errorf("failed to store teams for tournament %d: %w", tournamentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit team removal: %w", err)
	}
	return nil
}

// resolveRoster validates the shape of the input and resolves its member
// references before any transaction is opened.
func (s *teamService) resolveRoster(ctx context.Context, input *CreateTeamInput) ([]models.Participant, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrTeamNameRequired
	}
	if size := len(input.Members); size != models.TeamSizeDuo && size != models.TeamSizeTrio {
		return nil, fmt.Errorf("%w: got %d", ErrTeamSizeInvalid, len(input.Members))
	}
	return s.resolver.ResolveAll(ctx, input.Members)
}

// lockEditableTournament loads the tournament under a row lock and rejects
// membership changes once quarter-finals have been generated.
func (s *teamService) lockEditableTournament(ctx context.Context, tx repositories.Tx, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.Status != models.TournamentUpcoming {
		return nil, ErrTournamentTeamsLocked
	}
	return tournament, nil
}

// checkRosterAgainstTournament enforces the rules shared by add and update:
// the incoming team must match the side size already in play, and a
// registered player can belong to at most one team. excludeTeamID skips the
// team being edited so its own current members do not trip the check.
func checkRosterAgainstTournament(tournament *models.Tournament, players []models.Participant, excludeTeamID uuid.UUID) error {
	for _, existing := range tournament.Teams {
		if existing.ID == excludeTeamID {
			continue
		}
		if len(existing.Players) != len(players) {
			return fmt.Errorf("%w: tournament plays %d-a-side", ErrTeamSizeInvalid, len(existing.Players))
		}
	}
	for _, player := range players {
		if player.Kind != models.ParticipantRegistered {
			continue
		}
		for _, existing := range tournament.Teams {
			if existing.ID == excludeTeamID {
				continue
			}
			if existing.HasRegisteredUser(*player.UserID) {
				return fmt.Errorf("%w: %s in team %q", ErrPlayerAlreadyInTeam, player.Name, existing.Name)
			}
		}
	}
	return nil
}
