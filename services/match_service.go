package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/trucolab/truco-league/brackets"
	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/repositories"
)

type MatchTeamInput struct {
	TeamID  *uuid.UUID         `json:"team_id"`
	Score   *int               `json:"score"`
	Name    string             `json:"name"`
	Players []models.PlayerRef `json:"players"`
}

type CreateMatchInput struct {
	Tournament *int               `json:"tournament,omitempty"`
	Teams      []MatchTeamInput   `json:"teams"`
	Type       models.MatchType   `json:"type"`
	Phase      *models.MatchPhase `json:"phase,omitempty"`
}

type UpdateMatchInput struct {
	Teams  []MatchTeamInput   `json:"teams"`
	Winner *uuid.UUID         `json:"winner,omitempty"`
	Status models.MatchStatus `json:"status"`
}

// MatchService owns the match lifecycle: creation, the score state machine
// and the terminal transition. A finished tournament match synchronously
// re-evaluates bracket advancement.
type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, phase *models.MatchPhase) ([]*models.Match, error)
	ApplyScoreDelta(ctx context.Context, matchID, teamIndex, delta int) (*models.Match, error)
	UpdateMatch(ctx context.Context, id int, input UpdateMatchInput) (*models.Match, error)
	DeleteMatch(ctx context.Context, id int) error
}

type matchService struct {
	db             repositories.SQLExecutor
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	resolver       ParticipantResolver
	bracketService BracketService
	hub            *brackets.Hub
}

func NewMatchService(
	db repositories.SQLExecutor,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	resolver ParticipantResolver,
	bracketService BracketService,
	hub *brackets.Hub,
) MatchService {
	return &matchService{
		db:             db,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		resolver:       resolver,
		bracketService: bracketService,
		hub:            hub,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if input.Type != models.MatchFriendly && input.Type != models.MatchTournament {
		return nil, fmt.Errorf("%w: unknown match type %q", ErrValidationFailed, input.Type)
	}
	if len(input.Teams) != 2 {
		return nil, ErrMatchTeamsInvalid
	}
	for _, team := range input.Teams {
		if team.TeamID == nil || team.Score == nil {
			return nil, ErrMatchTeamsInvalid
		}
		if *team.Score < 0 || *team.Score > models.MaxScore {
			return nil, ErrScoreOutOfBounds
		}
	}

	match := &models.Match{
		Type:   input.Type,
		Status: models.MatchInProgress,
	}

	if input.Type == models.MatchTournament {
		if input.Tournament == nil {
			return nil, ErrMatchTournamentNeeded
		}
		if _, err := s.tournamentRepo.GetByID(ctx, *input.Tournament); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil, ErrTournamentNotFound
			}
			return nil, fmt.Errorf("failed to load tournament %d: %w", *input.Tournament, err)
		}
		match.TournamentID = input.Tournament
		if input.Phase != nil {
			if !input.Phase.Valid() {
				return nil, fmt.Errorf("%w: %q", ErrPhaseInvalid, *input.Phase)
			}
			match.Phase = input.Phase
		}
	} else if input.Tournament != nil || input.Phase != nil {
		return nil, fmt.Errorf("%w: friendly matches carry no tournament or phase", ErrValidationFailed)
	}

	for i, team := range input.Teams {
		players, err := s.resolver.ResolveAll(ctx, team.Players)
		if err != nil {
			return nil, err
		}
		match.Sides[i] = models.MatchSide{
			TeamSnapshot: models.TeamSnapshot{
				TeamID:  *team.TeamID,
				Name:    team.Name,
				Players: players,
			},
			Score: *team.Score,
		}
	}

	if err := s.matchRepo.Create(ctx, s.db, match); err != nil {
		if errors.Is(err, repositories.ErrMatchPhaseSlotTaken) {
			return nil, fmt.Errorf("%w: %s", ErrRoundAlreadyGenerated, *match.Phase)
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", id, err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, phase *models.MatchPhase) ([]*models.Match, error) {
	if phase != nil && !phase.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrPhaseInvalid, *phase)
	}
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	matches, err := s.matchRepo.ListByTournament(ctx, s.db, tournamentID, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *matchService) ApplyScoreDelta(ctx context.Context, matchID, teamIndex, delta int) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	previousScore := 0
	if teamIndex == 0 || teamIndex == 1 {
		previousScore = match.Sides[teamIndex].Score
	}

	if err := match.ApplyScoreDelta(teamIndex, delta); err != nil {
		switch {
		case errors.Is(err, models.ErrMatchAlreadyFinished):
			return nil, ErrMatchFinished
		case errors.Is(err, models.ErrScoreOutOfBounds):
			return nil, ErrScoreOutOfBounds
		default:
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
	}

	// The write is guarded on the score we read, so two concurrent deltas
	// converging on the same match cannot both apply.
	if err := s.matchRepo.UpdateScoreCAS(ctx, match, teamIndex, previousScore); err != nil {
		if errors.Is(err, repositories.ErrMatchUpdateConflict) {
			return nil, ErrMatchUpdateConflict
		}
		return nil, fmt.Errorf("failed to persist score for match %d: %w", matchID, err)
	}

	s.broadcastMatch(match)

	if match.Status == models.MatchFinished && match.TournamentID != nil && match.Phase != nil {
		if _, err := s.bracketService.Advance(ctx, *match.TournamentID); err != nil {
			if errors.Is(err, ErrRoundAlreadyGenerated) {
				// A concurrent trigger generated the round first; the
				// bracket is already where it needs to be.
				log.Printf("match %d: round advancement lost race: %v", matchID, err)
			} else {
				return nil, fmt.Errorf("failed to advance bracket after match %d: %w", matchID, err)
			}
		}
	}
	return match, nil
}

func (s *matchService) UpdateMatch(ctx context.Context, id int, input UpdateMatchInput) (*models.Match, error) {
	match, err := s.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(input.Teams) != 2 {
		return nil, ErrMatchTeamsInvalid
	}
	if input.Status != models.MatchInProgress && input.Status != models.MatchFinished {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidationFailed, input.Status)
	}

	for i, team := range input.Teams {
		if team.TeamID == nil || team.Score == nil {
			return nil, ErrMatchTeamsInvalid
		}
		if *team.Score < 0 || *team.Score > models.MaxScore {
			return nil, ErrScoreOutOfBounds
		}
		// Replace semantics keep the stored roster snapshot; only team
		// identity and score are caller-controlled here.
		match.Sides[i].TeamID = *team.TeamID
		if team.Name != "" {
			match.Sides[i].Name = team.Name
		}
		match.Sides[i].Score = *team.Score
	}

	if input.Status == models.MatchFinished {
		if input.Winner == nil {
			return nil, ErrMatchWinnerInvalid
		}
		if *input.Winner != match.Sides[0].TeamID && *input.Winner != match.Sides[1].TeamID {
			return nil, ErrMatchWinnerInvalid
		}
	} else {
		if input.Winner != nil {
			return nil, fmt.Errorf("%w: winner requires finished status", ErrMatchWinnerInvalid)
		}
		// A side at the winning total is only representable as a finished
		// match with a winner.
		for _, side := range match.Sides {
			if side.Score == models.MaxScore {
				return nil, fmt.Errorf("%w: score %d requires finished status", ErrValidationFailed, models.MaxScore)
			}
		}
	}
	match.WinnerTeamID = input.Winner
	match.Status = input.Status

	if err := s.matchRepo.Replace(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to update match %d: %w", id, err)
	}

	s.broadcastMatch(match)

	if match.Status == models.MatchFinished && match.TournamentID != nil && match.Phase != nil {
		if _, err := s.bracketService.Advance(ctx, *match.TournamentID); err != nil && !errors.Is(err, ErrRoundAlreadyGenerated) {
			return nil, fmt.Errorf("failed to advance bracket after match %d: %w", id, err)
		}
	}
	return match, nil
}

func (s *matchService) DeleteMatch(ctx context.Context, id int) error {
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return nil
}

func (s *matchService) broadcastMatch(match *models.Match) {
	if s.hub == nil || match.TournamentID == nil {
		return
	}
	room := "tournament_" + strconv.Itoa(*match.TournamentID)
	s.hub.BroadcastToRoom(room, brackets.Event{Type: brackets.EventMatchUpdated, Payload: match})
}
