package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/repositories"
)

type CreateLeagueInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type LeagueService interface {
	CreateLeague(ctx context.Context, createdBy int, input CreateLeagueInput) (*models.League, error)
	GetLeagueByID(ctx context.Context, id int) (*models.League, error)
	ListLeagues(ctx context.Context) ([]*models.League, error)
	AttachTournament(ctx context.Context, leagueID, tournamentID int) (*models.League, error)
}

type leagueService struct {
	leagueRepo     repositories.LeagueRepository
	tournamentRepo repositories.TournamentRepository
}

func NewLeagueService(leagueRepo repositories.LeagueRepository, tournamentRepo repositories.TournamentRepository) LeagueService {
	return &leagueService{
		leagueRepo:     leagueRepo,
		tournamentRepo: tournamentRepo,
	}
}

func (s *leagueService) CreateLeague(ctx context.Context, createdBy int, input CreateLeagueInput) (*models.League, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: league name is required", ErrValidationFailed)
	}

	league := &models.League{
		Name:          input.Name,
		Description:   input.Description,
		TournamentIDs: []int{},
		UserStats:     []models.UserLeagueStats{},
		IsActive:      true,
		CreatedBy:     createdBy,
	}

	if err := s.leagueRepo.Create(ctx, league); err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}
	return league, nil
}

func (s *leagueService) GetLeagueByID(ctx context.Context, id int) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to load league %d: %w", id, err)
	}
	return league, nil
}

func (s *leagueService) ListLeagues(ctx context.Context) ([]*models.League, error) {
	leagues, err := s.leagueRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	return leagues, nil
}

func (s *leagueService) AttachTournament(ctx context.Context, leagueID, tournamentID int) (*models.League, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	if err := s.leagueRepo.AttachTournament(ctx, leagueID, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to attach tournament %d to league %d: %w", tournamentID, leagueID, err)
	}
	return s.GetLeagueByID(ctx, leagueID)
}
