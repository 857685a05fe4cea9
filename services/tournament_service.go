package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/repositories"
	"github.com/trucolab/truco-league/storage"
)

type CreateTournamentInput struct {
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
}

type UpdateTournamentInput struct {
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, createdBy int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	UpdateTournament(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
	UploadLogo(ctx context.Context, id int, contentType string, file io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	uploader       storage.FileUploader
}

func NewTournamentService(tournamentRepo repositories.TournamentRepository, uploader storage.FileUploader) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		uploader:       uploader,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, createdBy int, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if input.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrValidationFailed)
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Description: input.Description,
		StartDate:   input.StartDate,
		Status:      models.TournamentUpcoming,
		Teams:       []models.Team{},
		CreatedBy:   createdBy,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for _, tournament := range tournaments {
		s.populateLogoURL(tournament)
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}

	if err := s.tournamentRepo.UpdateMeta(ctx, id, input.Name, input.Description, input.StartDate); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	return s.GetTournamentByID(ctx, id)
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}

	if tournament.LogoKey != nil && s.uploader != nil {
		// The record is gone; an orphaned object is not worth failing the
		// request over.
		_ = s.uploader.Delete(ctx, *tournament.LogoKey)
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id int, contentType string, file io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: logo storage is not configured", ErrValidationFailed)
	}
	if contentType != "image/png" && contentType != "image/jpeg" && contentType != "image/webp" {
		return nil, fmt.Errorf("%w: unsupported logo content type %q", ErrValidationFailed, contentType)
	}

	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/logo-%s", id, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo for tournament %d: %w", id, err)
	}

	oldKey := tournament.LogoKey
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to store logo key for tournament %d: %w", id, err)
	}
	if oldKey != nil {
		_ = s.uploader.Delete(ctx, *oldKey)
	}

	tournament.LogoKey = &result.Key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) populateLogoURL(tournament *models.Tournament) {
	if tournament.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*tournament.LogoKey)
		tournament.LogoURL = &url
	}
}
