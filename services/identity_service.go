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

// ParticipantResolver normalizes raw player references into Participant
// values. Registered references must point at an existing account; guest
// references always succeed and mint a fresh guest id. Resolution is a pure
// mapping: resolving the same user twice yields two equal participants, and
// uniqueness is enforced by teams, not here.
type ParticipantResolver interface {
	Resolve(ctx context.Context, ref models.PlayerRef) (models.Participant, error)
	ResolveAll(ctx context.Context, refs []models.PlayerRef) ([]models.Participant, error)
}

type participantResolver struct {
	userRepo repositories.UserRepository
}

func NewParticipantResolver(userRepo repositories.UserRepository) ParticipantResolver {
	return &participantResolver{userRepo: userRepo}
}

func (r *participantResolver) Resolve(ctx context.Context, ref models.PlayerRef) (models.Participant, error) {
	if ref.IsGuest || ref.PlayerID == nil {
		name := strings.TrimSpace(ref.Name)
		if name == "" {
			return models.Participant{}, ErrPlayerNameRequired
		}
		guestID := uuid.New()
		return models.Participant{
			Kind:    models.ParticipantGuest,
			GuestID: &guestID,
			Name:    name,
		}, nil
	}

	user, err := r.userRepo.GetByID(ctx, *ref.PlayerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Participant{}, fmt.Errorf("%w: player %d", ErrUserNotFound, *ref.PlayerID)
		}
		return models.Participant{}, fmt.Errorf("failed to resolve player %d: %w", *ref.PlayerID, err)
	}

	userID := user.ID
	return models.Participant{
		Kind:   models.ParticipantRegistered,
		UserID: &userID,
		Name:   user.Username,
	}, nil
}

func (r *participantResolver) ResolveAll(ctx context.Context, refs []models.PlayerRef) ([]models.Participant, error) {
	participants := make([]models.Participant, 0, len(refs))
	for _, ref := range refs {
		participant, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}
