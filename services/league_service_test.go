package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trucolab/truco-league/models"
)

func TestCreateLeague(t *testing.T) {
	svc := NewLeagueService(newFakeLeagueRepo(), newFakeTournamentRepo())

	league, err := svc.CreateLeague(context.Background(), 7, CreateLeagueInput{Name: "  Liga de los Viernes  "})
	require.NoError(t, err)

	assert.NotZero(t, league.ID)
	assert.Equal(t, "Liga de los Viernes", league.Name)
	assert.Equal(t, 7, league.CreatedBy)
	assert.True(t, league.IsActive)
	assert.Empty(t, league.TournamentIDs)
	assert.Empty(t, league.UserStats)
}

func TestCreateLeague_NameRequired(t *testing.T) {
	svc := NewLeagueService(newFakeLeagueRepo(), newFakeTournamentRepo())

	_, err := svc.CreateLeague(context.Background(), 7, CreateLeagueInput{Name: "   "})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestAttachTournament(t *testing.T) {
	leagueRepo := newFakeLeagueRepo()
	tournamentRepo := newFakeTournamentRepo()
	svc := NewLeagueService(leagueRepo, tournamentRepo)
	ctx := context.Background()

	tournament := &models.Tournament{Name: "Apertura", StartDate: time.Now(), Status: models.TournamentUpcoming}
	require.NoError(t, tournamentRepo.Create(ctx, tournament))

	league, err := svc.CreateLeague(ctx, 1, CreateLeagueInput{Name: "Liga"})
	require.NoError(t, err)

	attached, err := svc.AttachTournament(ctx, league.ID, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{tournament.ID}, attached.TournamentIDs)

	// Re-attaching the same tournament is a no-op, not an error.
	attached, err = svc.AttachTournament(ctx, league.ID, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{tournament.ID}, attached.TournamentIDs)
}

func TestAttachTournament_UnknownTournament(t *testing.T) {
	svc := NewLeagueService(newFakeLeagueRepo(), newFakeTournamentRepo())
	ctx := context.Background()

	league, err := svc.CreateLeague(ctx, 1, CreateLeagueInput{Name: "Liga"})
	require.NoError(t, err)

	_, err = svc.AttachTournament(ctx, league.ID, 999)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestAttachTournament_UnknownLeague(t *testing.T) {
	tournamentRepo := newFakeTournamentRepo()
	svc := NewLeagueService(newFakeLeagueRepo(), tournamentRepo)
	ctx := context.Background()

	tournament := &models.Tournament{Name: "Apertura", StartDate: time.Now(), Status: models.TournamentUpcoming}
	require.NoError(t, tournamentRepo.Create(ctx, tournament))

	_, err := svc.AttachTournament(ctx, 999, tournament.ID)
	assert.ErrorIs(t, err, ErrLeagueNotFound)
}
