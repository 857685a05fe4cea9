package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trucolab/truco-league/brackets"
	"github.com/trucolab/truco-league/models"
)

func tournamentMatch(id int, phase models.MatchPhase, slot int, status models.MatchStatus) *models.Match {
	return &models.Match{
		ID:           id,
		Type:         models.MatchTournament,
		Phase:        &phase,
		OrderInPhase: &slot,
		Status:       status,
	}
}

func TestGroupByPhase(t *testing.T) {
	matches := []*models.Match{
		tournamentMatch(1, models.PhaseQuarterfinals, 0, models.MatchFinished),
		tournamentMatch(2, models.PhaseQuarterfinals, 1, models.MatchFinished),
		tournamentMatch(3, models.PhaseSemifinalsGold, 0, models.MatchInProgress),
		{ID: 4, Type: models.MatchFriendly, Status: models.MatchInProgress}, // no phase, ignored
	}

	byPhase := groupByPhase(matches)
	assert.Len(t, byPhase[models.PhaseQuarterfinals], 2)
	assert.Len(t, byPhase[models.PhaseSemifinalsGold], 1)
	assert.Empty(t, byPhase[models.PhaseFinalGold])
}

func TestRoundFinished(t *testing.T) {
	complete := []*models.Match{
		tournamentMatch(1, models.PhaseSemifinalsGold, 0, models.MatchFinished),
		tournamentMatch(2, models.PhaseSemifinalsGold, 1, models.MatchFinished),
	}
	assert.True(t, roundFinished(complete, models.PhaseSemifinalsGold))

	// One match still running.
	complete[1].Status = models.MatchInProgress
	assert.False(t, roundFinished(complete, models.PhaseSemifinalsGold))

	// Right statuses but not enough matches for the phase.
	partial := complete[:1]
	partial[0].Status = models.MatchFinished
	assert.False(t, roundFinished(partial, models.PhaseSemifinalsGold))

	assert.False(t, roundFinished(nil, models.PhaseFinalGold))
}

func TestCreditTeam(t *testing.T) {
	ana, bruno := 1, 2
	league := &models.League{ID: 1, Name: "Liga de los Viernes"}
	team := models.TeamSnapshot{
		TeamID: uuid.New(),
		Name:   "Los Primos",
		Players: []models.Participant{
			{Kind: models.ParticipantRegistered, UserID: &ana, Name: "ana"},
			{Kind: models.ParticipantGuest, Name: "guest"},
			{Kind: models.ParticipantRegistered, UserID: &bruno, Name: "bruno"},
		},
	}

	creditTeam(league, team, 3, true)

	anaStats := league.StatsFor(ana)
	require.NotNil(t, anaStats)
	assert.Equal(t, 3, anaStats.Points)
	assert.Equal(t, 1, anaStats.Wins)
	assert.Equal(t, 0, anaStats.Losses)

	brunoStats := league.StatsFor(bruno)
	assert.Equal(t, 3, brunoStats.Points)

	// Only the two registered players get ledger rows; guests are skipped.
	assert.Len(t, league.UserStats, 2)

	creditTeam(league, team, 1, false)
	assert.Equal(t, 4, league.StatsFor(ana).Points)
	assert.Equal(t, 1, league.StatsFor(ana).Wins)
	assert.Equal(t, 1, league.StatsFor(ana).Losses)
}

func newBracketServiceHarness(t *testing.T) (BracketService, *fakeTournamentRepo, *fakeMatchRepo, *fakeLeagueRepo, *fakeTxBeginner) {
	t.Helper()
	tournamentRepo := newFakeTournamentRepo()
	matchRepo := newFakeMatchRepo()
	leagueRepo := newFakeLeagueRepo()
	beginner := &fakeTxBeginner{}
	svc := NewBracketService(beginner, tournamentRepo, matchRepo, leagueRepo, nil)
	return svc, tournamentRepo, matchRepo, leagueRepo, beginner
}

// bracketEntrants builds duo teams where team i carries registered user i+1,
// so ledger assertions can address players by team position.
func bracketEntrants(count int) []models.Team {
	teams := make([]models.Team, count)
	for i := range teams {
		userID := i + 1
		guestID := uuid.New()
		teams[i] = models.Team{
			ID:   uuid.New(),
			Name: fmt.Sprintf("Equipo %d", i+1),
			Players: []models.Participant{
				{Kind: models.ParticipantRegistered, UserID: &userID, Name: fmt.Sprintf("user%d", userID)},
				{Kind: models.ParticipantGuest, GuestID: &guestID, Name: "guest"},
			},
		}
	}
	return teams
}

func bracketTournament(t *testing.T, repo *fakeTournamentRepo, teamCount int) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		Name:   "Apertura",
		Status: models.TournamentUpcoming,
		Teams:  bracketEntrants(teamCount),
	}
	require.NoError(t, repo.Create(context.Background(), tournament))
	return tournament
}

// finishHomeSide scores the first side to the winning total and stores the
// finished match.
func finishHomeSide(t *testing.T, repo *fakeMatchRepo, matchID int) {
	t.Helper()
	match, err := repo.GetByID(context.Background(), matchID)
	require.NoError(t, err)
	require.NoError(t, match.ApplyScoreDelta(0, models.MaxScore))
	require.NoError(t, repo.Replace(context.Background(), match))
}

func matchesInPhase(t *testing.T, repo *fakeMatchRepo, tournamentID int, phase models.MatchPhase) []*models.Match {
	t.Helper()
	matches, err := repo.ListByTournament(context.Background(), nil, tournamentID, &phase)
	require.NoError(t, err)
	return matches
}

func TestGenerateQuarterfinals_CreatesSeededRound(t *testing.T) {
	svc, tournamentRepo, matchRepo, _, beginner := newBracketServiceHarness(t)
	ctx := context.Background()
	tournament := bracketTournament(t, tournamentRepo, models.BracketTeamCount)

	created, err := svc.GenerateQuarterfinals(ctx, tournament.ID, false)
	require.NoError(t, err)
	require.Len(t, created, 4)
	assert.Equal(t, 1, beginner.commits)

	seen := make(map[uuid.UUID]int)
	for i, match := range created {
		assert.Equal(t, models.MatchTournament, match.Type)
		assert.Equal(t, models.MatchInProgress, match.Status)
		require.NotNil(t, match.Phase)
		assert.Equal(t, models.PhaseQuarterfinals, *match.Phase)
		require.NotNil(t, match.OrderInPhase)
		assert.Equal(t, i, *match.OrderInPhase)
		seen[match.Sides[0].TeamID]++
		seen[match.Sides[1].TeamID]++
	}
	assert.Len(t, seen, models.BracketTeamCount, "every team plays exactly one quarter-final")

	// Without shuffling the seeding order pairs adjacent entrants.
	assert.Equal(t, tournament.Teams[0].ID, created[0].Sides[0].TeamID)
	assert.Equal(t, tournament.Teams[1].ID, created[0].Sides[1].TeamID)

	stored, err := tournamentRepo.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentInProgress, stored.Status)
	assert.Len(t, matchesInPhase(t, matchRepo, tournament.ID, models.PhaseQuarterfinals), 4)
}

func TestGenerateQuarterfinals_SecondCallReturnsExistingRound(t *testing.T) {
	svc, tournamentRepo, matchRepo, _, _ := newBracketServiceHarness(t)
	ctx := context.Background()
	tournament := bracketTournament(t, tournamentRepo, models.BracketTeamCount)

	first, err := svc.GenerateQuarterfinals(ctx, tournament.ID, false)
	require.NoError(t, err)

	second, err := svc.GenerateQuarterfinals(ctx, tournament.ID, true)
	require.NoError(t, err)
	require.Len(t, second, 4)

	firstIDs := make(map[int]bool, len(first))
	for _, match := range first {
		firstIDs[match.ID] = true
	}
	for _, match := range second {
		assert.True(t, firstIDs[match.ID], "retry must return the stored round, not a new one")
	}
	assert.Len(t, matchesInPhase(t, matchRepo, tournament.ID, models.PhaseQuarterfinals), 4)
}

func TestGenerateQuarterfinals_RequiresEightTeams(t *testing.T) {
	svc, tournamentRepo, matchRepo, _, beginner := newBracketServiceHarness(t)
	ctx := context.Background()
	tournament := bracketTournament(t, tournamentRepo, 5)

	_, err := svc.GenerateQuarterfinals(ctx, tournament.ID, false)
	assert.ErrorIs(t, err, ErrTournamentTeamCount)

	// Nothing committed, nothing written.
	assert.Equal(t, 0, beginner.commits)
	assert.Equal(t, 1, beginner.rollbacks)
	assert.Empty(t, matchesInPhase(t, matchRepo, tournament.ID, models.PhaseQuarterfinals))

	stored, err := tournamentRepo.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentUpcoming, stored.Status)
}

func TestGenerateQuarterfinals_UnknownTournament(t *testing.T) {
	svc, _, _, _, _ := newBracketServiceHarness(t)

	_, err := svc.GenerateQuarterfinals(context.Background(), 999, false)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestCreateRound_OccupiedSlotMeansRoundAlreadyGenerated(t *testing.T) {
	svc, tournamentRepo, _, _, _ := newBracketServiceHarness(t)
	ctx := context.Background()
	tournament := bracketTournament(t, tournamentRepo, models.BracketTeamCount)

	impl := svc.(*bracketService)
	pairings, err := brackets.SeedQuarterfinals(tournament.Teams, nil)
	require.NoError(t, err)

	_, err = impl.createRound(ctx, nil, tournament.ID, models.PhaseQuarterfinals, pairings)
	require.NoError(t, err)

	// A second writer racing into the same slots loses with a conflict.
	_, err = impl.createRound(ctx, nil, tournament.ID, models.PhaseQuarterfinals, pairings)
	assert.ErrorIs(t, err, ErrRoundAlreadyGenerated)
}

func TestAdvance_WaitsForFeederRound(t *testing.T) {
	svc, tournamentRepo, matchRepo, _, _ := newBracketServiceHarness(t)
	ctx := context.Background()
	tournament := bracketTournament(t, tournamentRepo, models.BracketTeamCount)

	quarterfinals, err := svc.GenerateQuarterfinals(ctx, tournament.ID, false)
	require.NoError(t, err)

	// Three of four quarter-finals done; no round can be derived yet.
	for _, match := range quarterfinals[:3] {
		finishHomeSide(t, matchRepo, match.ID)
	}

	created, err := svc.Advance(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, created)

	all, err := matchRepo.ListByTournament(ctx, nil, tournament.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestAdvance_FullLadderRun(t *testing.T) {
	svc, tournamentRepo, matchRepo, _, _ := newBracketServiceHarness(t)
	ctx := context.Background()
	tournament := bracketTournament(t, tournamentRepo, models.BracketTeamCount)

	quarterfinals, err := svc.GenerateQuarterfinals(ctx, tournament.ID, false)
	require.NoError(t, err)
	for _, match := range quarterfinals {
		finishHomeSide(t, matchRepo, match.ID)
	}

	created, err := svc.Advance(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, created, 4, "both semi-final rounds derive at once")

	goldSemis := matchesInPhase(t, matchRepo, tournament.ID, models.PhaseSemifinalsGold)
	silverSemis := matchesInPhase(t, matchRepo, tournament.ID, models.PhaseSemifinalsSilver)
	require.Len(t, goldSemis, 2)
	require.Len(t, silverSemis, 2)

	winners := make(map[uuid.UUID]bool)
	for _, match := range quarterfinals {
		stored, err := matchRepo.GetByID(ctx, match.ID)
		require.NoError(t, err)
		snapshot, ok := stored.Winner()
		require.True(t, ok)
		winners[snapshot.TeamID] = true
	}
	for _, match := range goldSemis {
		assert.True(t, winners[match.Sides[0].TeamID], "gold ladder takes quarter-final winners")
		assert.True(t, winners[match.Sides[1].TeamID])
	}
	for _, match := range silverSemis {
		assert.False(t, winners[match.Sides[0].TeamID], "silver ladder takes quarter-final losers")
		assert.False(t, winners[match.Sides[1].TeamID])
	}

	// Advancing again with nothing new finished creates nothing.
	again, err := svc.Advance(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	for _, match := range append(goldSemis, silverSemis...) {
		finishHomeSide(t, matchRepo, match.ID)
	}
	created, err = svc.Advance(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, created, 2, "one final per ladder")

	goldFinal := matchesInPhase(t, matchRepo, tournament.ID, models.PhaseFinalGold)
	silverFinal := matchesInPhase(t, matchRepo, tournament.ID, models.PhaseFinalSilver)
	require.Len(t, goldFinal, 1)
	require.Len(t, silverFinal, 1)
	finishHomeSide(t, matchRepo, goldFinal[0].ID)
	finishHomeSide(t, matchRepo, silverFinal[0].ID)

	created, err = svc.Advance(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, created)

	stored, err := tournamentRepo.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, stored.Status)

	all, err := matchRepo.ListByTournament(ctx, nil, tournament.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 10, "4 quarter-finals, 4 semi-finals, 2 finals")

	// A completed tournament is terminal.
	created, err = svc.Advance(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestAdvance_AppliesLeagueLedgerOnCompletion(t *testing.T) {
	svc, tournamentRepo, matchRepo, leagueRepo, _ := newBracketServiceHarness(t)
	ctx := context.Background()
	tournament := bracketTournament(t, tournamentRepo, models.BracketTeamCount)

	league := &models.League{Name: "Liga de los Viernes", IsActive: true}
	require.NoError(t, leagueRepo.Create(ctx, league))
	require.NoError(t, leagueRepo.AttachTournament(ctx, league.ID, tournament.ID))

	_, err := svc.GenerateQuarterfinals(ctx, tournament.ID, false)
	require.NoError(t, err)

	// With the home side always winning, team 1 takes the gold final over
	// team 5 (users 1 and 5 in bracketEntrants numbering).
	for i := 0; i < 3; i++ {
		for _, match := range mustList(t, matchRepo, tournament.ID) {
			if match.Status == models.MatchInProgress {
				finishHomeSide(t, matchRepo, match.ID)
			}
		}
		_, err := svc.Advance(ctx, tournament.ID)
		require.NoError(t, err)
	}

	stored, err := tournamentRepo.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, models.TournamentCompleted, stored.Status)

	updated, err := leagueRepo.GetByID(ctx, league.ID)
	require.NoError(t, err)
	assert.Len(t, updated.UserStats, models.BracketTeamCount, "one row per registered player")

	champion := updated.StatsFor(1)
	assert.Equal(t, 3, champion.Points)
	assert.Equal(t, 1, champion.Wins)
	assert.Equal(t, 0, champion.Losses)
	assert.Equal(t, 1, champion.TournamentsPlayed)

	runnerUp := updated.StatsFor(5)
	assert.Equal(t, 1, runnerUp.Points)
	assert.Equal(t, 0, runnerUp.Wins)
	assert.Equal(t, 1, runnerUp.Losses)
	assert.Equal(t, 1, runnerUp.TournamentsPlayed)

	// Silver results carry no points; everyone still gets the appearance.
	bystander := updated.StatsFor(2)
	assert.Equal(t, 0, bystander.Points)
	assert.Equal(t, 1, bystander.TournamentsPlayed)
}

func mustList(t *testing.T, repo *fakeMatchRepo, tournamentID int) []*models.Match {
	t.Helper()
	matches, err := repo.ListByTournament(context.Background(), nil, tournamentID, nil)
	require.NoError(t, err)
	return matches
}
