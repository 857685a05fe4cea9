package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/trucolab/truco-league/brackets"
	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/repositories"
)

// BracketService drives the bracket forward. Round generation is pull-based
// and idempotent: every call re-derives "which rounds can exist now" from the
// persisted match list, so retries, out-of-order score delivery and
// concurrent triggers all converge on the same bracket.
type BracketService interface {
	// GenerateQuarterfinals creates the four quarter-final matches for a
	// tournament with exactly 8 teams. All four are created in one
	// transaction or none at all. Calling it again returns the existing
	// round untouched.
	GenerateQuarterfinals(ctx context.Context, tournamentID int, shuffle bool) ([]*models.Match, error)
	// Advance generates every round whose feeder round is fully finished
	// and which does not exist yet, and completes the tournament once both
	// finals are finished. It returns the newly created matches.
	Advance(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type bracketService struct {
	db             repositories.TxBeginner
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	leagueRepo     repositories.LeagueRepository
	hub            *brackets.Hub
}

func NewBracketService(
	db repositories.TxBeginner,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	leagueRepo repositories.LeagueRepository,
	hub *brackets.Hub,
) BracketService {
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		leagueRepo:     leagueRepo,
		hub:            hub,
	}
}

func (s *bracketService) GenerateQuarterfinals(ctx context.Context, tournamentID int, shuffle bool) ([]*models.Match, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	phase := models.PhaseQuarterfinals
	existing, err := s.matchRepo.ListByTournament(ctx, tx, tournamentID, &phase)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarter-finals for tournament %d: %w", tournamentID, err)
	}
	if len(existing) > 0 {
		// Already generated; idempotent no-op.
		return existing, nil
	}

	if len(tournament.Teams) != models.BracketTeamCount {
		return nil, fmt.Errorf("%w: got %d", ErrTournamentTeamCount, len(tournament.Teams))
	}

	var rng *rand.Rand
	if shuffle {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	pairings, err := brackets.SeedQuarterfinals(tournament.Teams, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to seed quarter-finals: %w", err)
	}

	created, err := s.createRound(ctx, tx, tournamentID, phase, pairings)
	if err != nil {
		return nil, err
	}

	// First matches exist now, the tournament is under way.
	if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.TournamentInProgress); err != nil {
		return nil, fmt.Errorf("failed to mark tournament %d in progress: %w", tournamentID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit quarter-final generation: %w", err)
	}

	s.broadcast(tournamentID, brackets.EventRoundGenerated, created)
	return created, nil
}

func (s *bracketService) Advance(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.Status == models.TournamentCompleted {
		return nil, nil
	}

	matches, err := s.matchRepo.ListByTournament(ctx, tx, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}

	byPhase := groupByPhase(matches)
	created := make([]*models.Match, 0)

	for _, phase := range models.AllPhases {
		feederPhase, derivable := phase.FeederPhase()
		if !derivable {
			continue // quarter-finals are seeded, not derived
		}
		if len(byPhase[phase]) > 0 {
			continue // round already exists
		}
		feeder := byPhase[feederPhase]
		if !roundFinished(feeder, feederPhase) {
			continue // prerequisite round not done: no-op, caller retries later
		}

		pairings, err := brackets.NextPairings(phase, feeder)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s pairings: %w", phase, err)
		}
		round, err := s.createRound(ctx, tx, tournamentID, phase, pairings)
		if err != nil {
			return nil, err
		}
		byPhase[phase] = round
		created = append(created, round...)
	}

	completed := roundFinished(byPhase[models.PhaseFinalGold], models.PhaseFinalGold) &&
		roundFinished(byPhase[models.PhaseFinalSilver], models.PhaseFinalSilver)
	if completed {
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.TournamentCompleted); err != nil {
			return nil, fmt.Errorf("failed to complete tournament %d: %w", tournamentID, err)
		}
		if err := s.applyLeagueLedgers(ctx, tx, tournament, byPhase[models.PhaseFinalGold][0]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket advancement: %w", err)
	}

	if len(created) > 0 {
		s.broadcast(tournamentID, brackets.EventRoundGenerated, created)
	}
	if completed {
		s.broadcast(tournamentID, brackets.EventTournamentCompleted, tournamentID)
	}
	return created, nil
}

func (s *bracketService) createRound(ctx context.Context, tx repositories.SQLExecutor, tournamentID int, phase models.MatchPhase, pairings []brackets.Pairing) ([]*models.Match, error) {
	created := make([]*models.Match, 0, len(pairings))
	for slot, pairing := range pairings {
		slot := slot
		phase := phase
		match := &models.Match{
			TournamentID: &tournamentID,
			Type:         models.MatchTournament,
			Phase:        &phase,
			OrderInPhase: &slot,
			Status:       models.MatchInProgress,
		}
		match.Sides[0] = models.MatchSide{TeamSnapshot: pairing.Home}
		match.Sides[1] = models.MatchSide{TeamSnapshot: pairing.Away}

		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			if errors.Is(err, repositories.ErrMatchPhaseSlotTaken) {
				// A concurrent trigger won the race; the whole transaction
				// rolls back and the caller re-fetches state.
				return nil, fmt.Errorf("%w: %s", ErrRoundAlreadyGenerated, phase)
			}
			return nil, fmt.Errorf("failed to create %s match %d: %w", phase, slot, err)
		}
		created = append(created, match)
	}
	return created, nil
}

// applyLeagueLedgers adds the tournament's outcome to every league that
// contains it: champion players get a win, gold-final losers a loss, and
// every registered player one tournament played.
func (s *bracketService) applyLeagueLedgers(ctx context.Context, tx repositories.SQLExecutor, tournament *models.Tournament, goldFinal *models.Match) error {
	leagues, err := s.leagueRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return fmt.Errorf("failed to list leagues for tournament %d: %w", tournament.ID, err)
	}
	if len(leagues) == 0 {
		return nil
	}

	champion, ok := goldFinal.Winner()
	if !ok {
		return fmt.Errorf("gold final %d has no winner", goldFinal.ID)
	}
	runnerUp, _ := goldFinal.Loser()

	for _, league := range leagues {
		for _, team := range tournament.Teams {
			for _, player := range team.Players {
				if player.Kind != models.ParticipantRegistered {
					continue
				}
				stats := league.StatsFor(*player.UserID)
				stats.TournamentsPlayed++
			}
		}
		creditTeam(league, champion, 3, true)
		creditTeam(league, runnerUp, 1, false)

		if err := s.leagueRepo.UpdateStats(ctx, tx, league.ID, league.UserStats); err != nil {
			return fmt.Errorf("failed to update ledger for league %d: %w", league.ID, err)
		}
	}
	return nil
}

func creditTeam(league *models.League, team models.TeamSnapshot, points int, won bool) {
	for _, player := range team.Players {
		if player.Kind != models.ParticipantRegistered {
			continue
		}
		stats := league.StatsFor(*player.UserID)
		stats.Points += points
		if won {
			stats.Wins++
		} else {
			stats.Losses++
		}
	}
}

func (s *bracketService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	room := "tournament_" + strconv.Itoa(tournamentID)
	s.hub.BroadcastToRoom(room, brackets.Event{Type: eventType, Payload: payload})
}

func groupByPhase(matches []*models.Match) map[models.MatchPhase][]*models.Match {
	byPhase := make(map[models.MatchPhase][]*models.Match)
	for _, m := range matches {
		if m.Phase == nil {
			continue
		}
		byPhase[*m.Phase] = append(byPhase[*m.Phase], m)
	}
	return byPhase
}

func roundFinished(matches []*models.Match, phase models.MatchPhase) bool {
	if len(matches) != phase.MatchCount() {
		return false
	}
	for _, m := range matches {
		if m.Status != models.MatchFinished {
			return false
		}
	}
	return true
}
