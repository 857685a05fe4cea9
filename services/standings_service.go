package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/repositories"
	"golang.org/x/sync/errgroup"
)

// BracketView is the read-only projection of a tournament's bracket: matches
// grouped by phase plus the standings derived from them. It never mutates
// anything; the persisted match list is the single source of truth.
type BracketView struct {
	Tournament     *models.Tournament                    `json:"tournament"`
	Rounds         map[models.MatchPhase][]*models.Match `json:"rounds"`
	Champion       *models.TeamSnapshot                  `json:"champion,omitempty"`
	RunnerUp       *models.TeamSnapshot                  `json:"runner_up,omitempty"`
	SilverChampion *models.TeamSnapshot                  `json:"silver_champion,omitempty"`
}

type StandingsService interface {
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
}

type standingsService struct {
	db             repositories.SQLExecutor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
}

func NewStandingsService(
	db repositories.SQLExecutor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
) StandingsService {
	return &standingsService{
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
	}
}

func (s *standingsService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	var (
		tournament *models.Tournament
		matches    []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournament, err = s.tournamentRepo.GetByID(gCtx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, s.db, tournamentID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load bracket for tournament %d: %w", tournamentID, err)
	}

	view := &BracketView{
		Tournament: tournament,
		Rounds:     groupByPhase(matches),
	}

	if goldFinals := view.Rounds[models.PhaseFinalGold]; len(goldFinals) == 1 {
		if champion, ok := goldFinals[0].Winner(); ok {
			view.Champion = &champion
		}
		if runnerUp, ok := goldFinals[0].Loser(); ok {
			view.RunnerUp = &runnerUp
		}
	}
	if silverFinals := view.Rounds[models.PhaseFinalSilver]; len(silverFinals) == 1 {
		if champion, ok := silverFinals[0].Winner(); ok {
			view.SilverChampion = &champion
		}
	}
	return view, nil
}
