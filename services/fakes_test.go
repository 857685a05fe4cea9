package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/repositories"
)

// In-memory repository fakes shared by the service tests.

// fakeTx satisfies repositories.Tx for services whose repositories are fakes
// and never touch the executor. Commit and Rollback are counted so tests can
// assert transactional outcomes.
type fakeTx struct {
	commits   *int
	rollbacks *int
}

func (t fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("fake tx does not execute SQL")
}

func (t fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("fake tx does not execute SQL")
}

func (t fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (t fakeTx) Commit() error {
	*t.commits++
	return nil
}

func (t fakeTx) Rollback() error {
	*t.rollbacks++
	return nil
}

type fakeTxBeginner struct {
	commits   int
	rollbacks int
}

func (b *fakeTxBeginner) BeginTx(context.Context, *sql.TxOptions) (repositories.Tx, error) {
	return fakeTx{commits: &b.commits, rollbacks: &b.rollbacks}, nil
}

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) SearchByUsername(_ context.Context, query string, limit int) ([]*models.User, error) {
	results := make([]*models.User, 0)
	for _, user := range r.users {
		if len(results) >= limit {
			break
		}
		results = append(results, user)
	}
	_ = query
	return results, nil
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	nextID      int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament), nextID: 1}
}

func (r *fakeTournamentRepo) Create(_ context.Context, tournament *models.Tournament) error {
	tournament.ID = r.nextID
	r.nextID++
	tournament.CreatedAt = time.Now()
	r.tournaments[tournament.ID] = tournament
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	tournament, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *tournament
	return &copied, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) List(_ context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	results := make([]*models.Tournament, 0)
	for _, tournament := range r.tournaments {
		if status != nil && tournament.Status != *status {
			continue
		}
		results = append(results, tournament)
	}
	return results, nil
}

func (r *fakeTournamentRepo) UpdateMeta(_ context.Context, id int, name string, description *string, startDate time.Time) error {
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.Name = name
	tournament.Description = description
	tournament.StartDate = startDate
	return nil
}

func (r *fakeTournamentRepo) UpdateTeams(_ context.Context, _ repositories.SQLExecutor, id int, teams []models.Team) error {
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.Teams = teams
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.LogoKey = logoKey
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	if match.Phase != nil && match.TournamentID != nil && match.OrderInPhase != nil {
		for _, existing := range r.matches {
			if existing.Phase != nil && existing.TournamentID != nil && existing.OrderInPhase != nil &&
				*existing.TournamentID == *match.TournamentID &&
				*existing.Phase == *match.Phase &&
				*existing.OrderInPhase == *match.OrderInPhase {
				return repositories.ErrMatchPhaseSlotTaken
			}
		}
	}
	match.ID = r.nextID
	r.nextID++
	match.CreatedAt = time.Now()
	stored := *match
	r.matches[match.ID] = &stored
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, phase *models.MatchPhase) ([]*models.Match, error) {
	results := make([]*models.Match, 0)
	for _, match := range r.matches {
		if match.TournamentID == nil || *match.TournamentID != tournamentID {
			continue
		}
		if phase != nil && (match.Phase == nil || *match.Phase != *phase) {
			continue
		}
		copied := *match
		results = append(results, &copied)
	}
	return results, nil
}

func (r *fakeMatchRepo) UpdateScoreCAS(_ context.Context, match *models.Match, teamIndex, previousScore int) error {
	stored, ok := r.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if stored.Status != models.MatchInProgress || stored.Sides[teamIndex].Score != previousScore {
		return repositories.ErrMatchUpdateConflict
	}
	copied := *match
	r.matches[match.ID] = &copied
	return nil
}

func (r *fakeMatchRepo) Replace(_ context.Context, match *models.Match) error {
	if _, ok := r.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	copied := *match
	r.matches[match.ID] = &copied
	return nil
}

func (r *fakeMatchRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

type fakeLeagueRepo struct {
	leagues map[int]*models.League
	nextID  int
}

func newFakeLeagueRepo() *fakeLeagueRepo {
	return &fakeLeagueRepo{leagues: make(map[int]*models.League), nextID: 1}
}

func (r *fakeLeagueRepo) Create(_ context.Context, league *models.League) error {
	league.ID = r.nextID
	r.nextID++
	league.CreatedAt = time.Now()
	r.leagues[league.ID] = league
	return nil
}

func (r *fakeLeagueRepo) GetByID(_ context.Context, id int) (*models.League, error) {
	league, ok := r.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	return league, nil
}

func (r *fakeLeagueRepo) List(_ context.Context) ([]*models.League, error) {
	results := make([]*models.League, 0, len(r.leagues))
	for _, league := range r.leagues {
		results = append(results, league)
	}
	return results, nil
}

func (r *fakeLeagueRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.League, error) {
	results := make([]*models.League, 0)
	for _, league := range r.leagues {
		for _, id := range league.TournamentIDs {
			if id == tournamentID {
				results = append(results, league)
				break
			}
		}
	}
	return results, nil
}

func (r *fakeLeagueRepo) AttachTournament(_ context.Context, leagueID, tournamentID int) error {
	league, ok := r.leagues[leagueID]
	if !ok {
		return repositories.ErrLeagueNotFound
	}
	for _, id := range league.TournamentIDs {
		if id == tournamentID {
			return nil
		}
	}
	league.TournamentIDs = append(league.TournamentIDs, tournamentID)
	return nil
}

func (r *fakeLeagueRepo) UpdateStats(_ context.Context, _ repositories.SQLExecutor, leagueID int, stats []models.UserLeagueStats) error {
	league, ok := r.leagues[leagueID]
	if !ok {
		return repositories.ErrLeagueNotFound
	}
	league.UserStats = stats
	return nil
}

// fakeBracketService records advancement triggers without touching storage.
type fakeBracketService struct {
	advanceCalls []int
	advanceErr   error
}

func (s *fakeBracketService) GenerateQuarterfinals(context.Context, int, bool) ([]*models.Match, error) {
	return nil, nil
}

func (s *fakeBracketService) Advance(_ context.Context, tournamentID int) ([]*models.Match, error) {
	s.advanceCalls = append(s.advanceCalls, tournamentID)
	return nil, s.advanceErr
}
