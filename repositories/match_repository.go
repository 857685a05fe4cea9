package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/trucolab/truco-league/models"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchPhaseSlotTaken maps the unique constraint on
	// (tournament_id, phase, order_in_phase): a concurrent caller already
	// created this round's match for the slot.
	ErrMatchPhaseSlotTaken = errors.New("match slot for this phase already exists")
	// ErrMatchUpdateConflict means a guarded score update matched no row:
	// the match changed (or finished) between read and write.
	ErrMatchUpdateConflict = errors.New("match was modified concurrently")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, phase *models.MatchPhase) ([]*models.Match, error)
	// UpdateScoreCAS persists the outcome of one ApplyScoreDelta step. The
	// update is guarded on the side's previous score and on the match still
	// being in progress, so two racing writers cannot both apply.
	UpdateScoreCAS(ctx context.Context, match *models.Match, teamIndex, previousScore int) error
	Replace(ctx context.Context, match *models.Match) error
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, type, phase, order_in_phase,
	team1, team2, team1_score, team2_score, winner_team_id, status, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	team1JSON, team2JSON, err := marshalSides(match)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches
			(tournament_id, type, phase, order_in_phase, team1, team2,
			 team1_score, team2_score, winner_team_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err = exec.QueryRowContext(ctx, query,
		match.TournamentID,
		match.Type,
		match.Phase,
		match.OrderInPhase,
		team1JSON,
		team2JSON,
		match.Sides[0].Score,
		match.Sides[1].Score,
		match.WinnerTeamID,
		match.Status,
	).Scan(&match.ID, &match.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "matches_tournament_phase_slot_key" {
			return ErrMatchPhaseSlotTaken
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, phase *models.MatchPhase) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if phase != nil {
		query += ` AND phase = $2`
		args = append(args, *phase)
	}
	query += ` ORDER BY order_in_phase ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateScoreCAS(ctx context.Context, match *models.Match, teamIndex, previousScore int) error {
	scoreColumn := "team1_score"
	if teamIndex == 1 {
		scoreColumn = "team2_score"
	}

	query := fmt.Sprintf(`
		UPDATE matches
		SET %s = $1, status = $2, winner_team_id = $3
		WHERE id = $4 AND status = $5 AND %s = $6`, scoreColumn, scoreColumn)

	result, err := r.db.ExecContext(ctx, query,
		match.Sides[teamIndex].Score,
		match.Status,
		match.WinnerTeamID,
		match.ID,
		models.MatchInProgress,
		previousScore,
	)
	if err != nil {
		return fmt.Errorf("failed to apply score update for match %d: %w", match.ID, err)
	}
	return checkAffectedRows(result, ErrMatchUpdateConflict)
}

func (r *postgresMatchRepository) Replace(ctx context.Context, match *models.Match) error {
	team1JSON, team2JSON, err := marshalSides(match)
	if err != nil {
		return err
	}

	query := `
		UPDATE matches
		SET team1 = $1, team2 = $2, team1_score = $3, team2_score = $4,
		    winner_team_id = $5, status = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		team1JSON,
		team2JSON,
		match.Sides[0].Score,
		match.Sides[1].Score,
		match.WinnerTeamID,
		match.Status,
		match.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to replace match %d: %w", match.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM matches WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func marshalSides(match *models.Match) ([]byte, []byte, error) {
	team1JSON, err := json.Marshal(match.Sides[0].TeamSnapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal match team1: %w", err)
	}
	team2JSON, err := json.Marshal(match.Sides[1].TeamSnapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal match team2: %w", err)
	}
	return team1JSON, team2JSON, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	var team1JSON, team2JSON []byte

	err := row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.Type,
		&match.Phase,
		&match.OrderInPhase,
		&team1JSON,
		&team2JSON,
		&match.Sides[0].Score,
		&match.Sides[1].Score,
		&match.WinnerTeamID,
		&match.Status,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(team1JSON, &match.Sides[0].TeamSnapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match team1: %w", err)
	}
	if err := json.Unmarshal(team2JSON, &match.Sides[1].TeamSnapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match team2: %w", err)
	}
	return match, nil
}
