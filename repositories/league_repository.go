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

var ErrLeagueNotFound = errors.New("league not found")

type LeagueRepository interface {
	Create(ctx context.Context, league *models.League) error
	GetByID(ctx context.Context, id int) (*models.League, error)
	List(ctx context.Context) ([]*models.League, error)
	// ListByTournament returns every league whose tournament list contains
	// the given tournament.
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.League, error)
	AttachTournament(ctx context.Context, leagueID, tournamentID int) error
	UpdateStats(ctx context.Context, exec SQLExecutor, leagueID int, stats []models.UserLeagueStats) error
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

const leagueColumns = `id, name, description, tournament_ids, user_stats, is_active, created_by, created_at`

func (r *postgresLeagueRepository) Create(ctx context.Context, league *models.League) error {
	statsJSON, err := json.Marshal(league.UserStats)
	if err != nil {
		return fmt.Errorf("failed to marshal league stats: %w", err)
	}

	query := `
		INSERT INTO leagues (name, description, tournament_ids, user_stats, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		league.Name,
		league.Description,
		pq.Array(league.TournamentIDs),
		statsJSON,
		league.IsActive,
		league.CreatedBy,
	).Scan(&league.ID, &league.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert league: %w", err)
	}
	return nil
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id int) (*models.League, error) {
	query := `SELECT ` + leagueColumns + ` FROM leagues WHERE id = $1`

	league, err := scanLeague(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to scan league %d: %w", id, err)
	}
	return league, nil
}

func (r *postgresLeagueRepository) List(ctx context.Context) ([]*models.League, error) {
	query := `SELECT ` + leagueColumns + ` FROM leagues ORDER BY id ASC`
	return r.queryLeagues(ctx, query)
}

func (r *postgresLeagueRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.League, error) {
	query := `SELECT ` + leagueColumns + ` FROM leagues WHERE $1 = ANY(tournament_ids)`
	return r.queryLeagues(ctx, query, tournamentID)
}

func (r *postgresLeagueRepository) queryLeagues(ctx context.Context, query string, args ...interface{}) ([]*models.League, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leagues: %w", err)
	}
	defer rows.Close()

	leagues := make([]*models.League, 0)
	for rows.Next() {
		league, scanErr := scanLeague(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan league row: %w", scanErr)
		}
		leagues = append(leagues, league)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during league rows iteration: %w", err)
	}
	return leagues, nil
}

func (r *postgresLeagueRepository) AttachTournament(ctx context.Context, leagueID, tournamentID int) error {
	// array_append inside the database keeps the attach atomic; no
	// read-modify-write race with a concurrent attach.
	query := `
		UPDATE leagues
		SET tournament_ids = array_append(tournament_ids, $1)
		WHERE id = $2 AND NOT ($1 = ANY(tournament_ids))`

	result, err := r.db.ExecContext(ctx, query, tournamentID, leagueID)
	if err != nil {
		return fmt.Errorf("failed to attach tournament %d to league %d: %w", tournamentID, leagueID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		// Either the league does not exist or the tournament is already
		// attached; the latter is a no-op, not an error.
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM leagues WHERE id = $1)`, leagueID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check league %d existence: %w", leagueID, err)
		}
		if !exists {
			return ErrLeagueNotFound
		}
	}
	return nil
}

func (r *postgresLeagueRepository) UpdateStats(ctx context.Context, exec SQLExecutor, leagueID int, stats []models.UserLeagueStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal league stats: %w", err)
	}
	query := `UPDATE leagues SET user_stats = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, statsJSON, leagueID)
	if err != nil {
		return fmt.Errorf("failed to update stats for league %d: %w", leagueID, err)
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func scanLeague(row rowScanner) (*models.League, error) {
	league := &models.League{}
	var statsJSON []byte

	err := row.Scan(
		&league.ID,
		&league.Name,
		&league.Description,
		pq.Array(&league.TournamentIDs),
		&statsJSON,
		&league.IsActive,
		&league.CreatedBy,
		&league.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(statsJSON, &league.UserStats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal league stats: %w", err)
	}
	return league, nil
}
