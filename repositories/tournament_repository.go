package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trucolab/truco-league/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// GetByIDForUpdate locks the tournament row for the duration of the
	// caller's transaction. Round generation uses this as the per-tournament
	// writer guard.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	UpdateMeta(ctx context.Context, id int, name string, description *string, startDate time.Time) error
	UpdateTeams(ctx context.Context, exec SQLExecutor, id int, teams []models.Team) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, description, start_date, status, teams, logo_key, created_by, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	teamsJSON, err := json.Marshal(tournament.Teams)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament teams: %w", err)
	}

	query := `
		INSERT INTO tournaments (name, description, start_date, status, teams, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		tournament.Name,
		tournament.Description,
		tournament.StartDate,
		tournament.Status,
		teamsJSON,
		tournament.CreatedBy,
	).Scan(&tournament.ID, &tournament.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresTournamentRepository) scanOne(row *sql.Row, id int) (*models.Tournament, error) {
	tournament := &models.Tournament{}
	var teamsJSON []byte

	err := row.Scan(
		&tournament.ID,
		&tournament.Name,
		&tournament.Description,
		&tournament.StartDate,
		&tournament.Status,
		&teamsJSON,
		&tournament.LogoKey,
		&tournament.CreatedBy,
		&tournament.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}

	if err := json.Unmarshal(teamsJSON, &tournament.Teams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal teams for tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY start_date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		tournament := &models.Tournament{}
		var teamsJSON []byte
		if scanErr := rows.Scan(
			&tournament.ID,
			&tournament.Name,
			&tournament.Description,
			&tournament.StartDate,
			&tournament.Status,
			&teamsJSON,
			&tournament.LogoKey,
			&tournament.CreatedBy,
			&tournament.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		if err := json.Unmarshal(teamsJSON, &tournament.Teams); err != nil {
			return nil, fmt.Errorf("failed to unmarshal teams for tournament %d: %w", tournament.ID, err)
		}
		tournaments = append(tournaments, tournament)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateMeta(ctx context.Context, id int, name string, description *string, startDate time.Time) error {
	query := `UPDATE tournaments SET name = $1, description = $2, start_date = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, name, description, startDate, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateTeams(ctx context.Context, exec SQLExecutor, id int, teams []models.Team) error {
	teamsJSON, err := json.Marshal(teams)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament teams: %w", err)
	}
	query := `UPDATE tournaments SET teams = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, teamsJSON, id)
	if err != nil {
		return fmt.Errorf("failed to update teams for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	query := `UPDATE tournaments SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update logo for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
