package marathons

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanvircsebd/marathonX-server/internal/models"
)

// ErrNotFound is returned when no marathon matches the given id.
var ErrNotFound = errors.New("marathon not found")

const marathonColumns = `id, title, location, distance, description, image_url, start_date, created_by, total_registration_count, created_at, updated_at`

// Repository handles marathon persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a marathon repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new marathon. The registration counter always starts at zero.
func (r *Repository) Create(ctx context.Context, m *models.Marathon) error {
	const q = `INSERT INTO marathons (title, location, distance, description, image_url, start_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, total_registration_count, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, m.Title, m.Location, m.Distance, m.Description, m.ImageURL, m.StartDate, m.CreatedBy).
		Scan(&m.ID, &m.TotalRegistrationCount, &m.CreatedAt, &m.UpdatedAt)
}

// GetByID returns a marathon by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Marathon, error) {
	var m models.Marathon
	err := r.pool.QueryRow(ctx, `SELECT `+marathonColumns+` FROM marathons WHERE id = $1`, id).
		Scan(&m.ID, &m.Title, &m.Location, &m.Distance, &m.Description, &m.ImageURL, &m.StartDate, &m.CreatedBy, &m.TotalRegistrationCount, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns marathons ordered by creation time. limit <= 0 means no limit.
func (r *Repository) List(ctx context.Context, limit int, newestFirst bool) ([]models.Marathon, error) {
	q := `SELECT ` + marathonColumns + ` FROM marathons ORDER BY created_at`
	if newestFirst {
		q += ` DESC`
	}
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMarathons(rows)
}

// ListByOwner returns marathons created by the given organizer email.
func (r *Repository) ListByOwner(ctx context.Context, email string) ([]models.Marathon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+marathonColumns+` FROM marathons WHERE created_by = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMarathons(rows)
}

// UpdateParams holds the organizer-editable fields for a partial update.
// The registration counter is maintained by the ledger and never set here.
type UpdateParams struct {
	Title       *string
	Location    *string
	Distance    *string
	Description *string
	ImageURL    *string
	StartDate   *time.Time
}

// Update applies a partial field merge. Returns ErrNotFound when no row matched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) error {
	const q = `UPDATE marathons SET
		title = COALESCE($1, title),
		location = COALESCE($2, location),
		distance = COALESCE($3, distance),
		description = COALESCE($4, description),
		image_url = COALESCE($5, image_url),
		start_date = COALESCE($6, start_date),
		updated_at = NOW()
		WHERE id = $7`
	tag, err := r.pool.Exec(ctx, q, p.Title, p.Location, p.Distance, p.Description, p.ImageURL, p.StartDate, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a marathon. Registrations cascade-delete with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM marathons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMarathons(rows pgx.Rows) ([]models.Marathon, error) {
	var list []models.Marathon
	for rows.Next() {
		var m models.Marathon
		if err := rows.Scan(&m.ID, &m.Title, &m.Location, &m.Distance, &m.Description, &m.ImageURL, &m.StartDate, &m.CreatedBy, &m.TotalRegistrationCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
