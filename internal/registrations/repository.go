package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanvircsebd/marathonX-server/internal/models"
)

var (
	// ErrNotFound is returned when no registration matches the given id.
	ErrNotFound = errors.New("registration not found")
	// ErrMarathonNotFound is returned when the referenced marathon does not exist.
	ErrMarathonNotFound = errors.New("marathon not found")
	// ErrDuplicate is returned when the email is already registered for the marathon.
	ErrDuplicate = errors.New("already registered for this marathon")
)

const pgUniqueViolation = "23505"

// Repository handles registration persistence and keeps each marathon's
// registration counter in lockstep with the ledger rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Register inserts a registration and increments the marathon's counter in one
// transaction. The increment runs first: when it matches no row the marathon
// does not exist and the whole operation aborts, so no orphan row is possible.
func (r *Repository) Register(ctx context.Context, reg *models.Registration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE marathons SET total_registration_count = total_registration_count + 1, updated_at = NOW() WHERE id = $1`,
		reg.MarathonID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMarathonNotFound
	}

	const q = `INSERT INTO registrations (marathon_id, email, first_name, last_name, contact_number, additional_info, title, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, registration_date`
	err = tx.QueryRow(ctx, q, reg.MarathonID, reg.Email, reg.FirstName, reg.LastName, reg.ContactNumber, reg.AdditionalInfo, reg.Title, reg.StartDate).
		Scan(&reg.ID, &reg.RegistrationDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return tx.Commit(ctx)
}

// Unregister deletes a registration and decrements the marathon's counter in
// one transaction. The delete runs first; the decrement only happens when it
// succeeded. marathonFound is false when the marathon row is already gone, in
// which case the delete still commits since there is no counter left to fix.
func (r *Repository) Unregister(ctx context.Context, registrationID, marathonID uuid.UUID) (marathonFound bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, ErrNotFound
	}

	// GREATEST clamps the counter at zero should it ever have drifted low.
	tag, err = tx.Exec(ctx,
		`UPDATE marathons SET total_registration_count = GREATEST(total_registration_count - 1, 0), updated_at = NOW() WHERE id = $1`,
		marathonID)
	if err != nil {
		return false, err
	}
	marathonFound = tag.RowsAffected() > 0
	return marathonFound, tx.Commit(ctx)
}

// UpdateParams holds the mutable registration fields. Email and the marathon
// linkage are immutable after creation.
type UpdateParams struct {
	FirstName      *string
	LastName       *string
	ContactNumber  *string
	AdditionalInfo *string
}

// Update applies a partial field merge. Returns ErrNotFound when no row matched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) error {
	const q = `UPDATE registrations SET
		first_name = COALESCE($1, first_name),
		last_name = COALESCE($2, last_name),
		contact_number = COALESCE($3, contact_number),
		additional_info = COALESCE($4, additional_info)
		WHERE id = $5`
	tag, err := r.pool.Exec(ctx, q, p.FirstName, p.LastName, p.ContactNumber, p.AdditionalInfo, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByEmail returns a registrant's registrations, newest first. A non-empty
// search narrows to titles containing it, case-insensitively.
func (r *Repository) ListByEmail(ctx context.Context, email, search string) ([]models.Registration, error) {
	const cols = `id, marathon_id, email, first_name, last_name, contact_number, additional_info, title, start_date, registration_date`
	q := `SELECT ` + cols + ` FROM registrations WHERE email = $1`
	args := []interface{}{email}
	if search != "" {
		q += ` AND title ILIKE '%' || $2 || '%'`
		args = append(args, search)
	}
	q += ` ORDER BY registration_date DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.ID, &reg.MarathonID, &reg.Email, &reg.FirstName, &reg.LastName, &reg.ContactNumber, &reg.AdditionalInfo, &reg.Title, &reg.StartDate, &reg.RegistrationDate); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// ReconcileCounts recomputes every marathon's counter from a live count and
// returns how many rows were corrected. Run at startup to restore the
// counter invariant after any historic drift.
func (r *Repository) ReconcileCounts(ctx context.Context) (int64, error) {
	const q = `UPDATE marathons m
		SET total_registration_count = sub.cnt, updated_at = NOW()
		FROM (
			SELECT m2.id, COUNT(r.id)::int AS cnt
			FROM marathons m2
			LEFT JOIN registrations r ON r.marathon_id = m2.id
			GROUP BY m2.id
		) sub
		WHERE sub.id = m.id AND m.total_registration_count <> sub.cnt`
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
