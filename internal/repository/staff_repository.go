package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opportunity-service/internal/domain"
)

// StaffRepository handles persistence for staff members.
//
// Update never writes the idle marker; ReserveIdle is the only way to move it.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	Update(ctx context.Context, staff *domain.StaffMember) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
	ListAssignable(ctx context.Context, dealershipID string) ([]domain.StaffMember, error)
	ReserveIdle(ctx context.Context, id string, expectedVersion int64, at time.Time) (bool, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Tier         *domain.Tier
	DealershipID *string
	Limit        int
	Offset       int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, name, email, password_hash, tier, dealership_id, last_assigned_at, assignment_version, created_at, updated_at`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (name, email, password_hash, tier, dealership_id, last_assigned_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, assignment_version, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Tier,
		staff.DealershipID,
		staff.Idle.LastAssignedAt,
	).Scan(&staff.ID, &staff.Idle.Version, &staff.CreatedAt, &staff.UpdatedAt)
	return translate(err)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        UPDATE staff_members
        SET name=$1, email=$2, password_hash=$3, tier=$4, dealership_id=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Tier,
		staff.DealershipID,
		staff.ID,
	).Scan(&staff.UpdatedAt)
	return translate(err)
}

func (r *staffRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM staff_members WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE id=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE email=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, email))
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members`
	args := []any{}
	clauses := []string{}

	if filter.Tier != nil {
		args = append(args, *filter.Tier)
		clauses = append(clauses, fmt.Sprintf("tier=$%d", len(args)))
	}
	if filter.DealershipID != nil {
		args = append(args, *filter.DealershipID)
		clauses = append(clauses, fmt.Sprintf("dealership_id=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC, id"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return collectStaff(rows)
}

func (r *staffRepository) ListAssignable(ctx context.Context, dealershipID string) ([]domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + `
        FROM staff_members
        WHERE tier=$1 AND dealership_id=$2
        ORDER BY last_assigned_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, domain.TierAssistant, dealershipID)
	if err != nil {
		return nil, translate(err)
	}
	return collectStaff(rows)
}

// ReserveIdle moves the idle marker only if nobody reserved the member since it was read.
func (r *staffRepository) ReserveIdle(ctx context.Context, id string, expectedVersion int64, at time.Time) (bool, error) {
	const query = `
        UPDATE staff_members
        SET last_assigned_at=$1, assignment_version=assignment_version+1
        WHERE id=$2 AND assignment_version=$3`

	cmd, err := r.pool.Exec(ctx, query, at, id, expectedVersion)
	if err != nil {
		return false, translate(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func scanStaff(row pgx.Row) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := row.Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Tier,
		&staff.DealershipID,
		&staff.Idle.LastAssignedAt,
		&staff.Idle.Version,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &staff, nil
}

func collectStaff(rows pgx.Rows) ([]domain.StaffMember, error) {
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, translate(rows.Err())
}
