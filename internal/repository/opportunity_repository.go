package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opportunity-service/internal/domain"
)

// OpportunityFilter captures listing parameters.
type OpportunityFilter struct {
	DealershipID *string
	AssigneeID   *string
	Status       *domain.OpportunityStatus
	Limit        int
	Offset       int
}

// OpportunityRepository encapsulates opportunity persistence.
type OpportunityRepository interface {
	Create(ctx context.Context, opportunity *domain.Opportunity) error
	Update(ctx context.Context, opportunity *domain.Opportunity) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Opportunity, error)
	List(ctx context.Context, filter OpportunityFilter) ([]domain.Opportunity, error)
}

type opportunityRepository struct {
	pool *pgxpool.Pool
}

// NewOpportunityRepository instantiates repository.
func NewOpportunityRepository(pool *pgxpool.Pool) OpportunityRepository {
	return &opportunityRepository{pool: pool}
}

const opportunityColumns = `id, status, customer_name, customer_email, customer_phone,
    vehicle_brand, vehicle_model, vehicle_version, vehicle_year, dealership_id, assignee_staff_id,
    assigned_on, completed_on, completion_reason, created_at, updated_at`

func (r *opportunityRepository) Create(ctx context.Context, opportunity *domain.Opportunity) error {
	const query = `
        INSERT INTO opportunities (status, customer_name, customer_email, customer_phone, vehicle_brand,
            vehicle_model, vehicle_version, vehicle_year, dealership_id, assignee_staff_id, assigned_on,
            completed_on, completion_reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		opportunity.Status,
		opportunity.CustomerName,
		opportunity.CustomerEmail,
		opportunity.CustomerPhone,
		opportunity.VehicleBrand,
		opportunity.VehicleModel,
		opportunity.VehicleVersion,
		opportunity.VehicleYear,
		opportunity.DealershipID,
		opportunity.AssigneeID,
		opportunity.AssignedAt,
		opportunity.CompletedAt,
		opportunity.CompletionReason,
	).Scan(&opportunity.ID, &opportunity.CreatedAt, &opportunity.UpdatedAt)
	return translate(err)
}

func (r *opportunityRepository) Update(ctx context.Context, opportunity *domain.Opportunity) error {
	const query = `
        UPDATE opportunities SET status=$1, customer_name=$2, customer_email=$3, customer_phone=$4,
            vehicle_brand=$5, vehicle_model=$6, vehicle_version=$7, vehicle_year=$8, dealership_id=$9,
            assignee_staff_id=$10, assigned_on=$11, completed_on=$12, completion_reason=$13, updated_at=NOW()
        WHERE id=$14
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		opportunity.Status,
		opportunity.CustomerName,
		opportunity.CustomerEmail,
		opportunity.CustomerPhone,
		opportunity.VehicleBrand,
		opportunity.VehicleModel,
		opportunity.VehicleVersion,
		opportunity.VehicleYear,
		opportunity.DealershipID,
		opportunity.AssigneeID,
		opportunity.AssignedAt,
		opportunity.CompletedAt,
		opportunity.CompletionReason,
		opportunity.ID,
	).Scan(&opportunity.UpdatedAt)
	return translate(err)
}

func (r *opportunityRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM opportunities WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *opportunityRepository) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id=$1`
	return scanOpportunity(r.pool.QueryRow(ctx, query, id))
}

func (r *opportunityRepository) List(ctx context.Context, filter OpportunityFilter) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities`
	args := []any{}
	clauses := []string{}

	if filter.DealershipID != nil {
		args = append(args, *filter.DealershipID)
		clauses = append(clauses, fmt.Sprintf("dealership_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_staff_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC, id"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
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
	defer rows.Close()

	var result []domain.Opportunity
	for rows.Next() {
		opportunity, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *opportunity)
	}
	return result, translate(rows.Err())
}

func scanOpportunity(row pgx.Row) (*domain.Opportunity, error) {
	var o domain.Opportunity
	if err := row.Scan(
		&o.ID,
		&o.Status,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.VehicleBrand,
		&o.VehicleModel,
		&o.VehicleVersion,
		&o.VehicleYear,
		&o.DealershipID,
		&o.AssigneeID,
		&o.AssignedAt,
		&o.CompletedAt,
		&o.CompletionReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}
