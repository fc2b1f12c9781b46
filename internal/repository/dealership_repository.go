package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opportunity-service/internal/domain"
)

// DealershipRepository manages dealership persistence.
type DealershipRepository interface {
	Create(ctx context.Context, dealership *domain.Dealership) error
	Update(ctx context.Context, dealership *domain.Dealership) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Dealership, error)
	GetByTaxID(ctx context.Context, taxID string) (*domain.Dealership, error)
	List(ctx context.Context) ([]domain.Dealership, error)
}

type dealershipRepository struct {
	pool *pgxpool.Pool
}

// NewDealershipRepository builds the repository.
func NewDealershipRepository(pool *pgxpool.Pool) DealershipRepository {
	return &dealershipRepository{pool: pool}
}

func (r *dealershipRepository) Create(ctx context.Context, dealership *domain.Dealership) error {
	const query = `
        INSERT INTO dealerships (tax_id, legal_name)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		dealership.TaxID,
		dealership.LegalName,
	).Scan(&dealership.ID, &dealership.CreatedAt, &dealership.UpdatedAt)
	return translate(err)
}

func (r *dealershipRepository) Update(ctx context.Context, dealership *domain.Dealership) error {
	const query = `
        UPDATE dealerships SET tax_id=$1, legal_name=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		dealership.TaxID,
		dealership.LegalName,
		dealership.ID,
	).Scan(&dealership.UpdatedAt)
	return translate(err)
}

func (r *dealershipRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM dealerships WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *dealershipRepository) GetByID(ctx context.Context, id string) (*domain.Dealership, error) {
	const query = `
        SELECT id, tax_id, legal_name, created_at, updated_at
        FROM dealerships WHERE id=$1`
	var dealership domain.Dealership
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&dealership.ID,
		&dealership.TaxID,
		&dealership.LegalName,
		&dealership.CreatedAt,
		&dealership.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &dealership, nil
}

func (r *dealershipRepository) GetByTaxID(ctx context.Context, taxID string) (*domain.Dealership, error) {
	const query = `
        SELECT id, tax_id, legal_name, created_at, updated_at
        FROM dealerships WHERE tax_id=$1`
	var dealership domain.Dealership
	if err := r.pool.QueryRow(ctx, query, taxID).Scan(
		&dealership.ID,
		&dealership.TaxID,
		&dealership.LegalName,
		&dealership.CreatedAt,
		&dealership.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &dealership, nil
}

func (r *dealershipRepository) List(ctx context.Context) ([]domain.Dealership, error) {
	const query = `
        SELECT id, tax_id, legal_name, created_at, updated_at
        FROM dealerships ORDER BY legal_name, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Dealership
	for rows.Next() {
		var dealership domain.Dealership
		if err := rows.Scan(&dealership.ID, &dealership.TaxID, &dealership.LegalName, &dealership.CreatedAt, &dealership.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, dealership)
	}
	return result, rows.Err()
}
