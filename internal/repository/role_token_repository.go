package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opportunity-service/internal/domain"
)

// RoleTokenRepository keeps the catalog of permission tokens.
type RoleTokenRepository interface {
	// EnsureToken inserts the record when absent and reports whether it was created.
	EnsureToken(ctx context.Context, record domain.RoleTokenRecord) (bool, error)
	List(ctx context.Context) ([]domain.RoleTokenRecord, error)
}

type roleTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRoleTokenRepository builds the repository.
func NewRoleTokenRepository(pool *pgxpool.Pool) RoleTokenRepository {
	return &roleTokenRepository{pool: pool}
}

func (r *roleTokenRepository) EnsureToken(ctx context.Context, record domain.RoleTokenRecord) (bool, error) {
	const query = `
        INSERT INTO role_tokens (id, token) VALUES ($1,$2)
        ON CONFLICT (id) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, record.ID, record.Token)
	if err != nil {
		return false, translate(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *roleTokenRepository) List(ctx context.Context) ([]domain.RoleTokenRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, token FROM role_tokens ORDER BY id`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.RoleTokenRecord
	for rows.Next() {
		var record domain.RoleTokenRecord
		if err := rows.Scan(&record.ID, &record.Token); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
