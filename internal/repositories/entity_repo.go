package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/deltasync/internal/models"
)

const pgUniqueViolation = "23505"

type PostgresEntityRepository struct {
	pool  *pgxpool.Pool
	def   models.EntityDefinition
	table string
	owner string
}

// NewPostgresEntityRepository expects def to be validated; table and owner
// column names are quoted but not otherwise checked here.
func NewPostgresEntityRepository(pool *pgxpool.Pool, def models.EntityDefinition) *PostgresEntityRepository {
	return &PostgresEntityRepository{
		pool:  pool,
		def:   def,
		table: pgx.Identifier{def.Table}.Sanitize(),
		owner: pgx.Identifier{def.OwnerField}.Sanitize(),
	}
}

func (r *PostgresEntityRepository) Definition() models.EntityDefinition {
	return r.def
}

func (r *PostgresEntityRepository) CheckTable(ctx context.Context) error {
	query := fmt.Sprintf(`SELECT %s FROM %s LIMIT 0`, r.columns(), r.table)
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to check table %s: %w", r.def.Table, err)
	}
	return nil
}

func (r *PostgresEntityRepository) columns() string {
	return fmt.Sprintf("id, %s, data, version, client_id, created_at, updated_at, deleted_at", r.owner)
}

func (r *PostgresEntityRepository) scan(row pgx.Row) (*models.SyncableRecord, error) {
	var rec models.SyncableRecord
	var data map[string]any
	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&data,
		&rec.Version,
		&rec.ClientID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Data = r.def.Project(data)
	return &rec, nil
}

func (r *PostgresEntityRepository) List(ctx context.Context, ownerID string, opts ListOptions) ([]*models.SyncableRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
	          WHERE %s = $1 AND (updated_at > $2 OR (updated_at = $2 AND id > $3)) AND ($4 OR deleted_at IS NULL)
	          ORDER BY updated_at ASC, id ASC
	          LIMIT $5 OFFSET $6`, r.columns(), r.table, r.owner)

	rows, err := r.pool.Query(ctx, query, ownerID, opts.Since, opts.AfterID, opts.IncludeDeleted, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.def.Name, err)
	}
	defer rows.Close()

	var records []*models.SyncableRecord
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.def.Name, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", r.def.Name, err)
	}

	return records, nil
}

func (r *PostgresEntityRepository) GetByID(ctx context.Context, id, ownerID string) (*models.SyncableRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND %s = $2`, r.columns(), r.table, r.owner)

	rec, err := r.scan(r.pool.QueryRow(ctx, query, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by ID: %w", r.def.Name, err)
	}
	return rec, nil
}

func (r *PostgresEntityRepository) Create(ctx context.Context, ownerID, id string, data map[string]any, clientID string) (*models.SyncableRecord, error) {
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, data, version, client_id)
	          VALUES ($1, $2, $3, 1, $4)
	          RETURNING created_at, updated_at`, r.table, r.owner)

	rec := &models.SyncableRecord{
		ID:      id,
		OwnerID: ownerID,
		Data:    r.def.Project(data),
		Version: 1,
	}
	if clientID != "" {
		rec.ClientID = &clientID
	}

	err := r.pool.QueryRow(ctx, query, id, ownerID, rec.Data, rec.ClientID).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.def.Name, err)
	}
	return rec, nil
}

func (r *PostgresEntityRepository) ConditionalUpdate(ctx context.Context, id, ownerID string, expectedVersion int64, data map[string]any) (bool, error) {
	// The version predicate is the compare half of the CAS; zero affected
	// rows means another writer got there first.
	query := fmt.Sprintf(`UPDATE %s
	          SET data = data || $1::jsonb,
	              version = version + 1,
	              updated_at = NOW()
	          WHERE id = $2 AND %s = $3 AND version = $4 AND deleted_at IS NULL`, r.table, r.owner)

	result, err := r.pool.Exec(ctx, query, r.def.Project(data), id, ownerID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", r.def.Name, err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *PostgresEntityRepository) SoftDelete(ctx context.Context, id, ownerID string, expectedVersion int64) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s
	          SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
	          WHERE id = $1 AND %s = $2 AND version = $3 AND deleted_at IS NULL`, r.table, r.owner)

	result, err := r.pool.Exec(ctx, query, id, ownerID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", r.def.Name, err)
	}
	return result.RowsAffected() == 1, nil
}
