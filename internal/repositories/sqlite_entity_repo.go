package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/prudhvinik1/deltasync/internal/models"
)

// SQLiteEntityRepository stores timestamps as milliseconds since the epoch
// and the payload as JSON text. Partial updates replace each top-level field
// whole through json_set; an explicit null is stored as null.
type SQLiteEntityRepository struct {
	db    *sql.DB
	def   models.EntityDefinition
	table string
	owner string
	now   func() time.Time
}

func NewSQLiteEntityRepository(db *sql.DB, def models.EntityDefinition, now func() time.Time) *SQLiteEntityRepository {
	if now == nil {
		now = time.Now
	}
	return &SQLiteEntityRepository{
		db:    db,
		def:   def,
		table: quoteSQLiteIdent(def.Table),
		owner: quoteSQLiteIdent(def.OwnerField),
		now:   now,
	}
}

func quoteSQLiteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (r *SQLiteEntityRepository) Definition() models.EntityDefinition {
	return r.def
}

func (r *SQLiteEntityRepository) CheckTable(ctx context.Context) error {
	query := fmt.Sprintf(`SELECT %s FROM %s LIMIT 0`, r.columns(), r.table)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to check table %s: %w", r.def.Table, err)
	}
	return nil
}

func (r *SQLiteEntityRepository) columns() string {
	return fmt.Sprintf("id, %s, data, version, client_id, created_at, updated_at, deleted_at", r.owner)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteEntityRepository) scan(row rowScanner) (*models.SyncableRecord, error) {
	var (
		rec       models.SyncableRecord
		rawData   string
		clientID  sql.NullString
		createdAt int64
		updatedAt int64
		deletedAt sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rawData, &rec.Version, &clientID, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(rawData), &data); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", r.def.Name, err)
	}
	rec.Data = r.def.Project(data)
	if clientID.Valid {
		rec.ClientID = &clientID.String
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if deletedAt.Valid {
		t := time.UnixMilli(deletedAt.Int64).UTC()
		rec.DeletedAt = &t
	}
	return &rec, nil
}

func (r *SQLiteEntityRepository) List(ctx context.Context, ownerID string, opts ListOptions) ([]*models.SyncableRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
	          WHERE %s = ? AND (updated_at > ? OR (updated_at = ? AND id > ?)) AND (? OR deleted_at IS NULL)
	          ORDER BY updated_at ASC, id ASC
	          LIMIT ? OFFSET ?`, r.columns(), r.table, r.owner)

	since := opts.Since.UnixMilli()
	rows, err := r.db.QueryContext(ctx, query, ownerID, since, since, opts.AfterID, opts.IncludeDeleted, opts.Limit, opts.Offset)
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

func (r *SQLiteEntityRepository) GetByID(ctx context.Context, id, ownerID string) (*models.SyncableRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? AND %s = ?`, r.columns(), r.table, r.owner)

	rec, err := r.scan(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by ID: %w", r.def.Name, err)
	}
	return rec, nil
}

func (r *SQLiteEntityRepository) Create(ctx context.Context, ownerID, id string, data map[string]any, clientID string) (*models.SyncableRecord, error) {
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, data, version, client_id, created_at, updated_at)
	          VALUES (?, ?, ?, 1, ?, ?, ?)`, r.table, r.owner)

	projected := r.def.Project(data)
	payload, err := json.Marshal(projected)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", r.def.Name, err)
	}

	now := r.now().UTC().Truncate(time.Millisecond)
	var client sql.NullString
	if clientID != "" {
		client = sql.NullString{String: clientID, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, query, id, ownerID, string(payload), client, now.UnixMilli(), now.UnixMilli())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.def.Name, err)
	}

	rec := &models.SyncableRecord{
		ID:        id,
		OwnerID:   ownerID,
		Data:      projected,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if client.Valid {
		rec.ClientID = &client.String
	}
	return rec, nil
}

func (r *SQLiteEntityRepository) ConditionalUpdate(ctx context.Context, id, ownerID string, expectedVersion int64, data map[string]any) (bool, error) {
	merged, args, err := r.mergeExpr(data)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`UPDATE %s
	          SET data = %s,
	              version = version + 1,
	              updated_at = ?
	          WHERE id = ? AND %s = ? AND version = ? AND deleted_at IS NULL`, r.table, merged, r.owner)

	args = append(args, r.now().UnixMilli(), id, ownerID, expectedVersion)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", r.def.Name, err)
	}
	return affectedOne(result)
}

// mergeExpr builds the SET expression for a shallow merge of data into the
// stored payload: one json_set path per projected field, so nested objects
// are replaced rather than merged.
func (r *SQLiteEntityRepository) mergeExpr(data map[string]any) (string, []any, error) {
	projected := r.def.Project(data)
	if len(projected) == 0 {
		return "data", nil, nil
	}

	keys := make([]string, 0, len(projected))
	for k := range projected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var expr strings.Builder
	expr.WriteString("json_set(data")
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		value, err := json.Marshal(projected[k])
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode %s field %q: %w", r.def.Name, k, err)
		}
		expr.WriteString(", ?, json(?)")
		args = append(args, `$."`+k+`"`, string(value))
	}
	expr.WriteString(")")
	return expr.String(), args, nil
}

func (r *SQLiteEntityRepository) SoftDelete(ctx context.Context, id, ownerID string, expectedVersion int64) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s
	          SET deleted_at = ?, updated_at = ?, version = version + 1
	          WHERE id = ? AND %s = ? AND version = ? AND deleted_at IS NULL`, r.table, r.owner)

	now := r.now().UnixMilli()
	result, err := r.db.ExecContext(ctx, query, now, now, id, ownerID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", r.def.Name, err)
	}
	return affectedOne(result)
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}
