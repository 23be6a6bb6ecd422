package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docflow/internal/model"
	"docflow/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `d.id, d.name, d.status, d.creator_id, d.storage_path, d.size, d.created_at, d.updated_at,
		u.email, u.full_name, u.role`

// joined wraps a data-modifying statement returning documents rows so the
// creator comes back in the same round trip.
func joined(stmt string) string {
	return `WITH d AS (` + stmt + ` RETURNING *)
		SELECT ` + documentColumns + `
		FROM d JOIN users u ON u.id = d.creator_id`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*repository.Document, error) {
	var d repository.Document
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Status,
		&d.CreatorID,
		&d.StoragePath,
		&d.Size,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.Creator.Email,
		&d.Creator.FullName,
		&d.Creator.Role,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	d.Creator.ID = d.CreatorID
	return &d, nil
}

func (r *DocumentPostgres) Create(ctx context.Context, doc *repository.Document) (*repository.Document, error) {
	q := joined(`INSERT INTO documents (id, name, status, creator_id, storage_path, size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Name,
		doc.Status,
		doc.CreatorID,
		doc.StoragePath,
		doc.Size,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*repository.Document, error) {
	q := `SELECT ` + documentColumns + `
		FROM documents d JOIN users u ON u.id = d.creator_id
		WHERE d.id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

var sortColumns = map[repository.SortField]string{
	repository.SortCreatedAt: "d.created_at",
	repository.SortUpdatedAt: "d.updated_at",
	repository.SortName:      "d.name",
	repository.SortStatus:    "d.status",
}

func orderBy(s repository.Sort) string {
	col, ok := sortColumns[s.Field]
	if !ok {
		col = sortColumns[repository.DefaultSort.Field]
		s.Desc = repository.DefaultSort.Desc
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, d.id %s", col, dir, dir)
}

func whereClause(f repository.DocumentFilter) (string, []any) {
	var conds []string
	var args []any
	if f.CreatorID != "" {
		args = append(args, f.CreatorID)
		conds = append(conds, fmt.Sprintf("d.creator_id = $%d", len(args)))
	}
	if len(f.ExcludeStatus) > 0 {
		ph := make([]string, len(f.ExcludeStatus))
		for i, s := range f.ExcludeStatus {
			args = append(args, s)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, "d.status NOT IN ("+strings.Join(ph, ", ")+")")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, f repository.DocumentFilter, s repository.Sort, pq repository.PageQuery) (*repository.PageResult[repository.Document], error) {
	where, args := whereClause(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents d`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	n := len(args)
	qList := `SELECT ` + documentColumns + `
		FROM documents d JOIN users u ON u.id = d.creator_id` + where + `
		ORDER BY ` + orderBy(s) + fmt.Sprintf(`
		LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]repository.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[repository.Document]{
		Items: items,
		Total: total,
	}, nil
}

func (r *DocumentPostgres) UpdateName(ctx context.Context, id, name string, at time.Time) (*repository.Document, error) {
	q := joined(`UPDATE documents SET name = $2, updated_at = $3 WHERE id = $1`)
	return scanDocument(r.db.QueryRowContext(ctx, q, id, name, at))
}

func (r *DocumentPostgres) UpdateStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*repository.Document, error) {
	q := joined(`UPDATE documents SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`)
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id, from, to, at))
	if !errors.Is(err, repository.ErrNotFound) {
		return d, err
	}

	var current model.Status
	err = r.db.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: expected %s, found %s", repository.ErrStaleStatus, from, current)
}

func (r *DocumentPostgres) UpdateContent(ctx context.Context, id, storagePath string, size int64, at time.Time) (*repository.Document, error) {
	q := joined(`UPDATE documents SET storage_path = $2, size = $3, updated_at = $4 WHERE id = $1`)
	return scanDocument(r.db.QueryRowContext(ctx, q, id, storagePath, size, at))
}

func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
