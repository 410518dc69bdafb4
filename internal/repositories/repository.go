package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/query"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = apperror.NotFound("No document found with that ID")

// Table describes how a model is stored.
type Table struct {
	Name    string
	Columns []string // columns written on insert and update
	Touch   bool     // maintain updated_at on update
	Schema  query.Schema
}

// Repository provides CRUD over one table for model T. Statements run inside
// the request transaction when txGetter returns one.
type Repository[T models.Entity] struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
	table    Table
}

// NewRepository creates a Repository for table.
func NewRepository[T models.Entity](db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx, table Table) *Repository[T] {
	return &Repository[T]{db: db, txGetter: txGetter, table: table}
}

// Schema returns the queryable fields of the table.
func (r *Repository[T]) Schema() query.Schema {
	return r.table.Schema
}

func (r *Repository[T]) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

func logQuery(query string, args []any, result any, err error) {
	logger.Log.Infow("db query",
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}

// Create stores rec and returns the row as saved, with generated columns.
func (r *Repository[T]) Create(ctx context.Context, rec *T) (*T, error) {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (:%s) RETURNING *",
		r.table.Name,
		strings.Join(r.table.Columns, ", "),
		strings.Join(r.table.Columns, ", :"),
	)
	return r.returning(ctx, query, rec)
}

// Update writes every column of rec, bumps the version and returns the row
// as saved. It returns ErrNotFound when the row no longer exists.
func (r *Repository[T]) Update(ctx context.Context, rec *T) (*T, error) {
	sets := make([]string, 0, len(r.table.Columns)+2)
	for _, c := range r.table.Columns {
		sets = append(sets, c+" = :"+c)
	}
	sets = append(sets, "version = version + 1")
	if r.table.Touch {
		sets = append(sets, "updated_at = NOW()")
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = :id RETURNING *",
		r.table.Name,
		strings.Join(sets, ", "),
	)
	return r.returning(ctx, query, rec)
}

func (r *Repository[T]) returning(ctx context.Context, named string, rec *T) (*T, error) {
	ex := r.executor(ctx)

	query, args, err := ex.BindNamed(named, rec)
	if err != nil {
		return nil, err
	}

	var rows []T
	err = sqlx.SelectContext(ctx, ex, &rows, query, args...)
	logQuery(query, args, len(rows), err)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// FindByID returns the row with id or ErrNotFound.
func (r *Repository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", r.table.Name)
	return r.findOne(ctx, query, id)
}

func (r *Repository[T]) findOne(ctx context.Context, query string, args ...any) (*T, error) {
	var rec T
	err := sqlx.GetContext(ctx, r.executor(ctx), &rec, query, args...)
	logQuery(query, args, err == nil, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the row with id or returns ErrNotFound.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table.Name)

	res, err := r.executor(ctx).ExecContext(ctx, query, id)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, []any{id}, rowsAffected, err)

	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindAll runs the page query and the total count of q.
func (r *Repository[T]) FindAll(ctx context.Context, q *query.Query) ([]T, int, error) {
	if err := q.Err(); err != nil {
		return nil, 0, err
	}
	ex := r.executor(ctx)

	countQuery, countArgs := q.CountSQL(r.table.Name)
	var total int
	err := sqlx.GetContext(ctx, ex, &total, countQuery, countArgs...)
	logQuery(countQuery, countArgs, total, err)
	if err != nil {
		return nil, 0, err
	}

	pageQuery, pageArgs := q.SQL(r.table.Name)
	rows := []T{}
	err = sqlx.SelectContext(ctx, ex, &rows, pageQuery, pageArgs...)
	logQuery(pageQuery, pageArgs, len(rows), err)
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// FindByIDs returns the rows whose id is in ids, in the order of ids.
// Missing ids are skipped.
func (r *Repository[T]) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ANY($1::uuid[])", r.table.Name)
	arg := uuidArray(ids)

	var rows []T
	err := sqlx.SelectContext(ctx, r.executor(ctx), &rows, query, arg)
	logQuery(query, []any{arg}, len(rows), err)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]T, len(rows))
	for _, row := range rows {
		byID[row.EntityID()] = row
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// CountExisting returns how many distinct ids name an existing row.
func (r *Repository[T]) CountExisting(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ANY($1::uuid[])", r.table.Name)
	arg := uuidArray(ids)

	var n int
	err := sqlx.GetContext(ctx, r.executor(ctx), &n, query, arg)
	logQuery(query, []any{arg}, n, err)
	return n, err
}

func uuidArray(ids []uuid.UUID) pq.StringArray {
	arr := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		arr = append(arr, id.String())
	}
	return arr
}
