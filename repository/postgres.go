package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"todoAPI/internal/todo"
)

var _ Store = (*PostgresStore)(nil)

// pgxDB is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgresPool connects to dbURL and verifies the connection.
func NewPostgresPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	postgresRepository
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:               pool,
		postgresRepository: postgresRepository{db: pool},
	}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(repo TodoListRepository) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&postgresRepository{db: tx, lockLists: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Save runs in its own transaction so the list and its items change together.
func (s *PostgresStore) Save(ctx context.Context, list *todo.TodoList) (*todo.TodoList, error) {
	var saved *todo.TodoList
	err := s.WithinTx(ctx, func(repo TodoListRepository) error {
		var err error
		saved, err = repo.Save(ctx, list)
		return err
	})
	if err != nil {
		return nil, err
	}
	list.ClearRemoved()
	return saved, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type postgresRepository struct {
	db pgxDB
	// lockLists makes FindByID take a row lock, serializing writers that
	// load and save the same list inside one transaction.
	lockLists bool
}

func (r *postgresRepository) FindAll(ctx context.Context) ([]*todo.TodoList, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM todo_lists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query todo lists: %w", err)
	}
	lists, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[todo.TodoList])
	if err != nil {
		return nil, fmt.Errorf("failed to scan todo lists: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT id, list_id, description FROM todo_items ORDER BY list_id, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query todo items: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[todo.TodoItem])
	if err != nil {
		return nil, fmt.Errorf("failed to scan todo items: %w", err)
	}

	attachItems(lists, items)
	return lists, nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id int64) (*todo.TodoList, bool, error) {
	query := `SELECT id, name FROM todo_lists WHERE id = $1`
	if r.lockLists {
		query += ` FOR UPDATE`
	}

	list := &todo.TodoList{}
	err := r.db.QueryRow(ctx, query, id).Scan(&list.ID, &list.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get todo list: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, list_id, description FROM todo_items WHERE list_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query todo items: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[todo.TodoItem])
	if err != nil {
		return nil, false, fmt.Errorf("failed to scan todo items: %w", err)
	}

	list.Items = items
	if list.Items == nil {
		list.Items = []*todo.TodoItem{}
	}
	return list, true, nil
}

func (r *postgresRepository) Save(ctx context.Context, list *todo.TodoList) (*todo.TodoList, error) {
	if list.ID == 0 {
		err := r.db.QueryRow(ctx,
			`INSERT INTO todo_lists (name) VALUES ($1) RETURNING id`,
			list.Name,
		).Scan(&list.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert todo list: %w", err)
		}
	} else {
		tag, err := r.db.Exec(ctx, `UPDATE todo_lists SET name = $1 WHERE id = $2`, list.Name, list.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update todo list: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("%w: %d", ErrListNotPersisted, list.ID)
		}

		if removed := list.RemovedItemIDs(); len(removed) > 0 {
			_, err = r.db.Exec(ctx,
				`DELETE FROM todo_items WHERE list_id = $1 AND id = ANY($2)`,
				list.ID, removed,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to delete removed todo items: %w", err)
			}
		}
	}

	for _, item := range list.Items {
		item.ListID = list.ID
		if item.ID == 0 {
			err := r.db.QueryRow(ctx,
				`INSERT INTO todo_items (list_id, description) VALUES ($1, $2) RETURNING id`,
				list.ID, item.Description,
			).Scan(&item.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to insert todo item: %w", err)
			}
			continue
		}

		tag, err := r.db.Exec(ctx,
			`UPDATE todo_items SET description = $1 WHERE id = $2 AND list_id = $3`,
			item.Description, item.ID, list.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update todo item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("%w: item %d", ErrItemNotOwned, item.ID)
		}
	}

	return list, nil
}

// DeleteByID relies on ON DELETE CASCADE for the items.
func (r *postgresRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM todo_lists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete todo list: %w", err)
	}
	return nil
}
