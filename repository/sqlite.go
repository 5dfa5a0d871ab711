package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"todoAPI/internal/todo"
)

var _ Store = (*SQLiteStore)(nil)

// sqlDB is satisfied by both *sql.DB and *sql.Tx.
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store using database/sql. It is meant for local
// runs and tests; Postgres is the production backend.
type SQLiteStore struct {
	db *sql.DB
	sqliteRepository
}

// OpenSQLite opens (creating if needed) the database file at dbPath and
// applies the schema.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas are per connection, so they go in the DSN.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already opened database without touching the schema.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:               db,
		sqliteRepository: sqliteRepository{db: db},
	}
}

func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(repo TodoListRepository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteRepository{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, list *todo.TodoList) (*todo.TodoList, error) {
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

func (s *SQLiteStore) DeleteByID(ctx context.Context, id int64) error {
	return s.WithinTx(ctx, func(repo TodoListRepository) error {
		return repo.DeleteByID(ctx, id)
	})
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteRepository struct {
	db sqlDB
}

func (r *sqliteRepository) FindAll(ctx context.Context) ([]*todo.TodoList, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM todo_lists ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query todo lists: %w", err)
	}
	defer rows.Close()

	lists := []*todo.TodoList{}
	for rows.Next() {
		list := &todo.TodoList{}
		if err := rows.Scan(&list.ID, &list.Name); err != nil {
			return nil, fmt.Errorf("failed to scan todo list: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todo lists: %w", err)
	}

	items, err := r.queryItems(ctx,
		"SELECT id, list_id, description FROM todo_items ORDER BY list_id, id",
	)
	if err != nil {
		return nil, err
	}

	attachItems(lists, items)
	return lists, nil
}

func (r *sqliteRepository) FindByID(ctx context.Context, id int64) (*todo.TodoList, bool, error) {
	list := &todo.TodoList{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM todo_lists WHERE id = ?",
		id,
	).Scan(&list.ID, &list.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get todo list: %w", err)
	}

	items, err := r.queryItems(ctx,
		"SELECT id, list_id, description FROM todo_items WHERE list_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return nil, false, err
	}

	list.Items = items
	return list, true, nil
}

func (r *sqliteRepository) queryItems(ctx context.Context, query string, args ...any) ([]*todo.TodoItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query todo items: %w", err)
	}
	defer rows.Close()

	items := []*todo.TodoItem{}
	for rows.Next() {
		item := &todo.TodoItem{}
		if err := rows.Scan(&item.ID, &item.ListID, &item.Description); err != nil {
			return nil, fmt.Errorf("failed to scan todo item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todo items: %w", err)
	}
	return items, nil
}

func (r *sqliteRepository) Save(ctx context.Context, list *todo.TodoList) (*todo.TodoList, error) {
	if list.ID == 0 {
		res, err := r.db.ExecContext(ctx, "INSERT INTO todo_lists (name) VALUES (?)", list.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to insert todo list: %w", err)
		}
		if list.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("failed to read todo list id: %w", err)
		}
	} else {
		res, err := r.db.ExecContext(ctx, "UPDATE todo_lists SET name = ? WHERE id = ?", list.Name, list.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update todo list: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("failed to update todo list: %w", err)
		} else if n == 0 {
			return nil, fmt.Errorf("%w: %d", ErrListNotPersisted, list.ID)
		}

		for _, id := range list.RemovedItemIDs() {
			_, err := r.db.ExecContext(ctx,
				"DELETE FROM todo_items WHERE id = ? AND list_id = ?",
				id, list.ID,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to delete removed todo item: %w", err)
			}
		}
	}

	for _, item := range list.Items {
		item.ListID = list.ID
		if item.ID == 0 {
			res, err := r.db.ExecContext(ctx,
				"INSERT INTO todo_items (list_id, description) VALUES (?, ?)",
				list.ID, item.Description,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert todo item: %w", err)
			}
			if item.ID, err = res.LastInsertId(); err != nil {
				return nil, fmt.Errorf("failed to read todo item id: %w", err)
			}
			continue
		}

		res, err := r.db.ExecContext(ctx,
			"UPDATE todo_items SET description = ? WHERE id = ? AND list_id = ?",
			item.Description, item.ID, list.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update todo item: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("failed to update todo item: %w", err)
		} else if n == 0 {
			return nil, fmt.Errorf("%w: item %d", ErrItemNotOwned, item.ID)
		}
	}

	return list, nil
}

// DeleteByID removes items explicitly so it does not depend on the
// foreign_keys pragma being enabled on the handle.
func (r *sqliteRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM todo_items WHERE list_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete todo items: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM todo_lists WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete todo list: %w", err)
	}
	return nil
}
