// Package repository persists TodoList aggregates together with the items
// they own.
package repository

import (
	"context"
	"errors"

	"todoAPI/internal/todo"
)

var (
	// ErrListNotPersisted is returned when saving a list whose ID has no row.
	ErrListNotPersisted = errors.New("todo list is not persisted")

	// ErrItemNotOwned is returned when a list carries an item that belongs
	// to another list.
	ErrItemNotOwned = errors.New("todo item belongs to another list")
)

// TodoListRepository stores lists and, transitively, their items.
type TodoListRepository interface {
	// FindAll returns every list with its items, ordered by ID.
	FindAll(ctx context.Context) ([]*todo.TodoList, error)

	// FindByID returns false when no list has the given ID.
	FindByID(ctx context.Context, id int64) (*todo.TodoList, bool, error)

	// Save inserts or updates the list and synchronises its items: new items
	// are inserted and get IDs, items detached with RemoveItem are deleted.
	// Items stored by other writers since the list was loaded are kept.
	Save(ctx context.Context, list *todo.TodoList) (*todo.TodoList, error)

	// DeleteByID removes the list and its items. Unknown IDs are ignored.
	DeleteByID(ctx context.Context, id int64) error
}

// Store is a TodoListRepository that can group calls into one transaction.
type Store interface {
	TodoListRepository

	// WithinTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repo TodoListRepository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// attachItems groups items onto their lists by ListID.
func attachItems(lists []*todo.TodoList, items []*todo.TodoItem) {
	byID := make(map[int64]*todo.TodoList, len(lists))
	for _, list := range lists {
		list.Items = []*todo.TodoItem{}
		byID[list.ID] = list
	}
	for _, item := range items {
		if list, ok := byID[item.ListID]; ok {
			list.Items = append(list.Items, item)
		}
	}
}
