package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"todoAPI/internal/todo"
	"todoAPI/repository"
)

// ErrListNotFound is returned when no list has the requested ID.
var ErrListNotFound = errors.New("todo list not found")

type TodoService struct {
	store repository.Store
}

func NewTodoService(store repository.Store) *TodoService {
	return &TodoService{store: store}
}

func (s *TodoService) FindAll(ctx context.Context) ([]*todo.TodoList, error) {
	var lists []*todo.TodoList
	err := s.run(ctx, "find_all", func(repo repository.TodoListRepository) error {
		var err error
		lists, err = repo.FindAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list todo lists: %w", err)
	}
	return lists, nil
}

func (s *TodoService) CreateList(ctx context.Context, name string) (*todo.TodoList, error) {
	var created *todo.TodoList
	err := s.run(ctx, "create_list", func(repo repository.TodoListRepository) error {
		var err error
		created, err = repo.Save(ctx, todo.NewTodoList(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create todo list: %w", err)
	}

	slog.Debug("Todo list created", "list_id", created.ID)
	return created, nil
}

// GetList fails with ErrListNotFound when the list does not exist.
func (s *TodoService) GetList(ctx context.Context, id int64) (*todo.TodoList, error) {
	var list *todo.TodoList
	err := s.run(ctx, "get_list", func(repo repository.TodoListRepository) error {
		var err error
		list, err = getListOrNotFound(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// AddItem appends a new item to the list and returns it with its ID.
func (s *TodoService) AddItem(ctx context.Context, listID int64, description string) (*todo.TodoItem, error) {
	item := todo.NewTodoItem(description)
	err := s.run(ctx, "add_item", func(repo repository.TodoListRepository) error {
		list, err := getListOrNotFound(ctx, repo, listID)
		if err != nil {
			return err
		}

		list.AddItem(item)
		if _, err := repo.Save(ctx, list); err != nil {
			return fmt.Errorf("failed to save todo list %d: %w", listID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Todo item added", "list_id", listID, "item_id", item.ID)
	return item, nil
}

// RemoveItem deletes the first item of the list with the given ID. An item
// that is not in the list is not an error.
func (s *TodoService) RemoveItem(ctx context.Context, listID, itemID int64) error {
	return s.run(ctx, "remove_item", func(repo repository.TodoListRepository) error {
		list, err := getListOrNotFound(ctx, repo, listID)
		if err != nil {
			return err
		}

		if !list.RemoveItem(itemID) {
			slog.Debug("Todo item not in list, nothing to remove", "list_id", listID, "item_id", itemID)
			return nil
		}

		// Saving the list deletes the detached item.
		if _, err := repo.Save(ctx, list); err != nil {
			return fmt.Errorf("failed to save todo list %d: %w", listID, err)
		}
		return nil
	})
}

// DeleteList removes a list and all of its items.
func (s *TodoService) DeleteList(ctx context.Context, id int64) error {
	return s.run(ctx, "delete_list", func(repo repository.TodoListRepository) error {
		if err := repo.DeleteByID(ctx, id); err != nil {
			return fmt.Errorf("failed to delete todo list %d: %w", id, err)
		}
		return nil
	})
}

// run executes fn in one transaction and records the outcome.
func (s *TodoService) run(ctx context.Context, operation string, fn func(repo repository.TodoListRepository) error) error {
	err := s.store.WithinTx(ctx, fn)

	switch {
	case err == nil:
		observeOperation(operation, outcomeOK)
	case errors.Is(err, ErrListNotFound):
		observeOperation(operation, outcomeNotFound)
	default:
		observeOperation(operation, outcomeError)
		slog.Error("Todo operation failed", "operation", operation, "error", err)
	}

	return err
}

func getListOrNotFound(ctx context.Context, repo repository.TodoListRepository, id int64) (*todo.TodoList, error) {
	list, ok, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get todo list %d: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrListNotFound, id)
	}
	return list, nil
}
