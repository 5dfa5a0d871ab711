package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoAPI/internal/todo"
	"todoAPI/repository"
)

// runStoreTests exercises the Store contract against a backend.
func runStoreTests(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Run("SaveAssignsIDs", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		list := todo.NewTodoList("Groceries")
		list.AddItem(todo.NewTodoItem("Milk"))
		list.AddItem(todo.NewTodoItem("Eggs"))

		saved, err := store.Save(ctx, list)
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
		require.Len(t, saved.Items, 2)
		assert.NotZero(t, saved.Items[0].ID)
		assert.NotEqual(t, saved.Items[0].ID, saved.Items[1].ID)
		assert.Equal(t, saved.ID, saved.Items[0].ListID)

		found, ok, err := store.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Groceries", found.Name)
		require.Len(t, found.Items, 2)
		assert.Equal(t, "Milk", found.Items[0].Description)
		assert.Equal(t, "Eggs", found.Items[1].Description)
	})

	t.Run("FindByIDMissing", func(t *testing.T) {
		store := newStore(t)

		list, ok, err := store.FindByID(context.Background(), 404)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, list)
	})

	t.Run("FindByIDEmptyList", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		saved, err := store.Save(ctx, todo.NewTodoList("Empty"))
		require.NoError(t, err)

		found, ok, err := store.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotNil(t, found.Items)
		assert.Empty(t, found.Items)
	})

	t.Run("FindAllGroupsItems", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		a := todo.NewTodoList("A")
		a.AddItem(todo.NewTodoItem("a1"))
		_, err := store.Save(ctx, a)
		require.NoError(t, err)

		b := todo.NewTodoList("B")
		b.AddItem(todo.NewTodoItem("b1"))
		b.AddItem(todo.NewTodoItem("b2"))
		_, err = store.Save(ctx, b)
		require.NoError(t, err)

		_, err = store.Save(ctx, todo.NewTodoList("C"))
		require.NoError(t, err)

		lists, err := store.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, lists, 3)
		assert.Equal(t, "A", lists[0].Name)
		assert.Len(t, lists[0].Items, 1)
		assert.Len(t, lists[1].Items, 2)
		assert.NotNil(t, lists[2].Items)
		assert.Empty(t, lists[2].Items)
	})

	t.Run("SaveRemovesOrphans", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		list := todo.NewTodoList("Chores")
		list.AddItem(todo.NewTodoItem("Dishes"))
		list.AddItem(todo.NewTodoItem("Laundry"))
		_, err := store.Save(ctx, list)
		require.NoError(t, err)

		removed := list.Items[0].ID
		require.True(t, list.RemoveItem(removed))
		list.AddItem(todo.NewTodoItem("Vacuum"))
		_, err = store.Save(ctx, list)
		require.NoError(t, err)

		found, _, err := store.FindByID(ctx, list.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 2)
		assert.Equal(t, "Laundry", found.Items[0].Description)
		assert.Equal(t, "Vacuum", found.Items[1].Description)
		for _, item := range found.Items {
			assert.NotEqual(t, removed, item.ID)
		}
	})

	t.Run("SaveFromStaleCopyKeepsNewerItems", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		list, err := store.Save(ctx, todo.NewTodoList("Shared"))
		require.NoError(t, err)

		a, _, err := store.FindByID(ctx, list.ID)
		require.NoError(t, err)
		b, _, err := store.FindByID(ctx, list.ID)
		require.NoError(t, err)

		a.AddItem(todo.NewTodoItem("from A"))
		_, err = store.Save(ctx, a)
		require.NoError(t, err)

		b.AddItem(todo.NewTodoItem("from B"))
		_, err = store.Save(ctx, b)
		require.NoError(t, err)

		found, _, err := store.FindByID(ctx, list.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 2)
		assert.Equal(t, a.Items[0].ID, found.Items[0].ID)
		assert.Equal(t, "from A", found.Items[0].Description)
		assert.Equal(t, "from B", found.Items[1].Description)
	})

	t.Run("RemoveFromStaleCopyKeepsNewerItems", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		list := todo.NewTodoList("Shared")
		list.AddItem(todo.NewTodoItem("old"))
		_, err := store.Save(ctx, list)
		require.NoError(t, err)
		oldID := list.Items[0].ID

		a, _, err := store.FindByID(ctx, list.ID)
		require.NoError(t, err)
		b, _, err := store.FindByID(ctx, list.ID)
		require.NoError(t, err)

		a.AddItem(todo.NewTodoItem("new"))
		_, err = store.Save(ctx, a)
		require.NoError(t, err)

		require.True(t, b.RemoveItem(oldID))
		_, err = store.Save(ctx, b)
		require.NoError(t, err)

		found, _, err := store.FindByID(ctx, list.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, "new", found.Items[0].Description)
	})

	t.Run("ItemIDsAreNotReused", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		list := todo.NewTodoList("L")
		list.AddItem(todo.NewTodoItem("first"))
		_, err := store.Save(ctx, list)
		require.NoError(t, err)
		first := list.Items[0].ID

		list.RemoveItem(first)
		list.AddItem(todo.NewTodoItem("second"))
		_, err = store.Save(ctx, list)
		require.NoError(t, err)

		assert.Greater(t, list.Items[0].ID, first)
	})

	t.Run("SaveUnknownList", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Save(context.Background(), &todo.TodoList{ID: 999, Name: "ghost"})
		assert.ErrorIs(t, err, repository.ErrListNotPersisted)
	})

	t.Run("SaveRejectsForeignItem", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		owner := todo.NewTodoList("Owner")
		owner.AddItem(todo.NewTodoItem("mine"))
		_, err := store.Save(ctx, owner)
		require.NoError(t, err)

		thief := todo.NewTodoList("Thief")
		_, err = store.Save(ctx, thief)
		require.NoError(t, err)

		thief.Items = append(thief.Items, &todo.TodoItem{ID: owner.Items[0].ID, Description: "stolen"})
		_, err = store.Save(ctx, thief)
		assert.ErrorIs(t, err, repository.ErrItemNotOwned)

		found, _, err := store.FindByID(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, "mine", found.Items[0].Description)
	})

	t.Run("DeleteByIDCascades", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		list := todo.NewTodoList("Doomed")
		list.AddItem(todo.NewTodoItem("x"))
		_, err := store.Save(ctx, list)
		require.NoError(t, err)

		require.NoError(t, store.DeleteByID(ctx, list.ID))
		require.NoError(t, store.DeleteByID(ctx, list.ID), "deleting twice is a no-op")

		_, ok, err := store.FindByID(ctx, list.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		lists, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, lists)
	})

	t.Run("WithinTxRollsBack", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		errAbort := errors.New("abort")

		err := store.WithinTx(ctx, func(repo repository.TodoListRepository) error {
			list := todo.NewTodoList("Never")
			list.AddItem(todo.NewTodoItem("committed"))
			if _, err := repo.Save(ctx, list); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		lists, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, lists)
	})

	t.Run("WithinTxCommits", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		var id int64
		err := store.WithinTx(ctx, func(repo repository.TodoListRepository) error {
			saved, err := repo.Save(ctx, todo.NewTodoList("Kept"))
			if err != nil {
				return err
			}
			id = saved.ID

			found, ok, err := repo.FindByID(ctx, id)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Kept", found.Name)
			return nil
		})
		require.NoError(t, err)

		_, ok, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Ping", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Ping(context.Background()))
	})
}
