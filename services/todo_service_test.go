package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoAPI/internal/testutil"
	"todoAPI/internal/todo"
	"todoAPI/repository"
)

func newTestService(t *testing.T) *TodoService {
	t.Helper()
	return NewTodoService(testutil.NewSQLiteStore(t))
}

// assertConcurrentAddItemsKept adds items to one list from many goroutines
// and checks that every acknowledged item is stored.
func assertConcurrentAddItemsKept(t *testing.T, svc *TodoService) {
	t.Helper()
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "Shared")
	require.NoError(t, err)

	const writers = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]string, writers)
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			description := fmt.Sprintf("item %d", i)
			item, err := svc.AddItem(ctx, list.ID, description)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[item.ID] = description
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, ids, writers)

	got, err := svc.GetList(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, writers)
	for _, item := range got.Items {
		assert.Equal(t, ids[item.ID], item.Description)
	}
}

func TestConcurrentAddItemKeepsEveryItem(t *testing.T) {
	assertConcurrentAddItemsKept(t, newTestService(t))
}

func TestCreateListThenGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateList(ctx, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Empty(t, created.Items)

	got, err := svc.GetList(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)
	assert.Empty(t, got.Items)
}

func TestFindAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lists, err := svc.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists)

	work, err := svc.CreateList(ctx, "Work")
	require.NoError(t, err)
	_, err = svc.CreateList(ctx, "Home")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, work.ID, "Report")
	require.NoError(t, err)

	lists, err = svc.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "Work", lists[0].Name)
	require.Len(t, lists[0].Items, 1)
	assert.Equal(t, "Report", lists[0].Items[0].Description)
	assert.Empty(t, lists[1].Items)
}

func TestAddItemAssignsDistinctIDs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateList(ctx, "A")
	require.NoError(t, err)
	b, err := svc.CreateList(ctx, "B")
	require.NoError(t, err)

	seen := map[int64]bool{}
	for _, listID := range []int64{a.ID, b.ID, a.ID, b.ID} {
		item, err := svc.AddItem(ctx, listID, "thing")
		require.NoError(t, err)
		assert.NotZero(t, item.ID)
		assert.Equal(t, listID, item.ListID)
		assert.False(t, seen[item.ID], "item id %d reused", item.ID)
		seen[item.ID] = true
	}

	got, err := svc.GetList(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "Chores")
	require.NoError(t, err)
	keep, err := svc.AddItem(ctx, list.ID, "Dishes")
	require.NoError(t, err)
	drop, err := svc.AddItem(ctx, list.ID, "Laundry")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, list.ID, drop.ID))

	got, err := svc.GetList(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, keep.ID, got.Items[0].ID)

	require.NoError(t, svc.RemoveItem(ctx, list.ID, drop.ID), "second removal is a no-op")
	require.NoError(t, svc.RemoveItem(ctx, list.ID, 12345))

	got, err = svc.GetList(ctx, list.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestRemoveItemFromOtherListIsNoop(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateList(ctx, "A")
	require.NoError(t, err)
	b, err := svc.CreateList(ctx, "B")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, a.ID, "belongs to A")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, b.ID, item.ID))

	got, err := svc.GetList(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestUnknownListIsNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetList(ctx, 99)
	assert.ErrorIs(t, err, ErrListNotFound)

	_, err = svc.AddItem(ctx, 99, "Milk")
	assert.ErrorIs(t, err, ErrListNotFound)

	err = svc.RemoveItem(ctx, 99, 1)
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestDeleteList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "Temp")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, list.ID, "x")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteList(ctx, list.ID))
	require.NoError(t, svc.DeleteList(ctx, list.ID))

	_, err = svc.GetList(ctx, list.ID)
	assert.ErrorIs(t, err, ErrListNotFound)
}

// failingStore fails every save inside a transaction.
type failingStore struct {
	repository.Store
	err error
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(repo repository.TodoListRepository) error) error {
	return s.Store.WithinTx(ctx, func(repo repository.TodoListRepository) error {
		return fn(&failingRepo{TodoListRepository: repo, err: s.err})
	})
}

type failingRepo struct {
	repository.TodoListRepository
	err error
}

func (r *failingRepo) Save(context.Context, *todo.TodoList) (*todo.TodoList, error) {
	return nil, r.err
}

func TestAddItemStoreFailureLeavesListUnchanged(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	list, err := NewTodoService(store).CreateList(ctx, "Groceries")
	require.NoError(t, err)

	errDisk := errors.New("disk full")
	svc := NewTodoService(&failingStore{Store: store, err: errDisk})

	before := promtestutil.ToFloat64(todoOperations.WithLabelValues("add_item", outcomeError))
	_, err = svc.AddItem(ctx, list.ID, "Milk")
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, errors.Is(err, ErrListNotFound))
	assert.Equal(t, before+1, promtestutil.ToFloat64(todoOperations.WithLabelValues("add_item", outcomeError)))

	got, err := NewTodoService(store).GetList(ctx, list.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestOperationsAreCounted(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	okBefore := promtestutil.ToFloat64(todoOperations.WithLabelValues("get_list", outcomeOK))
	missBefore := promtestutil.ToFloat64(todoOperations.WithLabelValues("get_list", outcomeNotFound))

	list, err := svc.CreateList(ctx, strings.Repeat("x", 255))
	require.NoError(t, err)
	_, err = svc.GetList(ctx, list.ID)
	require.NoError(t, err)
	_, err = svc.GetList(ctx, list.ID+1)
	require.Error(t, err)

	assert.Equal(t, okBefore+1, promtestutil.ToFloat64(todoOperations.WithLabelValues("get_list", outcomeOK)))
	assert.Equal(t, missBefore+1, promtestutil.ToFloat64(todoOperations.WithLabelValues("get_list", outcomeNotFound)))
}
