package todo

// TodoList owns its items. Items detached from a list are deleted when the
// list is saved.
type TodoList struct {
	ID    int64       `db:"id"`
	Name  string      `db:"name"`
	Items []*TodoItem `db:"-"`

	// removed holds persisted item IDs detached since the list was loaded.
	removed []int64
}

// TodoItem is a single entry of a TodoList. ListID points back at the owner.
type TodoItem struct {
	ID          int64  `db:"id"`
	ListID      int64  `db:"list_id"`
	Description string `db:"description"`
}

func NewTodoList(name string) *TodoList {
	return &TodoList{Name: name, Items: []*TodoItem{}}
}

func NewTodoItem(description string) *TodoItem {
	return &TodoItem{Description: description}
}

// AddItem appends item and points its back-reference at l.
func (l *TodoList) AddItem(item *TodoItem) {
	item.ListID = l.ID
	l.Items = append(l.Items, item)
}

// RemoveItem drops the first item with the given ID. It reports whether an
// item was removed.
func (l *TodoList) RemoveItem(itemID int64) bool {
	for i, item := range l.Items {
		if item.ID != itemID {
			continue
		}
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		item.ListID = 0
		if itemID != 0 {
			l.removed = append(l.removed, itemID)
		}
		return true
	}
	return false
}

// RemovedItemIDs returns the IDs of persisted items detached by RemoveItem.
// Saving deletes exactly these; items stored after l was loaded are kept.
func (l *TodoList) RemovedItemIDs() []int64 {
	return l.removed
}

// ClearRemoved forgets detached IDs once their deletion is written.
func (l *TodoList) ClearRemoved() {
	l.removed = nil
}
