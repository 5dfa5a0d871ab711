package todo

type CreateTodoListRequest struct {
	Name string `json:"name" validate:"notblank,max=255"`
}

type CreateTodoItemRequest struct {
	Description string `json:"description" validate:"notblank,max=255"`
}

type TodoItemDto struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

type TodoListDto struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Items []TodoItemDto `json:"items"`
}

func NewTodoItemDto(item *TodoItem) TodoItemDto {
	return TodoItemDto{
		ID:          item.ID,
		Description: item.Description,
	}
}

// NewTodoItemDtos never returns nil so empty lists encode as [].
func NewTodoItemDtos(items []*TodoItem) []TodoItemDto {
	dtos := make([]TodoItemDto, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, NewTodoItemDto(item))
	}
	return dtos
}

func NewTodoListDto(list *TodoList) TodoListDto {
	return TodoListDto{
		ID:    list.ID,
		Name:  list.Name,
		Items: NewTodoItemDtos(list.Items),
	}
}

func NewTodoListDtos(lists []*TodoList) []TodoListDto {
	dtos := make([]TodoListDto, 0, len(lists))
	for _, list := range lists {
		dtos = append(dtos, NewTodoListDto(list))
	}
	return dtos
}
