package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"todoAPI/internal/todo"
	"todoAPI/middleware"
	"todoAPI/services"
)

const (
	routeTodoList = "todoList"
	routeTodoItem = "todoItem"

	requestTimeout = 5 * time.Second
)

type TodoListHandler struct {
	todoService *services.TodoService
	router      *mux.Router
}

// NewTodoListHandler binds the handler to api, expected to be the /api/v1
// subrouter. Location headers are built from the routes named on it.
func NewTodoListHandler(todoService *services.TodoService, api *mux.Router) *TodoListHandler {
	return &TodoListHandler{
		todoService: todoService,
		router:      api,
	}
}

// RegisterRoutes mounts the list endpoints under /lists of the api router.
func (h *TodoListHandler) RegisterRoutes() {
	lists := h.router.PathPrefix("/lists").Subrouter()

	lists.HandleFunc("", h.GetTodoLists).Methods("GET")
	lists.HandleFunc("/", h.GetTodoLists).Methods("GET")
	lists.HandleFunc("", h.AddTodoList).Methods("POST")
	lists.HandleFunc("/", h.AddTodoList).Methods("POST")
	lists.HandleFunc("/{id}", h.GetTodoList).Methods("GET").Name(routeTodoList)
	lists.HandleFunc("/{id}/todos", h.GetTodosFromListID).Methods("GET")
	lists.HandleFunc("/{listId}/todos", h.AddTodoItem).Methods("POST")
	lists.HandleFunc("/{listId}/todos/{todoId}", h.RemoveTodoItem).Methods("DELETE").Name(routeTodoItem)
}

func (h *TodoListHandler) GetTodoLists(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	lists, err := h.todoService.FindAll(ctx)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, todo.NewTodoListDtos(lists))
}

func (h *TodoListHandler) AddTodoList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req todo.CreateTodoListRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	created, err := h.todoService.CreateList(ctx, req.Name)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	if err := h.setLocation(w, routeTodoList, "id", strconv.FormatInt(created.ID, 10)); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, todo.NewTodoListDto(created))
}

func (h *TodoListHandler) GetTodoList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.todoService.GetList(ctx, id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, todo.NewTodoListDto(list))
}

func (h *TodoListHandler) GetTodosFromListID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.todoService.GetList(ctx, id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, todo.NewTodoItemDtos(list.Items))
}

func (h *TodoListHandler) AddTodoItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	listID, err := pathID(r, "listId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req todo.CreateTodoItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.todoService.AddItem(ctx, listID, req.Description)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	err = h.setLocation(w, routeTodoItem,
		"listId", strconv.FormatInt(listID, 10),
		"todoId", strconv.FormatInt(item.ID, 10),
	)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, todo.NewTodoItemDto(item))
}

func (h *TodoListHandler) RemoveTodoItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	listID, err := pathID(r, "listId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	todoID, err := pathID(r, "todoId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.todoService.RemoveItem(ctx, listID, todoID); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoListHandler) setLocation(w http.ResponseWriter, route string, pairs ...string) error {
	named := h.router.Get(route)
	if named == nil {
		return fmt.Errorf("route %q is not registered", route)
	}
	location, err := named.URL(pairs...)
	if err != nil {
		return fmt.Errorf("failed to build location for route %q: %w", route, err)
	}
	w.Header().Set("Location", location.String())
	return nil
}

func (h *TodoListHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrListNotFound) {
		respondWithError(w, http.StatusNotFound, "Todo list not found")
		return
	}

	requestID, _ := middleware.GetRequestID(r.Context())
	slog.Error("Todo request failed", "path", r.URL.Path, "request_id", requestID, "error", err)
	respondWithError(w, http.StatusInternalServerError, "Server error")
}
