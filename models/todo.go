package models

// TodoItem represents a todo item, mapping to the todos table.
type TodoItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
}

// CreateTodoRequest is the body accepted by the create endpoint.
type CreateTodoRequest struct {
	Title string `json:"title" validate:"required"`
}

// CreatedResponse carries the identifier assigned to a new item.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// ErrorDetails is the JSON body written for every non-2xx response.
type ErrorDetails struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}
