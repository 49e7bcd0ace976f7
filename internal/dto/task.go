package dto

import "time"

type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=1000"` // nil = leave unchanged
}

type ListTasksQuery struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}

type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	UserID      string    `json:"user_id"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int64          `json:"total"`
}

// ToggleResponse is the minimal projection returned by PATCH /tasks/{id}/complete.
type ToggleResponse struct {
	ID          string    `json:"id"`
	IsCompleted bool      `json:"is_completed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeleteResponse confirms a successful delete.
type DeleteResponse struct {
	Message string `json:"message"`
}
