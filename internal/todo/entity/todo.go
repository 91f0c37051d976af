package entity

import "time"

// Todo is a task owned by exactly one user.
type Todo struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"userId"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Completed   bool       `db:"completed" json:"completed"`
	DueDate     *time.Time `db:"due_date" json:"dueDate"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// Stats summarises a user's todos.
type Stats struct {
	TotalTodos           int `json:"totalTodos"`
	CompletedTodos       int `json:"completedTodos"`
	PendingTodos         int `json:"pendingTodos"`
	CompletionPercentage int `json:"completionPercentage"`
}
