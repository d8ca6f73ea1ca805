package tasks

// DefaultTaskListID addresses the user's default task list.
const DefaultTaskListID = "@default"

// TaskInput is the input for creating a task.
type TaskInput struct {
	Title string
	Notes string
}

// Task is the subset of a created task reported back to callers.
type Task struct {
	ID     string
	Title  string
	Notes  string
	Status string // "needsAction" or "completed"
}
