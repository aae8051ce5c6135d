package models

import (
	"slices"
	"time"
)

// Role separates administrators from staff members.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User is an account able to sign in to the workflow board.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Credential string `json:"credential,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	FirstLogin bool   `json:"first_login"`
}

// Public returns a copy of the user safe to hand out over the API.
func (u User) Public() User {
	u.Credential = ""
	return u
}

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Project groups related tasks under a name.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusCancelled  TaskStatus = "CANCELLED"
)

// TaskStatuses enumerates every status in board order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusCompleted, StatusCancelled}

// Valid reports whether the status is known.
func (s TaskStatus) Valid() bool {
	return slices.Contains(TaskStatuses, s)
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether the priority is known.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a unit of work assigned to one staff member.
type Task struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartDate       time.Time  `json:"start_date"`
	Deadline        time.Time  `json:"deadline"`
	AssignedToID    string     `json:"assigned_to_id"`
	CollaboratorIDs []string   `json:"collaborator_ids"`
	Status          TaskStatus `json:"status"`
	Priority        Priority   `json:"priority"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Progress        int        `json:"progress"`
	Version         int64      `json:"version"`
}

// HasCollaborator reports whether userID collaborates on the task.
func (t Task) HasCollaborator(userID string) bool {
	return slices.Contains(t.CollaboratorIDs, userID)
}

// Report is an immutable progress entry written by a task's assignee.
type Report struct {
	ID                  string    `json:"id"`
	TaskID              string    `json:"task_id"`
	UserID              string    `json:"user_id"`
	CreatedAt           time.Time `json:"created_at"`
	Content             string    `json:"content"`
	Issues              string    `json:"issues,omitempty"`
	DelayReason         string    `json:"delay_reason,omitempty"`
	PercentageCompleted int       `json:"percentage_completed"`
}

// EmailConfig holds the SMTP settings used for assignment notifications.
type EmailConfig struct {
	SMTPHost            string `json:"smtp_host"`
	SMTPPort            string `json:"smtp_port"`
	SenderEmail         string `json:"sender_email"`
	SenderPassword      string `json:"sender_password,omitempty"`
	EnableNotifications bool   `json:"enable_notifications"`
}

// DefaultEmailConfig is used until an administrator saves settings.
func DefaultEmailConfig() EmailConfig {
	return EmailConfig{
		SMTPHost:            "smtp.gmail.com",
		SMTPPort:            "587",
		EnableNotifications: true,
	}
}
