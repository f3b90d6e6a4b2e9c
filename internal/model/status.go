package model

import "fmt"

// Status is the four-valued effective status shown for tasks and projects.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in-progress"
	StatusOverdue    Status = "overdue"
	StatusPending    Status = "pending"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusCompleted, StatusInProgress, StatusOverdue, StatusPending}

func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusInProgress, StatusOverdue, StatusPending:
		return true
	}
	return false
}

// ParseStatus accepts an empty string (no override) or one of the four values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if s == "" || st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Label is the Portuguese label used in spreadsheets and reports.
func (s Status) Label() string {
	switch s {
	case StatusCompleted:
		return "Concluída"
	case StatusInProgress:
		return "Em Andamento"
	case StatusOverdue:
		return "Atrasada"
	case StatusPending:
		return "Pendente"
	}
	return string(s)
}
