package project

import (
	"strings"

	"projtrack/internal/model"
)

// ProjectInput is the payload of create and update.
type ProjectInput struct {
	Name      string      `json:"name"`
	StartDate model.Date  `json:"startDate"`
	EndDate   model.Date  `json:"endDate"`
	Tasks     []TaskInput `json:"tasks"`
}

type TaskInput struct {
	// ID is kept on update so manual status can be carried over.
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Responsible string       `json:"responsible"`
	StartDate   model.Date   `json:"startDate"`
	EndDate     model.Date   `json:"endDate"`
	Status      model.Status `json:"status,omitempty"`
	Progress    *int         `json:"progress,omitempty"`
}

// Filter narrows GetAllProjects. Empty fields match everything.
type Filter struct {
	Name        string       `form:"name"`
	Responsible string       `form:"responsible"`
	Status      model.Status `form:"status"`
}

func (in *ProjectInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	for i := range in.Tasks {
		in.Tasks[i].trim()
	}
}

func (in *TaskInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Responsible = strings.TrimSpace(in.Responsible)
}

func (in ProjectInput) hasDates() bool {
	return !in.StartDate.IsZero() || !in.EndDate.IsZero()
}
