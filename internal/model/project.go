package model

import "time"

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
	Tasks     []Task `json:"tasks"`
	// Status is a manual override; empty means derived from tasks.
	Status Status `json:"status,omitempty"`
	// AutoDates marks a project whose range follows the union of its tasks.
	AutoDates bool      `json:"autoDates,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Responsible string `json:"responsible"`
	StartDate   Date   `json:"startDate"`
	EndDate     Date   `json:"endDate"`
	// Status is a manual override; empty means derived from dates.
	Status   Status `json:"status,omitempty"`
	Progress int    `json:"progress,omitempty"`
}

// FlatTask is a task denormalized with its owning project for display.
type FlatTask struct {
	Task
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
}

// Clone returns a deep copy so callers cannot mutate store state.
func (p Project) Clone() Project {
	out := p
	if p.Tasks != nil {
		out.Tasks = make([]Task, len(p.Tasks))
		copy(out.Tasks, p.Tasks)
	}
	return out
}

func CloneProjects(in []Project) []Project {
	out := make([]Project, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// TaskIndex returns the position of the task with the given id, or -1.
func (p Project) TaskIndex(id string) int {
	for i, t := range p.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// TaskSpan returns the union of all task ranges, skipping tasks with invalid
// dates. ok is false when no task has a valid range.
func (p Project) TaskSpan() (start, end Date, ok bool) {
	for _, t := range p.Tasks {
		if !ValidRange(t.StartDate, t.EndDate) {
			continue
		}
		if !ok || t.StartDate.Before(start) {
			start = t.StartDate
		}
		if !ok || t.EndDate.After(end) {
			end = t.EndDate
		}
		ok = true
	}
	return start, end, ok
}

// Flatten lists every task of every project with its project reference.
func Flatten(projects []Project) []FlatTask {
	var out []FlatTask
	for _, p := range projects {
		for _, t := range p.Tasks {
			out = append(out, FlatTask{Task: t, ProjectID: p.ID, ProjectName: p.Name})
		}
	}
	return out
}
