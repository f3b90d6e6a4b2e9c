// Package resolver derives the effective status and time-based progress of
// tasks and projects. Every function is pure; "today" is always passed in.
package resolver

import (
	"math"

	"projtrack/internal/model"
)

// Resolve returns the effective status of a dated item.
//
// manual wins when valid, then progress >= 100, then dates. Invalid dates
// resolve to pending.
func Resolve(start, end model.Date, progress int, manual model.Status, today model.Date) model.Status {
	if manual.Valid() {
		return manual
	}
	if progress >= 100 {
		return model.StatusCompleted
	}
	if start.IsZero() || end.IsZero() {
		return model.StatusPending
	}
	if today.After(end) {
		return model.StatusOverdue
	}
	if !today.Before(start) && !today.After(end) {
		return model.StatusInProgress
	}
	return model.StatusPending
}

func TaskStatus(t model.Task, today model.Date) model.Status {
	return Resolve(t.StartDate, t.EndDate, t.Progress, t.Status, today)
}

// ProjectStatus aggregates task statuses. A manual project status wins.
func ProjectStatus(p model.Project, today model.Date) model.Status {
	if p.Status.Valid() {
		return p.Status
	}
	if len(p.Tasks) == 0 {
		return model.StatusPending
	}

	completed := 0
	var overdue, inProgress bool
	for _, t := range p.Tasks {
		switch TaskStatus(t, today) {
		case model.StatusCompleted:
			completed++
		case model.StatusOverdue:
			overdue = true
		case model.StatusInProgress:
			inProgress = true
		}
	}

	switch {
	case completed == len(p.Tasks):
		return model.StatusCompleted
	case overdue:
		return model.StatusOverdue
	case inProgress:
		return model.StatusInProgress
	}
	return model.StatusPending
}

// Progress is the share of the inclusive date range already elapsed, 0..100.
func Progress(start, end, today model.Date) int {
	if !model.ValidRange(start, end) {
		return 0
	}
	if today.Before(start) {
		return 0
	}
	if today.After(end) {
		return 100
	}
	total := start.DaysUntil(end) + 1
	elapsed := start.DaysUntil(today) + 1
	return int(math.Round(float64(elapsed) / float64(total) * 100))
}

// CompletionPercent is completed tasks over total tasks, rounded.
func CompletionPercent(p model.Project, today model.Date) int {
	if len(p.Tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range p.Tasks {
		if TaskStatus(t, today) == model.StatusCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(p.Tasks)) * 100))
}

// CountByStatus counts task statuses over every project, all four keys present.
func CountByStatus(projects []model.Project, today model.Date) map[model.Status]int {
	out := make(map[model.Status]int, len(model.Statuses))
	for _, s := range model.Statuses {
		out[s] = 0
	}
	for _, p := range projects {
		for _, t := range p.Tasks {
			out[TaskStatus(t, today)]++
		}
	}
	return out
}
