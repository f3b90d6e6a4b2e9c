// Package timeline builds the simplified Gantt (a day grid) and the full
// Gantt bar list from the project list.
package timeline

import (
	"projtrack/internal/model"
	"projtrack/internal/resolver"
)

// Filter matches project name and task responsible exactly. Empty matches all.
type Filter struct {
	Project     string `form:"project" json:"project"`
	Responsible string `form:"responsible" json:"responsible"`
}

type FilterOptions struct {
	Projects     []string `json:"projects"`
	Responsibles []string `json:"responsibles"`
}

// Options lists unique project names and responsibles in first-seen order.
func Options(projects []model.Project) FilterOptions {
	out := FilterOptions{Projects: []string{}, Responsibles: []string{}}
	seenP, seenR := map[string]bool{}, map[string]bool{}
	for _, p := range projects {
		if !seenP[p.Name] {
			seenP[p.Name] = true
			out.Projects = append(out.Projects, p.Name)
		}
		for _, t := range p.Tasks {
			if !seenR[t.Responsible] {
				seenR[t.Responsible] = true
				out.Responsibles = append(out.Responsibles, t.Responsible)
			}
		}
	}
	return out
}

var shortWeekdays = [...]string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}

type Day struct {
	Date       model.Date `json:"date"`
	Weekday    string     `json:"weekday"`
	DayOfMonth int        `json:"dayOfMonth"`
	Weekend    bool       `json:"weekend"`
}

type Row struct {
	Kind        string       `json:"kind"` // project | task
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId"`
	Name        string       `json:"name"`
	Responsible string       `json:"responsible,omitempty"`
	Start       model.Date   `json:"start"`
	End         model.Date   `json:"end"`
	Offset      int          `json:"offset"`
	Span        int          `json:"span"`
	Status      model.Status `json:"status"`
	Progress    int          `json:"progress"`
}

type Simple struct {
	Options FilterOptions `json:"options"`
	Filter  Filter        `json:"filter"`
	Start   model.Date    `json:"start"`
	End     model.Date    `json:"end"`
	Days    []Day         `json:"days"`
	Rows    []Row         `json:"rows"`
	// Truncated is set when the range exceeds MaxDays and End was pulled in.
	Truncated bool `json:"truncated,omitempty"`
}

// MaxDays bounds the day grid (about ten years).
const MaxDays = 3660

func filterProjects(projects []model.Project, f Filter) []model.Project {
	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		if f.Project != "" && p.Name != f.Project {
			continue
		}
		out = append(out, p)
	}
	return out
}

func keepTask(t model.Task, f Filter) bool {
	return f.Responsible == "" || t.Responsible == f.Responsible
}

// BuildSimple lays projects and their tasks on a day grid spanning the
// earliest to the latest valid date. Invalid dates are left out of the range.
func BuildSimple(projects []model.Project, f Filter, today model.Date) Simple {
	out := Simple{Options: Options(projects), Filter: f, Days: []Day{}, Rows: []Row{}}
	filtered := filterProjects(projects, f)

	var start, end model.Date
	include := func(a, b model.Date) {
		if !model.ValidRange(a, b) {
			return
		}
		if start.IsZero() || a.Before(start) {
			start = a
		}
		if end.IsZero() || b.After(end) {
			end = b
		}
	}
	for _, p := range filtered {
		include(p.StartDate, p.EndDate)
		for _, t := range p.Tasks {
			if keepTask(t, f) {
				include(t.StartDate, t.EndDate)
			}
		}
	}
	if start.IsZero() {
		return out
	}
	if start.DaysUntil(end) >= MaxDays {
		end = start.AddDays(MaxDays - 1)
		out.Truncated = true
	}
	out.Start, out.End = start, end

	for day := start; !day.After(end); day = day.AddDays(1) {
		wd := day.Weekday()
		out.Days = append(out.Days, Day{
			Date:       day,
			Weekday:    shortWeekdays[wd],
			DayOfMonth: day.Day(),
			Weekend:    wd == 0 || wd == 6,
		})
	}

	for _, p := range filtered {
		out.Rows = append(out.Rows, Row{
			Kind:      "project",
			ID:        p.ID,
			ProjectID: p.ID,
			Name:      p.Name,
			Start:     p.StartDate,
			End:       p.EndDate,
			Offset:    offset(start, p.StartDate),
			Span:      span(p.StartDate, p.EndDate),
			Status:    resolver.ProjectStatus(p, today),
			Progress:  resolver.CompletionPercent(p, today),
		})
		for _, t := range p.Tasks {
			if !keepTask(t, f) {
				continue
			}
			out.Rows = append(out.Rows, Row{
				Kind:        "task",
				ID:          t.ID,
				ProjectID:   p.ID,
				Name:        t.Name,
				Responsible: t.Responsible,
				Start:       t.StartDate,
				End:         t.EndDate,
				Offset:      offset(start, t.StartDate),
				Span:        span(t.StartDate, t.EndDate),
				Status:      resolver.TaskStatus(t, today),
				Progress:    resolver.Progress(t.StartDate, t.EndDate, today),
			})
		}
	}
	return out
}

func offset(origin, d model.Date) int {
	if d.IsZero() {
		return 0
	}
	return origin.DaysUntil(d)
}

// span counts inclusive days; 0 for an invalid range.
func span(a, b model.Date) int {
	if !model.ValidRange(a, b) {
		return 0
	}
	return a.DaysUntil(b) + 1
}

type Bar struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Start        model.Date   `json:"start"`
	End          model.Date   `json:"end"`
	Progress     int          `json:"progress"`
	Dependencies []string     `json:"dependencies"`
	CustomClass  string       `json:"custom_class"`
	Project      string       `json:"project,omitempty"`
	Responsible  string       `json:"responsible,omitempty"`
	Status       model.Status `json:"status,omitempty"`
}

// BuildBars produces the full Gantt data set. Projects without tasks or with
// an invalid range are skipped, as are tasks with invalid dates.
func BuildBars(projects []model.Project, f Filter, today model.Date) []Bar {
	bars := []Bar{}
	for _, p := range filterProjects(projects, f) {
		if len(p.Tasks) == 0 || !model.ValidRange(p.StartDate, p.EndDate) {
			continue
		}
		projectBar := "project-" + p.ID
		bars = append(bars, Bar{
			ID:           projectBar,
			Name:         p.Name,
			Start:        p.StartDate,
			End:          p.EndDate,
			Dependencies: []string{},
			CustomClass:  "project-group",
		})

		for _, t := range p.Tasks {
			if !keepTask(t, f) || t.Name == "" || !model.ValidRange(t.StartDate, t.EndDate) {
				continue
			}
			status := resolver.TaskStatus(t, today)
			bars = append(bars, Bar{
				ID:           "task-" + t.ID,
				Name:         t.Name + " (" + t.Responsible + ")",
				Start:        t.StartDate,
				End:          t.EndDate,
				Progress:     resolver.Progress(t.StartDate, t.EndDate, today),
				Dependencies: []string{projectBar},
				CustomClass:  "task-" + string(status),
				Project:      p.Name,
				Responsible:  t.Responsible,
				Status:       status,
			})
		}
	}
	return bars
}

// DurationDays is the whole-day distance between start and end.
func DurationDays(start, end model.Date) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	n := start.DaysUntil(end)
	if n < 0 {
		n = -n
	}
	return n
}
