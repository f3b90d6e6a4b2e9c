package weekly

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"projtrack/internal/model"
	"projtrack/internal/resolver"
)

type PlannerTask struct {
	model.FlatTask
	Effective  model.Status `json:"effectiveStatus"`
	AssignedAt time.Time    `json:"assignedAt,omitempty"`
}

type DayColumn struct {
	Day   model.Weekday `json:"day"`
	Label string        `json:"label"`
	Tasks []PlannerTask `json:"tasks"`
}

type Planner struct {
	Days      []DayColumn   `json:"days"`
	Available []PlannerTask `json:"available"`
}

type Stats struct {
	TotalAllocated int                   `json:"totalAllocated"`
	TotalAvailable int                   `json:"totalAvailable"`
	ByDay          map[model.Weekday]int `json:"byDay"`
	ByProject      map[string]int        `json:"byProject"`
	ByResponsible  map[string]int        `json:"byResponsible"`
}

// Planner resolves every allocation against the live task list. References
// to tasks that no longer exist are skipped.
func (s *Service) Planner() Planner {
	tasks := s.tasks.GetAllTasks()
	today := s.tasks.Today()
	plan := s.Plan()

	byID := make(map[string]model.FlatTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	out := Planner{Days: make([]DayColumn, 0, len(model.Weekdays)), Available: []PlannerTask{}}
	allocated := make(map[string]struct{})
	for _, d := range model.Weekdays {
		col := DayColumn{Day: d, Label: d.Label(), Tasks: []PlannerTask{}}
		for _, a := range plan[d] {
			t, ok := byID[a.TaskID]
			if !ok {
				continue
			}
			allocated[t.ID] = struct{}{}
			col.Tasks = append(col.Tasks, PlannerTask{
				FlatTask:   t,
				Effective:  resolver.TaskStatus(t.Task, today),
				AssignedAt: a.AssignedAt,
			})
		}
		out.Days = append(out.Days, col)
	}

	for _, t := range tasks {
		if _, ok := allocated[t.ID]; ok {
			continue
		}
		out.Available = append(out.Available, PlannerTask{FlatTask: t, Effective: resolver.TaskStatus(t.Task, today)})
	}
	return out
}

func (s *Service) Stats() Stats {
	p := s.Planner()
	st := Stats{
		TotalAvailable: len(p.Available),
		ByDay:          make(map[model.Weekday]int, len(p.Days)),
		ByProject:      make(map[string]int),
		ByResponsible:  make(map[string]int),
	}
	for _, col := range p.Days {
		st.ByDay[col.Day] = len(col.Tasks)
		st.TotalAllocated += len(col.Tasks)
		for _, t := range col.Tasks {
			st.ByProject[t.ProjectName]++
			st.ByResponsible[t.Responsible]++
		}
	}
	return st
}

// Report renders the plain-text weekly report.
func (s *Service) Report() string {
	st := s.Stats()

	var b strings.Builder
	b.WriteString("RELATÓRIO DA DISTRIBUIÇÃO SEMANAL\n")
	b.WriteString("=====================================\n\n")
	fmt.Fprintf(&b, "Total de etapas alocadas: %d\n", st.TotalAllocated)
	fmt.Fprintf(&b, "Total de etapas disponíveis: %d\n\n", st.TotalAvailable)

	b.WriteString("Distribuição por dia:\n")
	for _, d := range model.Weekdays {
		fmt.Fprintf(&b, "- %s: %d etapa(s)\n", d.Label(), st.ByDay[d])
	}

	b.WriteString("\nDistribuição por projeto:\n")
	writeCounts(&b, st.ByProject)

	b.WriteString("\nDistribuição por responsável:\n")
	writeCounts(&b, st.ByResponsible)
	return b.String()
}

func writeCounts(b *strings.Builder, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %d etapa(s)\n", k, counts[k])
	}
}
