// Package analytics aggregates task and project statuses into counts, a
// summary and rule-based recommendations. Everything here is a pure function
// of the project list and the reference day.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"projtrack/internal/model"
	"projtrack/internal/resolver"
)

type Stats struct {
	TotalProjects      int                  `json:"totalProjects"`
	TotalTasks         int                  `json:"totalTasks"`
	CompletedTasks     int                  `json:"completedTasks"`
	InProgressTasks    int                  `json:"inProgressTasks"`
	OverdueTasks       int                  `json:"overdueTasks"`
	PendingTasks       int                  `json:"pendingTasks"`
	TasksByStatus      map[model.Status]int `json:"tasksByStatus"`
	TasksByResponsible map[string]int       `json:"tasksByResponsible"`
	TasksByProject     map[string]int       `json:"tasksByProject"`
	ProjectStatus      map[model.Status]int `json:"projectStatus"`
}

func Compute(projects []model.Project, today model.Date) Stats {
	st := Stats{
		TotalProjects:      len(projects),
		TasksByStatus:      make(map[model.Status]int),
		TasksByResponsible: make(map[string]int),
		TasksByProject:     make(map[string]int),
		ProjectStatus:      make(map[model.Status]int),
	}

	for _, p := range projects {
		for _, t := range p.Tasks {
			status := resolver.TaskStatus(t, today)
			st.TotalTasks++
			switch status {
			case model.StatusCompleted:
				st.CompletedTasks++
			case model.StatusInProgress:
				st.InProgressTasks++
			case model.StatusOverdue:
				st.OverdueTasks++
			case model.StatusPending:
				st.PendingTasks++
			}
			st.TasksByStatus[status]++
			st.TasksByResponsible[t.Responsible]++
			st.TasksByProject[p.Name]++
		}
		st.ProjectStatus[resolver.ProjectStatus(p, today)]++
	}
	return st
}

// CompletionRate and OverdueRate are percentages, 0 when there are no tasks.
func (s Stats) CompletionRate() float64 {
	return rate(s.CompletedTasks, s.TotalTasks)
}

func (s Stats) OverdueRate() float64 {
	return rate(s.OverdueTasks, s.TotalTasks)
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

type OverallStatus string

const (
	OverallInsufficientData OverallStatus = "insufficient-data"
	OverallCritical         OverallStatus = "critical"
	OverallAttention        OverallStatus = "attention"
	OverallExcellent        OverallStatus = "excellent"
	OverallGood             OverallStatus = "good"
	OverallRegular          OverallStatus = "regular"
)

func (o OverallStatus) Label() string {
	switch o {
	case OverallInsufficientData:
		return "Sem dados suficientes"
	case OverallCritical:
		return "Crítico"
	case OverallAttention:
		return "Atenção"
	case OverallExcellent:
		return "Excelente"
	case OverallGood:
		return "Bom"
	}
	return "Regular"
}

func Overall(s Stats) OverallStatus {
	if s.TotalTasks == 0 {
		return OverallInsufficientData
	}
	overdue, completion := s.OverdueRate(), s.CompletionRate()
	switch {
	case overdue > 30:
		return OverallCritical
	case overdue > 15:
		return OverallAttention
	case completion > 80:
		return OverallExcellent
	case completion > 60:
		return OverallGood
	}
	return OverallRegular
}

type Summary struct {
	TotalProjects  int           `json:"totalProjects"`
	TotalTasks     int           `json:"totalTasks"`
	CompletionRate string        `json:"completionRate"`
	OverdueRate    string        `json:"overdueRate"`
	Status         OverallStatus `json:"status"`
	StatusLabel    string        `json:"statusLabel"`
}

type Entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Details struct {
	ProjectsByStatus map[model.Status]int `json:"projectsByStatus"`
	TasksByStatus    map[model.Status]int `json:"tasksByStatus"`
	TopResponsibles  []Entry              `json:"topResponsibles"`
	TopProjects      []Entry              `json:"topProjects"`
}

type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Report struct {
	Title           string           `json:"title"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	Summary         Summary          `json:"summary"`
	Details         Details          `json:"details"`
	Recommendations []Recommendation `json:"recommendations"`
}

const ReportTitle = "RELATÓRIO ANALÍTICO - GERENCIADOR DE PROJETOS"

func BuildReport(s Stats, now time.Time) Report {
	overall := Overall(s)
	return Report{
		Title:       ReportTitle,
		GeneratedAt: now,
		Summary: Summary{
			TotalProjects:  s.TotalProjects,
			TotalTasks:     s.TotalTasks,
			CompletionRate: formatRate(s.CompletionRate()),
			OverdueRate:    formatRate(s.OverdueRate()),
			Status:         overall,
			StatusLabel:    overall.Label(),
		},
		Details: Details{
			ProjectsByStatus: s.ProjectStatus,
			TasksByStatus:    s.TasksByStatus,
			TopResponsibles:  Top(s.TasksByResponsible, 5),
			TopProjects:      Top(s.TasksByProject, 5),
		},
		Recommendations: Recommend(s),
	}
}

// Recommend evaluates every rule independently.
func Recommend(s Stats) []Recommendation {
	out := []Recommendation{}

	if s.OverdueTasks > 0 {
		out = append(out, Recommendation{
			Type:        "warning",
			Title:       "Tarefas Atrasadas",
			Description: fmt.Sprintf("%d tarefa(s) estão atrasadas. Revise os prazos e prioridades.", s.OverdueTasks),
		})
	}

	if len(s.TasksByResponsible) > 1 {
		lo, hi := -1, 0
		for _, n := range s.TasksByResponsible {
			if lo < 0 || n < lo {
				lo = n
			}
			if n > hi {
				hi = n
			}
		}
		if hi-lo > 3 {
			out = append(out, Recommendation{
				Type:        "info",
				Title:       "Distribuição de Trabalho",
				Description: "Há uma distribuição desigual de tarefas entre os responsáveis. Considere rebalancear.",
			})
		}
	}

	if s.TotalProjects > 0 && s.TotalTasks == 0 {
		out = append(out, Recommendation{
			Type:        "info",
			Title:       "Projetos sem Etapas",
			Description: "Todos os projetos estão sem etapas definidas. Adicione etapas para melhor acompanhamento.",
		})
	}

	if completion := s.CompletionRate(); completion < 50 && s.TotalTasks > 5 {
		out = append(out, Recommendation{
			Type:        "warning",
			Title:       "Baixa Taxa de Conclusão",
			Description: fmt.Sprintf("Apenas %.1f%% das tarefas estão concluídas. Revise os processos.", completion),
		})
	}
	return out
}

// Top returns the n largest counts, ties broken by name.
func Top(counts map[string]int, n int) []Entry {
	out := make([]Entry, 0, len(counts))
	for name, c := range counts {
		out = append(out, Entry{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func formatRate(r float64) string {
	return fmt.Sprintf("%.1f%%", r)
}
