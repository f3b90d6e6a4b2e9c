package project

import (
	"time"

	"projtrack/internal/model"
)

type sampleTask struct {
	name, responsible, start, end string
}

var sampleData = []struct {
	name, start, end string
	tasks            []sampleTask
}{
	{
		name: "Desenvolvimento de Website", start: "2024-01-01", end: "2024-03-31",
		tasks: []sampleTask{
			{"Planejamento e Design", "João Silva", "2024-01-01", "2024-01-15"},
			{"Desenvolvimento Frontend", "Maria Santos", "2024-01-16", "2024-02-15"},
			{"Desenvolvimento Backend", "Pedro Costa", "2024-01-16", "2024-02-28"},
			{"Testes e Deploy", "Ana Oliveira", "2024-03-01", "2024-03-31"},
		},
	},
	{
		name: "Campanha de Marketing", start: "2024-02-01", end: "2024-04-30",
		tasks: []sampleTask{
			{"Definição de Estratégia", "Carlos Lima", "2024-02-01", "2024-02-14"},
			{"Criação de Conteúdo", "Fernanda Rocha", "2024-02-15", "2024-03-31"},
			{"Execução da Campanha", "Roberto Alves", "2024-04-01", "2024-04-30"},
		},
	},
}

// SampleProjects builds the demo data set with fresh ids.
func SampleProjects(newID func() string, now time.Time) []model.Project {
	out := make([]model.Project, 0, len(sampleData))
	for _, sp := range sampleData {
		p := model.Project{
			ID:        newID(),
			Name:      sp.name,
			StartDate: model.MustParseDate(sp.start),
			EndDate:   model.MustParseDate(sp.end),
			Tasks:     make([]model.Task, 0, len(sp.tasks)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		for _, st := range sp.tasks {
			p.Tasks = append(p.Tasks, model.Task{
				ID:          newID(),
				Name:        st.name,
				Responsible: st.responsible,
				StartDate:   model.MustParseDate(st.start),
				EndDate:     model.MustParseDate(st.end),
			})
		}
		out = append(out, p)
	}
	return out
}
