package spreadsheet

import (
	"fmt"
	"io"

	"projtrack/internal/model"
	"projtrack/internal/resolver"
	"projtrack/internal/service/analytics"
	"projtrack/internal/service/timeline"

	"github.com/xuri/excelize/v2"
)

const (
	SheetProjects  = "Projetos"
	SheetWeekly    = "Distribuição Semanal"
	SheetAnalytics = "Relatório Analítico"

	TemplateFilename = "template_importacao.xlsx"
)

var (
	projectHeaders = []any{"Projeto", "Etapa", "Responsável", "Data Início", "Data Fim", "Status", "Duração (dias)"}
	weeklyHeaders  = []any{"Dia da Semana", "Etapa", "Projeto", "Responsável", "Período"}
)

// ExportFilename is the workbook name for the given day.
func ExportFilename(today model.Date) string {
	return fmt.Sprintf("gerenciador_projetos_%s.xlsx", today)
}

// DayTasks is one weekday with its resolved tasks.
type DayTasks struct {
	Day   model.Weekday
	Tasks []model.FlatTask
}

type ExportData struct {
	Projects []model.Project
	Weekly   []DayTasks
	Stats    analytics.Stats
	Today    model.Date
}

// WriteExport renders the three-sheet workbook.
func WriteExport(w io.Writer, data ExportData) error {
	f := excelize.NewFile()
	defer f.Close()

	sb := newSheetBuilder(f)
	sb.rename(SheetProjects)
	sb.header(projectHeaders)
	for _, p := range data.Projects {
		if len(p.Tasks) == 0 {
			sb.row(p.Name, "", "", p.StartDate.String(), p.EndDate.String(), "Sem etapas", 0)
			continue
		}
		for _, t := range p.Tasks {
			sb.row(
				p.Name,
				t.Name,
				t.Responsible,
				t.StartDate.String(),
				t.EndDate.String(),
				resolver.TaskStatus(t, data.Today).Label(),
				timeline.DurationDays(t.StartDate, t.EndDate),
			)
		}
	}
	sb.widths(len(projectHeaders), 22)

	sb.add(SheetWeekly)
	sb.header(weeklyHeaders)
	for _, d := range data.Weekly {
		if len(d.Tasks) == 0 {
			sb.row(d.Day.Label(), "", "", "", "")
			continue
		}
		for _, t := range d.Tasks {
			sb.row(d.Day.Label(), t.Name, t.ProjectName, t.Responsible,
				formatBR(t.StartDate)+" - "+formatBR(t.EndDate))
		}
	}
	sb.widths(len(weeklyHeaders), 22)

	sb.add(SheetAnalytics)
	writeAnalytics(sb, data.Stats)
	sb.widths(2, 28)

	if sb.err != nil {
		return fmt.Errorf("build workbook: %w", sb.err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

var statusPlural = map[model.Status]string{
	model.StatusCompleted:  "Concluídas",
	model.StatusInProgress: "Em Andamento",
	model.StatusOverdue:    "Atrasadas",
	model.StatusPending:    "Pendentes",
}

func writeAnalytics(sb *sheetBuilder, s analytics.Stats) {
	sb.title("RELATÓRIO ANALÍTICO")
	sb.row()
	sb.title("Resumo Geral")
	sb.row("Total de Projetos", s.TotalProjects)
	sb.row("Total de Etapas", s.TotalTasks)
	sb.row("Etapas Concluídas", s.CompletedTasks)
	sb.row("Etapas em Andamento", s.InProgressTasks)
	sb.row("Etapas Atrasadas", s.OverdueTasks)
	sb.row("Etapas Pendentes", s.PendingTasks)
	sb.row()

	sb.title("Status das Etapas")
	for _, st := range model.Statuses {
		if n, ok := s.TasksByStatus[st]; ok {
			sb.row(statusPlural[st], n)
		}
	}
	sb.row()

	sb.title("Top Responsáveis")
	for _, e := range analytics.Top(s.TasksByResponsible, 10) {
		sb.row(e.Name, e.Count)
	}
	sb.row()

	sb.title("Top Projetos")
	for _, e := range analytics.Top(s.TasksByProject, 10) {
		sb.row(e.Name, e.Count)
	}
}

// WriteTemplate renders the import template with sample rows.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sb := newSheetBuilder(f)
	sb.rename("Template Projetos")
	sb.header([]any{"Projeto", "Etapa", "Responsável", "Data Início", "Data Fim"})
	sb.row("Projeto A", "Etapa 1", "João Silva", "2024-01-01", "2024-01-15")
	sb.row("Projeto A", "Etapa 2", "Maria Santos", "2024-01-16", "2024-01-31")
	sb.row("Projeto B", "Etapa 1", "Pedro Costa", "2024-02-01", "2024-02-28")
	sb.widths(5, 20)

	sb.add("Template Semanal")
	sb.header([]any{"Dia da Semana", "Etapa", "Projeto"})
	sb.row("Segunda-feira", "Etapa 1", "Projeto A")
	sb.row("Terça-feira", "Etapa 2", "Projeto A")
	sb.row("Quarta-feira", "Etapa 1", "Projeto B")
	sb.widths(3, 20)

	if sb.err != nil {
		return fmt.Errorf("build template: %w", sb.err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

// sheetBuilder appends rows to the current sheet and keeps the first error.
type sheetBuilder struct {
	f     *excelize.File
	sheet string
	next  int
	bold  int
	err   error
}

func newSheetBuilder(f *excelize.File) *sheetBuilder {
	sb := &sheetBuilder{f: f, sheet: f.GetSheetName(0), next: 1}
	sb.bold, sb.err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	return sb
}

func (sb *sheetBuilder) rename(name string) {
	if sb.err != nil {
		return
	}
	sb.err = sb.f.SetSheetName(sb.sheet, name)
	sb.sheet = name
}

func (sb *sheetBuilder) add(name string) {
	if sb.err != nil {
		return
	}
	_, sb.err = sb.f.NewSheet(name)
	sb.sheet = name
	sb.next = 1
}

func (sb *sheetBuilder) row(values ...any) {
	if sb.err != nil {
		return
	}
	if len(values) > 0 {
		cell, err := excelize.CoordinatesToCellName(1, sb.next)
		if err != nil {
			sb.err = err
			return
		}
		sb.err = sb.f.SetSheetRow(sb.sheet, cell, &values)
	}
	sb.next++
}

func (sb *sheetBuilder) header(values []any) {
	sb.styledRow(values)
}

func (sb *sheetBuilder) title(text string) {
	sb.styledRow([]any{text})
}

func (sb *sheetBuilder) styledRow(values []any) {
	r := sb.next
	sb.row(values...)
	if sb.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, r)
	last, _ := excelize.CoordinatesToCellName(len(values), r)
	sb.err = sb.f.SetCellStyle(sb.sheet, first, last, sb.bold)
}

func (sb *sheetBuilder) widths(cols int, width float64) {
	if sb.err != nil || cols < 1 {
		return
	}
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		sb.err = err
		return
	}
	sb.err = sb.f.SetColWidth(sb.sheet, "A", last, width)
}
