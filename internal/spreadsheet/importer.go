// Package spreadsheet maps workbook rows to projects and weekly
// allocations and renders the export and template workbooks.
package spreadsheet

import (
	"fmt"
	"strings"
	"time"

	"projtrack/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultResponsible = "Não definido"
	defaultProjectName = "Projeto %d"
	defaultTaskName    = "Etapa %d"
)

// RowIssue describes a skipped row. Row is the 1-based sheet row.
type RowIssue struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type Result struct {
	Projects []model.Project  `json:"projects"`
	Weekly   model.WeeklyPlan `json:"weekly"`
	// HasWeekly is false when the workbook carries no weekly sheet.
	HasWeekly bool       `json:"hasWeekly"`
	Skipped   []RowIssue `json:"skipped"`
}

func (r Result) TaskCount() int {
	n := 0
	for _, p := range r.Projects {
		n += len(p.Tasks)
	}
	return n
}

type Importer struct {
	Mapping ColumnMapping
	NewID   func() string
	Now     func() time.Time
	logger  *zap.Logger
}

func NewImporter(mapping ColumnMapping, logger *zap.Logger) *Importer {
	return &Importer{
		Mapping: mapping,
		NewID:   uuid.NewString,
		Now:     time.Now,
		logger:  logger,
	}
}

// Parse builds projects from the projects sheet (or the first sheet) and
// allocations from the weekly sheet. Task sheets are ignored.
func (im *Importer) Parse(sheets []Sheet) Result {
	res := Result{Projects: []model.Project{}, Weekly: model.NewWeeklyPlan(), Skipped: []RowIssue{}}
	if len(sheets) == 0 {
		return res
	}

	var projects, weeklySheet *Sheet
	for i := range sheets {
		switch classifySheet(sheets[i].Name) {
		case sheetProjects:
			if projects == nil {
				projects = &sheets[i]
			}
		case sheetWeekly:
			if weeklySheet == nil {
				weeklySheet = &sheets[i]
			}
		}
	}
	if projects == nil {
		projects = &sheets[0]
	}

	im.parseProjects(*projects, &res)
	if weeklySheet != nil {
		res.HasWeekly = true
		im.parseWeekly(*weeklySheet, &res)
	}

	for _, issue := range res.Skipped {
		im.logger.Warn("Import row skipped",
			zap.String("sheet", issue.Sheet),
			zap.Int("row", issue.Row),
			zap.String("reason", issue.Reason),
		)
	}
	return res
}

// datesAt reports whether row holds parseable start and end dates at cols.
func datesAt(row []string, cols map[Field]int) bool {
	_, okStart := ParseDateValue(cell(row, cols[FieldStart]))
	_, okEnd := ParseDateValue(cell(row, cols[FieldEnd]))
	return okStart && okEnd
}

func (im *Importer) parseProjects(sheet Sheet, res *Result) {
	if len(sheet.Rows) == 0 {
		return
	}
	cols, first := im.Mapping.Resolve(sheet.Rows[0]), 1
	// sem cabeçalho: a primeira linha já traz datas nas posições padrão
	if pos := im.Mapping.Resolve(nil); datesAt(sheet.Rows[0], pos) {
		cols, first = pos, 0
	}
	now := im.Now().UTC()
	byName := make(map[string]int)

	for i, row := range sheet.Rows[first:] {
		if blank(row) {
			continue
		}
		n := i + 1
		sheetRow := first + i + 1

		projectName := cell(row, cols[FieldProject])
		if projectName == "" {
			projectName = fmt.Sprintf(defaultProjectName, n)
		}
		taskName := cell(row, cols[FieldTask])
		responsible := cell(row, cols[FieldResponsible])

		start, okStart := ParseDateValue(cell(row, cols[FieldStart]))
		end, okEnd := ParseDateValue(cell(row, cols[FieldEnd]))
		if !okStart || !okEnd {
			res.Skipped = append(res.Skipped, RowIssue{Sheet: sheet.Name, Row: sheetRow, Reason: "datas inválidas"})
			continue
		}
		if start.After(end) {
			res.Skipped = append(res.Skipped, RowIssue{Sheet: sheet.Name, Row: sheetRow, Reason: "data de início posterior à data de fim"})
			continue
		}

		idx, ok := byName[projectName]
		if !ok {
			res.Projects = append(res.Projects, model.Project{
				ID:        im.NewID(),
				Name:      projectName,
				StartDate: start,
				EndDate:   end,
				Tasks:     []model.Task{},
				AutoDates: true,
				CreatedAt: now,
				UpdatedAt: now,
			})
			idx = len(res.Projects) - 1
			byName[projectName] = idx
		}
		p := &res.Projects[idx]

		// project-only row: keep the project without a task
		if taskName == "" && responsible == "" {
			extend(p, start, end)
			continue
		}
		if taskName == "" {
			taskName = fmt.Sprintf(defaultTaskName, n)
		}
		if responsible == "" {
			responsible = DefaultResponsible
		}
		p.Tasks = append(p.Tasks, model.Task{
			ID:          im.NewID(),
			Name:        taskName,
			Responsible: responsible,
			StartDate:   start,
			EndDate:     end,
		})
		extend(p, start, end)
	}
}

// parseWeekly reads day, task name and project name columns. Tasks are
// matched by substring against the parsed projects; a task is allocated once.
func (im *Importer) parseWeekly(sheet Sheet, res *Result) {
	if len(sheet.Rows) < 2 {
		return
	}
	tasks := model.Flatten(res.Projects)
	used := make(map[string]bool)
	now := im.Now().UTC()

	for i, row := range sheet.Rows[1:] {
		sheetRow := i + 2
		dayText, taskName, projectName := cell(row, 0), cell(row, 1), cell(row, 2)
		if dayText == "" || taskName == "" || projectName == "" {
			continue
		}
		day, err := model.ParseWeekday(dayText)
		if err != nil {
			res.Skipped = append(res.Skipped, RowIssue{Sheet: sheet.Name, Row: sheetRow, Reason: "dia da semana desconhecido"})
			continue
		}

		t, ok := matchTask(tasks, taskName, projectName)
		if !ok {
			res.Skipped = append(res.Skipped, RowIssue{Sheet: sheet.Name, Row: sheetRow, Reason: "etapa não encontrada"})
			continue
		}
		if used[t.ID] {
			continue
		}
		used[t.ID] = true
		res.Weekly[day] = append(res.Weekly[day], model.Allocation{TaskID: t.ID, AssignedAt: now})
	}
}

func matchTask(tasks []model.FlatTask, taskName, projectName string) (model.FlatTask, bool) {
	tn, pn := strings.ToLower(taskName), strings.ToLower(projectName)
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Name), tn) && strings.Contains(strings.ToLower(t.ProjectName), pn) {
			return t, true
		}
	}
	return model.FlatTask{}, false
}

func extend(p *model.Project, start, end model.Date) {
	if start.Before(p.StartDate) {
		p.StartDate = start
	}
	if end.After(p.EndDate) {
		p.EndDate = end
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
