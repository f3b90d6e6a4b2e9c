package spreadsheet

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"projtrack/internal/model"
	"projtrack/internal/service/analytics"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newTestImporter(mapping ColumnMapping) *Importer {
	im := NewImporter(mapping, zap.NewNop())
	n := 0
	im.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	im.Now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	return im
}

var standardHeader = []string{"Projeto", "Etapa", "Responsável", "Data Início", "Data Fim"}

func TestParse_GroupsRowsByProject(t *testing.T) {
	sheets := []Sheet{{
		Name: "Projetos",
		Rows: [][]string{
			standardHeader,
			{"P", "T1", "Ana", "2024-01-01", "2024-01-10"},
			{"P", "T2", "Bia", "2024-01-11", "2024-01-20"},
		},
	}}

	res := newTestImporter(nil).Parse(sheets)
	if len(res.Projects) != 1 {
		t.Fatalf("projects = %d, want 1", len(res.Projects))
	}
	p := res.Projects[0]
	if p.Name != "P" || len(p.Tasks) != 2 {
		t.Fatalf("project = %+v", p)
	}
	if p.StartDate.String() != "2024-01-01" || p.EndDate.String() != "2024-01-20" {
		t.Errorf("range = %s..%s", p.StartDate, p.EndDate)
	}
	if !p.AutoDates {
		t.Error("imported project should derive its dates from tasks")
	}
	if p.Tasks[1].Responsible != "Bia" {
		t.Errorf("task[1] = %+v", p.Tasks[1])
	}
	if res.HasWeekly {
		t.Error("HasWeekly should be false without a weekly sheet")
	}
}

func TestParse_DefaultsAndSkips(t *testing.T) {
	sheets := []Sheet{{
		Name: "Projetos",
		Rows: [][]string{
			standardHeader,
			{"", "", "Ana", "2024-01-01", "2024-01-02"},
			{"P", "T", "", "2024-01-01", "2024-01-02"},
			{"P", "Bad", "Ana", "amanhã", "2024-01-02"},
			{"P", "Rev", "Ana", "2024-01-10", "2024-01-02"},
			{},
			{"Solo", "", "", "2024-03-01", "2024-03-05"},
		},
	}}

	res := newTestImporter(nil).Parse(sheets)
	if len(res.Projects) != 3 {
		t.Fatalf("projects = %+v", res.Projects)
	}
	if res.Projects[0].Name != "Projeto 1" || res.Projects[0].Tasks[0].Name != "Etapa 1" {
		t.Errorf("defaults not applied: %+v", res.Projects[0])
	}
	if res.Projects[1].Tasks[0].Responsible != DefaultResponsible {
		t.Errorf("responsible = %q", res.Projects[1].Tasks[0].Responsible)
	}
	if len(res.Projects[2].Tasks) != 0 || res.Projects[2].StartDate.String() != "2024-03-01" {
		t.Errorf("project-only row = %+v", res.Projects[2])
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
	if res.Skipped[0].Row != 4 || res.Skipped[1].Row != 5 {
		t.Errorf("skipped rows = %+v", res.Skipped)
	}
}

func TestParse_HeaderlessSheetKeepsFirstRow(t *testing.T) {
	sheets := []Sheet{{
		Name: "Projetos",
		Rows: [][]string{
			{"P", "T1", "Ana", "2024-01-01", "2024-01-10"},
			{"P", "T2", "Bia", "2024-01-11", "2024-01-20"},
			{"Q", "T3", "Caio", "01/02/2024", "ontem"},
		},
	}}

	res := newTestImporter(nil).Parse(sheets)
	if len(res.Projects) != 1 {
		t.Fatalf("projects = %+v", res.Projects)
	}
	if got := len(res.Projects[0].Tasks); got != 2 {
		t.Fatalf("tasks = %d, want 2", got)
	}
	if res.Projects[0].Tasks[0].Name != "T1" {
		t.Errorf("first row dropped: %+v", res.Projects[0].Tasks)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Row != 3 {
		t.Errorf("skipped = %+v", res.Skipped)
	}
}

func TestParse_SingleDataRowWithoutHeader(t *testing.T) {
	sheets := []Sheet{{
		Name: "Projetos",
		Rows: [][]string{{"Solo", "Única", "Ana", "45292", "45300"}},
	}}

	res := newTestImporter(nil).Parse(sheets)
	if len(res.Projects) != 1 || len(res.Projects[0].Tasks) != 1 {
		t.Fatalf("projects = %+v", res.Projects)
	}
	if res.Projects[0].StartDate.String() != "2024-01-01" {
		t.Errorf("start = %s", res.Projects[0].StartDate)
	}
}

func TestParse_HeaderOnlySheetIsEmpty(t *testing.T) {
	res := newTestImporter(nil).Parse([]Sheet{{Name: "Projetos", Rows: [][]string{standardHeader}}})
	if len(res.Projects) != 0 || len(res.Skipped) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func intp(i int) *int { return &i }

func TestColumnMapping_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		mapping ColumnMapping
		headers []string
		want    map[Field]int
	}{
		{
			name:    "keywords in any order",
			headers: []string{"Responsável", "Fim", "Início", "Tarefa", "Project"},
			want:    map[Field]int{FieldProject: 4, FieldTask: 3, FieldResponsible: 0, FieldStart: 2, FieldEnd: 1},
		},
		{
			name:    "positional fallback",
			headers: []string{"a", "b", "c", "d", "e"},
			want:    map[Field]int{FieldProject: 0, FieldTask: 1, FieldResponsible: 2, FieldStart: 3, FieldEnd: 4},
		},
		{
			name:    "explicit header beats keyword",
			mapping: ColumnMapping{FieldProject: {Header: "Cliente"}},
			headers: []string{"Projeto antigo", "Cliente", "Etapa", "Responsável", "Início", "Fim"},
			want:    map[Field]int{FieldProject: 1, FieldTask: 2, FieldResponsible: 3, FieldStart: 4, FieldEnd: 5},
		},
		{
			name:    "explicit index",
			mapping: ColumnMapping{FieldResponsible: {Index: intp(5)}},
			headers: []string{"Projeto", "Etapa", "Dono", "Início", "Fim", "Quem"},
			want:    map[Field]int{FieldProject: 0, FieldTask: 1, FieldResponsible: 5, FieldStart: 3, FieldEnd: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mapping.Resolve(tt.headers)
			for f, want := range tt.want {
				if got[f] != want {
					t.Errorf("%s = %d, want %d", f, got[f], want)
				}
			}
		})
	}
}

func TestParseDateValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{"2024-01-15", "2024-01-15", true},
		{"15/01/2024", "2024-01-15", true},
		{"2024-01-15T10:00:00Z", "2024-01-15", true},
		{"45292", "2024-01-01", true},
		{45292.0, "2024-01-01", true},
		{"25569", "1970-01-01", true},
		{"2024", "", false},
		{2024, "", false},
		{"1e9", "", false},
		{-3.0, "", false},
		{time.Date(2024, 5, 2, 13, 0, 0, 0, time.UTC), "2024-05-02", true},
		{"", "", false},
		{"ontem", "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDateValue(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDateValue(%v) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("ParseDateValue(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestReadCSV_DetectsSeparator(t *testing.T) {
	input := "\ufeffProjeto;Etapa;Responsável;Data Início;Data Fim\nP;T1;Ana;01/01/2024;10/01/2024\n"
	sheets, err := ReadWorkbook(strings.NewReader(input), "dados.CSV")
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if len(sheets) != 1 || sheets[0].Rows[0][0] != "Projeto" {
		t.Fatalf("sheets = %+v", sheets)
	}

	res := newTestImporter(nil).Parse(sheets)
	if res.TaskCount() != 1 || res.Projects[0].Tasks[0].EndDate.String() != "2024-01-10" {
		t.Errorf("result = %+v", res.Projects)
	}
}

func TestReadXLSX_Invalid(t *testing.T) {
	if _, err := ReadWorkbook(strings.NewReader("not a zip"), "x.xlsx"); err == nil {
		t.Fatal("expected error for a non-xlsx payload")
	}
}

func TestParse_WeeklySheet(t *testing.T) {
	sheets := []Sheet{
		{Name: "Projetos", Rows: [][]string{
			standardHeader,
			{"Website", "Design", "Ana", "2024-01-01", "2024-01-10"},
			{"Website", "Deploy", "Bia", "2024-01-11", "2024-01-20"},
		}},
		{Name: "Semana", Rows: [][]string{
			{"Dia da Semana", "Etapa", "Projeto"},
			{"Segunda-feira", "design", "web"},
			{"terca", "Deploy", "Website"},
			{"Quarta", "design", "Website"},
			{"Feriado", "Deploy", "Website"},
			{"Sexta", "Nada", "Website"},
		}},
	}

	res := newTestImporter(nil).Parse(sheets)
	if !res.HasWeekly {
		t.Fatal("HasWeekly = false")
	}
	if got := res.Weekly.Count(); got != 2 {
		t.Fatalf("allocations = %d, want 2: %+v", got, res.Weekly)
	}
	if day, _ := res.Weekly.Find(res.Projects[0].Tasks[0].ID); day != model.Monday {
		t.Errorf("Design on %q, want monday", day)
	}
	if day, _ := res.Weekly.Find(res.Projects[0].Tasks[1].ID); day != model.Tuesday {
		t.Errorf("Deploy on %q, want tuesday", day)
	}
	if len(res.Skipped) != 2 {
		t.Errorf("skipped = %+v", res.Skipped)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	today := model.MustParseDate("2024-02-01")
	projects := []model.Project{
		{ID: "p1", Name: "Website", StartDate: model.MustParseDate("2024-01-01"), EndDate: model.MustParseDate("2024-01-31"),
			Tasks: []model.Task{
				{ID: "t1", Name: "Design", Responsible: "Ana", StartDate: model.MustParseDate("2024-01-01"), EndDate: model.MustParseDate("2024-01-15")},
				{ID: "t2", Name: "Deploy", Responsible: "Bia", StartDate: model.MustParseDate("2024-01-16"), EndDate: model.MustParseDate("2024-01-31")},
			}},
		{ID: "p2", Name: "Marketing", StartDate: model.MustParseDate("2024-03-01"), EndDate: model.MustParseDate("2024-03-31"),
			Tasks: []model.Task{
				{ID: "t3", Name: "Campanha", Responsible: "Caio", StartDate: model.MustParseDate("2024-03-01"), EndDate: model.MustParseDate("2024-03-31")},
			}},
	}
	flat := model.Flatten(projects)
	data := ExportData{
		Projects: projects,
		Weekly: []DayTasks{
			{Day: model.Monday, Tasks: []model.FlatTask{flat[0]}},
			{Day: model.Tuesday},
			{Day: model.Friday, Tasks: []model.FlatTask{flat[2]}},
		},
		Stats: analytics.Compute(projects, today),
		Today: today,
	}

	var buf bytes.Buffer
	if err := WriteExport(&buf, data); err != nil {
		t.Fatalf("WriteExport: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	wantSheets := []string{SheetProjects, SheetWeekly, SheetAnalytics}
	if got := f.GetSheetList(); strings.Join(got, "|") != strings.Join(wantSheets, "|") {
		t.Errorf("sheets = %v, want %v", got, wantSheets)
	}
	status, _ := f.GetCellValue(SheetProjects, "F2")
	if status != model.StatusOverdue.Label() {
		t.Errorf("F2 = %q, want overdue label", status)
	}
	title, _ := f.GetCellValue(SheetAnalytics, "A1")
	if title != "RELATÓRIO ANALÍTICO" {
		t.Errorf("A1 = %q", title)
	}
	f.Close()

	sheets, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	res := newTestImporter(nil).Parse(sheets)
	if len(res.Projects) != 2 || res.TaskCount() != 3 {
		t.Fatalf("round trip = %+v", res.Projects)
	}
	for i, p := range res.Projects {
		if p.Name != projects[i].Name {
			t.Errorf("project %d name = %q", i, p.Name)
		}
		for j, task := range p.Tasks {
			orig := projects[i].Tasks[j]
			if task.Name != orig.Name || task.Responsible != orig.Responsible ||
				!task.StartDate.Equal(orig.StartDate) || !task.EndDate.Equal(orig.EndDate) {
				t.Errorf("task %d/%d = %+v, want %+v", i, j, task, orig)
			}
		}
	}
	if res.Weekly.Count() != 2 {
		t.Errorf("weekly allocations = %d, want 2", res.Weekly.Count())
	}
}

func TestTemplate_Imports(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	sheets, err := ReadXLSX(&buf)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	res := newTestImporter(nil).Parse(sheets)
	if len(res.Projects) != 2 || res.TaskCount() != 3 {
		t.Errorf("template import = %+v", res.Projects)
	}
	if res.Weekly.Count() != 3 {
		t.Errorf("template weekly = %d, want 3", res.Weekly.Count())
	}
}

func TestExportFilename(t *testing.T) {
	if got := ExportFilename(model.MustParseDate("2024-02-01")); got != "gerenciador_projetos_2024-02-01.xlsx" {
		t.Errorf("ExportFilename = %q", got)
	}
}
