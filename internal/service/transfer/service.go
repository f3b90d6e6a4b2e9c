// Package transfer moves the whole dataset in and out of the process:
// workbook import/export, the import template and JSON backup/restore.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"projtrack/internal/apperr"
	"projtrack/internal/model"
	"projtrack/internal/service/analytics"
	"projtrack/internal/service/weekly"
	"projtrack/internal/spreadsheet"
	"projtrack/pkg/metrics"

	"go.uber.org/zap"
)

const Version = "1.0.0"

type ProjectStore interface {
	GetAllProjects() []model.Project
	ReplaceAll(ctx context.Context, projects []model.Project, reason string) error
	Today() model.Date
}

type WeeklyStore interface {
	Plan() model.WeeklyPlan
	Planner() weekly.Planner
	Replace(ctx context.Context, plan model.WeeklyPlan, reason string) error
	Clear(ctx context.Context) error
}

type Service struct {
	projects ProjectStore
	weekly   WeeklyStore
	importer *spreadsheet.Importer
	logger   *zap.Logger

	// ViewNames lists the registered views for the backup system info.
	ViewNames func() []string
	Now       func() time.Time
}

func NewService(projects ProjectStore, weeklyStore WeeklyStore, importer *spreadsheet.Importer, logger *zap.Logger) *Service {
	return &Service{
		projects:  projects,
		weekly:    weeklyStore,
		importer:  importer,
		logger:    logger,
		ViewNames: func() []string { return nil },
		Now:       time.Now,
	}
}

type ImportResult struct {
	Projects    int                    `json:"projects"`
	Tasks       int                    `json:"tasks"`
	Allocations int                    `json:"allocations"`
	Skipped     []spreadsheet.RowIssue `json:"skipped"`
}

// ImportWorkbook parses the whole workbook before touching the store.
// Projects and the weekly plan are replaced only when at least one project
// was parsed.
func (s *Service) ImportWorkbook(ctx context.Context, r io.Reader, filename string) (ImportResult, error) {
	sheets, err := spreadsheet.ReadWorkbook(r, filename)
	if err != nil {
		return ImportResult{}, apperr.Import(err, "Erro ao ler o arquivo %s", filename)
	}

	res := s.importer.Parse(sheets)
	metrics.AddImportRowsSkipped(len(res.Skipped))
	if len(res.Projects) == 0 {
		return ImportResult{Skipped: res.Skipped}, apperr.Import(nil, "Nenhum projeto válido encontrado no arquivo")
	}

	if err := s.projects.ReplaceAll(ctx, res.Projects, "import"); err != nil {
		return ImportResult{}, err
	}
	if res.HasWeekly {
		err = s.weekly.Replace(ctx, res.Weekly, "import")
	} else {
		err = s.weekly.Clear(ctx)
	}
	if err != nil {
		return ImportResult{}, err
	}

	out := ImportResult{
		Projects:    len(res.Projects),
		Tasks:       res.TaskCount(),
		Allocations: res.Weekly.Count(),
		Skipped:     res.Skipped,
	}
	s.logger.Info("Workbook imported",
		zap.String("file", filename),
		zap.Int("projects", out.Projects),
		zap.Int("tasks", out.Tasks),
		zap.Int("allocations", out.Allocations),
		zap.Int("skipped", len(out.Skipped)),
	)
	return out, nil
}

func (s *Service) ExportWorkbook(w io.Writer) error {
	projects := s.projects.GetAllProjects()
	today := s.projects.Today()

	planner := s.weekly.Planner()
	days := make([]spreadsheet.DayTasks, 0, len(planner.Days))
	for _, col := range planner.Days {
		dt := spreadsheet.DayTasks{Day: col.Day}
		for _, t := range col.Tasks {
			dt.Tasks = append(dt.Tasks, t.FlatTask)
		}
		days = append(days, dt)
	}

	return spreadsheet.WriteExport(w, spreadsheet.ExportData{
		Projects: projects,
		Weekly:   days,
		Stats:    analytics.Compute(projects, today),
		Today:    today,
	})
}

func (s *Service) ExportFilename() string {
	return spreadsheet.ExportFilename(s.projects.Today())
}

func (s *Service) Template(w io.Writer) error {
	return spreadsheet.WriteTemplate(w)
}

type BackupAnalytics struct {
	Stats      analytics.Stats  `json:"stats"`
	Report     analytics.Report `json:"report"`
	ExportDate time.Time        `json:"exportDate"`
}

type SystemInfo struct {
	Version    string    `json:"version"`
	Views      []string  `json:"views"`
	LastUpdate time.Time `json:"lastUpdate"`
}

type Backup struct {
	Projects   []model.Project  `json:"projects"`
	WeeklyData model.WeeklyPlan `json:"weeklyData"`
	Analytics  BackupAnalytics  `json:"analytics"`
	SystemInfo SystemInfo       `json:"systemInfo"`
	ExportDate time.Time        `json:"exportDate"`
}

func (s *Service) Backup() Backup {
	now := s.Now().UTC()
	projects := s.projects.GetAllProjects()
	stats := analytics.Compute(projects, s.projects.Today())
	views := s.ViewNames()
	if views == nil {
		views = []string{}
	}
	return Backup{
		Projects:   projects,
		WeeklyData: s.weekly.Plan(),
		Analytics: BackupAnalytics{
			Stats:      stats,
			Report:     analytics.BuildReport(stats, now),
			ExportDate: now,
		},
		SystemInfo: SystemInfo{Version: Version, Views: views, LastUpdate: now},
		ExportDate: now,
	}
}

func (s *Service) WriteBackup(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Backup()); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

func (s *Service) BackupFilename() string {
	return fmt.Sprintf("backup_gerenciador_projetos_%s.json", model.DateOf(s.Now()))
}

// restoreDoc keeps absent sections distinguishable from empty ones.
type restoreDoc struct {
	Projects   *[]model.Project `json:"projects"`
	WeeklyData model.WeeklyPlan `json:"weeklyData"`
}

type RestoreResult struct {
	Projects    int  `json:"projects"`
	Allocations int  `json:"allocations"`
	Weekly      bool `json:"weekly"`
}

// Restore decodes the whole document first. Each present section replaces
// its store wholesale; analytics are recomputed rather than restored.
func (s *Service) Restore(ctx context.Context, r io.Reader) (RestoreResult, error) {
	var doc restoreDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return RestoreResult{}, apperr.Import(err, "Erro ao importar backup. Verifique se o arquivo está correto")
	}
	if doc.Projects == nil && doc.WeeklyData == nil {
		return RestoreResult{}, apperr.Import(nil, "Backup sem projetos ou distribuição semanal")
	}

	var out RestoreResult
	if doc.Projects != nil {
		if err := s.projects.ReplaceAll(ctx, *doc.Projects, "restore"); err != nil {
			return RestoreResult{}, err
		}
		out.Projects = len(*doc.Projects)
	}
	if doc.WeeklyData != nil {
		if err := s.weekly.Replace(ctx, doc.WeeklyData, "restore"); err != nil {
			return RestoreResult{}, err
		}
		out.Weekly = true
		out.Allocations = s.weekly.Plan().Count()
	}

	s.logger.Info("Backup restored",
		zap.Int("projects", out.Projects),
		zap.Int("allocations", out.Allocations),
	)
	return out, nil
}
