package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"projtrack/internal/apperr"
	"projtrack/internal/model"
	"projtrack/internal/resolver"
	"projtrack/internal/service/analytics"
	"projtrack/internal/spreadsheet"
	"projtrack/internal/util"

	"github.com/spf13/cobra"
)

// userError renders domain errors with their user-facing message.
func userError(err error) error {
	if err == nil {
		return nil
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return fmt.Errorf("%s", apperr.Message(err))
	}
	return err
}

func importCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import projects and weekly allocations from an .xlsx or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			res, err := a.Transfer.ImportWorkbook(ctx, f, args[0])
			if err != nil {
				return userError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dados importados com sucesso! %d projeto(s), %d etapa(s), %d alocação(ões)\n",
				res.Projects, res.Tasks, res.Allocations)
			for _, s := range res.Skipped {
				fmt.Fprintf(out, "  linha %d (%s) ignorada: %s\n", s.Row, s.Sheet, s.Reason)
			}
			return nil
		},
	}
}

func exportCmd(flags *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export projects, weekly plan and analytics to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if output == "" {
				output = a.Transfer.ExportFilename()
			}
			var buf bytes.Buffer
			if err := a.Transfer.ExportWorkbook(&buf); err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dados exportados com sucesso! %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default gerenciador_projetos_<date>.xlsx)")
	return cmd
}

func templateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the import template workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := spreadsheet.WriteTemplate(&buf); err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template de importação gerado! %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", spreadsheet.TemplateFilename, "Output file")
	return cmd
}

func backupCmd(flags *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON backup of all data",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if output == "" {
				output = a.Transfer.BackupFilename()
			}
			var buf bytes.Buffer
			if err := a.Transfer.WriteBackup(&buf); err != nil {
				return err
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup exportado com sucesso! %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default backup_gerenciador_projetos_<date>.json)")
	return cmd
}

func restoreCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [file]",
		Short: "Replace all data with a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			res, err := a.Transfer.Restore(ctx, f)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup importado com sucesso! %d projeto(s), %d alocação(ões)\n",
				res.Projects, res.Allocations)
			return nil
		},
	}
}

func statusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show projects with their effective status and the analytics summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			today := a.Projects.Today()
			projects := a.Projects.GetAllProjects()

			for _, err := range []error{a.Projects.LoadError(), a.Weekly.LoadError()} {
				if err != nil {
					fmt.Fprintf(out, "AVISO: %s\n", userError(err))
				}
			}

			fmt.Fprintf(out, "Projetos (%s)\n", today)
			fmt.Fprintln(out, strings.Repeat("=", 40))
			if len(projects) == 0 {
				fmt.Fprintln(out, "Nenhum projeto cadastrado")
			}
			for _, p := range projects {
				fmt.Fprintf(out, "\n%s  [%s, %d%%]  %s - %s\n", p.Name,
					resolver.ProjectStatus(p, today).Label(), resolver.CompletionPercent(p, today),
					p.StartDate, p.EndDate)
				for _, t := range p.Tasks {
					fmt.Fprintf(out, "  - %-30s %-20s %s - %s  %s\n", t.Name, t.Responsible,
						t.StartDate, t.EndDate, resolver.TaskStatus(t, today).Label())
				}
			}

			report := analytics.BuildReport(analytics.Compute(projects, today), time.Now())
			fmt.Fprintf(out, "\n%s\n", report.Title)
			fmt.Fprintln(out, strings.Repeat("=", 40))
			fmt.Fprintf(out, "Status geral: %s\n", report.Summary.StatusLabel)
			fmt.Fprintf(out, "Taxa de conclusão: %s\n", report.Summary.CompletionRate)
			fmt.Fprintf(out, "Taxa de atraso: %s\n", report.Summary.OverdueRate)
			for _, r := range report.Recommendations {
				fmt.Fprintf(out, "* %s: %s\n", r.Title, r.Description)
			}
			return nil
		},
	}
}

func weeklyCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Show or change the weekly allocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprint(cmd.OutOrStdout(), a.Weekly.Report())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "assign [day] [task-id]",
		Short: "Allocate a task to a weekday",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := model.ParseWeekday(args[0])
			if err != nil {
				return err
			}
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Weekly.Assign(cmd.Context(), day, args[1]); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Etapa alocada para %s!\n", day.Label())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove [day] [task-id]",
		Short: "Remove a task from a weekday",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := model.ParseWeekday(args[0])
			if err != nil {
				return err
			}
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Weekly.Remove(cmd.Context(), day, args[1]); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Etapa removida do dia!")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tasks",
		Short: "List every task with its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			plan := a.Weekly.Plan()
			for _, t := range a.Projects.GetAllTasks() {
				day := "-"
				if d, ok := plan.Find(t.ID); ok {
					day = d.Label()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-25s %-25s %s\n", t.ID, t.ProjectName, t.Name, day)
			}
			return nil
		},
	})
	return cmd
}

func sampleCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Replace all projects with the sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Projects.LoadSample(cmd.Context()); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Dados de exemplo criados com sucesso!")
			return nil
		},
	}
}

func clearCmd(flags *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all projects and weekly allocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			ctx := cmd.Context()
			a, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Projects.Clear(ctx); err != nil {
				return userError(err)
			}
			if err := a.Weekly.Clear(ctx); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Todos os dados foram limpos!")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func sweepCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one status sweep and list overdue tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Orchestrator.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			today := res.Date
			overdue := []model.FlatTask{}
			for _, t := range a.Projects.GetAllTasks() {
				if resolver.TaskStatus(t.Task, today) == model.StatusOverdue {
					overdue = append(overdue, t)
				}
			}
			sort.Slice(overdue, func(i, j int) bool { return overdue[i].EndDate.Before(overdue[j].EndDate) })

			fmt.Fprintf(out, "%s: %d etapa(s) atrasada(s)\n", today, len(overdue))
			for _, t := range overdue {
				fmt.Fprintf(out, "  - %s / %s (%s) venceu em %s\n", t.ProjectName, t.Name, t.Responsible, t.EndDate)
			}
			return nil
		},
	}
}

func tokenCmd(flags *rootFlags) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret is not configured")
			}
			if ttl <= 0 {
				ttl = cfg.JWTTTL()
			}
			token, err := util.GenerateJWT(args[0], cfg.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default jwt.ttl_hours)")
	return cmd
}
