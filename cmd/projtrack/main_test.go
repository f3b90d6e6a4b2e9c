package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"projtrack/internal/util"
)

func setupConfig(t *testing.T) (configDir, workDir string) {
	t.Helper()
	for _, key := range []string{"STORAGE_BACKEND", "STORAGE_PREFIX", "SQLITE_PATH", "JWT_SECRET", "CONFIG_ENV"} {
		t.Setenv(key, "")
	}
	workDir = t.TempDir()
	configDir = filepath.Join(workDir, "config")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	base := "storage:\n  backend: sqlite\n  sqlite_path: " + filepath.Join(workDir, "data.db") +
		"\njwt:\n  secret: cli-secret\n"
	if err := os.WriteFile(filepath.Join(configDir, "base.yaml"), []byte(base), 0o644); err != nil {
		t.Fatalf("write base.yaml: %v", err)
	}
	return configDir, workDir
}

func run(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config-dir", configDir, "--env", "test"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Workflow(t *testing.T) {
	configDir, workDir := setupConfig(t)

	if _, err := run(t, configDir, "sample"); err != nil {
		t.Fatalf("sample: %v", err)
	}
	out, err := run(t, configDir, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Desenvolvimento de Website") || !strings.Contains(out, "Campanha de Marketing") {
		t.Errorf("status output = %s", out)
	}

	backup := filepath.Join(workDir, "backup.json")
	if _, err := run(t, configDir, "backup", "-o", backup); err != nil {
		t.Fatalf("backup: %v", err)
	}

	if _, err := run(t, configDir, "clear"); err == nil {
		t.Error("clear without --yes should fail")
	}
	if _, err := run(t, configDir, "clear", "--yes"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out, _ = run(t, configDir, "status")
	if !strings.Contains(out, "Nenhum projeto cadastrado") {
		t.Errorf("status after clear = %s", out)
	}

	out, err = run(t, configDir, "restore", backup)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !strings.Contains(out, "2 projeto(s)") {
		t.Errorf("restore output = %s", out)
	}

	template := filepath.Join(workDir, "template.xlsx")
	if _, err := run(t, configDir, "template", "-o", template); err != nil {
		t.Fatalf("template: %v", err)
	}
	out, err = run(t, configDir, "import", template)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "2 projeto(s), 3 etapa(s), 3 alocação(ões)") {
		t.Errorf("import output = %s", out)
	}

	export := filepath.Join(workDir, "export.xlsx")
	if _, err := run(t, configDir, "export", "-o", export); err != nil {
		t.Fatalf("export: %v", err)
	}
	if info, err := os.Stat(export); err != nil || info.Size() == 0 {
		t.Errorf("export file missing: %v", err)
	}
}

func TestCLI_ImportRejectsEmptyFile(t *testing.T) {
	configDir, workDir := setupConfig(t)
	csv := filepath.Join(workDir, "vazio.csv")
	if err := os.WriteFile(csv, []byte("Projeto,Etapa,Responsável,Data Início,Data Fim\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := run(t, configDir, "import", csv)
	if err == nil || !strings.Contains(err.Error(), "Nenhum projeto válido") {
		t.Errorf("err = %v", err)
	}
}

func TestCLI_Token(t *testing.T) {
	configDir, _ := setupConfig(t)
	out, err := run(t, configDir, "token", "ana", "--ttl", time.Hour.String())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	sub, err := util.ParseJWT(strings.TrimSpace(out), "cli-secret")
	if err != nil || sub != "ana" {
		t.Errorf("token subject = %q, err = %v", sub, err)
	}
}
