package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"projtrack/internal/app"
	"projtrack/internal/config"
	"projtrack/internal/repository"
	"projtrack/internal/service/project"
	"projtrack/internal/util"
	"projtrack/pkg/kv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, secret string) (*Router, *app.App) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.JWT.Secret = secret

	a, err := app.NewWithStore(context.Background(), cfg, kv.NewMemoryStore(), app.Options{Views: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	t.Cleanup(a.Close)
	return NewRouter(a), a
}

type response struct {
	Code int
	Body map[string]any
	Raw  *httptest.ResponseRecorder
}

func do(t *testing.T, r *Router, method, path string, body any, headers ...string) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	res := response{Code: w.Code, Raw: w}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &res.Body)
	}
	return res
}

func notification(t *testing.T, res response) (string, string) {
	t.Helper()
	n, ok := res.Body["notification"].(map[string]any)
	if !ok {
		t.Fatalf("response without notification: %v", res.Body)
	}
	return n["type"].(string), n["message"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, "")
	for _, path := range []string{"/healthz", "/health", "/readyz", "/metrics"} {
		if res := do(t, r, http.MethodGet, path, nil); res.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, res.Code)
		}
	}
}

func TestProjectLifecycle(t *testing.T) {
	r, _ := newTestRouter(t, "")

	bad := do(t, r, http.MethodPost, "/api/projects", map[string]any{"name": ""})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("invalid create = %d", bad.Code)
	}
	if typ, msg := notification(t, bad); typ != "error" || msg != "Nome do projeto é obrigatório" {
		t.Errorf("notification = %s %q", typ, msg)
	}

	created := do(t, r, http.MethodPost, "/api/projects", map[string]any{
		"name":      "Site",
		"startDate": "2024-01-01",
		"endDate":   "2024-01-31",
		"tasks": []map[string]any{
			{"name": "Design", "responsible": "Ana", "startDate": "2024-01-01", "endDate": "2024-01-15"},
		},
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create = %d %v", created.Code, created.Body)
	}
	if typ, _ := notification(t, created); typ != "success" {
		t.Errorf("create notification type = %s", typ)
	}
	p := created.Body["project"].(map[string]any)
	id := p["id"].(string)
	taskID := p["tasks"].([]any)[0].(map[string]any)["id"].(string)

	list := do(t, r, http.MethodGet, "/api/projects?responsible=ana", nil)
	if list.Code != http.StatusOK || list.Body["total"].(float64) != 1 {
		t.Errorf("list = %d %v", list.Code, list.Body)
	}

	status := do(t, r, http.MethodPut, "/api/projects/"+id+"/tasks/"+taskID+"/status", map[string]any{"status": "completed"})
	if status.Code != http.StatusOK {
		t.Errorf("task status = %d %v", status.Code, status.Body)
	}

	progress := do(t, r, http.MethodPut, "/api/projects/"+id+"/tasks/"+taskID+"/progress", map[string]any{"progress": 150})
	if progress.Code != http.StatusBadRequest {
		t.Errorf("progress 150 = %d", progress.Code)
	}

	if res := do(t, r, http.MethodGet, "/api/projects/nope", nil); res.Code != http.StatusNotFound {
		t.Errorf("unknown project = %d", res.Code)
	}
	if res := do(t, r, http.MethodDelete, "/api/projects/"+id, nil); res.Code != http.StatusOK {
		t.Errorf("delete = %d", res.Code)
	}
	if res := do(t, r, http.MethodGet, "/api/projects/"+id, nil); res.Code != http.StatusNotFound {
		t.Errorf("deleted project still served: %d", res.Code)
	}
}

func TestWeeklyConflictIsWarning(t *testing.T) {
	r, a := newTestRouter(t, "")
	if res := do(t, r, http.MethodPost, "/api/sample", nil); res.Code != http.StatusOK {
		t.Fatalf("sample = %d", res.Code)
	}
	taskID := a.Projects.GetAllTasks()[0].ID

	first := do(t, r, http.MethodPost, "/api/weekly/segunda-feira/tasks", map[string]any{"taskId": taskID})
	if first.Code != http.StatusOK {
		t.Fatalf("assign = %d %v", first.Code, first.Body)
	}
	second := do(t, r, http.MethodPost, "/api/weekly/tuesday/tasks", map[string]any{"taskId": taskID})
	if second.Code != http.StatusConflict {
		t.Fatalf("second assign = %d", second.Code)
	}
	if typ, _ := notification(t, second); typ != "warning" {
		t.Errorf("conflict notification = %s", typ)
	}

	if res := do(t, r, http.MethodPost, "/api/weekly/feriado/tasks", map[string]any{"taskId": taskID}); res.Code != http.StatusBadRequest {
		t.Errorf("bad day = %d", res.Code)
	}

	snap := do(t, r, http.MethodGet, "/api/views/planner", nil)
	if snap.Code != http.StatusOK {
		t.Fatalf("planner view = %d", snap.Code)
	}
	stats := snap.Body["data"].(map[string]any)["stats"].(map[string]any)
	if stats["totalAllocated"].(float64) != 1 {
		t.Errorf("planner view stats = %v", stats)
	}

	report := do(t, r, http.MethodGet, "/api/weekly/report", nil)
	if !strings.Contains(report.Raw.Body.String(), "Segunda-feira: 1 etapa(s)") {
		t.Errorf("report = %s", report.Raw.Body.String())
	}
}

func TestImportExportBackupRestore(t *testing.T) {
	r, a := newTestRouter(t, "")

	tpl := do(t, r, http.MethodGet, "/api/template", nil)
	if tpl.Code != http.StatusOK || !strings.Contains(tpl.Raw.Header().Get("Content-Disposition"), "template_importacao.xlsx") {
		t.Fatalf("template = %d %v", tpl.Code, tpl.Raw.Header())
	}

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("file", "template_importacao.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(tpl.Raw.Body.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d %s", w.Code, w.Body.String())
	}
	if got := len(a.Projects.GetAllProjects()); got != 2 {
		t.Errorf("projects after import = %d", got)
	}

	bad := do(t, r, http.MethodPost, "/api/import?filename=x.xlsx", map[string]any{"not": "xlsx"})
	if bad.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad import = %d", bad.Code)
	}

	export := do(t, r, http.MethodGet, "/api/export", nil)
	if export.Code != http.StatusOK || export.Raw.Body.Len() == 0 {
		t.Errorf("export = %d", export.Code)
	}

	backup := do(t, r, http.MethodGet, "/api/backup", nil)
	if backup.Code != http.StatusOK {
		t.Fatalf("backup = %d", backup.Code)
	}
	saved := backup.Raw.Body.Bytes()

	if res := do(t, r, http.MethodDelete, "/api/data", nil); res.Code != http.StatusOK {
		t.Fatalf("clear = %d", res.Code)
	}
	if len(a.Projects.GetAllProjects()) != 0 {
		t.Fatal("clear left projects behind")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/restore", bytes.NewReader(saved))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("restore = %d %s", w.Code, w.Body.String())
	}
	if got := len(a.Projects.GetAllProjects()); got != 2 {
		t.Errorf("projects after restore = %d", got)
	}
	if got := a.Weekly.Plan().Count(); got != 3 {
		t.Errorf("allocations after restore = %d", got)
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	r, _ := newTestRouter(t, "s3cret")

	if res := do(t, r, http.MethodGet, "/healthz", nil); res.Code != http.StatusOK {
		t.Errorf("healthz should stay public: %d", res.Code)
	}
	if res := do(t, r, http.MethodGet, "/api/projects", nil); res.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", res.Code)
	}
	if res := do(t, r, http.MethodGet, "/api/projects", nil, "Authorization", "Bearer junk"); res.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", res.Code)
	}

	token, err := util.GenerateJWT("ana", "s3cret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if res := do(t, r, http.MethodGet, "/api/projects", nil, "Authorization", "Bearer "+token); res.Code != http.StatusOK {
		t.Errorf("valid token = %d", res.Code)
	}
}

func TestTraceHeaderEchoed(t *testing.T) {
	r, _ := newTestRouter(t, "")
	res := do(t, r, http.MethodGet, "/healthz", nil, "X-Trace-ID", "abc123")
	if got := res.Raw.Header().Get("X-Trace-ID"); got != "abc123" {
		t.Errorf("trace header = %q", got)
	}
}

func TestCorruptStoredProjectsSurfaceAsWarning(t *testing.T) {
	store := kv.NewMemoryStore()
	_ = store.Set(context.Background(), repository.KeyProjects, []byte("[{\"id\":"))
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	a, err := app.NewWithStore(context.Background(), cfg, store, app.Options{Views: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	t.Cleanup(a.Close)
	r := NewRouter(a)

	list := do(t, r, http.MethodGet, "/api/projects", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list = %d", list.Code)
	}
	if typ, msg := notification(t, list); typ != "warning" || msg != project.CorruptMessage {
		t.Errorf("list notification = %s %q", typ, msg)
	}

	created := do(t, r, http.MethodPost, "/api/projects", map[string]any{
		"name": "Site",
		"tasks": []map[string]any{
			{"name": "Design", "responsible": "Ana", "startDate": "2024-01-01", "endDate": "2024-01-15"},
		},
	})
	if created.Code != http.StatusConflict {
		t.Fatalf("create over corrupt data = %d %v", created.Code, created.Body)
	}

	if res := do(t, r, http.MethodPost, "/api/sample", nil); res.Code != http.StatusOK {
		t.Fatalf("sample = %d %v", res.Code, res.Body)
	}
	if after := do(t, r, http.MethodGet, "/api/projects", nil); after.Body["notification"] != nil {
		t.Errorf("warning should be gone after replacement: %v", after.Body["notification"])
	}
}
