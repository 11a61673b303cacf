package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conduit/internal/flow"
	"github.com/shaiso/Conduit/internal/skill"
	"github.com/shaiso/Conduit/internal/steps"
)

func testLocal() Local {
	return Local{
		Builder: flow.Builder{
			Registry: steps.NewBuiltinRegistry(),
			Skills:   skill.NewBuiltinCatalog(),
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute запускает команду с аргументами. Вывод cobra подавляется.
func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func newTestOutput(jsonMode bool) (*Output, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewOutputTo(jsonMode, &buf, io.Discard), &buf
}

func TestRunCmd(t *testing.T) {
	path := writeFile(t, "shout.yaml", "name: shout\nsteps: [strip, uppercase]\n")

	out, buf := newTestOutput(true)
	cmd := NewRunCmd(testLocal, func() *Output { return out })

	if err := execute(t, cmd, path, "--input", "  hi  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var run struct {
		Status string `json:"status"`
		Output any    `json:"output"`
	}
	if err := json.Unmarshal(buf.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if run.Status != "SUCCEEDED" || run.Output != "HI" {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestRunCmd_InputJSON(t *testing.T) {
	path := writeFile(t, "fan.json", `{"name": "fan", "steps": [{"parallel": {"merge": "list", "steps": ["uppercase", "lowercase"]}}]}`)

	out, buf := newTestOutput(true)
	cmd := NewRunCmd(testLocal, func() *Output { return out })

	if err := execute(t, cmd, path, "--input-json", `"Ab"`, "--async"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"AB"`) || !strings.Contains(buf.String(), `"ab"`) {
		t.Errorf("unexpected output %s", buf.String())
	}
}

func TestRunCmd_Failure(t *testing.T) {
	path := writeFile(t, "bad.yaml", "name: bad\nsteps: [parse_json]\n")

	out, _ := newTestOutput(false)
	cmd := NewRunCmd(testLocal, func() *Output { return out })

	if err := execute(t, cmd, path, "--input", "not a number"); err == nil {
		t.Error("expected error for failed run")
	}
}

func TestValidateCmd(t *testing.T) {
	good := writeFile(t, "good.yaml", "name: good\nsteps: [strip]\n")
	bad := writeFile(t, "bad.yaml", "name: bad\nsteps: [rot13]\n")

	out, buf := newTestOutput(false)
	cmd := NewValidateCmd(testLocal, func() *Output { return out })

	if err := execute(t, cmd, good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "true") {
		t.Errorf("expected valid row, got %s", buf.String())
	}

	buf.Reset()
	cmd = NewValidateCmd(testLocal, func() *Output { return out })
	err := execute(t, cmd, good, bad)
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected 1 of 2 invalid, got %v", err)
	}
	if !strings.Contains(buf.String(), "rot13") {
		t.Errorf("expected error in output, got %s", buf.String())
	}
}

func TestTransformersCmd(t *testing.T) {
	out, buf := newTestOutput(false)
	cmd := NewTransformersCmd(testLocal, func() *Output { return out })

	if err := execute(t, cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"NAME", "strip", "uppercase"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("expected %q in output", name)
		}
	}
}

func TestSkillsCmd(t *testing.T) {
	out, buf := newTestOutput(false)
	cmd := NewSkillsCmd(testLocal, func() *Output { return out })

	if err := execute(t, cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "word_count") {
		t.Errorf("expected word_count in output, got %s", buf.String())
	}
}

// --- Server commands ---

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/pipelines", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [
			{"name": "hourly", "mode": "sequential", "step_count": 1, "schedule": {"cron": "@hourly"}},
			{"name": "manual", "mode": "concurrent", "step_count": 2}
		], "total": 2}`))
	})
	mux.HandleFunc("POST /api/v1/pipelines/{name}/runs", func(w http.ResponseWriter, r *http.Request) {
		var req CreateRunRequest
		json.NewDecoder(r.Body).Decode(&req)
		if r.PathValue("name") != "manual" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": {"code": "NOT_FOUND", "message": "pipeline not found"}}`))
			return
		}
		status := "PENDING"
		if req.Wait {
			status = "SUCCEEDED"
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "r1", "pipeline": "manual", "status": status, "input": req.Input},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPipelineSchedulesCmd(t *testing.T) {
	srv := newFakeAPI(t)

	out, buf := newTestOutput(true)
	cmd := NewPipelineCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })

	if err := execute(t, cmd, "schedules"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []struct {
		Name    string `json:"name"`
		NextDue string `json:"next_due"`
	}
	if err := json.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Name != "hourly" || items[0].NextDue == "" {
		t.Errorf("unexpected schedules %+v", items)
	}
}

func TestEnqueueCmd(t *testing.T) {
	srv := newFakeAPI(t)

	out, buf := newTestOutput(true)
	cmd := NewEnqueueCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })

	if err := execute(t, cmd, "manual", "--input", "x", "--wait"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var run RunResponse
	if err := json.Unmarshal(buf.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Status != "SUCCEEDED" || run.Input != "x" {
		t.Errorf("unexpected run %+v", run)
	}

	cmd = NewEnqueueCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	err := execute(t, cmd, "missing")
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}
}
