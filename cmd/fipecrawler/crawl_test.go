package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/nao1215/fipecrawler/internal/config"
	"github.com/nao1215/fipecrawler/internal/crawler"
	"github.com/nao1215/fipecrawler/internal/database"
	"github.com/nao1215/fipecrawler/internal/model"
	"github.com/nao1215/fipecrawler/internal/report"
	"github.com/nao1215/fipecrawler/internal/sink"
)

// newFIPEServer serves one table with one brand, one model and a gasoline
// and a diesel model-year.
func newFIPEServer(t *testing.T, detailCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body)) //nolint:errcheck // test server
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ConsultarTabelaDeReferencia", reply(`[{"Codigo":308,"Mes":"janeiro/2024 "}]`))
	mux.HandleFunc("/ConsultarMarcas", reply(`[{"Label":"Fiat","Value":"21"}]`))
	mux.HandleFunc("/ConsultarModelos", reply(`{"Modelos":[{"Label":"Uno Mille 1.0","Value":4828}],"Anos":[]}`))
	mux.HandleFunc("/ConsultarAnoModelo", reply(`[{"Label":"2024 Gasolina","Value":"2024-1"},{"Label":"2024 Diesel","Value":"2024-3"}]`))
	mux.HandleFunc("/ConsultarValorComTodosParametros", func(w http.ResponseWriter, r *http.Request) {
		detailCalls.Add(1)
		reply(`{"Valor":"R$ 45.678,00","Marca":"Fiat","Modelo":"Uno Mille 1.0","AnoModelo":2024,` +
			`"Combustivel":"Gasolina","CodigoFipe":"001004-9","MesReferencia":"janeiro de 2024 ",` +
			`"TipoVeiculo":1,"SiglaCombustivel":"G","CodigoTabelaReferencia":308,"CodigoTipoVeiculo":1,` +
			`"CodigoTipoCombustivel":1}`)(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeTestConfig writes a configuration pointing at baseURL.
func writeTestConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()

	content := fmt.Sprintf(`api_endpoints:
  tabelas: %[1]s/ConsultarTabelaDeReferencia
  marcas: %[1]s/ConsultarMarcas
  modelos: %[1]s/ConsultarModelos
  ano_modelos: %[1]s/ConsultarAnoModelo
  veiculo: %[1]s/ConsultarValorComTodosParametros
default_headers:
  Referer: %[1]s/
user_agents:
  - fipecrawler-test
vehicle_types:
  1: carro
fuel_types:
  1: Gasolina
  3: Diesel
month_mapping:
  janeiro: "01"
rate_limit_capacity: 100
rate_limit_refill: 100
retry_backoff: 0s
`, baseURL)

	path := filepath.Join(dir, "fipecrawler.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func readJSONReport(t *testing.T, path string) report.JSONReport {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatal(err)
	}
	var rep report.JSONReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("invalid report: %v\n%s", err, data)
	}
	return rep
}

// TestCrawlCmd_EndToEnd runs crawl, history and export against a fake FIPE
// server. It is not parallel: crawl replaces the default logger.
func TestCrawlCmd_EndToEnd(t *testing.T) {
	var detailCalls atomic.Int32
	srv := newFIPEServer(t, &detailCalls)

	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, srv.URL)
	dataDir := filepath.Join(dir, "data")
	csvPath := filepath.Join(dir, "out", "fipe.csv")
	xlsxPath := filepath.Join(dir, "out", "fipe.xlsx")
	reportPath := filepath.Join(dir, "report.json")

	crawlArgs := []string{
		"crawl",
		"--config", cfgPath,
		"--data-dir", dataDir,
		"--csv", csvPath,
		"--xlsx", xlsxPath,
		"--report", reportPath,
		"--report-format", "json",
		"--no-color",
	}

	out, err := executeCmd(t, crawlArgs...)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if !strings.Contains(out, "Coleta concluída! 1 veículos coletados.") {
		t.Errorf("expected completion message, got:\n%s", out)
	}
	if detailCalls.Load() != 1 {
		t.Errorf("expected 1 detail request, got %d", detailCalls.Load())
	}

	rep := readJSONReport(t, reportPath)
	if rep.Summary == nil {
		t.Fatal("report has no summary")
	}
	if rep.Summary.State != report.StateDone || rep.Summary.Records != 1 || rep.Summary.Tables != 1 {
		t.Errorf("unexpected summary %+v", rep.Summary)
	}
	runID := rep.Summary.RunID
	if runID == "" {
		t.Fatal("expected a run id")
	}

	lines := readLines(t, csvPath)
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "tabela_id,") || !strings.Contains(lines[1], "45678.00") {
		t.Errorf("unexpected csv:\n%s", strings.Join(lines, "\n"))
	}
	if _, err := os.Stat(xlsxPath); err != nil {
		t.Errorf("expected workbook: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, config.DefaultCheckpointFile)); err != nil {
		t.Errorf("expected checkpoint file: %v", err)
	}

	t.Run("history lists the run", func(t *testing.T) {
		out, err := executeCmd(t, "history", "--data-dir", dataDir)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, runID) || !strings.Contains(out, database.RunStatusDone) {
			t.Errorf("unexpected history:\n%s", out)
		}

		out, err = executeCmd(t, "history", "--data-dir", dataDir, runID)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "Records:  1 (1 stored)") {
			t.Errorf("unexpected run details:\n%s", out)
		}
	})

	t.Run("export writes stored records", func(t *testing.T) {
		exportPath := filepath.Join(dir, "export.csv")
		out, err := executeCmd(t, "export", "--data-dir", dataDir, "--csv", exportPath, "--run", runID)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "Exported 1 records") {
			t.Errorf("unexpected output %q", out)
		}
		if lines := readLines(t, exportPath); len(lines) != 2 {
			t.Errorf("expected 2 lines, got %d", len(lines))
		}

		out, err = executeCmd(t, "export", "--data-dir", dataDir, "--csv", exportPath, "--table", "999")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "No records match") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("second run resumes from the checkpoint", func(t *testing.T) {
		if _, err := executeCmd(t, crawlArgs...); err != nil {
			t.Fatal(err)
		}
		if detailCalls.Load() != 1 {
			t.Errorf("expected no new detail request, got %d total", detailCalls.Load())
		}
		if rep := readJSONReport(t, reportPath); rep.Summary.Records != 0 {
			t.Errorf("expected no records, got %d", rep.Summary.Records)
		}
		if lines := readLines(t, csvPath); len(lines) != 2 {
			t.Errorf("csv should be unchanged, got %d lines", len(lines))
		}
	})

	t.Run("fresh run collects again", func(t *testing.T) {
		args := append(append([]string{}, crawlArgs...), "--fresh", "--save-db=false")
		if _, err := executeCmd(t, args...); err != nil {
			t.Fatal(err)
		}
		if detailCalls.Load() != 2 {
			t.Errorf("expected a new detail request, got %d total", detailCalls.Load())
		}
		rep := readJSONReport(t, reportPath)
		if rep.Summary.Records != 1 || rep.Summary.RunID != "" {
			t.Errorf("unexpected summary %+v", rep.Summary)
		}
	})
}

func TestCrawlCmd_ConfigErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "absent.yaml")
		_, err := executeCmd(t, "crawl", "--config", path)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got %v", err)
		}
		if exitCode(err) != exitConfig {
			t.Errorf("expected exit code %d", exitConfig)
		}
	})

	t.Run("invalid report format", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir, "http://127.0.0.1:1")
		_, err := executeCmd(t, "crawl", "--config", cfgPath, "--data-dir", dir, "--report-format", "xml")
		if !errors.Is(err, config.ErrInvalidReportFormat) {
			t.Fatalf("expected ErrInvalidReportFormat, got %v", err)
		}
	})
}

func TestExportCmd_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no output", func(t *testing.T) {
		t.Parallel()
		_, err := executeCmd(t, "export", "--data-dir", t.TempDir())
		if !errors.Is(err, errNothingToExport) {
			t.Errorf("expected errNothingToExport, got %v", err)
		}
	})

	t.Run("no database", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		_, err := executeCmd(t, "export", "--data-dir", dir, "--csv", filepath.Join(dir, "x.csv"))
		if err == nil {
			t.Error("expected error without a database")
		}
	})
}

func TestHistoryCmd_NoDatabase(t *testing.T) {
	t.Parallel()

	_, err := executeCmd(t, "history", "--data-dir", t.TempDir())
	if err == nil {
		t.Error("expected error without a database")
	}
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state crawler.State
		want  string
	}{
		{state: crawler.StateDone, want: database.RunStatusDone},
		{state: crawler.StateStopped, want: database.RunStatusStopped},
		{state: crawler.StateFailed, want: database.RunStatusFailed},
		{state: crawler.StateFetchingDetail, want: database.RunStatusRunning},
	}
	for _, tt := range tests {
		if got := runStatus(tt.state); got != tt.want {
			t.Errorf("runStatus(%v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

// logSink records OnLog messages.
type logSink struct {
	sink.Discard
	messages chan string
}

func (s *logSink) OnLog(message string, _ model.LogLevel) {
	s.messages <- message
}

func TestSignalWatcher(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	walking := func() crawler.State { return crawler.StateFetchingDetail }

	t.Run("first signal cancels", func(t *testing.T) {
		t.Parallel()

		signals := make(chan os.Signal, 1)
		done := make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events := &logSink{messages: make(chan string, 1)}

		w := signalWatcher{signals: signals, stop: cancel, state: walking, events: events, logger: logger}
		returned := make(chan struct{})
		go func() {
			w.watch(done)
			close(returned)
		}()

		signals <- syscall.SIGINT
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("context was not cancelled")
		}
		if msg := <-events.messages; !strings.Contains(msg, "Interrupção") {
			t.Errorf("unexpected message %q", msg)
		}

		close(done)
		select {
		case <-returned:
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not return")
		}
	})

	t.Run("no stop message once the run has ended", func(t *testing.T) {
		t.Parallel()

		signals := make(chan os.Signal, 1)
		done := make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events := &logSink{messages: make(chan string, 1)}
		finished := func() crawler.State { return crawler.StateDone }

		w := signalWatcher{signals: signals, stop: cancel, state: finished, events: events, logger: logger}
		returned := make(chan struct{})
		go func() {
			w.watch(done)
			close(returned)
		}()

		signals <- syscall.SIGINT
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("context was not cancelled")
		}
		close(done)
		<-returned

		select {
		case msg := <-events.messages:
			t.Errorf("unexpected message %q", msg)
		default:
		}
	})

	t.Run("returns when the run ends", func(t *testing.T) {
		t.Parallel()

		done := make(chan struct{})
		close(done)
		called := false
		w := signalWatcher{
			signals: make(chan os.Signal),
			stop:    func() { called = true },
			state:   walking,
			events:  sink.Discard{},
			logger:  logger,
		}
		w.watch(done)
		if called {
			t.Error("cancel should not be called")
		}
	})
}
