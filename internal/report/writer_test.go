package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func testSummary() *Summary {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &Summary{
		RunID:      "3f2a9c1e-run",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		State:      StateDone,
		Records:    3,
		Tables:     2,
		Warnings:   1,
		ByTable: Counts(map[string]int{
			"Janeiro/2024 (ID: 308)":  2,
			"Dezembro/2023 (ID: 307)": 1,
		}),
		ByBrand: Counts(map[string]int{"Fiat": 2, "Ford": 1}),
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	t.Run("elapsed", func(t *testing.T) {
		t.Parallel()

		s := testSummary()
		if s.Elapsed() != 90*time.Second {
			t.Errorf("expected 90s, got %v", s.Elapsed())
		}
		s.FinishedAt = time.Time{}
		if s.Elapsed() != 0 {
			t.Errorf("expected zero elapsed for unfinished run, got %v", s.Elapsed())
		}
	})

	t.Run("counts are ordered by count then name", func(t *testing.T) {
		t.Parallel()

		got := Counts(map[string]int{"VW": 1, "Fiat": 5, "Audi": 1})
		want := []Count{{"Fiat", 5}, {"Audi", 1}, {"VW", 1}}
		if len(got) != len(want) {
			t.Fatalf("got %v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("top folds the rest into others", func(t *testing.T) {
		t.Parallel()

		got := top([]Count{{"a", 5}, {"b", 3}, {"c", 2}, {"d", 1}}, 2)
		if len(got) != 3 || got[2] != (Count{"others", 3}) {
			t.Errorf("unexpected result %v", got)
		}
		short := []Count{{"a", 1}}
		if got := top(short, 2); len(got) != 1 {
			t.Errorf("expected input unchanged, got %v", got)
		}
	})
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"", FormatText, FormatMarkdown, FormatJSON} {
		t.Run("format "+format, func(t *testing.T) {
			t.Parallel()

			w, err := NewWriter(format, &bytes.Buffer{}, "v1.0.0")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch w.(type) {
			case *SimpleWriter, *MarkdownWriter, *JSONWriter:
			default:
				t.Errorf("unexpected writer type %T", w)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		if _, err := NewWriter("pdf", &bytes.Buffer{}, ""); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(testSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"FIPE CRAWL SUMMARY",
			"3f2a9c1e-run",
			"Status:    Complete",
			"Records:   3",
			"Elapsed:   1m30s",
			"RECORDS PER TABLE",
			"Janeiro/2024 (ID: 308)",
			"RECORDS PER BRAND",
			"Fiat",
			"Warnings:  1",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("stopped run shows reason", func(t *testing.T) {
		t.Parallel()

		s := testSummary()
		s.State = StateStopped
		s.StopReason = "interrupted"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Stopped (interrupted)") {
			t.Errorf("expected stop reason in output:\n%s", buf.String())
		}
	})

	t.Run("brands beyond the limit are grouped", func(t *testing.T) {
		t.Parallel()

		tally := make(map[string]int)
		for i := range 12 {
			tally[string(rune('A'+i))] = i + 1
		}
		s := testSummary()
		s.ByBrand = Counts(tally)

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "others") {
			t.Error("expected grouped brands")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithAllBrands(true)).Write(s); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "others") {
			t.Error("expected every brand listed")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("complete run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, "v1.2.3").Write(testSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# FIPE Crawl Report",
			"## Records per Table",
			"## Records per Brand",
			"| Fiat",
			"```mermaid",
			"fipecrawler v1.2.3",
			"[!TIP]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("failed run", func(t *testing.T) {
		t.Parallel()

		s := testSummary()
		s.State = StateFailed
		s.StopReason = "missing endpoint"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, "").Write(s); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "[!CAUTION]") {
			t.Errorf("expected caution alert:\n%s", buf.String())
		}
	})

	t.Run("empty run", func(t *testing.T) {
		t.Parallel()

		s := &Summary{State: StateDone}
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, "").Write(s); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "No records.") {
			t.Errorf("expected empty sections:\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("expected no chart without brands")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, "v1.0.0").Write(testSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Version != "v1.0.0" || got.ElapsedSeconds != 90 {
			t.Errorf("unexpected metadata %+v", got)
		}
		if got.Summary.Records != 3 || len(got.Summary.ByBrand) != 2 {
			t.Errorf("unexpected summary %+v", got.Summary)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact single-line output")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, "", WithPrettyPrint()).Write(testSummary()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"summary\"") {
			t.Errorf("expected indented output:\n%s", buf.String())
		}
	})
}
