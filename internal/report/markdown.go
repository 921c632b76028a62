package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs the summary as Markdown.
type MarkdownWriter struct {
	baseWriter

	version string
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, version string) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
}

// Write outputs the summary.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeAlert(md, s)
	w.writeTables(md, s)
	w.writeBrands(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("FIPE Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Started", formatTime(s.StartedAt)},
		{"Finished", formatTime(s.FinishedAt)},
		{"Elapsed", s.Elapsed().Round(time.Second).String()},
		{"Status", stateText(s)},
		{"Tables", strconv.Itoa(s.Tables)},
		{"Records", strconv.Itoa(s.Records)},
		{"Warnings", strconv.Itoa(s.Warnings)},
		{"Errors", strconv.Itoa(s.Errors)},
	}
	if s.RunID != "" {
		rows = append([][]string{{"Run", "`" + s.RunID + "`"}}, rows...)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	switch {
	case s.State == StateFailed:
		md.Cautionf("The run failed after %d record(s): %s", s.Records, s.StopReason)
	case s.State == StateStopped:
		md.Warningf("The run was stopped after %d table(s). Run the crawl again to resume.", s.Tables)
	case s.Records == 0:
		md.Note("No new records were collected.")
	case s.Errors > 0:
		md.Importantf("%d error(s) were logged during the run.", s.Errors)
	default:
		md.Tip("All tables were crawled.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeTables(md *markdown.Markdown, s *Summary) {
	md.H2("Records per Table")
	md.PlainText("")

	if len(s.ByTable) == 0 {
		md.PlainText("No records.")
		md.PlainText("")
		return
	}
	md.Table(countTable("Table", s.ByTable))
	md.PlainText("")
}

func (w *MarkdownWriter) writeBrands(md *markdown.Markdown, s *Summary) {
	md.H2("Records per Brand")
	md.PlainText("")

	if len(s.ByBrand) == 0 {
		md.PlainText("No records.")
		md.PlainText("")
		return
	}

	brands := top(s.ByBrand, maxBrands)
	md.Table(countTable("Brand", brands))
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Brand Distribution"),
		piechart.WithShowData(true),
	)
	for _, c := range brands {
		chart.LabelAndIntValue(c.Name, uint64(c.Count)) //nolint:gosec // counts are never negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	if w.version != "" {
		md.PlainTextf("*Report generated by fipecrawler %s*", w.version)
		return
	}
	md.PlainText("*Report generated by fipecrawler*")
}

func countTable(label string, counts []Count) markdown.TableSet {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Name, strconv.Itoa(c.Count)}
	}
	return markdown.TableSet{
		Header: []string{label, "Records"},
		Rows:   rows,
	}
}
