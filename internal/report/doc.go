// Package report renders the summary of a crawl run.
//
// Writers:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: Markdown with tables and a brand distribution chart
//   - JSONWriter: structured JSON for other tools
//
// The Summary itself is filled by the sink package while a run progresses
// and completed by the CLI once the engine returns.
package report
