package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/ka2n/cmsrelay/api"
	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure/v2"
)

// reportMarkdown summarizes a run as Markdown
func reportMarkdown(out *api.Outcome) string {
	r := out.Report

	var b strings.Builder
	b.WriteString("# Relay report\n\n")
	fmt.Fprintf(&b, "Run `%s` finished in %s.\n\n", r.RunID, r.Duration().Round(time.Millisecond))
	if out.Plan.Partial {
		fmt.Fprintf(&b, "> The listing stopped after %d page(s); only the files found so far were processed.\n\n", out.Plan.Pages)
	}

	b.WriteString("| Outcome | Files |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Relayed | %d |\n", r.Succeeded)
	fmt.Fprintf(&b, "| Skipped | %d |\n", r.Skipped)
	fmt.Fprintf(&b, "| Failed | %d |\n", r.Failed)
	fmt.Fprintf(&b, "| **Total** | **%d** |\n", r.Total)

	if len(r.FailuresByReason) == 0 {
		return b.String()
	}

	b.WriteString("\n## Not relayed\n")
	reasons := make([]string, 0, len(r.FailuresByReason))
	for reason := range r.FailuresByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		urls := r.FailuresByReason[reason]
		fmt.Fprintf(&b, "\n### %s (%d)\n\n", markdownEscape(reason), len(urls))
		for _, u := range urls {
			if u == "" {
				u = "(no URL)"
			}
			fmt.Fprintf(&b, "- %s\n", markdownEscape(u))
		}
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

func markdownEscape(s string) string {
	return markdownEscaper.Replace(s)
}

// printReport writes the report to w, rendered for the terminal when w is one
func printReport(w io.Writer, out *api.Outcome) error {
	md := reportMarkdown(out)

	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		_, err := io.WriteString(w, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return failure.Wrap(err)
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return failure.Wrap(err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}
