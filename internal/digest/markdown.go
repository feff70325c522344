package digest

import (
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/wiresync/internal/store"
)

// MarkdownFormatter formats a digest as Markdown.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the digest as Markdown to w.
func (f *MarkdownFormatter) Format(w io.Writer, input DigestInput) error {
	urgent, routine, withdrawn := groupByUrgency(input.Items)

	fmt.Fprintf(w, "# wiresync digest: %s\n\n", input.Provider)
	fmt.Fprintf(w, "%d items stored, %d shown, since %s\n\n", input.Total, len(input.Items), formatDuration(input.Since))

	if len(input.Items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return nil
	}

	if len(urgent) > 0 {
		fmt.Fprintf(w, "## Urgent (%d)\n\n", len(urgent))
		for _, item := range urgent {
			f.writeUrgentItem(w, item)
		}
	}

	if len(routine) > 0 {
		fmt.Fprintf(w, "## Routine (%d)\n\n", len(routine))
		for _, item := range routine {
			f.writeRoutineItem(w, item)
		}
		fmt.Fprintln(w)
	}

	if withdrawn > 0 {
		fmt.Fprintf(w, "*Withdrawn: %d items*\n", withdrawn)
	}

	return nil
}

func (f *MarkdownFormatter) writeUrgentItem(w io.Writer, item store.StoredItem) {
	fmt.Fprintf(w, "### [%d] %s\n\n", item.Urgency, title(item))

	if item.Byline != "" {
		fmt.Fprintf(w, "_%s_\n\n", item.Byline)
	}
	if text := excerpt(item, excerptLen); text != "" {
		fmt.Fprintf(w, "%s\n\n", text)
	}
	if l := link(item); l != "" {
		fmt.Fprintf(w, "[Link](%s)\n\n", l)
	}
	fmt.Fprintf(w, "`%s` %s\n\n", item.GUID, published(item).UTC().Format(time.RFC3339))
}

func (f *MarkdownFormatter) writeRoutineItem(w io.Writer, item store.StoredItem) {
	fmt.Fprintf(w, "- **[%d]** %s", item.Urgency, title(item))
	if l := link(item); l != "" {
		fmt.Fprintf(w, " ([link](%s))", l)
	}
	fmt.Fprintln(w)
}
