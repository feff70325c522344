package digest

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/ppiankov/wiresync/internal/store"
)

const excerptLen = 160

// TerminalFormatter formats a digest for terminal output.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

// Format writes the digest to w grouped by urgency.
func (f *TerminalFormatter) Format(w io.Writer, input DigestInput) error {
	urgent, routine, withdrawn := groupByUrgency(input.Items)

	header := fmt.Sprintf("wiresync — %s, %d items stored, showing %d since %s",
		input.Provider, input.Total, len(input.Items), formatDuration(input.Since))
	fmt.Fprintln(w, f.bold(header))
	if !input.Watermark.IsZero() {
		fmt.Fprintln(w, f.dim("synced "+humanize.Time(input.Watermark)))
	}
	fmt.Fprintln(w)

	if len(input.Items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return nil
	}

	if len(urgent) > 0 {
		fmt.Fprintln(w, f.red(f.bold(fmt.Sprintf("--- Urgent (%d) ---", len(urgent)))))
		fmt.Fprintln(w)
		for _, item := range urgent {
			f.writeUrgentItem(w, item)
		}
	}

	if len(routine) > 0 {
		fmt.Fprintln(w, f.bold(fmt.Sprintf("--- Routine (%d) ---", len(routine))))
		fmt.Fprintln(w)
		for _, item := range routine {
			f.writeRoutineItem(w, item)
		}
		fmt.Fprintln(w)
	}

	if withdrawn > 0 {
		fmt.Fprintln(w, f.dim(fmt.Sprintf("Withdrawn: %d items", withdrawn)))
	}

	return nil
}

func (f *TerminalFormatter) writeUrgentItem(w io.Writer, item store.StoredItem) {
	fmt.Fprintf(w, "  %s %s %s\n",
		f.bold(fmt.Sprintf("[%d]", item.Urgency)),
		title(item),
		f.dim("("+item.ItemClass+")"),
	)
	if item.Byline != "" {
		fmt.Fprintf(w, "      %s\n", f.dim(item.Byline))
	}
	if text := excerpt(item, excerptLen); text != "" {
		fmt.Fprintf(w, "      %s\n", text)
	}
	if l := link(item); l != "" {
		fmt.Fprintf(w, "      %s\n", f.dim(l))
	}
	fmt.Fprintf(w, "      %s\n", f.dim(item.GUID+" · "+humanize.Time(published(item))))
	fmt.Fprintln(w)
}

func (f *TerminalFormatter) writeRoutineItem(w io.Writer, item store.StoredItem) {
	fmt.Fprintf(w, "  [%d] %s %s\n", item.Urgency, title(item), f.dim(humanize.Time(published(item))))
	if l := link(item); l != "" {
		fmt.Fprintf(w, "      %s\n", f.dim(l))
	}
}

// ANSI helpers, no-op when color=false.

func (f *TerminalFormatter) bold(s string) string {
	if !f.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func (f *TerminalFormatter) red(s string) string {
	if !f.color {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

func (f *TerminalFormatter) dim(s string) string {
	if !f.color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}
