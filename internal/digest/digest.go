package digest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/wiresync/internal/store"
)

// UrgentMax is the highest NewsML urgency value listed as urgent.
const UrgentMax = 3

// DigestInput is the full input for a digest formatter.
type DigestInput struct {
	Provider  string
	Items     []store.StoredItem
	Total     int           // items stored for the provider
	Since     time.Duration // time window
	Watermark time.Time     // zero when never synced
}

// Formatter writes a formatted digest to w.
type Formatter interface {
	Format(w io.Writer, input DigestInput) error
}

// New returns the formatter for a --format value.
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "terminal":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown":
		return NewMarkdown(), nil
	case FeedAtom, FeedRSS:
		return NewFeed(format), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want terminal, json, markdown, atom, or rss)", format)
	}
}

// groupByUrgency splits items into urgent and routine, newest first.
// Withdrawn items are only counted.
func groupByUrgency(items []store.StoredItem) (urgent, routine []store.StoredItem, withdrawn int) {
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		switch {
		case item.PubStatus == "canceled" || item.PubStatus == "withheld":
			withdrawn++
		case item.Urgency >= 1 && item.Urgency <= UrgentMax:
			urgent = append(urgent, item)
		default:
			routine = append(routine, item)
		}
	}
	return
}

// title picks the best display line for an item.
func title(item store.StoredItem) string {
	switch {
	case item.Headline != "":
		return item.Headline
	case item.Slugline != "":
		return item.Slugline
	default:
		return item.GUID
	}
}

// link returns the first rendition href, if any.
func link(item store.StoredItem) string {
	for _, r := range item.Renditions {
		if r.Href != "" {
			return r.Href
		}
	}
	return ""
}

// published returns the best known publication instant.
func published(item store.StoredItem) time.Time {
	if !item.VersionCreated.IsZero() {
		return item.VersionCreated
	}
	if !item.FirstCreated.IsZero() {
		return item.FirstCreated
	}
	return item.InsertedAt
}

// excerpt returns the first paragraph of the body text, cut at max runes.
func excerpt(item store.StoredItem, max int) string {
	text := strings.TrimSpace(item.BodyText)
	if i := strings.Index(text, "\n"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	if hours >= 24 && hours%24 == 0 {
		return fmt.Sprintf("%dd", hours/24)
	}
	return fmt.Sprintf("%dh", hours)
}
