package digest

import (
	"fmt"
	"io"
	"time"

	"github.com/gorilla/feeds"

	"github.com/ppiankov/wiresync/internal/store"
)

const (
	FeedAtom = "atom"
	FeedRSS  = "rss"
)

// FeedFormatter renders stored items as an Atom or RSS document.
type FeedFormatter struct {
	kind string
}

func NewFeed(kind string) *FeedFormatter {
	return &FeedFormatter{kind: kind}
}

func (f *FeedFormatter) Format(w io.Writer, input DigestInput) error {
	feed := buildFeed(input)

	switch f.kind {
	case FeedRSS:
		return feed.WriteRss(w)
	case FeedAtom:
		return feed.WriteAtom(w)
	default:
		return fmt.Errorf("unknown feed kind %q", f.kind)
	}
}

func buildFeed(input DigestInput) *feeds.Feed {
	updated := input.Watermark
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	items := make([]*feeds.Item, 0, len(input.Items))
	for i := len(input.Items) - 1; i >= 0; i-- {
		items = append(items, toFeedItem(input.Items[i]))
	}

	return &feeds.Feed{
		Id:          "urn:wiresync:" + input.Provider,
		Title:       fmt.Sprintf("wiresync (%s)", input.Provider),
		Link:        &feeds.Link{Href: "urn:wiresync:" + input.Provider},
		Description: fmt.Sprintf("Items synced from %s in the last %s", input.Provider, formatDuration(input.Since)),
		Author:      &feeds.Author{Name: input.Provider},
		Created:     updated,
		Updated:     updated,
		Items:       items,
	}
}

func toFeedItem(item store.StoredItem) *feeds.Item {
	fi := &feeds.Item{
		Id:          item.GUID,
		Title:       title(item),
		Link:        &feeds.Link{Href: link(item)},
		Description: excerpt(item, excerptLen),
		Content:     item.BodyHTML,
		Created:     published(item),
		Updated:     item.UpdatedAt,
	}
	if item.Byline != "" {
		fi.Author = &feeds.Author{Name: item.Byline}
	}
	return fi
}
