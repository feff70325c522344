// Package source talks to the remote news-wire REST API: it lists channels,
// lists item ids changed in a time window and fetches full items.
package source

import (
	"context"
	"net/url"
	"time"

	"github.com/ppiankov/wiresync/internal/types"
	"github.com/ppiankov/wiresync/internal/xmldoc"
)

const (
	endpointChannels = "channels"
	endpointItems    = "items"
	endpointItem     = "item"

	// DefaultDateLayout renders instants as YYYY.MM.DD.HH.mm.
	DefaultDateLayout = "2006.01.02.15.04"
)

// Fetcher returns the parsed XML document for one API endpoint.
// Implementations report *types.TransportError and *types.ParseError.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) (*xmldoc.Document, error)
}

// Parser turns an item document into zero or more items.
type Parser interface {
	Parse(doc *xmldoc.Document) ([]types.Item, error)
}

// FormatDate renders t in UTC with layout.
func FormatDate(t time.Time, layout string) string {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.UTC().Format(layout)
}
