package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/wiresync/internal/types"
	"github.com/ppiankov/wiresync/internal/xmldoc"
)

// Client implements the channel, id and item queries of the API. Every call
// carries the auth token.
type Client struct {
	fetcher    Fetcher
	parser     Parser
	token      string
	dateLayout string
}

// NewClient creates an API client. dateLayout defaults to DefaultDateLayout.
func NewClient(fetcher Fetcher, parser Parser, token, dateLayout string) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("source: fetcher is required")
	}
	if parser == nil {
		return nil, errors.New("source: parser is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("source: token is required")
	}
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	return &Client{fetcher: fetcher, parser: parser, token: token, dateLayout: dateLayout}, nil
}

// FormatDate renders t in the wire date format.
func (c *Client) FormatDate(t time.Time) string {
	return FormatDate(t, c.dateLayout)
}

// Channels returns the aliases of the subscribed channels in response order.
func (c *Client) Channels(ctx context.Context) ([]string, error) {
	doc, err := c.get(ctx, endpointChannels, nil)
	if err != nil {
		return nil, err
	}

	var channels []string
	for i, info := range doc.Root.FindAll("channelInformation") {
		alias, ok := info.FindText("alias")
		if !ok || alias == "" {
			return nil, &types.ParseError{
				Endpoint: endpointChannels,
				Err:      fmt.Errorf("channelInformation %d has no alias", i),
			}
		}
		channels = append(channels, alias)
	}
	return channels, nil
}

// IDs returns the guids changed on channel within [start, end], in response
// order. Only the first page of results is read.
func (c *Client) IDs(ctx context.Context, channel string, start, end time.Time) ([]string, error) {
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("fieldsRef", "id")
	params.Set("dateRange", c.FormatDate(start)+"-"+c.FormatDate(end))

	doc, err := c.get(ctx, endpointItems, params)
	if err != nil {
		return nil, err
	}

	var ids []string
	for i, result := range doc.Root.FindAll("result") {
		guid, ok := result.FindText("guid")
		if !ok || guid == "" {
			return nil, &types.ParseError{
				Endpoint: endpointItems,
				Err:      fmt.Errorf("result %d has no guid", i),
			}
		}
		ids = append(ids, guid)
	}
	return ids, nil
}

// Items fetches guid and returns every item in the response, e.g. a package
// followed by its components.
func (c *Client) Items(ctx context.Context, guid string) ([]types.Item, error) {
	params := url.Values{}
	params.Set("id", guid)

	doc, err := c.get(ctx, endpointItem, params)
	if err != nil {
		return nil, err
	}

	items, err := c.parser.Parse(doc)
	if err != nil {
		return nil, &types.ParseError{Endpoint: endpointItem, Err: fmt.Errorf("item %s: %w", guid, err)}
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*xmldoc.Document, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	q.Set("token", c.token)

	doc, err := c.fetcher.Fetch(ctx, endpoint, q)
	if err != nil {
		if types.IsTransport(err) || types.IsParse(err) {
			return nil, err
		}
		return nil, &types.TransportError{Endpoint: endpoint, Err: err}
	}
	if doc == nil || doc.Root == nil {
		return nil, &types.ParseError{Endpoint: endpoint, Err: errors.New("empty document")}
	}
	return doc, nil
}
