package digest

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ppiankov/wiresync/internal/store"
)

type jsonDigest struct {
	Meta      jsonMeta   `json:"meta"`
	Urgent    []jsonItem `json:"urgent"`
	Routine   []jsonItem `json:"routine"`
	Withdrawn int        `json:"withdrawn"`
}

type jsonMeta struct {
	Provider  string `json:"provider"`
	Total     int    `json:"total"`
	Since     string `json:"since"`
	Watermark string `json:"watermark,omitempty"`
}

type jsonItem struct {
	GUID      string `json:"guid"`
	Version   int    `json:"version"`
	Class     string `json:"class,omitempty"`
	Urgency   int    `json:"urgency"`
	Headline  string `json:"headline"`
	Byline    string `json:"byline,omitempty"`
	Language  string `json:"language,omitempty"`
	Published string `json:"published"`
	Link      string `json:"link,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
	Assets    int    `json:"assets,omitempty"`
}

// JSONFormatter formats a digest as JSON.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the digest as JSON to w.
func (f *JSONFormatter) Format(w io.Writer, input DigestInput) error {
	urgent, routine, withdrawn := groupByUrgency(input.Items)

	out := jsonDigest{
		Meta: jsonMeta{
			Provider: input.Provider,
			Total:    input.Total,
			Since:    formatDuration(input.Since),
		},
		Urgent:    toJSONItems(urgent),
		Routine:   toJSONItems(routine),
		Withdrawn: withdrawn,
	}
	if !input.Watermark.IsZero() {
		out.Meta.Watermark = input.Watermark.UTC().Format(time.RFC3339)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONItems(items []store.StoredItem) []jsonItem {
	result := make([]jsonItem, 0, len(items))
	for _, item := range items {
		result = append(result, jsonItem{
			GUID:      item.GUID,
			Version:   item.Version,
			Class:     item.ItemClass,
			Urgency:   item.Urgency,
			Headline:  title(item),
			Byline:    item.Byline,
			Language:  item.Language,
			Published: published(item).UTC().Format("2006-01-02T15:04:05Z"),
			Link:      link(item),
			Excerpt:   excerpt(item, excerptLen),
			Assets:    len(item.ResidRefs()),
		})
	}
	return result
}
