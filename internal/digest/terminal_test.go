package digest

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/wiresync/internal/store"
)

func TestFormat_FullDigest(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	if err := f.Format(&buf, sampleInput()); err != nil {
		t.Fatalf("format: %v", err)
	}

	out := buf.String()

	// Header
	if !strings.Contains(out, "wiresync — reuters") {
		t.Error("missing header")
	}
	if !strings.Contains(out, "42 items stored, showing 3 since 1d") {
		t.Errorf("missing counts in header: %q", out)
	}
	if !strings.Contains(out, "synced ") {
		t.Error("missing watermark line")
	}

	// Urgent section
	if !strings.Contains(out, "Urgent (1)") {
		t.Error("missing Urgent section")
	}
	if !strings.Contains(out, "[1] Central bank raises rates (text)") {
		t.Errorf("missing urgent item: %q", out)
	}
	if !strings.Contains(out, "Jane Doe") {
		t.Error("missing byline")
	}
	if !strings.Contains(out, "50 basis points.") || strings.Contains(out, "Markets fell.") {
		t.Error("excerpt should hold only the first paragraph")
	}

	// Routine section
	if !strings.Contains(out, "Routine (1)") {
		t.Error("missing Routine section")
	}
	if !strings.Contains(out, "[5] RATES-PHOTO") {
		t.Error("routine item should fall back to slugline")
	}
	if !strings.Contains(out, "https://pictures.example.com/p1.jpg") {
		t.Error("missing rendition link")
	}

	// Footer
	if !strings.Contains(out, "Withdrawn: 1 items") {
		t.Error("missing withdrawn footer")
	}
	if strings.Contains(out, "Withdrawn story") {
		t.Error("withdrawn item should not be listed")
	}
}

func TestFormat_NewestFirst(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	input := DigestInput{
		Provider: "reuters",
		Items:    []store.StoredItem{makeItem("a", 5, "older"), makeItem("b", 5, "newer")},
		Since:    12 * time.Hour,
	}
	if err := f.Format(&buf, input); err != nil {
		t.Fatalf("format: %v", err)
	}

	out := buf.String()
	if strings.Index(out, "newer") > strings.Index(out, "older") {
		t.Errorf("expected newest first: %q", out)
	}
	if !strings.Contains(out, "since 12h") {
		t.Error("missing 12h window")
	}
}

func TestFormat_Empty(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	input := DigestInput{Provider: "reuters", Since: 24 * time.Hour}
	if err := f.Format(&buf, input); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), "No items found.") {
		t.Error("missing empty message")
	}
	if strings.Contains(buf.String(), "synced") {
		t.Error("never-synced provider should have no watermark line")
	}
}

func TestFormat_Color(t *testing.T) {
	f := NewTerminal(true)
	var buf bytes.Buffer

	if err := f.Format(&buf, sampleInput()); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), "\033[1m") {
		t.Error("expected ANSI bold codes")
	}
	if !strings.Contains(buf.String(), "\033[31m") {
		t.Error("expected ANSI red codes for urgent section")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{12 * time.Hour, "12h"},
		{24 * time.Hour, "1d"},
		{48 * time.Hour, "2d"},
		{36 * time.Hour, "36h"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"terminal", "json", "markdown", "atom", "rss"} {
		if _, err := New(format, false); err != nil {
			t.Errorf("New(%q): %v", format, err)
		}
	}
	if _, err := New("pdf", false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExcerpt_Truncates(t *testing.T) {
	item := makeItem("g", 3, "h")
	item.BodyText = strings.Repeat("é", 200)

	got := excerpt(item, 10)
	if got != strings.Repeat("é", 10)+"..." {
		t.Errorf("excerpt = %q", got)
	}
}
