package newsml

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/wiresync/internal/xmldoc"
)

const packageMessage = `<?xml version="1.0" encoding="UTF-8"?>
<newsMessage xmlns="http://iptc.org/std/nar/2006-10-01/">
  <header><sent>2024-01-10T11:59:00Z</sent></header>
  <itemSet>
    <packageItem guid="tag:reuters.com,2024:newsml_PKG" version="4" xml:lang="en">
      <itemMeta>
        <itemClass qcode="ninat:composite"/>
        <provider literal="reuters.com"/>
        <versionCreated>2024-01-10T11:30:00.000Z</versionCreated>
        <firstCreated>2024-01-10T09:00:00.000Z</firstCreated>
        <pubStatus qcode="stat:usable"/>
      </itemMeta>
      <contentMeta>
        <headline>Storm batters coast</headline>
      </contentMeta>
      <groupSet root="root">
        <group id="root" role="grpRole:root">
          <groupRef idref="main"/>
        </group>
        <group id="main" role="grpRole:main">
          <itemRef residref="tag:reuters.com,2024:newsml_TXT" version="2">
            <itemClass qcode="icls:text"/>
            <title>Storm batters coast, thousands without power</title>
          </itemRef>
          <itemRef residref="tag:reuters.com,2024:newsml_PIC" version="1">
            <itemClass qcode="icls:picture"/>
          </itemRef>
        </group>
      </groupSet>
    </packageItem>
    <newsItem guid="tag:reuters.com,2024:newsml_TXT" version="2">
      <itemMeta>
        <itemClass qcode="icls:text"/>
        <versionCreated>2024-01-10T11:29:00Z</versionCreated>
      </itemMeta>
      <contentMeta>
        <urgency>3</urgency>
        <headline>Storm batters coast, thousands without power</headline>
        <slugline>WEATHER-STORM/</slugline>
        <by>Jane Doe</by>
        <language tag="en"/>
      </contentMeta>
      <contentSet>
        <inlineXML contenttype="application/xhtml+html">
          <html xmlns="http://www.w3.org/1999/xhtml">
            <head><title>ignored</title></head>
            <body>
              <p>LONDON (Reuters) - A storm <b>battered</b> the coast.</p>
              <p>Power was cut to   thousands.</p>
              <script>alert(1)</script>
            </body>
          </html>
        </inlineXML>
      </contentSet>
    </newsItem>
  </itemSet>
</newsMessage>`

func mustParse(t *testing.T, body string) *xmldoc.Document {
	t.Helper()
	doc, err := xmldoc.ParseString(body)
	if err != nil {
		t.Fatalf("parse xml: %v", err)
	}
	return doc
}

func TestParsePackageMessage(t *testing.T) {
	items, err := New().Parse(mustParse(t, packageMessage))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	pkg := items[0]
	if pkg.GUID != "tag:reuters.com,2024:newsml_PKG" || pkg.Version != 4 {
		t.Errorf("package guid/version = %q/%d", pkg.GUID, pkg.Version)
	}
	if pkg.ItemClass != "composite" {
		t.Errorf("item class = %q", pkg.ItemClass)
	}
	if pkg.Provider != "reuters.com" {
		t.Errorf("provider = %q", pkg.Provider)
	}
	if pkg.PubStatus != "usable" {
		t.Errorf("pub status = %q", pkg.PubStatus)
	}
	if pkg.Language != "en" {
		t.Errorf("language = %q, want en from xml:lang", pkg.Language)
	}
	wantCreated := time.Date(2024, 1, 10, 11, 30, 0, 0, time.UTC)
	if !pkg.VersionCreated.Equal(wantCreated) {
		t.Errorf("version created = %v, want %v", pkg.VersionCreated, wantCreated)
	}
	if len(pkg.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(pkg.Groups))
	}
	if pkg.Groups[0].Refs[0].IDRef != "main" || pkg.Groups[0].Refs[0].HasResidRef() {
		t.Errorf("root group ref = %+v", pkg.Groups[0].Refs[0])
	}
	main := pkg.Groups[1]
	if main.ID != "main" || main.Role != "grpRole:main" || len(main.Refs) != 2 {
		t.Fatalf("main group = %+v", main)
	}
	if main.Refs[0].ResidRef != "tag:reuters.com,2024:newsml_TXT" || main.Refs[0].Version != 2 {
		t.Errorf("text ref = %+v", main.Refs[0])
	}
	if main.Refs[0].Headline != "Storm batters coast, thousands without power" {
		t.Errorf("ref headline = %q", main.Refs[0].Headline)
	}
	if main.Refs[1].ItemClass != "picture" {
		t.Errorf("picture ref class = %q", main.Refs[1].ItemClass)
	}

	refs := pkg.ResidRefs()
	if len(refs) != 2 || refs[0] != "tag:reuters.com,2024:newsml_TXT" || refs[1] != "tag:reuters.com,2024:newsml_PIC" {
		t.Errorf("resid refs = %v", refs)
	}

	text := items[1]
	if text.Urgency != 3 || text.Slugline != "WEATHER-STORM/" || text.Byline != "Jane Doe" {
		t.Errorf("text meta = %+v", text)
	}
	if strings.Contains(text.BodyHTML, "script") || strings.Contains(text.BodyHTML, "ignored") {
		t.Errorf("body html not sanitized: %s", text.BodyHTML)
	}
	if !strings.Contains(text.BodyHTML, "<b>battered</b>") {
		t.Errorf("body html lost inline markup: %s", text.BodyHTML)
	}
	wantText := "LONDON (Reuters) - A storm battered the coast.\n\nPower was cut to thousands."
	if text.BodyText != wantText {
		t.Errorf("body text = %q, want %q", text.BodyText, wantText)
	}
}

func TestParsePictureRenditions(t *testing.T) {
	doc := mustParse(t, `<newsItem guid="pic1" version="1">
  <itemMeta><itemClass qcode="icls:picture"/></itemMeta>
  <contentSet>
    <remoteContent href="http://example.com/pic1/thumb.jpg" rendition="rend:thumbnail" contenttype="image/jpeg" size="5120" width="120" height="80"/>
    <remoteContent href="http://example.com/pic1/base.jpg" rendition="rend:baseImage" contenttype="image/jpeg"/>
  </contentSet>
</newsItem>`)

	items, err := New().Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	rs := items[0].Renditions
	if len(rs) != 2 {
		t.Fatalf("renditions = %d, want 2", len(rs))
	}
	if rs[0].Name != "thumbnail" || rs[0].Size != 5120 || rs[0].Width != 120 || rs[0].Height != 80 {
		t.Errorf("thumbnail = %+v", rs[0])
	}
	if rs[1].Name != "baseImage" || rs[1].Href != "http://example.com/pic1/base.jpg" {
		t.Errorf("base image = %+v", rs[1])
	}
	if items[0].BodyHTML != "" {
		t.Errorf("picture should have no body, got %q", items[0].BodyHTML)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unsupported root", `<results><result/></results>`},
		{"missing guid", `<newsMessage><itemSet><newsItem version="1"/></itemSet></newsMessage>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New().Parse(mustParse(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := New().Parse(nil); err == nil {
		t.Fatal("expected error for nil document")
	}
}

func TestParseEmptyItemSet(t *testing.T) {
	items, err := New().Parse(mustParse(t, `<newsMessage><header/></newsMessage>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
}

func TestQcodeSuffix(t *testing.T) {
	tests := map[string]string{
		"ninat:text":     "text",
		"rend:baseImage": "baseImage",
		"plain":          "plain",
		"":               "",
		"a:b:c":          "b:c",
	}
	for in, want := range tests {
		if got := qcodeSuffix(in); got != want {
			t.Errorf("qcodeSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}
