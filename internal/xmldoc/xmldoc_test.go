package xmldoc

import (
	"strings"
	"testing"
)

func TestParseChannels(t *testing.T) {
	doc, err := ParseString(`<?xml version="1.0" encoding="UTF-8"?>
<availableChannels>
  <channelInformation>
    <alias>news</alias>
    <description>World news</description>
  </channelInformation>
  <channelInformation>
    <alias>pix</alias>
  </channelInformation>
</availableChannels>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Root.Name != "availableChannels" {
		t.Fatalf("root = %q", doc.Root.Name)
	}

	infos := doc.Root.FindAll("channelInformation")
	if len(infos) != 2 {
		t.Fatalf("channelInformation count = %d, want 2", len(infos))
	}
	alias, ok := infos[0].FindText("alias")
	if !ok || alias != "news" {
		t.Errorf("alias = %q, %v", alias, ok)
	}
	if _, ok := infos[1].FindText("description"); ok {
		t.Error("expected missing description on second channel")
	}
}

func TestParseNamespacesAndAttrs(t *testing.T) {
	doc, err := ParseString(`<newsMessage xmlns="http://iptc.org/std/nar/2006-10-01/" xmlns:rtr="http://www.reuters.com/ns/2003/08/content">
<itemSet><newsItem guid="tag:reuters.com,2024:newsml_X" version="3" rtr:extra="1"/></itemSet>
</newsMessage>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	item := doc.Root.Path("itemSet", "newsItem")
	if item == nil {
		t.Fatal("newsItem not found")
	}
	if item.Attr("guid") != "tag:reuters.com,2024:newsml_X" {
		t.Errorf("guid = %q", item.Attr("guid"))
	}
	if item.Attr("version") != "3" {
		t.Errorf("version = %q", item.Attr("version"))
	}
	if item.Attr("extra") != "1" {
		t.Errorf("prefixed attr = %q", item.Attr("extra"))
	}
	if _, ok := doc.Root.Attrs["rtr"]; ok {
		t.Error("namespace declaration leaked into attrs")
	}
}

func TestParseMixedContentInnerXML(t *testing.T) {
	doc, err := ParseString(`<body><p>Hello <b>brave</b> new &amp; <i>world</i>.</p><br/></body>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := doc.Root.InnerXML()
	want := `<p>Hello <b>brave</b> new &amp; <i>world</i>.</p><br/>`
	if got != want {
		t.Errorf("inner xml =\n%s\nwant\n%s", got, want)
	}
}

func TestParseLatin1(t *testing.T) {
	body := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><r><name>caf\xe9</name></r>"
	doc, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	name, _ := doc.Root.FindText("name")
	if name != "café" {
		t.Errorf("name = %q, want café", name)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"whitespace only", "   \n"},
		{"unclosed", "<a><b></b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseString(tt.body); err == nil {
				t.Fatalf("expected error for %q", tt.body)
			}
		})
	}
}

func TestDescendants(t *testing.T) {
	doc, err := ParseString(`<a><b><c>1</c></b><c>2</c><d><e><c>3</c></e></d></a>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cs := doc.Root.Descendants("c")
	if len(cs) != 3 {
		t.Fatalf("descendants = %d, want 3", len(cs))
	}
	for i, want := range []string{"1", "2", "3"} {
		if cs[i].Value() != want {
			t.Errorf("c[%d] = %q, want %q", i, cs[i].Value(), want)
		}
	}
}

func TestNilNodeHelpers(t *testing.T) {
	var n *Node
	if n.Find("x") != nil || n.FindAll("x") != nil || n.Attr("x") != "" || n.Value() != "" {
		t.Fatal("nil node helpers should return zero values")
	}
	if n.Path("a", "b") != nil {
		t.Fatal("nil path should be nil")
	}
}
