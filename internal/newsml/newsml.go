// Package newsml parses NewsML-G2 item messages into domain items.
package newsml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ppiankov/wiresync/internal/types"
	"github.com/ppiankov/wiresync/internal/xmldoc"
)

const (
	tagMessage = "newsMessage"
	tagItemSet = "itemSet"
	tagNews    = "newsItem"
	tagPackage = "packageItem"
)

// Parser converts item documents. The zero value is not usable; use New.
type Parser struct {
	policy *bluemonday.Policy
}

// New returns a parser that sanitizes inline bodies with the UGC policy.
func New() *Parser {
	return &Parser{policy: bluemonday.UGCPolicy()}
}

// Parse returns the items of doc in document order. A newsMessage yields
// every newsItem and packageItem of its itemSet; a bare item root yields
// that item.
func (p *Parser) Parse(doc *xmldoc.Document) ([]types.Item, error) {
	if doc == nil || doc.Root == nil {
		return nil, errors.New("newsml: empty document")
	}

	var nodes []*xmldoc.Node
	switch doc.Root.Name {
	case tagMessage:
		if set := doc.Root.Find(tagItemSet); set != nil {
			for _, n := range set.Children {
				if n.Name == tagNews || n.Name == tagPackage {
					nodes = append(nodes, n)
				}
			}
		}
	case tagNews, tagPackage:
		nodes = []*xmldoc.Node{doc.Root}
	default:
		return nil, fmt.Errorf("newsml: unsupported root element %q", doc.Root.Name)
	}

	items := make([]types.Item, 0, len(nodes))
	for _, n := range nodes {
		item, err := p.parseItem(n)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *Parser) parseItem(n *xmldoc.Node) (types.Item, error) {
	guid := strings.TrimSpace(n.Attr("guid"))
	if guid == "" {
		return types.Item{}, fmt.Errorf("newsml: %s without guid", n.Name)
	}

	item := types.Item{
		GUID:    guid,
		Version: atoi(n.Attr("version")),
	}

	if meta := n.Find("itemMeta"); meta != nil {
		item.ItemClass = qcodeValue(meta.Find("itemClass"))
		item.Provider = meta.Find("provider").Attr("literal")
		item.PubStatus = qcodeValue(meta.Find("pubStatus"))
		item.FirstCreated = parseTime(meta.Find("firstCreated").Value())
		item.VersionCreated = parseTime(meta.Find("versionCreated").Value())
	}

	if cm := n.Find("contentMeta"); cm != nil {
		item.Urgency = atoi(cm.Find("urgency").Value())
		item.Headline, _ = cm.FindText("headline")
		item.Slugline, _ = cm.FindText("slugline")
		item.Byline, _ = cm.FindText("by")
		item.Language = cm.Find("language").Attr("tag")
	}
	if item.Language == "" {
		item.Language = n.Attr("lang")
	}

	if cs := n.Find("contentSet"); cs != nil {
		if inline := cs.Find("inlineXML"); inline != nil {
			p.parseBody(&item, inline)
		}
		for _, rc := range cs.FindAll("remoteContent") {
			item.Renditions = append(item.Renditions, parseRendition(rc))
		}
	}

	for _, g := range n.Path("groupSet").FindAll("group") {
		item.Groups = append(item.Groups, parseGroup(g))
	}

	return item, nil
}

func (p *Parser) parseBody(item *types.Item, inline *xmldoc.Node) {
	content := inline
	if bodies := inline.Descendants("body"); len(bodies) > 0 {
		content = bodies[0]
	}
	item.BodyHTML = strings.TrimSpace(p.policy.Sanitize(content.InnerXML()))
	item.BodyText = bodyText(item.BodyHTML)
}

func parseGroup(g *xmldoc.Node) types.Group {
	group := types.Group{
		ID:   g.Attr("id"),
		Role: g.Attr("role"),
	}
	for _, c := range g.Children {
		switch c.Name {
		case "groupRef":
			group.Refs = append(group.Refs, types.Ref{IDRef: c.Attr("idref")})
		case "itemRef":
			ref := types.Ref{
				ResidRef:  strings.TrimSpace(c.Attr("residref")),
				Version:   atoi(c.Attr("version")),
				ItemClass: qcodeValue(c.Find("itemClass")),
			}
			if title, ok := c.FindText("title"); ok {
				ref.Headline = title
			} else {
				ref.Headline, _ = c.FindText("headline")
			}
			group.Refs = append(group.Refs, ref)
		}
	}
	return group
}

func parseRendition(rc *xmldoc.Node) types.Rendition {
	return types.Rendition{
		Name:        qcodeSuffix(rc.Attr("rendition")),
		Href:        rc.Attr("href"),
		ContentType: rc.Attr("contenttype"),
		Size:        int64(atoi(rc.Attr("size"))),
		Width:       atoi(rc.Attr("width")),
		Height:      atoi(rc.Attr("height")),
	}
}

// bodyText flattens sanitized HTML into paragraphs separated by blank lines.
func bodyText(bodyHTML string) string {
	if bodyHTML == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return ""
	}

	var paras []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			paras = append(paras, text)
		}
	})
	if len(paras) == 0 {
		return collapse(doc.Text())
	}
	return strings.Join(paras, "\n\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// qcodeValue returns the part after the scheme alias, "ninat:text" -> "text".
func qcodeValue(n *xmldoc.Node) string {
	return qcodeSuffix(n.Attr("qcode"))
}

func qcodeSuffix(qcode string) string {
	if i := strings.IndexByte(qcode, ':'); i >= 0 {
		return qcode[i+1:]
	}
	return qcode
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
