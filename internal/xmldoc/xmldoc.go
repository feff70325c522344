// Package xmldoc builds a small element tree from an XML response body.
//
// Character data is kept the way ElementTree keeps it: Text is the data
// before the first child, Tail is the data after the element's end tag and
// before the next sibling. That is enough to re-serialize inline XHTML.
package xmldoc

import (
	"errors"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

// Node is one XML element. Names are local names; the namespace URI is kept
// in Space.
type Node struct {
	Name     string
	Space    string
	Attrs    map[string]string
	Text     string
	Tail     string
	Children []*Node
}

// Document is a parsed XML response.
type Document struct {
	Root *Node
}

// Parse reads one XML document from r. Non-UTF-8 encodings declared in the
// prolog are decoded.
func Parse(r io.Reader) (*Document, error) {
	p := xpp.NewXMLPullParser(r, false, charset.NewReaderLabel)

	var (
		root  *Node
		stack []*Node
	)

	for done := false; !done; {
		event, err := p.NextToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read xml: %w", err)
		}

		switch event {
		case xpp.StartTag:
			n := &Node{Name: p.Name, Space: p.Space}
			if len(p.Attrs) > 0 {
				n.Attrs = make(map[string]string, len(p.Attrs))
				for _, a := range p.Attrs {
					if a.Name.Space == "xmlns" {
						continue
					}
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("read xml: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xpp.Text, xpp.IgnorableWhitespace:
			if len(stack) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			if len(cur.Children) == 0 {
				cur.Text += p.Text
			} else {
				last := cur.Children[len(cur.Children)-1]
				last.Tail += p.Text
			}
		case xpp.EndTag:
			if len(stack) == 0 {
				return nil, fmt.Errorf("read xml: unexpected end tag %q", p.Name)
			}
			stack = stack[:len(stack)-1]
		case xpp.EndDocument:
			done = true
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("read xml: unclosed element %q", stack[len(stack)-1].Name)
	}
	if root == nil {
		return nil, errors.New("read xml: empty document")
	}
	return &Document{Root: root}, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// FindAll returns the direct children named name, in document order.
func (n *Node) FindAll(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first direct child named name, or nil.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FindText returns the trimmed text of the first direct child named name.
func (n *Node) FindText(name string) (string, bool) {
	c := n.Find(name)
	if c == nil {
		return "", false
	}
	return c.Value(), true
}

// Value is the element's leading text, trimmed.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Text)
}

// Path walks nested direct children, e.g. Path("itemMeta", "itemClass").
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.Find(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Attr returns the attribute value by local name, or "".
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// Descendants returns every element below n named name, depth first.
func (n *Node) Descendants(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, c.Descendants(name)...)
	}
	return out
}

// InnerXML re-serializes the content of n without n's own tags. Namespace
// prefixes are dropped.
func (n *Node) InnerXML() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(html.EscapeString(n.Text))
	for _, c := range n.Children {
		c.write(&b)
		b.WriteString(html.EscapeString(c.Tail))
	}
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.Name)

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, ` %s="%s"`, k, html.EscapeString(n.Attrs[k]))
	}

	if n.Text == "" && len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	b.WriteString(n.InnerXML())
	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteByte('>')
}
