// Package document reads and writes the XML form of an ER diagram.
//
// The document is the only state carried between resolution passes, so it is
// kept as a generic element tree that round-trips unknown attributes and
// element order.
package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/ajitpratap0/erschema/internal/models"
)

// XML tag and attribute names.
const (
	TagEntity       = "entity"
	TagRelationship = "relationship"
	TagAttribute    = "attribute"
	TagKey          = "key"
	TagUniqueKey    = "uniqueKey"

	AttrID       = "id"
	AttrName     = "name"
	AttrType     = "type"
	AttrEntityID = "entity_id"
	AttrRelation = "relation_id"
	AttrMin      = "min_participation"
	AttrMax      = "max_participation"
	AttrChecked  = "checked"
	AttrMerged   = "merged"
	AttrFolded   = "folded"
)

// Element is a generic XML element.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []*Element `xml:",any"`
	Text     string     `xml:",chardata"`
}

// Tag returns the element's local name.
func (e *Element) Tag() string {
	return e.XMLName.Local
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the value of the named attribute or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr sets or adds the named attribute.
func (e *Element) SetAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name.Local == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// ChildrenByTag returns the direct children with the given tag, in order.
func (e *Element) ChildrenByTag(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Tag() == tag {
			out = append(out, c)
		}
	}
	return out
}

func (e *Element) clone() *Element {
	c := &Element{
		XMLName: e.XMLName,
		Attrs:   append([]xml.Attr(nil), e.Attrs...),
		Text:    e.Text,
	}
	if len(e.Children) > 0 {
		c.Children = make([]*Element, len(e.Children))
		for i, ch := range e.Children {
			c.Children[i] = ch.clone()
		}
	}
	return c
}

// normalize trims surrounding whitespace so that re-encoding is stable.
func (e *Element) normalize() {
	e.Text = strings.TrimSpace(e.Text)
	for _, c := range e.Children {
		c.normalize()
	}
}

// Document is a parsed ER diagram.
type Document struct {
	root *Element
}

// Parse decodes raw XML into a Document.
func Parse(data []byte) (*Document, error) {
	var root Element
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, &models.ResolveError{
			Kind:    models.ErrMalformedDocument,
			Message: fmt.Sprintf("parsing XML: %v", err),
		}
	}
	root.normalize()
	return &Document{root: &root}, nil
}

// Root returns the document's root element.
func (d *Document) Root() *Element {
	return d.root
}

// Nodes returns the top-level children of the root.
func (d *Document) Nodes() []*Element {
	return d.root.Children
}

// Clone returns a deep copy that can be annotated without touching d.
func (d *Document) Clone() *Document {
	return &Document{root: d.root.clone()}
}

// FindNode returns the first top-level node with the given tag and name.
// An empty tag matches entities and relationships alike.
func (d *Document) FindNode(tag, name string) *Element {
	for _, n := range d.root.Children {
		if tag != "" && n.Tag() != tag {
			continue
		}
		if n.AttrOr(AttrName, "") == name {
			return n
		}
	}
	return nil
}

// Bytes encodes the document as indented XML with a header.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
