package diagram

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Namespace is the XML namespace of Dia documents, bound to the "dia" prefix
const Namespace = "http://www.lysator.liu.se/~alla/dia/"

//go:embed empty.xml
var emptyDiagram []byte

// Element is a minimal XML tree node. Names keep their prefix ("dia:object")
// so documents round-trip with the prefixes Dia expects.
type Element struct {
	Name     string
	Attrs    []xml.Attr // Name.Local holds the qualified name
	Text     string
	Children []*Element
}

// NewElement creates an element with attributes given as name/value pairs
func NewElement(name string, attrs ...string) *Element {
	e := &Element{Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	return e
}

// Add appends children and returns the element
func (e *Element) Add(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Sub creates, appends and returns a new child element
func (e *Element) Sub(name string, attrs ...string) *Element {
	child := NewElement(name, attrs...)
	e.Children = append(e.Children, child)
	return child
}

// Attr returns the value of an attribute, or "" if absent
func (e *Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Find returns the first direct child with the given name
func (e *Element) Find(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FindAll returns the direct children with the given name
func (e *Element) FindAll(name string) []*Element {
	var found []*Element
	for _, c := range e.Children {
		if c.Name == name {
			found = append(found, c)
		}
	}
	return found
}

// ParseElement reads an XML document into an element tree, keeping prefixes
// as written. Whitespace-only text, comments and processing instructions are dropped.
func ParseElement(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	var (
		root  *Element
		stack []*Element
	)
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			e := &Element{Name: qualified(t.Name)}
			for _, a := range t.Attr {
				e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: qualified(a.Name)}, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("parsing XML: multiple root elements")
				}
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, e)
			}
			stack = append(stack, e)
		case xml.EndElement:
			if len(stack) == 0 || stack[len(stack)-1].Name != qualified(t.Name) {
				return nil, fmt.Errorf("parsing XML: unexpected </%s>", qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 && len(bytes.TrimSpace(t)) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("parsing XML: no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("parsing XML: unclosed <%s>", stack[len(stack)-1].Name)
	}
	return root, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Encode writes the element and its children
func (e *Element) Encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}, Attr: e.Attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if e.Text != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := c.Encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// WriteDocument writes root as a complete UTF-8 XML document
func WriteDocument(w io.Writer, root *Element) error {
	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := root.Encode(enc); err != nil {
		return fmt.Errorf("encoding XML: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// String renders the element without a declaration, for debugging and tests
func (e *Element) String() string {
	var sb strings.Builder
	enc := xml.NewEncoder(&sb)
	if err := e.Encode(enc); err != nil {
		return fmt.Sprintf("<!-- %v -->", err)
	}
	enc.Flush()
	return sb.String()
}

// emptyDocument returns a fresh empty Dia diagram and its drawing layer
func emptyDocument() (*Element, *Element, error) {
	root, err := ParseElement(bytes.NewReader(emptyDiagram))
	if err != nil {
		return nil, nil, fmt.Errorf("empty diagram template: %w", err)
	}
	if ns := root.Attr("xmlns:dia"); ns != Namespace {
		return nil, nil, fmt.Errorf("empty diagram template: namespace %q", ns)
	}
	layer := root.Find("dia:layer")
	if layer == nil {
		return nil, nil, errors.New("empty diagram template: no dia:layer")
	}
	return root, layer, nil
}
