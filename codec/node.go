package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NsXsi is the XML Schema Instance namespace carrying type and nil markers.
const NsXsi = "http://www.w3.org/2001/XMLSchema-instance"

// Node is one element of a parsed response. Names are local names; the
// namespace is kept only for envelope navigation.
type Node struct {
	Name     string
	Space    string
	Type     string
	Nil      bool
	Text     string
	Children []*Node
}

// Child returns the first child with the given local name.
func (n *Node) Child(name string) *Node {
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

// Find returns the first descendant (depth-first, n included) named name.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(name); f != nil {
			return f
		}
	}
	return nil
}

// IsLeaf reports whether n has no element children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// ErrEmptyDocument is returned when the input contains no root element.
var ErrEmptyDocument = errors.New("codec: empty XML document")

// ParseXML parses an XML document into a Node tree.
func ParseXML(data []byte) (*Node, error) {
	return ParseXMLReader(bytes.NewReader(data))
}

// ParseXMLReader parses an XML document from r into a Node tree.
func ParseXMLReader(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true

	var root *Node
	var stack []*Node
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("codec: parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Space: t.Name.Space}
			for _, a := range t.Attr {
				if !isXsiAttr(a.Name) {
					continue
				}
				switch a.Name.Local {
				case "type":
					n.Type = localName(a.Value)
				case "nil":
					n.Nil = a.Value == "true" || a.Value == "1"
				}
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("codec: parse xml: unexpected end element %s", t.Name.Local)
			}
			n := stack[len(stack)-1]
			if n.IsLeaf() {
				n.Text = text.String()
			}
			text.Reset()
			stack = stack[:len(stack)-1]
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

func isXsiAttr(name xml.Name) bool {
	return name.Space == NsXsi || name.Space == "xsi"
}

func localName(s string) string {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}
