package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/okian/aol-b30/internal/domain/scene"
)

// Encode writes the tree as SVG markup.
func Encode(w io.Writer, root *scene.Node) error {
	enc := xml.NewEncoder(w)
	if err := encodeNode(enc, root); err != nil {
		return err
	}
	return enc.Flush()
}

func encodeNode(enc *xml.Encoder, n *scene.Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Tag}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("encode <%s>: %w", n.Tag, err)
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return fmt.Errorf("encode <%s> text: %w", n.Tag, err)
		}
	}
	for _, c := range n.Children {
		if err := encodeNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Markup serialises a tree to bytes.
func Markup(root *scene.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
