package graph

import (
	"encoding/xml"
	"fmt"
	"io"
)

// WriteXML serialises t in the DSpace structure-builder import format:
//
//	<import_structure>
//	  <community>
//	    <name>...</name>
//	    <community>...</community>
//	    <collection>...</collection>
//	  </community>
//	</import_structure>
//
// Within a community, child communities are written before child
// collections; each group keeps insertion order.
func WriteXML(w io.Writer, t *Tree) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "import_structure"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	if err := encodeNode(enc, t, t.Root()); err != nil {
		return err
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flush xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeNode(enc *xml.Encoder, t *Tree, id NodeID) error {
	n := t.Node(id)
	start := xml.StartElement{Name: xml.Name{Local: n.Kind.String()}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := enc.EncodeElement(n.Name, xml.StartElement{Name: xml.Name{Local: "name"}}); err != nil {
		return err
	}
	for _, a := range n.Attrs {
		if err := enc.EncodeElement(a.Value, xml.StartElement{Name: xml.Name{Local: a.Key}}); err != nil {
			return err
		}
	}
	for _, kind := range []Kind{KindCommunity, KindCollection} {
		for _, c := range n.Children {
			if t.Node(c).Kind != kind {
				continue
			}
			if err := encodeNode(enc, t, c); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(start.End())
}
