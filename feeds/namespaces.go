package feeds

import (
	"encoding/xml"
	"sync"
)

const (
	DublinCoreNamespace = "http://purl.org/dc/elements/1.1/"
	MediaRSSNamespace   = "http://search.yahoo.com/mrss/"
)

// Namespace is an XML namespace declaration on the rss element
type Namespace struct {
	Prefix string
	URI    string
}

var namespaces = sync.OnceValue(func() []Namespace {
	return []Namespace{
		{Prefix: "dc", URI: DublinCoreNamespace},
		{Prefix: "media", URI: MediaRSSNamespace},
	}
})

// Namespaces returns the declarations every channel carries, sorted by prefix.
// The returned slice is a copy.
func Namespaces() []Namespace {
	ns := namespaces()
	out := make([]Namespace, len(ns))
	copy(out, ns)
	return out
}

func namespaceAttrs(ns []Namespace) []xml.Attr {
	attrs := make([]xml.Attr, 0, len(ns))
	for _, n := range ns {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "xmlns:" + n.Prefix}, Value: n.URI})
	}
	return attrs
}
