package feeds

import (
	"time"

	"threadfeed/models"
)

// Enclosure points at the media resource a post links to. Length is always
// "0": the size of the remote resource is never fetched.
type Enclosure struct {
	URL    string
	Type   string
	Length string
}

type Category struct {
	Name   string
	Domain string
}

// Thumbnail is rendered as a Media RSS media:content element
type Thumbnail struct {
	URL    string
	Medium string
}

// Item is the normalized form of every kind of content record. GUID always
// equals Link, the content's permalink.
type Item struct {
	Title       string
	Link        string
	Comments    string
	PubDate     time.Time
	GUID        string
	Description string
	Author      string
	// Creator is the dc:creator attribution, the creator's canonical id
	Creator    string
	Enclosure  *Enclosure
	Categories []Category
	Thumbnail  *Thumbnail
}

// Channel is one feed document. Items keep the order they were given in.
type Channel struct {
	Title       string
	Link        string
	Description *string
	Items       []Item
	Namespaces  []Namespace
}

func newChannel(title, link string, description *string, items []Item) *Channel {
	return &Channel{
		Title:       title,
		Link:        link,
		Description: description,
		Items:       items,
		Namespaces:  Namespaces(),
	}
}

func channelTitle(site models.Site, label string) string {
	return site.Name + " - " + label
}

// renderDescription renders an optional markdown description, keeping absence
// as nil so the channel omits the element
func renderDescription(md Markdown, description *string) *string {
	if description == nil || *description == "" {
		return nil
	}
	html := md.ToHTML(*description)
	if html == "" {
		return nil
	}
	return &html
}
