package feeds

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// ContentType is the media type of a rendered channel
const ContentType = "application/rss+xml"

// pubDate layout, RFC 2822 compatible
const pubDateLayout = time.RFC1123Z

type rssDocument struct {
	XMLName    xml.Name   `xml:"rss"`
	Version    string     `xml:"version,attr"`
	Namespaces []xml.Attr `xml:",any,attr"`
	Channel    rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description *string   `xml:"description,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title        string           `xml:"title,omitempty"`
	Link         string           `xml:"link,omitempty"`
	Description  string           `xml:"description,omitempty"`
	Author       string           `xml:"author,omitempty"`
	Categories   []rssCategory    `xml:"category"`
	Comments     string           `xml:"comments,omitempty"`
	Enclosure    *rssEnclosure    `xml:"enclosure"`
	GUID         *rssGUID         `xml:"guid"`
	PubDate      string           `xml:"pubDate,omitempty"`
	Creator      string           `xml:"dc:creator,omitempty"`
	MediaContent *rssMediaContent `xml:"media:content"`
}

type rssCategory struct {
	Domain string `xml:"domain,attr,omitempty"`
	Name   string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssMediaContent struct {
	URL    string `xml:"url,attr"`
	Medium string `xml:"medium,attr,omitempty"`
}

// Render writes the channel as a complete RSS 2.0 document
func (c *Channel) Render(w io.Writer) error {
	doc := rssDocument{
		Version:    "2.0",
		Namespaces: namespaceAttrs(c.Namespaces),
		Channel: rssChannel{
			Title:       c.Title,
			Link:        c.Link,
			Description: c.Description,
			Items:       make([]rssItem, 0, len(c.Items)),
		},
	}
	for _, item := range c.Items {
		doc.Channel.Items = append(doc.Channel.Items, toRSSItem(item))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode rss: %w", err)
	}
	return enc.Close()
}

// Bytes renders the channel into memory
func (c *Channel) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toRSSItem(item Item) rssItem {
	out := rssItem{
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Author:      item.Author,
		Comments:    item.Comments,
		Creator:     item.Creator,
	}
	if item.GUID != "" {
		out.GUID = &rssGUID{IsPermaLink: true, Value: item.GUID}
	}
	if !item.PubDate.IsZero() {
		out.PubDate = item.PubDate.Format(pubDateLayout)
	}
	for _, c := range item.Categories {
		out.Categories = append(out.Categories, rssCategory{Domain: c.Domain, Name: c.Name})
	}
	if item.Enclosure != nil {
		out.Enclosure = &rssEnclosure{URL: item.Enclosure.URL, Length: item.Enclosure.Length, Type: item.Enclosure.Type}
	}
	if item.Thumbnail != nil {
		out.MediaContent = &rssMediaContent{URL: item.Thumbnail.URL, Medium: item.Thumbnail.Medium}
	}
	return out
}

// Reading side. Extension elements are matched by namespace URI since the
// decoder resolves prefixes.

type parsedDocument struct {
	XMLName    xml.Name      `xml:"rss"`
	Version    string        `xml:"version,attr"`
	Namespaces []xml.Attr    `xml:",any,attr"`
	Channel    parsedChannel `xml:"channel"`
}

type parsedChannel struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	Description *string      `xml:"description"`
	Items       []parsedItem `xml:"item"`
}

type parsedItem struct {
	Title        string           `xml:"title"`
	Link         string           `xml:"link"`
	Description  string           `xml:"description"`
	Author       string           `xml:"author"`
	Categories   []rssCategory    `xml:"category"`
	Comments     string           `xml:"comments"`
	Enclosure    *rssEnclosure    `xml:"enclosure"`
	GUID         *rssGUID         `xml:"guid"`
	PubDate      string           `xml:"pubDate"`
	Creator      string           `xml:"http://purl.org/dc/elements/1.1/ creator"`
	MediaContent *rssMediaContent `xml:"http://search.yahoo.com/mrss/ content"`
}

// ParseChannel reads an RSS 2.0 document produced by Render
func ParseChannel(r io.Reader) (*Channel, error) {
	var doc parsedDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode rss: %w", err)
	}
	if doc.Version != "2.0" {
		return nil, fmt.Errorf("unsupported rss version %q", doc.Version)
	}

	channel := &Channel{
		Title:       doc.Channel.Title,
		Link:        doc.Channel.Link,
		Description: doc.Channel.Description,
		Items:       make([]Item, 0, len(doc.Channel.Items)),
	}
	for _, attr := range doc.Namespaces {
		if attr.Name.Space == "xmlns" {
			channel.Namespaces = append(channel.Namespaces, Namespace{Prefix: attr.Name.Local, URI: attr.Value})
		}
	}

	for _, p := range doc.Channel.Items {
		item := Item{
			Title:       p.Title,
			Link:        p.Link,
			Description: p.Description,
			Author:      p.Author,
			Comments:    p.Comments,
			Creator:     p.Creator,
		}
		if p.GUID != nil {
			item.GUID = p.GUID.Value
		}
		if p.PubDate != "" {
			published, err := time.Parse(pubDateLayout, p.PubDate)
			if err != nil {
				return nil, fmt.Errorf("invalid pubDate %q: %w", p.PubDate, err)
			}
			item.PubDate = published
		}
		for _, c := range p.Categories {
			item.Categories = append(item.Categories, Category{Name: c.Name, Domain: c.Domain})
		}
		if p.Enclosure != nil {
			item.Enclosure = &Enclosure{URL: p.Enclosure.URL, Type: p.Enclosure.Type, Length: p.Enclosure.Length}
		}
		if p.MediaContent != nil {
			item.Thumbnail = &Thumbnail{URL: p.MediaContent.URL, Medium: p.MediaContent.Medium}
		}
		channel.Items = append(channel.Items, item)
	}

	return channel, nil
}
