package feeds

import (
	"fmt"
	"html"
	"strings"
	"time"

	"threadfeed/models"
)

const defaultMimeType = "application/octet-stream"

// Markdown renders user text to HTML
type Markdown interface {
	ToHTML(text string) string
}

// PostItems normalizes posts in the order given. The first permalink failure
// aborts the whole list.
func PostItems(posts []models.PostView, links *Links, md Markdown) ([]Item, error) {
	items := make([]Item, 0, len(posts))
	for _, p := range posts {
		item, err := PostItem(p, links, md)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// PostItem builds the feed item for one post
func PostItem(p models.PostView, links *Links, md Markdown) (Item, error) {
	postURL, err := links.Post(p.Post.Id)
	if err != nil {
		return Item{}, fmt.Errorf("post %d: %w", p.Post.Id, err)
	}
	communityURL, err := links.Community(p.Community.Name)
	if err != nil {
		return Item{}, fmt.Errorf("post %d: %w", p.Post.Id, err)
	}

	var description strings.Builder
	fmt.Fprintf(&description,
		`submitted by <a href="%s">%s</a> to <a href="%s">%s</a><br>%d points | <a href="%s">%d comments</a>`,
		attr(p.Creator.ApId), html.EscapeString(p.Creator.Name),
		attr(communityURL), html.EscapeString(p.Community.Name),
		p.Post.Score,
		attr(postURL), p.Post.Comments,
	)

	var enclosure *Enclosure
	if p.Post.Url != nil && *p.Post.Url != "" {
		url := *p.Post.Url
		mimeType := defaultMimeType
		if p.Post.UrlContentType != nil && *p.Post.UrlContentType != "" {
			mimeType = *p.Post.UrlContentType
		}

		if strings.HasPrefix(mimeType, "image/") {
			fmt.Fprintf(&description, `<br><a href="%s"><img src="%s"/></a>`, attr(url), attr(url))
		} else {
			fmt.Fprintf(&description, `<br><a href="%s">%s</a>`, attr(url), html.EscapeString(url))
		}

		enclosure = &Enclosure{URL: url, Type: mimeType, Length: "0"}
	}

	if p.Post.Body != nil {
		description.WriteString(md.ToHTML(*p.Post.Body))
	}

	var thumbnail *Thumbnail
	if p.Post.ThumbnailUrl != nil && *p.Post.ThumbnailUrl != "" {
		thumbnail = &Thumbnail{URL: *p.Post.ThumbnailUrl, Medium: "image"}
	}

	return Item{
		Title:       fmt.Sprintf("[%s] %s", p.Community.Name, p.Post.Name),
		Link:        postURL,
		Comments:    postURL,
		GUID:        postURL,
		PubDate:     p.Post.Published,
		Description: description.String(),
		Creator:     p.Creator.ApId,
		Enclosure:   enclosure,
		Categories: []Category{{
			Name:   p.Community.Title,
			Domain: p.Community.ApId,
		}},
		Thumbnail: thumbnail,
	}, nil
}

// InboxItems normalizes notifications in the order given
func InboxItems(inbox []models.InboxView, links *Links, md Markdown) ([]Item, error) {
	items := make([]Item, 0, len(inbox))
	for _, view := range inbox {
		b := &inboxItemBuilder{links: links, md: md}
		if err := view.Accept(b); err != nil {
			return nil, err
		}
		items = append(items, b.item)
	}
	return items, nil
}

// inboxItemBuilder turns one inbox variant into an item
type inboxItemBuilder struct {
	links *Links
	md    Markdown
	item  Item
}

func (b *inboxItemBuilder) VisitCommentReply(v models.CommentReplyView) error {
	link, err := b.links.Comment(v.Comment.Id)
	if err != nil {
		return fmt.Errorf("comment reply: %w", err)
	}
	b.item = replyItem(v.Creator.Name, v.Comment.Published.UTC(), link, v.Comment.Content, b.links, b.md)
	return nil
}

func (b *inboxItemBuilder) VisitCommentMention(v models.CommentMentionView) error {
	link, err := b.links.Comment(v.Comment.Id)
	if err != nil {
		return fmt.Errorf("comment mention: %w", err)
	}
	b.item = replyItem(v.Creator.Name, v.Comment.Published.UTC(), link, v.Comment.Content, b.links, b.md)
	return nil
}

func (b *inboxItemBuilder) VisitPostMention(v models.PostMentionView) error {
	link, err := b.links.Post(v.Post.Id)
	if err != nil {
		return fmt.Errorf("post mention: %w", err)
	}
	var body string
	if v.Post.Body != nil {
		body = *v.Post.Body
	}
	b.item = replyItem(v.Creator.Name, v.Post.Published.UTC(), link, body, b.links, b.md)
	return nil
}

// Private messages have no permalink of their own, they link to the inbox
func (b *inboxItemBuilder) VisitPrivateMessage(v models.PrivateMessageView) error {
	b.item = replyItem(v.Creator.Name, v.PrivateMessage.Published.UTC(), b.links.Inbox(), v.PrivateMessage.Content, b.links, b.md)
	return nil
}

var _ models.InboxVisitor = (*inboxItemBuilder)(nil)

// replyItem is shared by every inbox variant. The title is the same for all of
// them, readers tell them apart by link and description.
func replyItem(creatorName string, published time.Time, link, content string, links *Links, md Markdown) Item {
	return Item{
		Title:       "Reply from " + creatorName,
		Author:      fmt.Sprintf(`/u/%s <a href="%s">(link)</a>`, html.EscapeString(creatorName), attr(links.Profile(creatorName))),
		PubDate:     published,
		Comments:    link,
		Link:        link,
		GUID:        link,
		Description: md.ToHTML(content),
	}
}

// attr escapes a value for use inside a double quoted HTML attribute
func attr(s string) string {
	return html.EscapeString(s)
}
