package models

import "time"

// InboxView is one notification addressed to a person. Only the variants in
// this package implement it, and each dispatches through InboxVisitor, so
// adding a variant means adding a visitor method every consumer must implement.
type InboxView interface {
	Published() time.Time
	Accept(v InboxVisitor) error
	isInboxView()
}

// InboxVisitor handles each inbox variant
type InboxVisitor interface {
	VisitCommentReply(v CommentReplyView) error
	VisitCommentMention(v CommentMentionView) error
	VisitPostMention(v PostMentionView) error
	VisitPrivateMessage(v PrivateMessageView) error
}

// CommentReplyView is a reply to one of the recipient's posts or comments
type CommentReplyView struct {
	Comment Comment `json:"comment"`
	Creator Person  `json:"creator"`
}

func (v CommentReplyView) Published() time.Time { return v.Comment.Published }
func (v CommentReplyView) Accept(vis InboxVisitor) error { return vis.VisitCommentReply(v) }
func (CommentReplyView) isInboxView() {}

// CommentMentionView is a comment that mentions the recipient
type CommentMentionView struct {
	Comment Comment `json:"comment"`
	Creator Person  `json:"creator"`
}

func (v CommentMentionView) Published() time.Time { return v.Comment.Published }
func (v CommentMentionView) Accept(vis InboxVisitor) error { return vis.VisitCommentMention(v) }
func (CommentMentionView) isInboxView() {}

// PostMentionView is a post that mentions the recipient
type PostMentionView struct {
	Post    Post   `json:"post"`
	Creator Person `json:"creator"`
}

func (v PostMentionView) Published() time.Time { return v.Post.Published }
func (v PostMentionView) Accept(vis InboxVisitor) error { return vis.VisitPostMention(v) }
func (PostMentionView) isInboxView() {}

type PrivateMessageView struct {
	PrivateMessage PrivateMessage `json:"privateMessage"`
	Creator        Person         `json:"creator"`
}

func (v PrivateMessageView) Published() time.Time { return v.PrivateMessage.Published }
func (v PrivateMessageView) Accept(vis InboxVisitor) error { return vis.VisitPrivateMessage(v) }
func (PrivateMessageView) isInboxView() {}

var (
	_ InboxView = CommentReplyView{}
	_ InboxView = CommentMentionView{}
	_ InboxView = PostMentionView{}
	_ InboxView = PrivateMessageView{}
)
