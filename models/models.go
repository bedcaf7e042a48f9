package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by readers when a looked up record does not exist
var ErrNotFound = errors.New("record not found")

// CommunityVisibility controls who may read a community's content
type CommunityVisibility string

const (
	VisibilityPublic           CommunityVisibility = "Public"
	VisibilityUnlisted         CommunityVisibility = "Unlisted"
	VisibilityLocalOnlyPublic  CommunityVisibility = "LocalOnlyPublic"
	VisibilityLocalOnlyPrivate CommunityVisibility = "LocalOnlyPrivate"
	VisibilityPrivate          CommunityVisibility = "Private"
)

// CanViewWithoutLogin reports whether anonymous readers may see the community
func (v CommunityVisibility) CanViewWithoutLogin() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityLocalOnlyPublic:
		return true
	default:
		return false
	}
}

type Site struct {
	Id          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ApId        string  `json:"apId"`
}

type LocalSite struct {
	Id              int64 `json:"id"`
	SiteId          int64 `json:"siteId"`
	PrivateInstance bool  `json:"privateInstance"`
}

// SiteView is the local site together with its instance settings
type SiteView struct {
	Site      Site      `json:"site"`
	LocalSite LocalSite `json:"localSite"`
}

type Person struct {
	Id          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	ApId        string `json:"apId"`
	Local       bool   `json:"local"`
	BotAccount  bool   `json:"botAccount"`
	Banned      bool   `json:"banned"`
	Deleted     bool   `json:"deleted"`
}

type LocalUser struct {
	Id                int64  `json:"id"`
	PersonId          int64  `json:"personId"`
	PasswordEncrypted string `json:"-"`
	ShowNSFW          bool   `json:"showNsfw"`
	ShowBotAccounts   bool   `json:"showBotAccounts"`
}

// LocalUserView is an authenticated local account with its public person
type LocalUserView struct {
	LocalUser LocalUser `json:"localUser"`
	Person    Person    `json:"person"`
}

type Community struct {
	Id          int64               `json:"id"`
	Name        string              `json:"name"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	ApId        string              `json:"apId"`
	Local       bool                `json:"local"`
	Visibility  CommunityVisibility `json:"visibility"`
	NSFW        bool                `json:"nsfw"`
	Removed     bool                `json:"removed"`
	Deleted     bool                `json:"deleted"`
}

type Post struct {
	Id             int64     `json:"id"`
	Name           string    `json:"name"`
	Url            *string   `json:"url,omitempty"`
	UrlContentType *string   `json:"urlContentType,omitempty"`
	Body           *string   `json:"body,omitempty"`
	ThumbnailUrl   *string   `json:"thumbnailUrl,omitempty"`
	CreatorId      int64     `json:"creatorId"`
	CommunityId    int64     `json:"communityId"`
	Published      time.Time `json:"published"`
	Score          int64     `json:"score"`
	Comments       int64     `json:"comments"`
}

type Comment struct {
	Id        int64     `json:"id"`
	CreatorId int64     `json:"creatorId"`
	PostId    int64     `json:"postId"`
	Content   string    `json:"content"`
	Published time.Time `json:"published"`
}

type PrivateMessage struct {
	Id          int64     `json:"id"`
	CreatorId   int64     `json:"creatorId"`
	RecipientId int64     `json:"recipientId"`
	Content     string    `json:"content"`
	Published   time.Time `json:"published"`
}

// PostView is a post joined with its community and creator
type PostView struct {
	Post      Post      `json:"post"`
	Community Community `json:"community"`
	Creator   Person    `json:"creator"`
}

// PersonContentView is one entry of a person's combined posts and comments.
// Exactly one of Post or Comment is set.
type PersonContentView struct {
	Post    *PostView `json:"post,omitempty"`
	Comment *Comment  `json:"comment,omitempty"`
}

// PostView returns the post of this entry, if it is one
func (v PersonContentView) PostView() (PostView, bool) {
	if v.Post == nil {
		return PostView{}, false
	}
	return *v.Post, true
}

// LoginToken records an issued feed credential. A credential only resolves
// while its row exists and has not expired.
type LoginToken struct {
	Id          string    `json:"id"`
	LocalUserId int64     `json:"localUserId"`
	Published   time.Time `json:"published"`
	Expires     time.Time `json:"expires"`
}
