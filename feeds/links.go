package feeds

import (
	"fmt"
	"net/url"
	"strings"
)

// Links builds canonical local URLs for content on this instance
type Links struct {
	base string
}

// NewLinks returns a link builder rooted at protocolAndHostname, e.g. "https://example.social"
func NewLinks(protocolAndHostname string) *Links {
	return &Links{base: strings.TrimSuffix(protocolAndHostname, "/")}
}

// Base is the instance root URL
func (l *Links) Base() string {
	return l.base
}

// Inbox is the link used for private messages and the inbox channel
func (l *Links) Inbox() string {
	return l.base + "/inbox"
}

// Profile is the local profile page of a person
func (l *Links) Profile(name string) string {
	return l.base + "/u/" + name
}

func (l *Links) Post(id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("invalid post id %d", id)
	}
	return l.build(fmt.Sprintf("/post/%d", id))
}

func (l *Links) Comment(id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("invalid comment id %d", id)
	}
	return l.build(fmt.Sprintf("/comment/%d", id))
}

func (l *Links) Community(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty community name")
	}
	return l.build("/c/" + name)
}

func (l *Links) build(path string) (string, error) {
	u, err := url.Parse(l.base + path)
	if err != nil {
		return "", fmt.Errorf("failed to build local url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("failed to build local url: %q is not absolute", u.String())
	}
	return u.String(), nil
}
