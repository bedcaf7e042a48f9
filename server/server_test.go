package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"threadfeed/auth"
	"threadfeed/db"
	"threadfeed/feeds"
	"threadfeed/markdown"
	"threadfeed/server"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret!"

type fixture struct {
	app    *fiber.App
	reader *db.Reader
	writer *db.Writer
	tokens *auth.Tokens
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "feed.db")
	require.NoError(t, db.Migrate(path))

	writer, err := db.NewWriter(path)
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })
	require.NoError(t, writer.ExecScript(ctx, db.DemoSeed))

	reader, err := db.NewReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	tokens := auth.NewTokens(testSecret, "lemmy.example", time.Hour)
	service := feeds.NewService(
		reader,
		auth.NewResolver(tokens, reader),
		nil,
		markdown.New(),
		feeds.NewLinks("https://lemmy.example"),
	)

	app := server.Server(&server.ServerConfig{
		Feeds:  service,
		Limits: feeds.DefaultLimits,
		Health: reader,
	})

	return &fixture{app: app, reader: reader, writer: writer, tokens: tokens}
}

func (f *fixture) get(t *testing.T, target string) (*http.Response, string) {
	t.Helper()
	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func (f *fixture) feed(t *testing.T, target string) *feeds.Channel {
	t.Helper()
	resp, body := f.get(t, target)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "application/rss+xml", resp.Header.Get("Content-Type"))

	channel, err := feeds.ParseChannel(strings.NewReader(body))
	require.NoError(t, err)
	return channel
}

func (f *fixture) token(t *testing.T, name string) string {
	t.Helper()
	user, err := f.reader.LocalUserByName(context.Background(), name)
	require.NoError(t, err)
	token, err := f.tokens.Issue(context.Background(), f.writer, *user)
	require.NoError(t, err)
	return token
}

func titles(channel *feeds.Channel) []string {
	return lo.Map(channel.Items, func(item feeds.Item, _ int) string { return item.Title })
}

func TestCommunityFeed(t *testing.T) {
	f := setup(t)

	channel := f.feed(t, "/feeds/c/foo.xml?sort=New")
	assert.Equal(t, "Lemmy Demo - foo", channel.Title)
	assert.Equal(t, "https://lemmy.example/c/foo", channel.Link)
	require.NotNil(t, channel.Description)
	assert.Contains(t, *channel.Description, "<em>foo</em>")
	assert.Equal(t, []string{"[foo] Bot spam", "[foo] Third foo post", "[foo] Second foo post", "[foo] First foo post"}, titles(channel))

	limited := f.feed(t, "/feeds/c/foo.xml?sort=New&limit=2")
	require.Len(t, limited.Items, 2)
	assert.Equal(t, []string{"[foo] Bot spam", "[foo] Third foo post"}, titles(limited))
	assert.True(t, limited.Items[0].PubDate.After(limited.Items[1].PubDate))
}

func TestListingFeeds(t *testing.T) {
	f := setup(t)

	resp, _ := f.get(t, "/feeds/all.xml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	all := f.feed(t, "/feeds/all.xml?sort=New")
	assert.Equal(t, "Lemmy Demo - All", all.Title)
	assert.Equal(t, "https://lemmy.example", all.Link)
	assert.Len(t, all.Items, 6)

	local := f.feed(t, "/feeds/local.xml?sort=New&limit=1")
	assert.Equal(t, "Lemmy Demo - Local", local.Title)
	assert.Equal(t, []string{"[foo] Bot spam"}, titles(local))
}

func TestUserFeed(t *testing.T) {
	f := setup(t)

	channel := f.feed(t, "/feeds/u/bob.xml")
	assert.Equal(t, "Lemmy Demo - bob", channel.Title)
	assert.Equal(t, "https://lemmy.example/u/bob", channel.Link)
	assert.Nil(t, channel.Description)
	assert.Equal(t, []string{"[foo] Third foo post"}, titles(channel))
}

func TestFrontAndInboxFeeds(t *testing.T) {
	f := setup(t)
	token := f.token(t, "bob")

	front := f.feed(t, "/feeds/front/"+token+".xml?sort=New")
	assert.Equal(t, "Lemmy Demo - Subscribed", front.Title)
	assert.Equal(t, []string{"[remote] Remote post", "[foo] Third foo post", "[foo] Second foo post", "[foo] First foo post"}, titles(front))

	inbox := f.feed(t, "/feeds/inbox/"+token+".xml")
	assert.Equal(t, "Lemmy Demo - Inbox", inbox.Title)
	assert.Equal(t, "https://lemmy.example/inbox", inbox.Link)
	assert.Len(t, inbox.Items, 3)
}

func TestFeedErrors(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{
			name:   "unknown community",
			target: "/feeds/c/nope.xml",
			status: http.StatusBadRequest,
			body:   "not_found",
		},
		{
			name:   "private community",
			target: "/feeds/c/secret.xml",
			status: http.StatusBadRequest,
			body:   "not_found",
		},
		{
			name:   "unknown user",
			target: "/feeds/u/nobody.xml",
			status: http.StatusBadRequest,
			body:   "not_found",
		},
		{
			name:   "unknown feed type",
			target: "/feeds/x/foo.xml",
			status: http.StatusBadRequest,
			body:   "wrong_type",
		},
		{
			name:   "unknown sort",
			target: "/feeds/c/foo.xml?sort=Best",
			status: http.StatusBadRequest,
			body:   "invalid sort",
		},
		{
			name:   "sort is checked on user feeds",
			target: "/feeds/u/bob.xml?sort=hot",
			status: http.StatusBadRequest,
			body:   "invalid sort",
		},
		{
			name:   "malformed limit",
			target: "/feeds/all.xml?limit=ten",
			status: http.StatusBadRequest,
			body:   "invalid limit",
		},
		{
			name:   "bad credential",
			target: "/feeds/front/garbage.xml",
			status: http.StatusUnauthorized,
			body:   "not logged in",
		},
		{
			name:   "bad inbox credential",
			target: "/feeds/inbox/garbage.xml",
			status: http.StatusUnauthorized,
			body:   "not logged in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.get(t, tt.target)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, body)
			assert.NotEqual(t, "application/rss+xml", resp.Header.Get("Content-Type"))
		})
	}
}

// countingBuilder records how often a feed was built
type countingBuilder struct {
	calls int
}

func (b *countingBuilder) Build(ctx context.Context, req feeds.Request) (*feeds.Channel, error) {
	b.calls++
	return &feeds.Channel{Title: "unused"}, nil
}

func TestInvalidSortNeverBuilds(t *testing.T) {
	builder := &countingBuilder{}
	app := server.Server(&server.ServerConfig{Feeds: builder, Limits: feeds.DefaultLimits})

	targets := []string{
		"/feeds/all.xml",
		"/feeds/local.xml",
		"/feeds/c/foo.xml",
		"/feeds/u/bob.xml",
		"/feeds/front/token.xml",
		"/feeds/inbox/token.xml",
	}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, target+"?sort=bogus", nil), -1)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid sort", string(body))
		})
	}
	assert.Equal(t, 0, builder.calls)

	// the same routes do build with a valid sort
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/feeds/c/foo.xml?sort=New", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, builder.calls)
}

func TestPrivateInstance(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.writer.ExecScript(context.Background(), "UPDATE local_site SET private_instance = 1"))

	for _, target := range []string{"/feeds/all.xml", "/feeds/local.xml", "/feeds/c/foo.xml", "/feeds/u/bob.xml"} {
		resp, body := f.get(t, target)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, target)
		assert.Equal(t, "instance is private", body, target)
	}

	// Logged in readers still get their feeds
	f.feed(t, "/feeds/front/"+f.token(t, "bob")+".xml")
}

func TestHealthAndMetrics(t *testing.T) {
	f := setup(t)

	resp, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	f.feed(t, "/feeds/all.xml")

	resp, body = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `threadfeed_feed_requests_total{kind="all",status="200"}`)

	f.reader.Close()
	resp, _ = f.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	f := setup(t)

	resp, _ := f.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
