package feeds_test

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"threadfeed/feeds"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChannel(t *testing.T) *feeds.Channel {
	t.Helper()

	post := testPost(42, "Cats & <dogs>", testFoo, testEpoch)
	post.Post.Url = lo.ToPtr("https://img.example/cat.png")
	post.Post.UrlContentType = lo.ToPtr("image/png")
	post.Post.ThumbnailUrl = lo.ToPtr("https://img.example/thumb.png")

	item, err := feeds.PostItem(post, feeds.NewLinks(testBase), plainMarkdown{})
	require.NoError(t, err)

	return &feeds.Channel{
		Title:       "Lemmy - foo",
		Link:        testFoo.ApId,
		Description: lo.ToPtr("<p>All about foo</p>"),
		Items:       []feeds.Item{item},
		Namespaces:  feeds.Namespaces(),
	}
}

func TestRenderRoundTrip(t *testing.T) {
	channel := testChannel(t)

	out, err := channel.Bytes()
	require.NoError(t, err)

	parsed, err := feeds.ParseChannel(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, channel.Title, parsed.Title)
	assert.Equal(t, channel.Link, parsed.Link)
	assert.Equal(t, channel.Description, parsed.Description)
	assert.Equal(t, channel.Namespaces, parsed.Namespaces)
	require.Len(t, parsed.Items, len(channel.Items))

	want, got := channel.Items[0], parsed.Items[0]
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Link, got.Link)
	assert.Equal(t, want.GUID, got.GUID)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Creator, got.Creator)
	assert.Equal(t, want.Categories, got.Categories)
	assert.Equal(t, want.Enclosure, got.Enclosure)
	assert.Equal(t, want.Thumbnail, got.Thumbnail)
	assert.True(t, want.PubDate.Equal(got.PubDate))
}

func TestRenderDocument(t *testing.T) {
	out, err := testChannel(t).Bytes()
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, xml.Header))
	assert.Contains(t, doc, `<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:media="http://search.yahoo.com/mrss/">`)
	assert.Contains(t, doc, `<title>[foo] Cats &amp; &lt;dogs&gt;</title>`)
	assert.Contains(t, doc, `<pubDate>Wed, 01 May 2024 12:00:00 +0000</pubDate>`)
	assert.Contains(t, doc, `<guid isPermaLink="true">https://lemmy.example/post/42</guid>`)
	assert.Contains(t, doc, `<enclosure url="https://img.example/cat.png" length="0" type="image/png"></enclosure>`)
	assert.Contains(t, doc, `<category domain="https://lemmy.example/c/foo">Foo Community</category>`)
	assert.Contains(t, doc, `<dc:creator>https://lemmy.example/u/alice</dc:creator>`)
	assert.Contains(t, doc, `<media:content url="https://img.example/thumb.png" medium="image"></media:content>`)
	assert.NotContains(t, doc, "<img")

	// the whole document must be well formed
	dec := xml.NewDecoder(bytes.NewReader(out))
	for {
		_, err := dec.Token()
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
	}
}

func TestRenderOmitsMissingDescription(t *testing.T) {
	channel := &feeds.Channel{
		Title:      "Lemmy - alice",
		Link:       testCreator.ApId,
		Namespaces: feeds.Namespaces(),
	}

	out, err := channel.Bytes()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<description")
	assert.Contains(t, string(out), "xmlns:dc=")

	parsed, err := feeds.ParseChannel(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Nil(t, parsed.Description)
	assert.Empty(t, parsed.Items)
}

func TestRenderReplacesInvalidCharacters(t *testing.T) {
	channel := &feeds.Channel{
		Title: "bell\x07 and nul\x00",
		Link:  testBase,
	}

	out, err := channel.Bytes()
	require.NoError(t, err)

	parsed, err := feeds.ParseChannel(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "bell\uFFFD and nul\uFFFD", parsed.Title)
}

func TestParseChannelRejectsOtherVersions(t *testing.T) {
	_, err := feeds.ParseChannel(strings.NewReader(`<rss version="0.91"><channel><title>x</title></channel></rss>`))
	assert.Error(t, err)

	_, err = feeds.ParseChannel(strings.NewReader(`<rss version="2.0"><channel>`))
	assert.Error(t, err)
}

func TestNamespacesIsACopy(t *testing.T) {
	ns := feeds.Namespaces()
	ns[0].URI = "changed"
	assert.Equal(t, feeds.DublinCoreNamespace, feeds.Namespaces()[0].URI)
	assert.Equal(t, "media", feeds.Namespaces()[1].Prefix)
}
