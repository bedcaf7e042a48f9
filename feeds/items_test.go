package feeds_test

import (
	"testing"

	"threadfeed/feeds"
	"threadfeed/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostItem(t *testing.T) {
	links := feeds.NewLinks(testBase)

	tests := []struct {
		name        string
		edit        func(p *models.PostView)
		description string
		enclosure   *feeds.Enclosure
		thumbnail   *feeds.Thumbnail
	}{
		{
			name: "text post",
			edit: func(p *models.PostView) {
				p.Post.Body = lo.ToPtr("hello")
			},
			description: `submitted by <a href="https://lemmy.example/u/alice">alice</a> to <a href="https://lemmy.example/c/foo">foo</a><br>10 points | <a href="https://lemmy.example/post/42">2 comments</a><p>hello</p>`,
		},
		{
			name: "image link",
			edit: func(p *models.PostView) {
				p.Post.Url = lo.ToPtr("https://img.example/cat.png")
				p.Post.UrlContentType = lo.ToPtr("image/png")
			},
			description: `submitted by <a href="https://lemmy.example/u/alice">alice</a> to <a href="https://lemmy.example/c/foo">foo</a><br>10 points | <a href="https://lemmy.example/post/42">2 comments</a><br><a href="https://img.example/cat.png"><img src="https://img.example/cat.png"/></a>`,
			enclosure:   &feeds.Enclosure{URL: "https://img.example/cat.png", Type: "image/png", Length: "0"},
		},
		{
			name: "link without content type",
			edit: func(p *models.PostView) {
				p.Post.Url = lo.ToPtr("https://news.example/a?b=1&c=2")
			},
			description: `submitted by <a href="https://lemmy.example/u/alice">alice</a> to <a href="https://lemmy.example/c/foo">foo</a><br>10 points | <a href="https://lemmy.example/post/42">2 comments</a><br><a href="https://news.example/a?b=1&amp;c=2">https://news.example/a?b=1&amp;c=2</a>`,
			enclosure:   &feeds.Enclosure{URL: "https://news.example/a?b=1&c=2", Type: "application/octet-stream", Length: "0"},
		},
		{
			name: "thumbnail is independent of the enclosure",
			edit: func(p *models.PostView) {
				p.Post.Url = lo.ToPtr("https://video.example/v")
				p.Post.UrlContentType = lo.ToPtr("text/html")
				p.Post.ThumbnailUrl = lo.ToPtr("https://lemmy.example/pictrs/image/thumb.webp")
			},
			description: `submitted by <a href="https://lemmy.example/u/alice">alice</a> to <a href="https://lemmy.example/c/foo">foo</a><br>10 points | <a href="https://lemmy.example/post/42">2 comments</a><br><a href="https://video.example/v">https://video.example/v</a>`,
			enclosure:   &feeds.Enclosure{URL: "https://video.example/v", Type: "text/html", Length: "0"},
			thumbnail:   &feeds.Thumbnail{URL: "https://lemmy.example/pictrs/image/thumb.webp", Medium: "image"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := testPost(42, "Hello <world>", testFoo, testEpoch)
			tt.edit(&post)

			item, err := feeds.PostItem(post, links, plainMarkdown{})
			require.NoError(t, err)

			assert.Equal(t, "[foo] Hello <world>", item.Title)
			assert.Equal(t, "https://lemmy.example/post/42", item.Link)
			assert.Equal(t, item.Link, item.GUID)
			assert.Equal(t, item.Link, item.Comments)
			assert.Equal(t, testEpoch, item.PubDate)
			assert.Equal(t, testCreator.ApId, item.Creator)
			assert.Equal(t, []feeds.Category{{Name: "Foo Community", Domain: "https://lemmy.example/c/foo"}}, item.Categories)
			assert.Equal(t, tt.description, item.Description)
			assert.Equal(t, tt.enclosure, item.Enclosure)
			assert.Equal(t, tt.thumbnail, item.Thumbnail)
		})
	}
}

func TestPostItemsStableAndUnique(t *testing.T) {
	links := feeds.NewLinks(testBase)
	posts := []models.PostView{
		testPost(1, "one", testFoo, testEpoch),
		testPost(2, "two", testFoo, testEpoch),
		testPost(3, "three", testFoo, testEpoch),
	}

	first, err := feeds.PostItems(posts, links, plainMarkdown{})
	require.NoError(t, err)
	second, err := feeds.PostItems(posts, links, plainMarkdown{})
	require.NoError(t, err)

	guids := lo.Map(first, func(i feeds.Item, _ int) string { return i.GUID })
	assert.Len(t, lo.Uniq(guids), len(posts))
	assert.Equal(t, guids, lo.Map(second, func(i feeds.Item, _ int) string { return i.GUID }))

	// editing content must not change its identifier
	posts[0].Post.Name = "one, edited"
	posts[0].Post.Body = lo.ToPtr("new body")
	edited, err := feeds.PostItems(posts, links, plainMarkdown{})
	require.NoError(t, err)
	assert.Equal(t, first[0].GUID, edited[0].GUID)
}

func TestPostItemsPermalinkFailure(t *testing.T) {
	posts := []models.PostView{
		testPost(1, "fine", testFoo, testEpoch),
		testPost(0, "broken", testFoo, testEpoch),
	}

	items, err := feeds.PostItems(posts, feeds.NewLinks(testBase), plainMarkdown{})
	assert.Error(t, err)
	assert.Nil(t, items)

	noCommunity := testPost(5, "orphan", models.Community{}, testEpoch)
	_, err = feeds.PostItem(noCommunity, feeds.NewLinks(testBase), plainMarkdown{})
	assert.Error(t, err)

	_, err = feeds.PostItem(posts[0], feeds.NewLinks("not a base"), plainMarkdown{})
	assert.Error(t, err)
}

func TestInboxItems(t *testing.T) {
	links := feeds.NewLinks(testBase)
	inbox := []models.InboxView{
		models.CommentReplyView{
			Comment: models.Comment{Id: 11, Content: "a reply", Published: testEpoch},
			Creator: testCreator,
		},
		models.CommentMentionView{
			Comment: models.Comment{Id: 12, Content: "hi @bob", Published: testEpoch},
			Creator: testCreator,
		},
		models.PostMentionView{
			Post:    models.Post{Id: 13, Name: "a post", Published: testEpoch},
			Creator: testCreator,
		},
		models.PrivateMessageView{
			PrivateMessage: models.PrivateMessage{Id: 14, Content: "secret", Published: testEpoch},
			Creator:        testCreator,
		},
	}

	items, err := feeds.InboxItems(inbox, links, plainMarkdown{})
	require.NoError(t, err)
	require.Len(t, items, 4)

	for _, item := range items {
		assert.Equal(t, "Reply from alice", item.Title)
		assert.Equal(t, `/u/alice <a href="https://lemmy.example/u/alice">(link)</a>`, item.Author)
		assert.Equal(t, item.Link, item.GUID)
		assert.Equal(t, testEpoch, item.PubDate)
	}

	assert.Equal(t, "https://lemmy.example/comment/11", items[0].Link)
	assert.Equal(t, "<p>a reply</p>", items[0].Description)
	assert.Equal(t, "https://lemmy.example/comment/12", items[1].Link)
	assert.Equal(t, "https://lemmy.example/post/13", items[2].Link)
	assert.Equal(t, "", items[2].Description)
	assert.Equal(t, "https://lemmy.example/inbox", items[3].Link)
	assert.Equal(t, "<p>secret</p>", items[3].Description)
}

func TestInboxItemsPermalinkFailure(t *testing.T) {
	inbox := []models.InboxView{
		models.CommentReplyView{Comment: models.Comment{Id: -1}, Creator: testCreator},
	}
	items, err := feeds.InboxItems(inbox, feeds.NewLinks(testBase), plainMarkdown{})
	assert.Error(t, err)
	assert.Nil(t, items)
}

func TestInboxItemAuthorIsEscaped(t *testing.T) {
	creator := testCreator
	creator.Name = `a<b>&"c`
	inbox := []models.InboxView{
		models.PrivateMessageView{
			PrivateMessage: models.PrivateMessage{Id: 1, Content: "hi", Published: testEpoch},
			Creator:        creator,
		},
	}

	items, err := feeds.InboxItems(inbox, feeds.NewLinks(testBase), plainMarkdown{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, `/u/a&lt;b&gt;&amp;&#34;c <a href="https://lemmy.example/u/a&lt;b&gt;&amp;&#34;c">(link)</a>`, items[0].Author)
}
