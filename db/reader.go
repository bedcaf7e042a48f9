package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"threadfeed/models"
	"threadfeed/query"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

// DefaultInboxLimit is used when an inbox query does not set a limit
const DefaultInboxLimit = 20

type Reader struct {
	db *sql.DB
}

func NewReader(database string) (*Reader, error) {
	db, err := readConnection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Reader{db: db}, nil
}

func (reader *Reader) Close() error {
	return reader.db.Close()
}

// Ping checks the database can answer queries
func (reader *Reader) Ping(ctx context.Context) error {
	return reader.db.PingContext(ctx)
}

func build(sb sqlbuilder.Builder) (string, []interface{}) {
	return sb.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))
}

func unix(t int64) time.Time {
	return time.Unix(t, 0).UTC()
}

// notFound maps a missing row to models.ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (reader *Reader) SiteView(ctx context.Context) (*models.SiteView, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"site.id", "site.name", "site.description", "site.ap_id",
		"local_site.id", "local_site.site_id", "local_site.private_instance",
	).From("site")
	sb.Join("local_site", "local_site.site_id = site.id")
	sb.OrderBy("site.id").Asc()
	sb.Limit(1)

	sql, args := build(sb)

	var view models.SiteView
	err := reader.db.QueryRowContext(ctx, sql, args...).Scan(
		&view.Site.Id, &view.Site.Name, &view.Site.Description, &view.Site.ApId,
		&view.LocalSite.Id, &view.LocalSite.SiteId, &view.LocalSite.PrivateInstance,
	)
	if err != nil {
		return nil, notFound(err, "local site")
	}
	return &view, nil
}

// CommunityByName finds a live local community
func (reader *Reader) CommunityByName(ctx context.Context, name string) (*models.Community, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(communityColumns("community")...).From("community")
	sb.Where(
		sb.Equal("community.name", name),
		sb.Equal("community.local", 1),
		sb.Equal("community.deleted", 0),
		sb.Equal("community.removed", 0),
	)

	sql, args := build(sb)

	var c models.Community
	if err := reader.db.QueryRowContext(ctx, sql, args...).Scan(communityDest(&c)...); err != nil {
		return nil, notFound(err, fmt.Sprintf("community %q", name))
	}
	return &c, nil
}

// PersonByName finds a live local person
func (reader *Reader) PersonByName(ctx context.Context, name string) (*models.Person, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(personColumns("person")...).From("person")
	sb.Where(
		sb.Equal("person.name", name),
		sb.Equal("person.local", 1),
		sb.Equal("person.deleted", 0),
	)

	sql, args := build(sb)

	var p models.Person
	if err := reader.db.QueryRowContext(ctx, sql, args...).Scan(personDest(&p)...); err != nil {
		return nil, notFound(err, fmt.Sprintf("person %q", name))
	}
	return &p, nil
}

func (reader *Reader) LocalUserById(ctx context.Context, id int64) (*models.LocalUserView, error) {
	sb := localUserSelect()
	sb.Where(sb.Equal("local_user.id", id))
	return reader.localUser(ctx, sb, fmt.Sprintf("local user %d", id))
}

func (reader *Reader) LocalUserByName(ctx context.Context, name string) (*models.LocalUserView, error) {
	sb := localUserSelect()
	sb.Where(sb.Equal("person.name", name), sb.Equal("person.local", 1))
	return reader.localUser(ctx, sb, fmt.Sprintf("local user %q", name))
}

func localUserSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.NewSelectBuilder()
	cols := []string{
		"local_user.id", "local_user.person_id", "local_user.password_encrypted",
		"local_user.show_nsfw", "local_user.show_bot_accounts",
	}
	sb.Select(append(cols, personColumns("person")...)...).From("local_user")
	sb.Join("person", "person.id = local_user.person_id")
	return sb
}

func (reader *Reader) localUser(ctx context.Context, sb *sqlbuilder.SelectBuilder, what string) (*models.LocalUserView, error) {
	sql, args := build(sb)

	var view models.LocalUserView
	dest := []interface{}{
		&view.LocalUser.Id, &view.LocalUser.PersonId, &view.LocalUser.PasswordEncrypted,
		&view.LocalUser.ShowNSFW, &view.LocalUser.ShowBotAccounts,
	}
	if err := reader.db.QueryRowContext(ctx, sql, args...).Scan(append(dest, personDest(&view.Person)...)...); err != nil {
		return nil, notFound(err, what)
	}
	return &view, nil
}

// LoginToken returns a stored login token, expired or not
func (reader *Reader) LoginToken(ctx context.Context, id string) (*models.LoginToken, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "local_user_id", "published", "expires").From("login_token")
	sb.Where(sb.Equal("id", id))

	sql, args := build(sb)

	var token models.LoginToken
	var published, expires int64
	if err := reader.db.QueryRowContext(ctx, sql, args...).Scan(&token.Id, &token.LocalUserId, &published, &expires); err != nil {
		return nil, notFound(err, "login token")
	}
	token.Published = unix(published)
	token.Expires = unix(expires)
	return &token, nil
}

func (reader *Reader) ListPosts(ctx context.Context, q query.PostQuery) ([]models.PostView, error) {
	sb := postViewSelect()
	for _, f := range postFilters(q) {
		f.ApplyFilter(sb)
	}
	sb.OrderBy(sortStrategy(q.Sort).GetSort()...)
	sb.Limit(q.Limit)

	return reader.postViews(ctx, sb)
}

// ListPersonContent merges a person's posts and comments, newest first
func (reader *Reader) ListPersonContent(ctx context.Context, q query.PersonContentQuery) ([]models.PersonContentView, error) {
	var content []models.PersonContentView

	if q.Type == query.PersonContentAll || q.Type == query.PersonContentPosts {
		sb := postViewSelect()
		sb.Where(sb.Equal("post.creator_id", q.CreatorId))
		for _, f := range profileFilters() {
			f.ApplyFilter(sb)
		}
		sb.OrderBy((&PublishedSort{}).GetSort()...)
		sb.Limit(q.Limit)

		posts, err := reader.postViews(ctx, sb)
		if err != nil {
			return nil, err
		}
		content = append(content, lo.Map(posts, func(p models.PostView, _ int) models.PersonContentView {
			return models.PersonContentView{Post: &p}
		})...)
	}

	if q.Type == query.PersonContentAll || q.Type == query.PersonContentComments {
		sb := sqlbuilder.NewSelectBuilder()
		sb.Select(commentColumns...).From("comment")
		sb.Join("post", "post.id = comment.post_id")
		sb.Join("community", "community.id = post.community_id")
		sb.Where(
			sb.Equal("comment.creator_id", q.CreatorId),
			sb.Equal("comment.deleted", 0),
			sb.Equal("comment.removed", 0),
		)
		for _, f := range profileFilters() {
			f.ApplyFilter(sb)
		}
		sb.OrderBy("comment.published DESC", "comment.id DESC")
		sb.Limit(q.Limit)

		comments, err := reader.comments(ctx, sb)
		if err != nil {
			return nil, err
		}
		content = append(content, lo.Map(comments, func(c models.Comment, _ int) models.PersonContentView {
			return models.PersonContentView{Comment: &c}
		})...)
	}

	slices.SortStableFunc(content, func(a, b models.PersonContentView) int {
		return contentPublished(b).Compare(contentPublished(a))
	})
	return lo.Slice(content, 0, q.Limit), nil
}

func contentPublished(c models.PersonContentView) time.Time {
	if c.Post != nil {
		return c.Post.Post.Published
	}
	return c.Comment.Published
}

// ListInbox merges replies, mentions and private messages, newest first
func (reader *Reader) ListInbox(ctx context.Context, q query.InboxQuery) ([]models.InboxView, error) {
	limit := q.Limit
	if limit == 0 {
		limit = DefaultInboxLimit
	}

	var inbox []models.InboxView
	for _, list := range []func(context.Context, query.InboxQuery, int) ([]models.InboxView, error){
		reader.commentReplies,
		reader.commentMentions,
		reader.postMentions,
		reader.privateMessages,
	} {
		views, err := list(ctx, q, limit)
		if err != nil {
			return nil, err
		}
		inbox = append(inbox, views...)
	}

	slices.SortStableFunc(inbox, func(a, b models.InboxView) int {
		return b.Published().Compare(a.Published())
	})
	return lo.Slice(inbox, 0, limit), nil
}

func (reader *Reader) commentReplies(ctx context.Context, q query.InboxQuery, limit int) ([]models.InboxView, error) {
	sb := commentInboxSelect("comment_reply", q, limit)
	return reader.commentInbox(ctx, sb, func(c models.Comment, creator models.Person) models.InboxView {
		return models.CommentReplyView{Comment: c, Creator: creator}
	})
}

func (reader *Reader) commentMentions(ctx context.Context, q query.InboxQuery, limit int) ([]models.InboxView, error) {
	sb := commentInboxSelect("person_comment_mention", q, limit)
	return reader.commentInbox(ctx, sb, func(c models.Comment, creator models.Person) models.InboxView {
		return models.CommentMentionView{Comment: c, Creator: creator}
	})
}

func commentInboxSelect(table string, q query.InboxQuery, limit int) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(append(slices.Clone(commentColumns), personColumns("creator")...)...).From(table)
	sb.Join("comment", "comment.id = "+table+".comment_id")
	sb.Join("person AS creator", "creator.id = comment.creator_id")
	sb.Where(
		sb.Equal(table+".recipient_id", q.RecipientId),
		sb.Equal("comment.deleted", 0),
		sb.Equal("comment.removed", 0),
	)
	(&BotFilter{Show: q.ShowBotAccounts, Column: "creator.bot_account"}).ApplyFilter(sb)
	sb.OrderBy("comment.published DESC", "comment.id DESC")
	sb.Limit(limit)
	return sb
}

func (reader *Reader) commentInbox(ctx context.Context, sb *sqlbuilder.SelectBuilder, wrap func(models.Comment, models.Person) models.InboxView) ([]models.InboxView, error) {
	sql, args := build(sb)

	rows, err := reader.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var views []models.InboxView
	for rows.Next() {
		var c models.Comment
		var creator models.Person
		var published int64
		if err := rows.Scan(append(commentDest(&c, &published), personDest(&creator)...)...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		c.Published = unix(published)
		views = append(views, wrap(c, creator))
	}
	return views, rows.Err()
}

func (reader *Reader) postMentions(ctx context.Context, q query.InboxQuery, limit int) ([]models.InboxView, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(append(slices.Clone(postColumns), personColumns("creator")...)...).From("person_post_mention")
	sb.Join("post", "post.id = person_post_mention.post_id")
	sb.Join("person AS creator", "creator.id = post.creator_id")
	sb.Where(
		sb.Equal("person_post_mention.recipient_id", q.RecipientId),
		sb.Equal("post.deleted", 0),
		sb.Equal("post.removed", 0),
	)
	(&BotFilter{Show: q.ShowBotAccounts, Column: "creator.bot_account"}).ApplyFilter(sb)
	sb.OrderBy("post.published DESC", "post.id DESC")
	sb.Limit(limit)

	sql, args := build(sb)

	rows, err := reader.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var views []models.InboxView
	for rows.Next() {
		var view models.PostMentionView
		var published int64
		if err := rows.Scan(append(postDest(&view.Post, &published), personDest(&view.Creator)...)...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		view.Post.Published = unix(published)
		views = append(views, view)
	}
	return views, rows.Err()
}

func (reader *Reader) privateMessages(ctx context.Context, q query.InboxQuery, limit int) ([]models.InboxView, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(append([]string{
		"private_message.id", "private_message.creator_id", "private_message.recipient_id",
		"private_message.content", "private_message.published",
	}, personColumns("creator")...)...).From("private_message")
	sb.Join("person AS creator", "creator.id = private_message.creator_id")
	sb.Where(
		sb.Equal("private_message.recipient_id", q.RecipientId),
		sb.Equal("private_message.deleted", 0),
	)
	(&BotFilter{Show: q.ShowBotAccounts, Column: "creator.bot_account"}).ApplyFilter(sb)
	sb.OrderBy("private_message.published DESC", "private_message.id DESC")
	sb.Limit(limit)

	sql, args := build(sb)

	rows, err := reader.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var views []models.InboxView
	for rows.Next() {
		var view models.PrivateMessageView
		var published int64
		pm := &view.PrivateMessage
		dest := []interface{}{&pm.Id, &pm.CreatorId, &pm.RecipientId, &pm.Content, &published}
		if err := rows.Scan(append(dest, personDest(&view.Creator)...)...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		pm.Published = unix(published)
		views = append(views, view)
	}
	return views, rows.Err()
}

func (reader *Reader) comments(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.Comment, error) {
	sql, args := build(sb)

	rows, err := reader.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var published int64
		if err := rows.Scan(commentDest(&c, &published)...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		c.Published = unix(published)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// postViewSelect selects posts joined with community and creator
func postViewSelect() *sqlbuilder.SelectBuilder {
	cols := slices.Clone(postColumns)
	cols = append(cols, communityColumns("community")...)
	cols = append(cols, personColumns("creator")...)

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(cols...).From("post")
	sb.Join("community", "community.id = post.community_id")
	sb.Join("person AS creator", "creator.id = post.creator_id")
	return sb
}

func (reader *Reader) postViews(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.PostView, error) {
	sql, args := build(sb)

	rows, err := reader.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	posts := []models.PostView{}
	for rows.Next() {
		var view models.PostView
		var published int64
		dest := postDest(&view.Post, &published)
		dest = append(dest, communityDest(&view.Community)...)
		dest = append(dest, personDest(&view.Creator)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		view.Post.Published = unix(published)
		posts = append(posts, view)
	}
	return posts, rows.Err()
}

var postColumns = []string{
	"post.id", "post.name", "post.url", "post.url_content_type", "post.body", "post.thumbnail_url",
	"post.creator_id", "post.community_id", "post.published", "post.score", "post.comments",
}

func postDest(p *models.Post, published *int64) []interface{} {
	return []interface{}{
		&p.Id, &p.Name, &p.Url, &p.UrlContentType, &p.Body, &p.ThumbnailUrl,
		&p.CreatorId, &p.CommunityId, published, &p.Score, &p.Comments,
	}
}

var commentColumns = []string{
	"comment.id", "comment.creator_id", "comment.post_id", "comment.content", "comment.published",
}

func commentDest(c *models.Comment, published *int64) []interface{} {
	return []interface{}{&c.Id, &c.CreatorId, &c.PostId, &c.Content, published}
}

func communityColumns(table string) []string {
	return lo.Map([]string{
		"id", "name", "title", "description", "ap_id", "local", "visibility", "nsfw", "removed", "deleted",
	}, func(col string, _ int) string {
		return table + "." + col
	})
}

func communityDest(c *models.Community) []interface{} {
	return []interface{}{
		&c.Id, &c.Name, &c.Title, &c.Description, &c.ApId, &c.Local, &c.Visibility, &c.NSFW, &c.Removed, &c.Deleted,
	}
}

func personColumns(table string) []string {
	return []string{
		table + ".id", table + ".name", "COALESCE(" + table + ".display_name, '')", table + ".ap_id",
		table + ".local", table + ".bot_account", table + ".banned", table + ".deleted",
	}
}

func personDest(p *models.Person) []interface{} {
	return []interface{}{&p.Id, &p.Name, &p.DisplayName, &p.ApId, &p.Local, &p.BotAccount, &p.Banned, &p.Deleted}
}
