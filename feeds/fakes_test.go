package feeds_test

import (
	"context"
	"fmt"
	"html"
	"time"

	"threadfeed/feeds"
	"threadfeed/models"
	"threadfeed/query"

	"github.com/samber/lo"
)

const testBase = "https://lemmy.example"

// plainMarkdown wraps text in a paragraph without interpreting it
type plainMarkdown struct{}

func (plainMarkdown) ToHTML(text string) string {
	if text == "" {
		return ""
	}
	return "<p>" + html.EscapeString(text) + "</p>"
}

type fakeStore struct {
	site        models.SiteView
	communities map[string]models.Community
	people      map[string]models.Person
	posts       []models.PostView
	content     []models.PersonContentView
	inbox       []models.InboxView
	err         error

	postQueries    []query.PostQuery
	contentQueries []query.PersonContentQuery
	inboxQueries   []query.InboxQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		site: models.SiteView{
			Site:      models.Site{Id: 1, Name: "Lemmy", ApId: testBase + "/"},
			LocalSite: models.LocalSite{Id: 1, SiteId: 1},
		},
		communities: map[string]models.Community{},
		people:      map[string]models.Person{},
	}
}

func (s *fakeStore) calls() int {
	return len(s.postQueries) + len(s.contentQueries) + len(s.inboxQueries)
}

func (s *fakeStore) SiteView(ctx context.Context) (*models.SiteView, error) {
	if s.err != nil {
		return nil, s.err
	}
	site := s.site
	return &site, nil
}

func (s *fakeStore) CommunityByName(ctx context.Context, name string) (*models.Community, error) {
	c, ok := s.communities[name]
	if !ok {
		return nil, fmt.Errorf("community %q: %w", name, models.ErrNotFound)
	}
	return &c, nil
}

func (s *fakeStore) PersonByName(ctx context.Context, name string) (*models.Person, error) {
	p, ok := s.people[name]
	if !ok {
		return nil, fmt.Errorf("person %q: %w", name, models.ErrNotFound)
	}
	return &p, nil
}

// ListPosts filters by community and returns at most Limit posts, ignoring sort
func (s *fakeStore) ListPosts(ctx context.Context, q query.PostQuery) ([]models.PostView, error) {
	s.postQueries = append(s.postQueries, q)
	posts := lo.Filter(s.posts, func(p models.PostView, _ int) bool {
		return q.CommunityId == 0 || p.Community.Id == q.CommunityId
	})
	return lo.Slice(posts, 0, q.Limit), nil
}

func (s *fakeStore) ListPersonContent(ctx context.Context, q query.PersonContentQuery) ([]models.PersonContentView, error) {
	s.contentQueries = append(s.contentQueries, q)
	return lo.Slice(s.content, 0, q.Limit), nil
}

func (s *fakeStore) ListInbox(ctx context.Context, q query.InboxQuery) ([]models.InboxView, error) {
	s.inboxQueries = append(s.inboxQueries, q)
	return s.inbox, nil
}

type fakeIdentities map[string]models.LocalUserView

func (f fakeIdentities) Resolve(ctx context.Context, token string) (*models.LocalUserView, error) {
	user, ok := f[token]
	if !ok {
		return nil, fmt.Errorf("token %q: %w", token, feeds.ErrInvalidCredential)
	}
	return &user, nil
}

var (
	testCreator = models.Person{Id: 7, Name: "alice", ApId: testBase + "/u/alice", Local: true}
	testBot     = models.Person{Id: 8, Name: "botty", ApId: testBase + "/u/botty", Local: true, BotAccount: true}
	testFoo     = models.Community{
		Id:          3,
		Name:        "foo",
		Title:       "Foo Community",
		Description: lo.ToPtr("All about **foo**"),
		ApId:        testBase + "/c/foo",
		Local:       true,
		Visibility:  models.VisibilityPublic,
	}
	testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func testPost(id int64, name string, community models.Community, published time.Time) models.PostView {
	return models.PostView{
		Post: models.Post{
			Id:          id,
			Name:        name,
			CreatorId:   testCreator.Id,
			CommunityId: community.Id,
			Published:   published,
			Score:       10,
			Comments:    2,
		},
		Community: community,
		Creator:   testCreator,
	}
}
