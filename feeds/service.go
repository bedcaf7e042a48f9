package feeds

import (
	"context"
	"errors"
	"fmt"

	"threadfeed/models"
	"threadfeed/query"

	"github.com/samber/lo"
)

// Kind selects one of the feed variants
type Kind string

const (
	KindCommunity Kind = "community"
	KindUser      Kind = "user"
	KindFront     Kind = "front"
	KindInbox     Kind = "inbox"
	KindAll       Kind = "all"
	KindLocal     Kind = "local"
)

// Request is a resolved feed request. Target names the community or user,
// Credential authenticates front and inbox feeds.
type Request struct {
	Kind       Kind
	Target     string
	Sort       query.SortType
	Limit      int
	Credential string
}

// Validate checks which of Target and Credential the kind requires
func (r Request) Validate() error {
	switch r.Kind {
	case KindCommunity, KindUser:
		if r.Target == "" {
			return invalidParameter("missing feed name", nil)
		}
	case KindFront, KindInbox:
		if r.Credential == "" {
			return invalidParameter("missing feed token", nil)
		}
	case KindAll, KindLocal:
		if r.Target != "" || r.Credential != "" {
			return invalidParameter("unexpected feed name", nil)
		}
	default:
		return invalidParameter("wrong_type", fmt.Errorf("unknown feed kind %q", r.Kind))
	}
	if r.Limit < 0 {
		return invalidParameter("invalid limit", nil)
	}
	return nil
}

// Store is the read side of the content storage
type Store interface {
	SiteView(ctx context.Context) (*models.SiteView, error)
	// CommunityByName and PersonByName return models.ErrNotFound for unknown names
	CommunityByName(ctx context.Context, name string) (*models.Community, error)
	PersonByName(ctx context.Context, name string) (*models.Person, error)
	ListPosts(ctx context.Context, q query.PostQuery) ([]models.PostView, error)
	ListPersonContent(ctx context.Context, q query.PersonContentQuery) ([]models.PersonContentView, error)
	ListInbox(ctx context.Context, q query.InboxQuery) ([]models.InboxView, error)
}

// IdentityResolver maps a feed credential to a local user. Unknown or invalid
// credentials are reported with an error wrapping ErrInvalidCredential.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*models.LocalUserView, error)
}

// ErrInvalidCredential marks identity failures the client is responsible for
var ErrInvalidCredential = errors.New("invalid credential")

// AccessPolicy decides whether a reader may see instance wide content
type AccessPolicy interface {
	CheckPrivateInstance(user *models.LocalUserView, site models.LocalSite) error
}

// PrivateInstancePolicy rejects anonymous readers of a private instance
type PrivateInstancePolicy struct{}

func (PrivateInstancePolicy) CheckPrivateInstance(user *models.LocalUserView, site models.LocalSite) error {
	if user == nil && site.PrivateInstance {
		return ErrInstanceIsPrivate
	}
	return nil
}

// Service assembles feeds from the store. It holds no per request state and
// is safe for concurrent use.
type Service struct {
	store      Store
	identities IdentityResolver
	policy     AccessPolicy
	markdown   Markdown
	links      *Links
}

func NewService(store Store, identities IdentityResolver, policy AccessPolicy, md Markdown, links *Links) *Service {
	if policy == nil {
		policy = PrivateInstancePolicy{}
	}
	return &Service{
		store:      store,
		identities: identities,
		policy:     policy,
		markdown:   md,
		links:      links,
	}
}

// Build resolves, fetches and normalizes one feed. Any failure aborts the
// whole channel.
func (s *Service) Build(ctx context.Context, req Request) (*Channel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	switch req.Kind {
	case KindAll:
		return s.listingFeed(ctx, query.ListingAll, req.Sort, req.Limit)
	case KindLocal:
		return s.listingFeed(ctx, query.ListingLocal, req.Sort, req.Limit)
	case KindCommunity:
		return s.communityFeed(ctx, req.Target, req.Sort, req.Limit)
	case KindUser:
		return s.userFeed(ctx, req.Target, req.Limit)
	case KindFront:
		return s.frontFeed(ctx, req.Credential, req.Sort, req.Limit)
	case KindInbox:
		return s.inboxFeed(ctx, req.Credential)
	}
	return nil, invalidParameter("wrong_type", nil)
}

func (s *Service) listingFeed(ctx context.Context, listing query.ListingType, sort query.SortType, limit int) (*Channel, error) {
	site, err := s.siteView(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkPrivateInstance(nil, site); err != nil {
		return nil, err
	}

	posts, err := s.store.ListPosts(ctx, query.PostQuery{
		Listing: listing,
		Sort:    sort,
		Limit:   limit,
	})
	if err != nil {
		return nil, upstream("failed to list posts", err)
	}

	items, err := s.postItems(posts, limit)
	if err != nil {
		return nil, err
	}

	return newChannel(
		channelTitle(site.Site, listing.String()),
		s.links.Base(),
		renderDescription(s.markdown, site.Site.Description),
		items,
	), nil
}

func (s *Service) communityFeed(ctx context.Context, name string, sort query.SortType, limit int) (*Channel, error) {
	site, err := s.siteView(ctx)
	if err != nil {
		return nil, err
	}

	community, err := s.store.CommunityByName(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return nil, notFound("not_found", err)
	}
	if err != nil {
		return nil, upstream("failed to read community", err)
	}
	if !community.Visibility.CanViewWithoutLogin() {
		return nil, notFound("not_found", fmt.Errorf("community %q is %s", name, community.Visibility))
	}

	if err := s.checkPrivateInstance(nil, site); err != nil {
		return nil, err
	}

	posts, err := s.store.ListPosts(ctx, query.PostQuery{
		Sort:        sort,
		CommunityId: community.Id,
		Limit:       limit,
	})
	if err != nil {
		return nil, upstream("failed to list posts", err)
	}

	items, err := s.postItems(posts, limit)
	if err != nil {
		return nil, err
	}

	return newChannel(
		channelTitle(site.Site, community.Name),
		community.ApId,
		renderDescription(s.markdown, community.Description),
		items,
	), nil
}

// userFeed lists the person's posts newest first; sort does not apply
func (s *Service) userFeed(ctx context.Context, name string, limit int) (*Channel, error) {
	site, err := s.siteView(ctx)
	if err != nil {
		return nil, err
	}

	person, err := s.store.PersonByName(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return nil, notFound("not_found", err)
	}
	if err != nil {
		return nil, upstream("failed to read person", err)
	}

	if err := s.checkPrivateInstance(nil, site); err != nil {
		return nil, err
	}

	content, err := s.store.ListPersonContent(ctx, query.PersonContentQuery{
		CreatorId: person.Id,
		Type:      query.PersonContentPosts,
		Limit:     limit,
	})
	if err != nil {
		return nil, upstream("failed to list person content", err)
	}

	posts := lo.FilterMap(content, func(c models.PersonContentView, _ int) (models.PostView, bool) {
		return c.PostView()
	})

	items, err := s.postItems(posts, limit)
	if err != nil {
		return nil, err
	}

	return newChannel(channelTitle(site.Site, person.Name), person.ApId, nil, items), nil
}

func (s *Service) frontFeed(ctx context.Context, token string, sort query.SortType, limit int) (*Channel, error) {
	site, err := s.siteView(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.resolveIdentity(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.checkPrivateInstance(user, site); err != nil {
		return nil, err
	}

	posts, err := s.store.ListPosts(ctx, query.PostQuery{
		Listing:         query.ListingSubscribed,
		PersonId:        user.Person.Id,
		ShowNSFW:        user.LocalUser.ShowNSFW,
		ShowBotAccounts: user.LocalUser.ShowBotAccounts,
		Sort:            sort,
		Limit:           limit,
	})
	if err != nil {
		return nil, upstream("failed to list posts", err)
	}

	items, err := s.postItems(posts, limit)
	if err != nil {
		return nil, err
	}

	return newChannel(
		channelTitle(site.Site, "Subscribed"),
		s.links.Base(),
		renderDescription(s.markdown, site.Site.Description),
		items,
	), nil
}

func (s *Service) inboxFeed(ctx context.Context, token string) (*Channel, error) {
	site, err := s.siteView(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.resolveIdentity(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.checkPrivateInstance(user, site); err != nil {
		return nil, err
	}

	inbox, err := s.store.ListInbox(ctx, query.InboxQuery{
		RecipientId:     user.Person.Id,
		ShowBotAccounts: user.LocalUser.ShowBotAccounts,
	})
	if err != nil {
		return nil, upstream("failed to list inbox", err)
	}

	items, err := InboxItems(inbox, s.links, s.markdown)
	if err != nil {
		return nil, upstream("failed to build inbox items", err)
	}

	return newChannel(
		channelTitle(site.Site, "Inbox"),
		s.links.Inbox(),
		renderDescription(s.markdown, site.Site.Description),
		items,
	), nil
}

func (s *Service) siteView(ctx context.Context) (*models.SiteView, error) {
	site, err := s.store.SiteView(ctx)
	if err != nil {
		return nil, upstream("failed to read site", err)
	}
	return site, nil
}

func (s *Service) resolveIdentity(ctx context.Context, token string) (*models.LocalUserView, error) {
	user, err := s.identities.Resolve(ctx, token)
	if errors.Is(err, ErrInvalidCredential) {
		return nil, unauthorized(err)
	}
	if err != nil {
		return nil, upstream("failed to resolve identity", err)
	}
	return user, nil
}

func (s *Service) checkPrivateInstance(user *models.LocalUserView, site *models.SiteView) error {
	if err := s.policy.CheckPrivateInstance(user, site.LocalSite); err != nil {
		if errors.Is(err, ErrInstanceIsPrivate) {
			return serviceUnavailable(err)
		}
		return upstream("failed to check instance access", err)
	}
	return nil
}

// postItems normalizes at most limit posts
func (s *Service) postItems(posts []models.PostView, limit int) ([]Item, error) {
	posts = lo.Slice(posts, 0, limit)
	items, err := PostItems(posts, s.links, s.markdown)
	if err != nil {
		return nil, upstream("failed to build post items", err)
	}
	return items, nil
}
