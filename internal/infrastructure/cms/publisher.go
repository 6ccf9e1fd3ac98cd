package cms

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/ports"
)

// SitePublisher adapts the CMS post endpoint to the publisher contract.
type SitePublisher struct {
	client *Client
	now    func() time.Time
}

var _ ports.Publisher = (*SitePublisher)(nil)

// NewSitePublisher wraps client.
func NewSitePublisher(client *Client) *SitePublisher {
	return &SitePublisher{client: client, now: time.Now}
}

func (p *SitePublisher) Platform() string { return domain.PlatformSite }

// Publish creates the post. The site has no token refresh; an authorization
// failure is returned as is.
func (p *SitePublisher) Publish(ctx context.Context, creds domain.Credentials, payload domain.Payload) (domain.Receipt, error) {
	site := payload.Site
	if site == nil {
		return domain.Receipt{}, errors.New("site payload missing")
	}
	if !creds.Site.Configured() {
		return domain.Receipt{}, domain.ErrNotConfigured
	}

	res, err := p.client.CreatePost(ctx, creds.Site, Post{
		Title:            payload.Title,
		Slug:             site.Slug,
		Content:          payload.Body,
		Status:           "published",
		PublishedAt:      p.now().Unix(),
		SEOTitle:         site.SEO.Title,
		SEODescription:   site.SEO.Description,
		SEOKeywords:      strings.Join(site.SEO.Keywords, ", "),
		FeaturedImageURL: site.FeaturedImageURL,
		AuthorID:         site.AuthorID,
		CategoryIDs:      site.CategoryIDs,
		TagIDs:           site.TagIDs,
	})
	if err != nil {
		return domain.Receipt{}, err
	}

	slug := res.Slug
	if slug == "" {
		slug = site.Slug
	}
	receipt := domain.Receipt{RemoteID: strconv.FormatInt(res.ID, 10)}
	if res.ID > 0 && slug != "" && creds.Site.PublicURL != "" {
		receipt.RemoteURL = creds.Site.PostURL(slug)
	}
	return receipt, nil
}
