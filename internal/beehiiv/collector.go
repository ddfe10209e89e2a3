package beehiiv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/domain"
)

// Collector turns one workspace group's publications into canonical metric
// records for a target date.
type Collector struct {
	client       *Client
	group        string
	brands       []config.BeehiivBrand
	publications map[string]Publication // by display name
}

// NewCollector creates a collector for the group and loads its publication
// catalog once; brand names resolve to publication IDs through it for the
// collector's lifetime.
func NewCollector(ctx context.Context, client *Client, group config.BeehiivGroup) (*Collector, error) {
	pubs, err := client.ListPublications(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading publications for group %s: %w", group.Name, err)
	}

	byName := make(map[string]Publication, len(pubs))
	for _, pub := range pubs {
		byName[pub.Name] = pub
	}
	log.Printf("beehiiv %s: loaded %d publication(s)", group.Name, len(pubs))

	return &Collector{
		client:       client,
		group:        group.Name,
		brands:       group.Brands,
		publications: byName,
	}, nil
}

// Collect gathers the target date's newsletter posts for every configured
// brand in the group. A brand missing from the catalog logs a warning and is
// skipped; when no configured brand resolves at all the status is
// SearchNotFound rather than SearchEmpty. A failed brand contributes whatever
// was accumulated before the failure.
func (c *Collector) Collect(ctx context.Context, target time.Time) ([]domain.MetricRecord, domain.SearchStatus, error) {
	target = domain.DateOnly(target)
	dayBefore := target.AddDate(0, 0, -1)

	var records []domain.MetricRecord
	var lastErr error
	missing := 0

	for _, brand := range c.brands {
		pub, ok := c.publications[brand.Name]
		if !ok {
			log.Printf("beehiiv %s: brand %q not found in publication catalog", c.group, brand.Name)
			missing++
			continue
		}

		_, previousRecipients, err := c.postsForDate(ctx, pub.ID, brand, dayBefore)
		if err != nil {
			log.Printf("beehiiv %s: baseline search error for %s: %v", c.group, brand.Name, err)
		}

		posts, _, err := c.postsForDate(ctx, pub.ID, brand, target)
		if err != nil {
			log.Printf("beehiiv %s: search error for %s: %v", c.group, brand.Name, err)
			lastErr = err
		}
		log.Printf("beehiiv %s: %s: found %d post(s) for %s", c.group, brand.Name, len(posts), target.Format("2006-01-02"))

		for _, post := range posts {
			records = append(records, buildRecord(post, brand.Name, previousRecipients))
		}
	}

	status := domain.SearchFound
	switch {
	case lastErr != nil:
		status = domain.SearchError
	case len(c.brands) > 0 && missing == len(c.brands):
		// Every configured brand failed catalog resolution: a config or
		// catalog problem, not a day without posts.
		status = domain.SearchNotFound
	case len(records) == 0:
		status = domain.SearchEmpty
	}
	return records, status, lastErr
}

// postsForDate walks the publication's post listing collecting the target
// date's qualifying posts and their combined recipient count. Posts are in
// creation order, so every page up to total_pages (or the cap) is scanned.
// A 400/404 quietly ends the walk; other failures return what was gathered.
func (c *Collector) postsForDate(ctx context.Context, publicationID string, brand config.BeehiivBrand, target time.Time) ([]Post, int64, error) {
	var matched []Post
	var totalRecipients int64

	for page := 1; page <= MaxPages; page++ {
		listing, err := c.client.ListPosts(ctx, publicationID, page)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && (apiErr.StatusCode == 400 || apiErr.StatusCode == 404) {
				break
			}
			return matched, totalRecipients, err
		}

		if len(listing.Data) == 0 {
			break
		}

		for _, post := range listing.Data {
			if post.PublishDate == 0 {
				continue
			}
			if !domain.SameDate(time.Unix(post.PublishDate, 0), target) {
				continue
			}
			if IsDedicatedCPM(post.Title) {
				continue
			}
			if !brand.SkipTagFilter && !IsNewsletterTagged(post.ContentTags) {
				continue
			}

			matched = append(matched, post)
			totalRecipients += post.Stats.Email.Recipients
		}

		if page >= listing.TotalPages {
			break
		}
	}

	return matched, totalRecipients, nil
}

func buildRecord(post Post, brand string, previousRecipients int64) domain.MetricRecord {
	stats := post.Stats.Email
	sends := stats.Recipients

	return domain.MetricRecord{
		Date:         domain.DateOnly(time.Unix(post.PublishDate, 0)),
		Brand:        brand,
		Platform:     domain.PlatformBeehiiv,
		CampaignType: domain.CampaignNewsletter,

		Sends:          sends,
		DeliveredRate:  domain.Rate(stats.Delivered, sends),
		Opens:          stats.Opens,
		OpenRate:       domain.Rate(stats.Opens, sends),
		UniqueOpens:    stats.UniqueOpens,
		UniqueOpenRate: domain.Rate(stats.UniqueOpens, sends),
		Clicks:         stats.Clicks,
		CTR:            domain.Rate(stats.Clicks, sends),
		UniqueClicks:   stats.UniqueClicks,
		UCTR:           domain.Rate(stats.UniqueClicks, sends),

		ListSize:   sends,
		ListGrowth: domain.ListGrowthFrom(sends, previousRecipients),

		Unsubscribes:    stats.Unsubscribes,
		UnsubscribeRate: domain.UnsubRateFraction(stats.Unsubscribes, sends),
		SpamReports:     stats.SpamReports,
	}
}
