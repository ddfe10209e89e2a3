package tinyemail

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/domain"
)

// Collector turns one brand account's campaign listing into canonical metric
// records for a target date.
type Collector struct {
	client *Client
	code   string
	brand  string
}

// NewCollector creates a collector for the given account.
func NewCollector(client *Client, acct config.TinyEmailAccount) *Collector {
	return &Collector{
		client: client,
		code:   acct.Code,
		brand:  acct.Brand,
	}
}

// Collect gathers the target date's qualifying campaigns and emits one record
// per campaign. The previous calendar day is searched as well, aggregate
// sends only, to seed the list-growth baseline. Zero qualifying campaigns
// for a segment is a normal outcome, not an error.
func (c *Collector) Collect(ctx context.Context, target time.Time) ([]domain.MetricRecord, domain.SearchStatus, error) {
	target = domain.DateOnly(target)
	dayBefore := target.AddDate(0, 0, -1)

	campaigns, searchErr := c.campaignsForDate(ctx, target)
	log.Printf("tinyemail %s: found %d campaign(s) for %s", c.code, len(campaigns), target.Format("2006-01-02"))

	previous, prevErr := c.campaignsForDate(ctx, dayBefore)
	if prevErr != nil {
		log.Printf("tinyemail %s: baseline search error for %s: %v", c.code, dayBefore.Format("2006-01-02"), prevErr)
	}
	previousSends := previousSendsBySegment(previous)

	var records []domain.MetricRecord
	for _, item := range campaigns {
		if !item.Qualifies() {
			continue
		}
		segment, ok := Classify(item.Campaign.Name)
		if !ok {
			continue
		}
		records = append(records, c.buildRecord(item, segment, target, previousSends[segment]))
	}

	status := domain.SearchFound
	switch {
	case searchErr != nil:
		status = domain.SearchError
	case len(records) == 0:
		status = domain.SearchEmpty
	}
	return records, status, searchErr
}

// campaignsForDate walks the listing pages collecting name-matched campaigns.
// The listing is not date-ordered, so every page up to the last-page flag (or
// the cap) is scanned. A failed page returns the campaigns accumulated so
// far alongside the error; a client-status response simply ends the walk.
func (c *Collector) campaignsForDate(ctx context.Context, target time.Time) ([]CampaignItem, error) {
	var found []CampaignItem

	for page := 0; page < MaxPages; page++ {
		listing, err := c.client.ListCampaigns(ctx, page)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
				log.Printf("tinyemail %s: listing ended with status %d on page %d", c.code, apiErr.StatusCode, page)
				return found, nil
			}
			return found, err
		}

		for _, item := range listing.Content {
			if MatchesDate(item.Campaign.Name, target) {
				found = append(found, item)
			}
		}

		if listing.Last || len(listing.Content) == 0 {
			break
		}
	}

	return found, nil
}

// previousSendsBySegment sums the previous day's qualifying send volumes per
// segment. Multiple campaigns in one segment accumulate.
func previousSendsBySegment(campaigns []CampaignItem) map[domain.CampaignType]int64 {
	sends := make(map[domain.CampaignType]int64)
	for _, item := range campaigns {
		if !item.Qualifies() {
			continue
		}
		sends[BaselineSegment(item.Campaign.Name)] += item.Sent
	}
	return sends
}

func (c *Collector) buildRecord(item CampaignItem, segment domain.CampaignType, target time.Time, prevSends int64) domain.MetricRecord {
	rec := domain.MetricRecord{
		Date:         target,
		Brand:        c.brand + " " + string(segment),
		Platform:     domain.PlatformTinyEmail,
		CampaignType: segment,

		Sends:          item.Sent,
		DeliveredRate:  domain.Rate(item.Delivered, item.Sent),
		Opens:          item.TotalOpen,
		OpenRate:       domain.Rate(item.TotalOpen, item.Sent),
		UniqueOpens:    item.Open,
		UniqueOpenRate: domain.Rate(item.Open, item.Sent),
		Clicks:         item.TotalClicked,
		CTR:            domain.Rate(item.TotalClicked, item.Sent),
		UniqueClicks:   item.Clicked,
		UCTR:           domain.Rate(item.Clicked, item.Sent),

		ListSize:   item.Sent,
		ListGrowth: domain.ListGrowthFrom(item.Sent, prevSends),

		Unsubscribes:    item.Unsubscribed,
		UnsubscribeRate: domain.UnsubRatePercent(item.Unsubscribed, item.Sent),
		SpamReports:     item.Spam,
	}

	log.Printf("tinyemail %s: %s %s: %d sends, %d opens, %d clicks",
		c.code, segment, truncateName(item.Campaign.Name), item.Sent, item.TotalOpen, item.TotalClicked)
	return rec
}

func truncateName(name string) string {
	if len(name) > 50 {
		return name[:50]
	}
	return name
}
