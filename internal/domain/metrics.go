// Package domain holds the canonical newsletter metrics model shared by the
// vendor collectors, the persistence layer, and the report exporter.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Platform identifies the source email platform of a metric record.
type Platform string

const (
	PlatformTinyEmail Platform = "TinyEmail"
	PlatformBeehiiv   Platform = "Beehiiv"
)

// CampaignType is the semantic segment of a brand's send for a day.
type CampaignType string

const (
	CampaignAM         CampaignType = "AM"
	CampaignPM         CampaignType = "PM"
	CampaignNewsletter CampaignType = "Newsletter"
)

// MetricRecord is the canonical, platform-neutral representation of one
// brand/segment/day's newsletter performance. Rates are percentages computed
// against Sends; ListSize equals Sends because neither platform exposes the
// subscriber count at send time.
type MetricRecord struct {
	Date         time.Time    `json:"date"`
	Brand        string       `json:"brand"`
	Platform     Platform     `json:"platform"`
	CampaignType CampaignType `json:"campaign_type"`

	Sends          int64   `json:"sends"`
	DeliveredRate  float64 `json:"delivered_rate"`
	Opens          int64   `json:"opens"`
	OpenRate       float64 `json:"open_rate"`
	UniqueOpens    int64   `json:"unique_opens"`
	UniqueOpenRate float64 `json:"unique_open_rate"`
	Clicks         int64   `json:"clicks"`
	CTR            float64 `json:"ctr"`
	UniqueClicks   int64   `json:"unique_clicks"`
	UCTR           float64 `json:"uctr"`

	ListSize   int64 `json:"brand_list_size"`
	ListGrowth int64 `json:"list_growth"`

	Unsubscribes    int64   `json:"unsubscribes"`
	UnsubscribeRate float64 `json:"unsubscribe_rate"`
	SpamReports     int64   `json:"spam_reports"`
}

// Key returns the natural key (date, brand, campaign_type) that uniquely
// identifies a record. Persistence upserts on this key.
func (r MetricRecord) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.Date.Format("2006-01-02"), r.Brand, r.CampaignType)
}

// Rate returns numerator/sends as a percentage rounded to 2 decimal places.
// Defined as 0 when sends is 0. Rates are not capped at 100: vendors report
// total opens/clicks that can exceed sends.
func Rate(numerator, sends int64) float64 {
	if sends == 0 {
		return 0
	}
	return Round2(float64(numerator) / float64(sends) * 100)
}

// UnsubRatePercent is the TinyEmail-style unsubscribe rate: a percentage
// rounded to 4 decimal places. The two platforms have always reported
// unsubscribe rates on different scales and downstream sheets depend on it,
// so the asymmetry is preserved rather than reconciled.
func UnsubRatePercent(unsubscribes, sends int64) float64 {
	if sends == 0 {
		return 0
	}
	return Round4(float64(unsubscribes) / float64(sends) * 100)
}

// UnsubRateFraction is the Beehiiv-style unsubscribe rate: a raw fraction
// (unscaled) rounded to 4 decimal places, 0 when sends is 0. See
// UnsubRatePercent.
func UnsubRateFraction(unsubscribes, sends int64) float64 {
	if sends == 0 {
		return 0
	}
	return Round4(float64(unsubscribes) / float64(sends))
}

// ListGrowthFrom computes day-over-day list growth: current send volume minus
// the previous calendar day's aggregate for the same brand+segment. When no
// prior-day data exists the baseline is 0 and growth equals the full current
// count.
func ListGrowthFrom(currentSends, previousSends int64) int64 {
	return currentSends - previousSends
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 rounds to 4 decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// DateOnly truncates t to its calendar date in t's location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether two times fall on the same calendar date in their
// respective locations.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
