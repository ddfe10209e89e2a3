package tinyemail

import (
	"fmt"
	"strings"
	"time"

	"github.com/ignite/newsletter-metrics/internal/domain"
)

// Classify assigns a campaign name to the AM or PM segment from its naming
// patterns. PM markers are checked before the Daily Digest default: "Daily
// Digest PM 1.5.25" contains "Daily Digest" and would land in AM otherwise.
// Dedicated CPM sends count as PM. Names matching neither pattern (test
// sends, one-offs) are excluded.
func Classify(name string) (domain.CampaignType, bool) {
	isDailyDigestPM := strings.Contains(name, "Daily Digest PM") ||
		(strings.Contains(name, " PM ") && strings.Contains(name, "Daily Digest") && !strings.Contains(name, "CPM"))

	isDedicatedCPM := strings.Contains(name, "Dedicated CPM") ||
		(strings.Contains(name, "CPM") && !strings.Contains(name, "Daily Digest"))

	switch {
	case isDailyDigestPM || isDedicatedCPM:
		return domain.CampaignPM, true
	case strings.Contains(name, "Daily Digest"):
		return domain.CampaignAM, true
	default:
		return "", false
	}
}

// BaselineSegment buckets a previous-day campaign into AM or PM for the
// list-growth baseline. The baseline net is wider than Classify: it also
// catches " PM-" and "_PM" suffixes and has no AM naming requirement, so
// every qualifying send contributes to one bucket.
func BaselineSegment(name string) domain.CampaignType {
	isPM := strings.Contains(name, "Daily Digest PM") ||
		strings.Contains(name, "Dedicated CPM") ||
		(strings.Contains(name, " PM ") && strings.Contains(name, "Daily Digest") && !strings.Contains(name, "CPM")) ||
		strings.Contains(name, " PM-") ||
		strings.Contains(name, "_PM")

	if isPM {
		return domain.CampaignPM
	}
	return domain.CampaignAM
}

// dateStrings renders the date formats campaign names carry. Both
// zero-padded and unpadded month/day variants appear in the wild.
func dateStrings(target time.Time) []string {
	return []string{
		target.Format("01.02.06"),   // 01.05.25
		target.Format("01.02.2006"), // 01.05.2025
		fmt.Sprintf("%d.%d.%s", target.Month(), target.Day(), target.Format("06")), // 1.5.25
		target.Format("2006-01-02"), // 2025-01-05
	}
}

// MatchesDate reports whether the campaign name carries the target date.
// The listing endpoint exposes no structured send date, so this is substring
// matching against the rendered formats. Unpadded short dates can match
// inside longer ones ("1.5.25" inside "11.5.25"); see the classifier tests.
func MatchesDate(name string, target time.Time) bool {
	for _, ds := range dateStrings(target) {
		if strings.Contains(name, ds) {
			return true
		}
	}
	return false
}
