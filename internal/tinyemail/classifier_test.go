package tinyemail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/newsletter-metrics/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		want    domain.CampaignType
		matched bool
	}{
		{"Daily Digest 1.5.25", domain.CampaignAM, true},
		{"Daily Digest AM 1.5.25", domain.CampaignAM, true},
		{"Daily Digest PM 1.5.25", domain.CampaignPM, true},
		{"Daily Digest PM", domain.CampaignPM, true},
		// " PM " marker inside a Daily Digest name without CPM
		{"Daily Digest - PM edition 1.5.25", domain.CampaignPM, true},
		{"Dedicated CPM Gold Offer 1.5.25", domain.CampaignPM, true},
		// CPM without Daily Digest is a dedicated send
		{"Gold Offer CPM 1.5.25", domain.CampaignPM, true},
		// neither pattern: excluded entirely
		{"Weekly Roundup 1.5.25", "", false},
		{"Test send", "", false},
	}

	for _, tt := range tests {
		got, ok := Classify(tt.name)
		assert.Equal(t, tt.matched, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestBaselineSegmentWiderThanClassify(t *testing.T) {
	// The baseline bucketing catches suffix variants Classify ignores and
	// defaults everything else to AM so all volume lands in a bucket.
	assert.Equal(t, domain.CampaignPM, BaselineSegment("Conservatives Daily PM-Special 1.4.25"))
	assert.Equal(t, domain.CampaignPM, BaselineSegment("CD_PM blast 1.4.25"))
	assert.Equal(t, domain.CampaignPM, BaselineSegment("Dedicated CPM Gold 1.4.25"))
	assert.Equal(t, domain.CampaignPM, BaselineSegment("Daily Digest PM 1.4.25"))
	assert.Equal(t, domain.CampaignAM, BaselineSegment("Daily Digest 1.4.25"))
	assert.Equal(t, domain.CampaignAM, BaselineSegment("Weekly Roundup 1.4.25"))
}

func TestMatchesDate(t *testing.T) {
	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	oct15 := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, MatchesDate("Daily Digest 01.05.25", jan5))
	assert.True(t, MatchesDate("Daily Digest 01.05.2025", jan5))
	assert.True(t, MatchesDate("Daily Digest 1.5.25", jan5))
	assert.True(t, MatchesDate("Daily Digest 2025-01-05", jan5))
	assert.True(t, MatchesDate("Daily Digest 10.15.25", oct15))

	assert.False(t, MatchesDate("Daily Digest 1.6.25", jan5))
	assert.False(t, MatchesDate("Daily Digest", jan5))
}

func TestMatchesDateKnownFalsePositive(t *testing.T) {
	// The unpadded short format matches as a substring inside longer dates:
	// "1.5.25" sits inside "11.5.25". Pinned here so a move to structured
	// send dates has a regression anchor.
	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.True(t, MatchesDate("Daily Digest 11.5.25", jan5))
}
