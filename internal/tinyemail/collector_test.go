package tinyemail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/domain"
)

func testAccount() config.TinyEmailAccount {
	return config.TinyEmailAccount{Code: "CD", Brand: "Conservatives Daily", APIKey: "test-key"}
}

func newTestCollector(t *testing.T, handler http.Handler) (*Collector, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.TinyEmailConfig{BaseURL: srv.URL, TimeoutSeconds: 5}
	return NewCollector(NewClient(cfg, "test-key"), testAccount()), srv
}

func campaign(name, status string, sent, delivered, totalOpen, open, totalClicked, clicked, unsub, spam int64) CampaignItem {
	return CampaignItem{
		Campaign:     CampaignInfo{Name: name},
		Status:       status,
		Sent:         sent,
		Delivered:    delivered,
		TotalOpen:    totalOpen,
		Open:         open,
		TotalClicked: totalClicked,
		Clicked:      clicked,
		Unsubscribed: unsub,
		Spam:         spam,
	}
}

func writePage(t *testing.T, w http.ResponseWriter, items []CampaignItem, last bool) {
	t.Helper()
	resp := campaignListResponse{Campaigns: CampaignPage{Content: items, Last: last}}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestCollectBuildsRecords(t *testing.T) {
	target := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	// The listing is not date-ordered: the previous day's campaign sits on
	// page 0, the target date's campaigns on page 1.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		switch r.URL.Query().Get("page") {
		case "0":
			writePage(t, w, []CampaignItem{
				campaign("Weekly Roundup 12.20.24", "COMPLETED", 80000, 0, 0, 0, 0, 0, 0, 0),
				campaign("Daily Digest 1.4.25", "COMPLETED", 50000, 48000, 0, 0, 0, 0, 0, 0),
			}, false)
		case "1":
			writePage(t, w, []CampaignItem{
				campaign("Daily Digest 1.5.25", "COMPLETED", 100000, 95000, 40000, 30000, 5000, 4000, 120, 3),
				campaign("Daily Digest PM 1.5.25", "COMPLETED", 90000, 85000, 30000, 25000, 4000, 3500, 90, 1),
				campaign("Daily Digest 1.5.25 retest", "DRAFT", 100000, 0, 0, 0, 0, 0, 0, 0),
				campaign("Daily Digest 1.5.25 seed", "COMPLETED", 50, 50, 0, 0, 0, 0, 0, 0),
			}, true)
		default:
			writePage(t, w, nil, true)
		}
	})

	collector, _ := newTestCollector(t, handler)
	records, status, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchFound, status)
	require.Len(t, records, 2)

	am := records[0]
	assert.Equal(t, "Conservatives Daily AM", am.Brand)
	assert.Equal(t, domain.CampaignAM, am.CampaignType)
	assert.Equal(t, domain.PlatformTinyEmail, am.Platform)
	assert.Equal(t, target, am.Date)
	assert.Equal(t, int64(100000), am.Sends)
	assert.Equal(t, 95.0, am.DeliveredRate)
	assert.Equal(t, 40.0, am.OpenRate)
	assert.Equal(t, 30.0, am.UniqueOpenRate)
	assert.Equal(t, 5.0, am.CTR)
	assert.Equal(t, 4.0, am.UCTR)
	assert.Equal(t, 0.12, am.UnsubscribeRate)
	assert.Equal(t, int64(100000), am.ListSize)
	// Growth against the previous day's 50,000-send AM digest.
	assert.Equal(t, int64(50000), am.ListGrowth)

	pm := records[1]
	assert.Equal(t, "Conservatives Daily PM", pm.Brand)
	assert.Equal(t, domain.CampaignPM, pm.CampaignType)
	// No PM volume the day before: growth equals the full send count.
	assert.Equal(t, int64(90000), pm.ListGrowth)
}

func TestCollectEmptyDate(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, []CampaignItem{
			campaign("Daily Digest 3.9.25", "COMPLETED", 50000, 0, 0, 0, 0, 0, 0, 0),
		}, true)
	})

	collector, _ := newTestCollector(t, handler)
	records, status, err := collector.Collect(context.Background(), time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, domain.SearchEmpty, status)
}

func TestCollectStopsAtPageCap(t *testing.T) {
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		// Never signals last: the cap has to end the walk.
		writePage(t, w, []CampaignItem{
			campaign("Daily Digest 3.9.25", "COMPLETED", 50000, 0, 0, 0, 0, 0, 0, 0),
		}, false)
	})

	collector, _ := newTestCollector(t, handler)
	_, _, err := collector.Collect(context.Background(), time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	// Target-date walk plus baseline walk, capped pages each.
	assert.Equal(t, int32(2*MaxPages), atomic.LoadInt32(&requests))
}

func TestCollectClientErrorEndsWalkWithPartialResults(t *testing.T) {
	target := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "0" {
			writePage(t, w, []CampaignItem{
				campaign("Daily Digest 1.5.25", "COMPLETED", 100000, 95000, 40000, 30000, 5000, 4000, 120, 3),
			}, false)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})

	collector, _ := newTestCollector(t, handler)
	records, status, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchFound, status)
	require.Len(t, records, 1)
	assert.Equal(t, int64(100000), records[0].Sends)
}

func TestClientUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	client := NewClient(config.TinyEmailConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, "wrong")
	_, err := client.ListCampaigns(context.Background(), 0)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "status 401")
}
