package beehiiv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/domain"
)

var (
	testTarget    = time.Date(2025, 1, 5, 0, 0, 0, 0, time.Local)
	targetStamp   = time.Date(2025, 1, 5, 12, 0, 0, 0, time.Local).Unix()
	dayBeforeStamp = time.Date(2025, 1, 4, 12, 0, 0, 0, time.Local).Unix()
)

func post(title string, publishDate int64, tags []string, recipients int64) Post {
	return Post{
		Title:       title,
		PublishDate: publishDate,
		ContentTags: tags,
		Stats: PostStats{Email: EmailStats{
			Recipients:   recipients,
			Delivered:    recipients - recipients/20,
			Opens:        recipients / 2,
			UniqueOpens:  recipients / 3,
			Clicks:       recipients / 20,
			UniqueClicks: recipients / 25,
			Unsubscribes: recipients / 1000,
			SpamReports:  1,
		}},
	}
}

func newTestCollector(t *testing.T, group config.BeehiivGroup, handler http.Handler) *Collector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(config.BeehiivConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, group.APIKey)
	collector, err := NewCollector(context.Background(), client, group)
	require.NoError(t, err)
	return collector
}

func catalogHandler(t *testing.T, pubs []Publication, posts func(w http.ResponseWriter, r *http.Request)) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/publications", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(publicationsResponse{Data: pubs}))
	})
	mux.HandleFunc("/publications/", posts)
	return mux
}

func writePosts(t *testing.T, w http.ResponseWriter, page PostsPage) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(page))
}

func TestCollectTaggedBrand(t *testing.T) {
	group := config.BeehiivGroup{
		Name:   "group1",
		APIKey: "bee-key",
		Brands: []config.BeehiivBrand{{Name: "Americans Daily Digest"}},
	}

	handler := catalogHandler(t,
		[]Publication{{ID: "pub-1", Name: "Americans Daily Digest"}},
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer bee-key", r.Header.Get("Authorization"))
			assert.Equal(t, "confirmed", r.URL.Query().Get("status"))
			assert.Equal(t, "stats", r.URL.Query().Get("expand"))
			writePosts(t, w, PostsPage{
				TotalPages: 1,
				Data: []Post{
					post("Morning Brief 1/5", targetStamp, []string{"Newsletter"}, 200000),
					post("Off-topic promo 1/5", targetStamp, []string{"promo"}, 40000),
					post("Dedicated CPM Gold 1/5", targetStamp, []string{"newsletter"}, 30000),
					post("Morning Brief 1/4", dayBeforeStamp, []string{"newsletter"}, 195000),
				},
			})
		})

	collector := newTestCollector(t, group, handler)
	records, status, err := collector.Collect(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchFound, status)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Americans Daily Digest", rec.Brand)
	assert.Equal(t, domain.PlatformBeehiiv, rec.Platform)
	assert.Equal(t, domain.CampaignNewsletter, rec.CampaignType)
	assert.True(t, domain.SameDate(rec.Date, testTarget))
	assert.Equal(t, int64(200000), rec.Sends)
	assert.Equal(t, 95.0, rec.DeliveredRate)
	assert.Equal(t, 50.0, rec.OpenRate)
	// Unsubscribe rate stays a raw fraction on this platform.
	assert.Equal(t, 0.001, rec.UnsubscribeRate)
	// Growth against the previous day's 195,000-recipient issue.
	assert.Equal(t, int64(5000), rec.ListGrowth)
}

func TestCollectNoTagBrandSkipsOnlyCPM(t *testing.T) {
	group := config.BeehiivGroup{
		Name:   "group2",
		APIKey: "bee-key",
		Brands: []config.BeehiivBrand{{Name: "News Flash", SkipTagFilter: true}},
	}

	handler := catalogHandler(t,
		[]Publication{{ID: "pub-2", Name: "News Flash"}},
		func(w http.ResponseWriter, r *http.Request) {
			writePosts(t, w, PostsPage{
				TotalPages: 1,
				Data: []Post{
					post("Flash Update 1/5", targetStamp, nil, 80000),
					post("Dedicated CPM Special 1/5", targetStamp, nil, 25000),
				},
			})
		})

	collector := newTestCollector(t, group, handler)
	records, status, err := collector.Collect(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchFound, status)
	require.Len(t, records, 1)
	assert.Equal(t, "News Flash", records[0].Brand)
	// No prior-day issue: growth equals the full recipient count.
	assert.Equal(t, int64(80000), records[0].ListGrowth)
}

func TestCollectBrandMissingFromCatalog(t *testing.T) {
	group := config.BeehiivGroup{
		Name:   "group1",
		APIKey: "bee-key",
		Brands: []config.BeehiivBrand{{Name: "Unknown Brand"}},
	}

	handler := catalogHandler(t,
		[]Publication{{ID: "pub-1", Name: "Americans Daily Digest"}},
		func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("posts endpoint must not be called for an unknown brand")
		})

	collector := newTestCollector(t, group, handler)
	records, status, err := collector.Collect(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Empty(t, records)
	// A catalog miss is a config problem, not a day without posts.
	assert.Equal(t, domain.SearchNotFound, status)
}

func TestCollectPartialCatalogMissIsNotNotFound(t *testing.T) {
	group := config.BeehiivGroup{
		Name:   "group1",
		APIKey: "bee-key",
		Brands: []config.BeehiivBrand{
			{Name: "Unknown Brand"},
			{Name: "Americans Daily Digest"},
		},
	}

	// The resolved brand has no posts for the date: the group searched and
	// found nothing, so the partial catalog miss stays SearchEmpty.
	handler := catalogHandler(t,
		[]Publication{{ID: "pub-1", Name: "Americans Daily Digest"}},
		func(w http.ResponseWriter, r *http.Request) {
			writePosts(t, w, PostsPage{TotalPages: 1, Data: nil})
		})

	collector := newTestCollector(t, group, handler)
	records, status, err := collector.Collect(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, domain.SearchEmpty, status)
}

func TestCollectClientErrorEndsWalkQuietly(t *testing.T) {
	group := config.BeehiivGroup{
		Name:   "group1",
		APIKey: "bee-key",
		Brands: []config.BeehiivBrand{{Name: "Americans Daily Digest"}},
	}

	handler := catalogHandler(t,
		[]Publication{{ID: "pub-1", Name: "Americans Daily Digest"}},
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

	collector := newTestCollector(t, group, handler)
	records, status, err := collector.Collect(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, domain.SearchEmpty, status)
}

func TestCollectFindsPostDeepInListing(t *testing.T) {
	group := config.BeehiivGroup{
		Name:   "group1",
		APIKey: "bee-key",
		Brands: []config.BeehiivBrand{{Name: "Republicans Report"}},
	}

	// Creation order, not publish order: the target issue is on page 2.
	handler := catalogHandler(t,
		[]Publication{{ID: "pub-3", Name: "Republicans Report"}},
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("page") {
			case "1":
				writePosts(t, w, PostsPage{
					TotalPages: 2,
					Data: []Post{
						post("Old Issue", time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local).Unix(), []string{"newsletter"}, 120000),
					},
				})
			case "2":
				writePosts(t, w, PostsPage{
					TotalPages: 2,
					Data: []Post{
						post("Evening Report 1/5", targetStamp, []string{"newsletter"}, 150000),
					},
				})
			default:
				t.Fatalf("unexpected page %q", r.URL.Query().Get("page"))
			}
		})

	collector := newTestCollector(t, group, handler)
	records, status, err := collector.Collect(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchFound, status)
	require.Len(t, records, 1)
	assert.Equal(t, int64(150000), records[0].Sends)
}

func TestNewCollectorCatalogFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(config.BeehiivConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, "bad")
	_, err := NewCollector(context.Background(), client, config.BeehiivGroup{Name: "group1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group1")
}
