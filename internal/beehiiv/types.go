package beehiiv

// Publication is one entry of the workspace publication catalog.
type Publication struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type publicationsResponse struct {
	Data []Publication `json:"data"`
}

// Post is a published newsletter issue with expanded email stats.
// PublishDate is a Unix timestamp; zero means never published.
type Post struct {
	Title       string    `json:"title"`
	PublishDate int64     `json:"publish_date"`
	ContentTags []string  `json:"content_tags"`
	Stats       PostStats `json:"stats"`
}

// PostStats wraps the per-channel stat blocks; only email is used here.
type PostStats struct {
	Email EmailStats `json:"email"`
}

// EmailStats holds the email channel counters for a post.
type EmailStats struct {
	Recipients   int64 `json:"recipients"`
	Delivered    int64 `json:"delivered"`
	Opens        int64 `json:"opens"`
	UniqueOpens  int64 `json:"unique_opens"`
	Clicks       int64 `json:"clicks"`
	UniqueClicks int64 `json:"unique_clicks"`
	Unsubscribes int64 `json:"unsubscribes"`
	SpamReports  int64 `json:"spam_reports"`
}

// PostsPage is one page of a publication's post listing.
type PostsPage struct {
	Data       []Post `json:"data"`
	TotalPages int    `json:"total_pages"`
}
