package beehiiv

import "strings"

// newsletterTagVariants are the tag spellings editors have used across
// publications. Matching is case-insensitive substring matching, so
// "Daily Newsletter 2.0" still counts.
var newsletterTagVariants = []string{
	"newsletter",
	"news-letter",
	"news_letter",
	"daily newsletter",
	"daily-newsletter",
	"daily_newsletter",
}

// IsNewsletterTagged reports whether any content tag marks the post as a
// newsletter issue.
func IsNewsletterTagged(tags []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, variant := range newsletterTagVariants {
			if strings.Contains(lower, variant) {
				return true
			}
		}
	}
	return false
}

// IsDedicatedCPM reports whether the post is a paid dedicated send. These
// are excluded from newsletter metrics on every brand, tagged or not.
func IsDedicatedCPM(title string) bool {
	return strings.Contains(title, "Dedicated CPM")
}
