package ingest

import (
	"context"
	"log"

	"github.com/ignite/newsletter-metrics/internal/beehiiv"
	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/tinyemail"
)

// BuildCollectors wires one collector per configured TinyEmail account and
// Beehiiv group. A Beehiiv group whose publication catalog cannot be loaded
// is skipped so the other vendors still run.
func BuildCollectors(ctx context.Context, cfg *config.Config) []NamedCollector {
	var collectors []NamedCollector

	for _, acct := range cfg.TinyEmail.Accounts {
		client := tinyemail.NewClient(cfg.TinyEmail, acct.APIKey)
		collectors = append(collectors, NamedCollector{
			Name:      "tinyemail/" + acct.Code,
			Collector: tinyemail.NewCollector(client, acct),
		})
	}

	for _, group := range cfg.Beehiiv.Groups {
		client := beehiiv.NewClient(cfg.Beehiiv, group.APIKey)
		collector, err := beehiiv.NewCollector(ctx, client, group)
		if err != nil {
			log.Printf("Skipping beehiiv group %s: %v", group.Name, err)
			continue
		}
		collectors = append(collectors, NamedCollector{
			Name:      "beehiiv/" + group.Name,
			Collector: collector,
		})
	}

	return collectors
}
