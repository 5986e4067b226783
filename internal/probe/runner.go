package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/skillswap/pkg/logger"
)

// Run checks service health, optionally submits generated listing events,
// then walks both search channels page by page and verifies them.
// Transport failures are returned as errors; pagination violations are
// reported in Report.Inconsistency and also returned wrapped in
// ErrInconsistent.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("probe")
	report := &Report{StartTime: time.Now()}

	log.Info(ctx, "starting probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("filter", cfg.Filter.Encode()),
		logger.Int("pageSize", cfg.PageSize),
		logger.Int("events", cfg.Events),
	)

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return report, err
	}

	if cfg.Events > 0 {
		report.Events = submitEvents(ctx, cfg, GenerateEvents(cfg.Events, cfg.Skills))
	}

	skills, listings, requests, err := walk(ctx, client, cfg)
	report.Requests = requests
	if err != nil {
		return report, err
	}
	for _, p := range skills {
		report.SkillItems += len(p.Items)
	}
	for _, p := range listings {
		report.ListingItems += len(p.Items)
	}
	report.SkillTotal = skills[0].TotalCount
	report.ListingTotal = listings[0].TotalCount
	report.Duration = time.Since(report.StartTime)

	report.Inconsistency = errors.Join(
		VerifyChannel("skills", skills, cfg.PageSize),
		VerifyChannel("listings", listings, cfg.PageSize),
	)

	log.Info(ctx, "probe finished",
		logger.Int("requests", report.Requests),
		logger.Int("skills", report.SkillItems),
		logger.Int("listings", report.ListingItems),
		logger.Duration("duration", report.Duration),
		logger.Bool("consistent", report.Inconsistency == nil),
	)
	if report.Inconsistency != nil {
		return report, report.Inconsistency
	}
	return report, nil
}

// walk requests pages until neither channel has more. A channel's pages are
// kept up to its last one; later requests only serve the other channel.
func walk(ctx context.Context, client *HTTPClient, cfg Config) (skills, listings []Page, requests int, err error) {
	log := logger.Get().Named("probe")
	skillsDone, listingsDone := false, false
	for page := 1; !skillsDone || !listingsDone; page++ {
		if page > maxPages {
			return nil, nil, requests, fmt.Errorf("%w: still paging after %d pages", ErrInconsistent, maxPages)
		}
		resp, err := fetchSearch(ctx, client, cfg.BaseURL, cfg.Filter, page, cfg.PageSize)
		requests++
		if err != nil {
			return nil, nil, requests, err
		}
		if cfg.Verbose {
			log.Debug(ctx, "fetched page",
				logger.Int("page", page),
				logger.Int("skills", len(resp.Skills.Items)),
				logger.Int("listings", len(resp.Listings.Items)),
			)
		}
		if !skillsDone {
			skills = append(skills, resp.Skills)
			skillsDone = !resp.Skills.HasMore
		}
		if !listingsDone {
			listings = append(listings, resp.Listings)
			listingsDone = !resp.Listings.HasMore
		}
	}
	return skills, listings, requests, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient, base string) error {
	resp, err := client.Get(ctx, base+"/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}
