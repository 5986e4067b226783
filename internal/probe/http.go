package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, rawURL string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// fetchSearch requests one page of both channels.
func fetchSearch(ctx context.Context, client *HTTPClient, base string, filter url.Values, page, limit int) (SearchResponse, error) {
	q := url.Values{}
	for k, v := range filter {
		q[k] = append([]string(nil), v...)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	resp, err := client.Get(ctx, base+"/search?"+q.Encode())
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search page %d: %w", page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("read page %d: %w", page, err)
	}
	if resp.StatusCode != http.StatusOK {
		return SearchResponse{}, fmt.Errorf("%w: page %d: %d %s", ErrUnexpectedStatus, page, resp.StatusCode, bytes.TrimSpace(body))
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return SearchResponse{}, fmt.Errorf("decode page %d: %w", page, err)
	}
	return out, nil
}

// submitEvents posts events concurrently using a worker pool.
func submitEvents(ctx context.Context, cfg Config, events []model.ListingEvent) EventStats {
	log := logger.Get().Named("probe")
	client := newHTTPClient(cfg.Timeout)
	target := cfg.BaseURL + "/listings/events"

	var submitted, accepted, duplicate, rejected, failed int64

	eventChan := make(chan model.ListingEvent, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range eventChan {
				atomic.AddInt64(&submitted, 1)
				switch submitSingleEvent(ctx, client, target, e) {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case outcomeRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, e := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- e:
			}
		}
	}()
	wg.Wait()

	stats := EventStats{
		Submitted: int(submitted),
		Accepted:  int(accepted),
		Duplicate: int(duplicate),
		Rejected:  int(rejected),
		Failed:    int(failed),
	}
	log.Info(ctx, "event submission completed",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)
	return stats
}

const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

func submitSingleEvent(ctx context.Context, client *HTTPClient, target string, e model.ListingEvent) string {
	resp, err := client.Post(ctx, target, e)
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		var ack AckResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeAccepted
	case http.StatusBadRequest:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
