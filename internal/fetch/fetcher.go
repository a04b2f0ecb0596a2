package fetch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"chanmine/internal/telegram"
)

// DefaultPageSize is the number of messages requested per history page.
const DefaultPageSize = 100

// HistoryClient is the slice of the platform client the fetcher needs.
type HistoryClient interface {
	History(ctx context.Context, entity *telegram.Entity, offsetID, limit int) ([]telegram.RawMessage, error)
}

// Progress receives advisory progress events during a channel fetch.
// estTotal is the id of the newest message seen so far, which approximates
// the channel's total history size; it is never used for correctness.
type Progress interface {
	Advance(n, estTotal int)
	Retry(err error, wait time.Duration)
	Done()
}

// NopProgress discards all progress events.
type NopProgress struct{}

func (NopProgress) Advance(n, estTotal int)             {}
func (NopProgress) Retry(err error, wait time.Duration) {}
func (NopProgress) Done()                               {}

// RetryPolicy controls how history-request failures are handled.
// MaxRetries 0 retries forever, trading liveness for completeness: a
// persistently failing channel blocks its run rather than producing a
// partial corpus.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Options configures a Fetcher. Zero values fall back to defaults
// (page size 100, one request per second, 5s retry backoff, retry forever).
type Options struct {
	PageSize  int
	PageDelay time.Duration
	Retry     RetryPolicy
	Progress  Progress
}

// Result summarizes one channel fetch.
type Result struct {
	Messages int // raw messages yielded, including textless ones
	Retries  int // failed requests that were retried
	LeadID   int // newest message id seen; 0 for an empty channel
}

// Fetcher walks a channel's full history backward through the paginated
// history API, yielding every message exactly once.
type Fetcher struct {
	client   HistoryClient
	pageSize int
	limiter  *rate.Limiter
	retry    RetryPolicy
	progress Progress
}

// New builds a Fetcher around the given history client.
func New(client HistoryClient, opts Options) *Fetcher {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	limit := rate.Inf
	if opts.PageDelay > 0 {
		limit = rate.Every(opts.PageDelay)
	}

	retry := opts.Retry
	if retry.Backoff <= 0 {
		retry.Backoff = 5 * time.Second
	}

	progress := opts.Progress
	if progress == nil {
		progress = NopProgress{}
	}

	return &Fetcher{
		client:   client,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(limit, 1),
		retry:    retry,
		progress: progress,
	}
}

// FetchAll fetches the channel's complete history and passes each page,
// newest first, to handle. The cursor starts at the newest message and
// advances to the oldest id of each page; an empty page is the sole
// termination condition. A failed request never advances the cursor: it is
// retried after the backoff interval, indefinitely unless the retry policy
// caps attempts. An error from handle aborts the fetch.
func (f *Fetcher) FetchAll(ctx context.Context, entity *telegram.Entity, handle func(page []telegram.RawMessage) error) (Result, error) {
	defer f.progress.Done()

	var res Result
	offsetID := 0
	attempts := 0

	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return res, err
		}

		page, err := f.client.History(ctx, entity, offsetID, f.pageSize)
		if err != nil {
			attempts++
			res.Retries++
			if f.retry.MaxRetries > 0 && attempts > f.retry.MaxRetries {
				return res, fmt.Errorf("history request for %s failed after %d retries: %w",
					entity.Username, f.retry.MaxRetries, err)
			}
			f.progress.Retry(err, f.retry.Backoff)
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(f.retry.Backoff):
			}
			continue
		}
		attempts = 0

		if len(page) == 0 {
			return res, nil
		}

		if page[0].ID > res.LeadID {
			res.LeadID = page[0].ID
		}

		if err := handle(page); err != nil {
			return res, err
		}

		res.Messages += len(page)
		offsetID = page[len(page)-1].ID
		f.progress.Advance(len(page), res.LeadID)
	}
}
