// Package ingestion provides the one concrete checkpoint-streaming
// transport this repository ships: a polling HTTP client over
// REMOTE_STORE_URL. The real checkpoint transport is treated as an
// out-of-scope external collaborator; this is deliberately thin but
// real enough to drive the pipeline end-to-end.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/suicapindexer/indexer/internal/chain"
)

// HTTPSource polls REMOTE_STORE_URL/checkpoints/{seq}.json for
// sequentially increasing checkpoints. It satisfies pipeline.Source;
// the real checkpoint-streaming transport this indexer would run
// against in production is treated as an external collaborator outside
// this repository's scope.
type HTTPSource struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// PollInterval is how long to wait before re-checking for the next
	// checkpoint after a 404 (not-yet-produced) response.
	PollInterval time.Duration

	// MaxFetchRetries bounds the backoff applied to a transient fetch
	// failure (connection refused, 5xx) before it is reported on the
	// error channel as fatal.
	MaxFetchRetries uint
}

func (s HTTPSource) withDefaults() HTTPSource {
	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.PollInterval == 0 {
		s.PollInterval = 2 * time.Second
	}
	if s.MaxFetchRetries == 0 {
		s.MaxFetchRetries = 5
	}
	return s
}

// Checkpoints implements pipeline.Source: it streams checkpoints
// starting at fromSeq, polling forward by one sequence number at a time
// until ctx is canceled.
func (s HTTPSource) Checkpoints(ctx context.Context, fromSeq uint64) (<-chan *chain.Checkpoint, <-chan error) {
	s = s.withDefaults()
	out := make(chan *chain.Checkpoint)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		seq := fromSeq
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			ckpt, err := s.fetchWithRetry(ctx, seq)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errs <- fmt.Errorf("fetch checkpoint %d: %w", seq, err)
				return
			}
			if ckpt == nil {
				// Not yet produced; wait and retry the same sequence number.
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.PollInterval):
				}
				continue
			}

			select {
			case out <- ckpt:
			case <-ctx.Done():
				return
			}
			seq++
		}
	}()

	return out, errs
}

// fetchWithRetry fetches one checkpoint, retrying transient failures
// with bounded exponential backoff. A 404 response is not an error: it
// means the checkpoint hasn't been produced yet, and fetch returns
// (nil, nil) so the caller polls again.
func (s HTTPSource) fetchWithRetry(ctx context.Context, seq uint64) (*chain.Checkpoint, error) {
	reqID := uuid.NewString()
	log := s.Logger.With("request_id", reqID, "sequence_number", seq)

	return backoff.Retry(ctx, func() (*chain.Checkpoint, error) {
		ckpt, notReady, err := s.fetchOnce(ctx, seq)
		if err != nil {
			log.Warn("checkpoint fetch failed, retrying", "error", err)
			return nil, err
		}
		if notReady {
			return nil, nil
		}
		return ckpt, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(s.MaxFetchRetries))
}

func (s HTTPSource) fetchOnce(ctx context.Context, seq uint64) (ckpt *chain.Checkpoint, notReady bool, err error) {
	url := fmt.Sprintf("%s/checkpoints/%d.json", strings.TrimSuffix(s.BaseURL, "/"), seq)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var wire checkpointWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, false, fmt.Errorf("decode checkpoint json: %w", err)
	}

	ckpt, err = decodeWire(wire)
	if err != nil {
		return nil, false, fmt.Errorf("decode checkpoint wire: %w", err)
	}
	return ckpt, false, nil
}
