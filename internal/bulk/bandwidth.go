package bulk

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// burstMultiplier controls the token bucket burst relative to the per-second
// rate. A 2x burst lets short savings be spent on the next read without
// reducing sustained throughput below the configured limit.
const burstMultiplier = 2

// bandwidthLimiter caps aggregate copy throughput across all workers.
// A nil *bandwidthLimiter means unlimited; all methods are nil-safe.
type bandwidthLimiter struct {
	limiter *rate.Limiter
}

// newBandwidthLimiter parses a "50MB/s"-style limit. Returns nil for "0",
// empty, or unset (unlimited).
func newBandwidthLimiter(limit string) (*bandwidthLimiter, error) {
	bytesPerSec, err := parseBandwidthRate(limit)
	if err != nil {
		return nil, err
	}

	if bytesPerSec == 0 {
		return nil, nil //nolint:nilnil // nil limiter = unlimited; methods are nil-safe
	}

	return &bandwidthLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec)*burstMultiplier),
	}, nil
}

// parseBandwidthRate parses "5MB/s", "100KiB/s", "0" into bytes/sec.
func parseBandwidthRate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	normalized := strings.TrimSuffix(strings.TrimSuffix(s, "/s"), "/S")

	n, err := humanize.ParseBytes(normalized)
	if err != nil {
		return 0, fmt.Errorf("parse bandwidth limit %q: %w", s, err)
	}

	return int64(n), nil
}

// reader wraps r so reads consume limiter tokens. Nil-safe passthrough.
func (b *bandwidthLimiter) reader(r io.Reader) io.Reader {
	if b == nil {
		return r
	}

	return &limitedReader{r: r, limiter: b.limiter}
}

type limitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	// WaitN rejects requests larger than the burst; clamp the read so a
	// large caller buffer still flows, just in smaller slices.
	if burst := lr.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := lr.r.Read(p)
	if n > 0 {
		if werr := lr.limiter.WaitN(context.Background(), n); werr != nil {
			return n, werr
		}
	}

	return n, err
}
