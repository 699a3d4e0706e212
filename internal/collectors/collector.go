// Package collectors defines the shared contract every source collector
// (Slack, WhatsApp, Telegram, admin upload) uses to hand raw ingested items
// to the Ingestion Coordinator, plus the webhook-ack and signature-skew
// constants common to the web-facing collectors.
package collectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/finqa/ragqa/internal/ratelimit"
	"github.com/finqa/ragqa/pkg/models"
)

// AckBudget is the time a webhook handler has to acknowledge receipt before
// the calling platform considers the delivery failed. All heavy work
// (parsing, anonymization, embedding) happens after the handler returns.
const AckBudget = 3 * time.Second

// SignatureSkew is the maximum allowed difference between a webhook's
// claimed timestamp and wall-clock time.
const SignatureSkew = 5 * time.Minute

// ErrSignatureMissing, ErrSignatureMalformed, and ErrSignatureMismatch are
// the three ways webhook verification fails; all map to HTTP 401.
var (
	ErrSignatureMissing   = errors.New("collectors: signature missing")
	ErrSignatureMalformed = errors.New("collectors: signature malformed")
	ErrSignatureMismatch  = errors.New("collectors: signature mismatch")
	ErrTimestampSkew      = errors.New("collectors: timestamp outside allowed skew")
)

// Enqueuer is the Ingestion Coordinator's intake contract. Collectors never
// parse, chunk, anonymize, or embed; they build a raw Document and enqueue
// it for the coordinator to process.
type Enqueuer interface {
	Enqueue(ctx context.Context, doc *models.Document) error
}

// VerifyHMACSignature recomputes an HMAC-SHA256 signature over
// "v0:{timestamp}:{body}" and compares it to the provided hex-encoded
// signature in constant time. now is injected for testability.
func VerifyHMACSignature(secret []byte, timestamp, signature string, body []byte, now time.Time) error {
	if signature == "" || timestamp == "" {
		return ErrSignatureMissing
	}
	ts, err := parseUnixTimestamp(timestamp)
	if err != nil {
		return ErrSignatureMalformed
	}
	skew := now.Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > SignatureSkew {
		return ErrTimestampSkew
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func parseUnixTimestamp(s string) (time.Time, error) {
	var sec int64
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return time.Time{}, errors.New("not numeric")
		}
		n++
	}
	if n == 0 {
		return time.Time{}, errors.New("empty")
	}
	if _, err := parseInt(s, &sec); err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}

func parseInt(s string, out *int64) (int64, error) {
	var v int64
	for _, c := range s {
		v = v*10 + int64(c-'0')
	}
	*out = v
	return v, nil
}

// ErrRateLimited is returned by a RateLimitedEnqueuer when a source has
// exceeded its ingress budget.
var ErrRateLimited = errors.New("collectors: source ingress rate exceeded")

// RateLimitedEnqueuer wraps an Enqueuer with a per-source token bucket so a
// bursty or replaying upstream (a Slack history backfill, a duplicated
// WhatsApp delivery) cannot outrun the Ingestion Coordinator's downstream
// embedding capacity. Each document's models.Source is the limiter key.
type RateLimitedEnqueuer struct {
	next    Enqueuer
	limiter *ratelimit.KeyedLimiter
}

// NewRateLimitedEnqueuer wraps next with a KeyedLimiter configured by cfg.
func NewRateLimitedEnqueuer(next Enqueuer, cfg ratelimit.Config) *RateLimitedEnqueuer {
	return &RateLimitedEnqueuer{next: next, limiter: ratelimit.NewKeyedLimiter(cfg)}
}

// Enqueue admits doc to next if its source is within budget, otherwise
// returns ErrRateLimited without ever reaching the coordinator.
func (r *RateLimitedEnqueuer) Enqueue(ctx context.Context, doc *models.Document) error {
	if !r.limiter.Allow(string(doc.Source)) {
		return fmt.Errorf("%w: source=%s", ErrRateLimited, doc.Source)
	}
	return r.next.Enqueue(ctx, doc)
}

// HistoricalWindow bounds a backfill request.
type HistoricalWindow struct {
	Start time.Time
	End   time.Time
	// Limit caps the number of items pulled per channel/chat; 0 means the
	// collector's own default cap.
	Limit int
}
