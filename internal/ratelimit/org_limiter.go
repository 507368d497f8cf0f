package ratelimit

import (
	"context"
	"fmt"

	"github.com/smallbiznis/ledgercraft/internal/config"
)

const orgKeyPrefix = "ledgercraft:ratelimit:org"

// OrgLimiter caps API requests per organization.
type OrgLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewOrgLimiter(cfg config.Config, bucket *TokenBucket) *OrgLimiter {
	burst := cfg.RateLimit.PerOrgBurst
	if burst <= 0 {
		burst = 1
	}
	return &OrgLimiter{
		bucket: bucket,
		rate:   cfg.RateLimit.PerOrgRate,
		burst:  burst,
	}
}

func (l *OrgLimiter) Enabled() bool {
	return l != nil && l.bucket != nil && l.rate > 0
}

func (l *OrgLimiter) AllowOrg(ctx context.Context, orgID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, orgKey(orgID), l.rate, l.burst)
}

func orgKey(orgID string) string {
	return fmt.Sprintf("%s:%s", orgKeyPrefix, orgID)
}
