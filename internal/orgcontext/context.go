// Package orgcontext scopes requests to a single organization.
package orgcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type orgKey struct{}

// WithOrgID stores the org ID in the context.
func WithOrgID(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, orgKey{}, snowflake.ID(orgID))
}

// OrgIDFromContext returns the org ID from context. A zero ID is reported as unset.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	var id snowflake.ID
	switch typed := ctx.Value(orgKey{}).(type) {
	case snowflake.ID:
		id = typed
	case int64:
		id = snowflake.ID(typed)
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err != nil {
			return 0, false
		}
		id = parsed
	}
	return id, id != 0
}
