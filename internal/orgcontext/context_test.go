package orgcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestOrgIDFromContext(t *testing.T) {
	id, ok := OrgIDFromContext(WithOrgID(context.Background(), 42))
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)

	_, ok = OrgIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = OrgIDFromContext(WithOrgID(context.Background(), 0))
	assert.False(t, ok)

	id, ok = OrgIDFromContext(context.WithValue(context.Background(), orgKey{}, "77"))
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(77), id)

	_, ok = OrgIDFromContext(context.WithValue(context.Background(), orgKey{}, "acme"))
	assert.False(t, ok)
}
