package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryProviderEvictsOnIssue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewMemoryProvider(
		WithSecretTTL(time.Hour),
		WithRetention(time.Hour),
		WithProviderNowFunc(func() time.Time { return now }),
	)

	used, err := p.IssueVerificationSecret(ctx, "acc-used")
	require.NoError(t, err)
	_, err = p.ConsumeVerificationSecret(ctx, used)
	require.NoError(t, err)
	_, err = p.IssueVerificationSecret(ctx, "acc-abandoned")
	require.NoError(t, err)
	require.Len(t, p.records, 2)

	now = now.Add(2 * time.Hour)
	_, err = p.IssueVerificationSecret(ctx, "acc-new")
	require.NoError(t, err)

	require.Len(t, p.records, 1)
	require.Len(t, p.accounts, 1)
	require.Contains(t, p.accounts, "acc-new")
}
