// Package redistest starts an in-process Redis for tests and returns a
// client wired exactly like production.
package redistest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	redisclient "github.com/pairsync/sync-server/internal/redis"
)

func New(t testing.TB) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}
