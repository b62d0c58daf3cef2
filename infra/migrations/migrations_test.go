package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(files, ".")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestAttemptsMigrationDeclaresIdempotencyKey(t *testing.T) {
	t.Parallel()

	raw, err := fs.ReadFile(files, "000002_create_payment_attempts.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "UNIQUE (payment_id, session_reference, status)")
}

func TestAttemptsMigrationKeepsProviderTextUnbounded(t *testing.T) {
	t.Parallel()

	raw, err := fs.ReadFile(files, "000002_create_payment_attempts.up.sql")
	require.NoError(t, err)

	// A signed callback must never fail the store write on field length.
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "masked_card_number", "eci", "issuer_country", "acquirer_ref",
			"subscription_id", "token_id", "wallet_name", "digest", "session_reference":
			assert.True(t, strings.HasPrefix(fields[1], "TEXT"), "%s is %s", fields[0], fields[1])
		}
	}
}
