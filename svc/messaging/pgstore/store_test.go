package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/pkg/pg"
	"github.com/dmitrymomot/smsgate/svc/messaging"
	"github.com/dmitrymomot/smsgate/svc/messaging/messagingtest"
	"github.com/dmitrymomot/smsgate/svc/messaging/pgstore"
)

func TestStore(t *testing.T) {
	connURL := os.Getenv("PG_CONN_URL")
	if connURL == "" {
		t.Skip("PG_CONN_URL not set")
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: connURL, MaxConns: 4, ConnectAttempts: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, "smsgate_test_migrations", nil))

	messagingtest.RunStoreSuite(t, func(t *testing.T) messaging.Store {
		_, err := pool.Exec(ctx, `TRUNCATE sms_messages, sms_opt_outs`)
		require.NoError(t, err)
		return pgstore.New(pool)
	})
}
