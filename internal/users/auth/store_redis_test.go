// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/taskflow/internal/users/auth"
)

func newLedger(t *testing.T) (*auth.RedisResetTokenLedger, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewResetTokenLedger(client), server
}

/*
TestRedisResetTokenLedger_Consume verifies a token ID can be claimed exactly once.
*/
func TestRedisResetTokenLedger_Consume(t *testing.T) {
	ledger, server := newLedger(t)
	ctx := context.Background()

	claimed, err := ledger.Consume(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = ledger.Consume(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = ledger.Consume(ctx, "jti-2", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)

	assert.Equal(t, time.Hour, server.TTL("auth:reset_token:used:jti-1"))
}

/*
TestRedisResetTokenLedger_Expiry verifies marks expire and tiny TTLs are floored.
*/
func TestRedisResetTokenLedger_Expiry(t *testing.T) {
	ledger, server := newLedger(t)
	ctx := context.Background()

	claimed, err := ledger.Consume(ctx, "jti-1", -time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, time.Second, server.TTL("auth:reset_token:used:jti-1"))

	server.FastForward(2 * time.Second)

	claimed, err = ledger.Consume(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}

/*
TestRedisResetTokenLedger_Unavailable verifies connection errors are returned.
*/
func TestRedisResetTokenLedger_Unavailable(t *testing.T) {
	ledger, server := newLedger(t)
	server.Close()

	_, err := ledger.Consume(context.Background(), "jti-1", time.Hour)
	assert.Error(t, err)
}
