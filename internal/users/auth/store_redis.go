// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/taskflow/internal/platform/constants"
)

// minLedgerTTL keeps a consumed mark alive even when the token is about to expire.
const minLedgerTTL = time.Second

// RedisResetTokenLedger implements ResetTokenLedger using Redis SETNX.
type RedisResetTokenLedger struct {
	client redis.Cmdable
}

// NewResetTokenLedger creates a new Redis-backed ResetTokenLedger.
func NewResetTokenLedger(client redis.Cmdable) *RedisResetTokenLedger {
	return &RedisResetTokenLedger{client: client}
}

/*
Consume atomically claims a reset token ID.

Description: The first caller wins the SETNX; every later caller sees the key
and gets false. The key expires with the token so the keyspace stays bounded.

Parameters:
  - context: context.Context
  - tokenID: string
  - ttl: time.Duration

Returns:
  - bool: true if this call claimed the token
  - error: Execution errors
*/
func (ledger *RedisResetTokenLedger) Consume(context context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl < minLedgerTTL {
		ttl = minLedgerTTL
	}

	claimed, err := ledger.client.SetNX(context, constants.RedisPrefixUsedResetToken+tokenID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_reset_token_consume_failed: %w", err)
	}
	return claimed, nil
}
