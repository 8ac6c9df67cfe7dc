package verification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "lively:verify:"
	redisAccountPrefix = "lively:verify:account:"

	stateActive = "active"
	stateUsed   = "used"
)

// issueScript revokes the account's live secret and stores the new record in one step,
// so concurrent issues for an account always leave exactly one live secret.
//
// KEYS[1] account key, KEYS[2] new record key
// ARGV[1] record key prefix, ARGV[2] account id, ARGV[3] expiry (unix ms),
// ARGV[4] record ttl (ms), ARGV[5] account key ttl (ms), ARGV[6] secret hash
var issueScript = redis.NewScript(`
local previous = redis.call('GET', KEYS[1])
if previous then
	redis.call('DEL', ARGV[1] .. previous)
end
redis.call('HSET', KEYS[2], 'account', ARGV[2], 'exp', ARGV[3], 'state', 'active')
redis.call('PEXPIRE', KEYS[2], ARGV[4])
redis.call('SET', KEYS[1], ARGV[6], 'PX', ARGV[5])
return 1
`)

// consumeScript marks a secret record used and drops the account pointer if it still
// points at this secret. The record stays behind as a tombstone until its key expires.
//
// KEYS[1] record key
// ARGV[1] now (unix ms), ARGV[2] tombstone ttl (ms), ARGV[3] account key prefix, ARGV[4] secret hash
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {'unknown', ''}
end
local account = redis.call('HGET', KEYS[1], 'account')
if redis.call('HGET', KEYS[1], 'state') == 'used' then
	return {'used', account}
end
if tonumber(ARGV[1]) >= tonumber(redis.call('HGET', KEYS[1], 'exp')) then
	return {'expired', account}
end
redis.call('HSET', KEYS[1], 'state', 'used')
redis.call('PEXPIRE', KEYS[1], ARGV[2])
local pointer = ARGV[3] .. account
if redis.call('GET', pointer) == ARGV[4] then
	redis.call('DEL', pointer)
end
return {'ok', account}
`)

// RedisProvider stores verification secrets in Redis, keyed by the secret's hash.
// Records outlive their expiry by the retention window so late redemptions
// report expired or used rather than unknown.
type RedisProvider struct {
	client    redis.UniversalClient
	ttl       time.Duration
	retention time.Duration
	nowFunc   func() time.Time
}

var _ SecretProvider = (*RedisProvider)(nil)

// WithRetention sets how long a consumed or expired record is kept to report its outcome
func WithRetention(retention time.Duration) ProviderOption {
	return func(o *providerOptions) {
		if retention > 0 {
			o.retention = retention
		}
	}
}

func NewRedisProvider(client redis.UniversalClient, options ...ProviderOption) (*RedisProvider, error) {
	if client == nil {
		return nil, errors.New("[NewRedisProvider] redis client is required")
	}
	o := newProviderOptions(options)
	return &RedisProvider{
		client:    client,
		ttl:       o.ttl,
		retention: o.retention,
		nowFunc:   o.nowFunc,
	}, nil
}

func (p *RedisProvider) recordKey(hash string) string {
	return redisKeyPrefix + hash
}

func (p *RedisProvider) accountKey(accountID string) string {
	return redisAccountPrefix + accountID
}

// IssueVerificationSecret revokes any live secret for the account and stores a new one
func (p *RedisProvider) IssueVerificationSecret(ctx context.Context, accountID string) ([]byte, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	hash := hashSecret(secret)
	expiresAt := p.nowFunc().Add(p.ttl)

	err = issueScript.Run(ctx, p.client,
		[]string{p.accountKey(accountID), p.recordKey(hash)},
		redisKeyPrefix,
		accountID,
		expiresAt.UnixMilli(),
		(p.ttl + p.retention).Milliseconds(),
		p.ttl.Milliseconds(),
		hash,
	).Err()
	if err != nil {
		return nil, fmt.Errorf("redis store verification secret: %w", err)
	}
	return secret, nil
}

func (p *RedisProvider) ConsumeVerificationSecret(ctx context.Context, secret []byte) (string, error) {
	hash := hashSecret(secret)

	result, err := consumeScript.Run(ctx, p.client,
		[]string{p.recordKey(hash)},
		p.nowFunc().UnixMilli(),
		p.retention.Milliseconds(),
		redisAccountPrefix,
		hash,
	).StringSlice()
	if err != nil {
		return "", fmt.Errorf("redis consume verification secret: %w", err)
	}
	if len(result) != 2 {
		return "", fmt.Errorf("redis consume verification secret: unexpected reply %v", result)
	}

	switch outcome, accountID := result[0], result[1]; outcome {
	case "ok":
		return accountID, nil
	case stateUsed:
		return "", ErrTokenAlreadyUsed
	case "expired":
		return "", apperrors.Wrapf(ErrTokenExpired, "account %s", accountID)
	default:
		return "", ErrTokenUnknown
	}
}

// LookupVerificationSecret reports what ConsumeVerificationSecret would, without consuming
func (p *RedisProvider) LookupVerificationSecret(ctx context.Context, secret []byte) (string, error) {
	values, err := p.client.HMGet(ctx, p.recordKey(hashSecret(secret)), "account", "exp", "state").Result()
	if err != nil {
		return "", fmt.Errorf("redis lookup verification secret: %w", err)
	}

	accountID, _ := values[0].(string)
	exp, _ := values[1].(string)
	state, _ := values[2].(string)
	if accountID == "" {
		return "", ErrTokenUnknown
	}
	if state == stateUsed {
		return "", ErrTokenAlreadyUsed
	}
	expiresAt, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", fmt.Errorf("redis lookup verification secret: bad expiry %q", exp)
	}
	if p.nowFunc().UnixMilli() >= expiresAt {
		return "", apperrors.Wrapf(ErrTokenExpired, "account %s", accountID)
	}
	return accountID, nil
}
