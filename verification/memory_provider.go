package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
)

const (
	DefaultSecretTTL  = 24 * time.Hour
	defaultSecretSize = 32
)

type secretRecord struct {
	accountID string
	expiresAt time.Time
	used      bool
	usedAt    time.Time
}

// evictAt is when the record stops reporting its outcome and reads as unknown
func (r *secretRecord) evictAt(retention time.Duration) time.Time {
	if r.used {
		return r.usedAt.Add(retention)
	}
	return r.expiresAt.Add(retention)
}

// MemoryProvider keeps verification secrets in process memory. Secrets are stored by hash.
// Consumed and expired secrets are remembered for the retention window so a late
// redemption reports ErrTokenAlreadyUsed or ErrTokenExpired, then they are evicted.
type MemoryProvider struct {
	ttl       time.Duration
	retention time.Duration
	nowFunc   func() time.Time

	lock     sync.Mutex
	records  map[string]*secretRecord // secret hash -> record
	accounts map[string]string        // account id -> hash of its live secret
}

var _ SecretProvider = (*MemoryProvider)(nil)

type ProviderOption func(*providerOptions)

type providerOptions struct {
	ttl       time.Duration
	retention time.Duration
	nowFunc   func() time.Time
}

// WithSecretTTL sets how long an issued secret can be redeemed
func WithSecretTTL(ttl time.Duration) ProviderOption {
	return func(o *providerOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

func WithProviderNowFunc(now func() time.Time) ProviderOption {
	return func(o *providerOptions) {
		o.nowFunc = now
	}
}

func newProviderOptions(options []ProviderOption) providerOptions {
	o := providerOptions{
		ttl:       DefaultSecretTTL,
		retention: 7 * 24 * time.Hour,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(&o)
	}
	return o
}

func NewMemoryProvider(options ...ProviderOption) *MemoryProvider {
	o := newProviderOptions(options)
	return &MemoryProvider{
		ttl:       o.ttl,
		retention: o.retention,
		nowFunc:   o.nowFunc,
		records:   make(map[string]*secretRecord),
		accounts:  make(map[string]string),
	}
}

// IssueVerificationSecret revokes any live secret for the account and returns a new one
func (p *MemoryProvider) IssueVerificationSecret(_ context.Context, accountID string) ([]byte, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	hash := hashSecret(secret)

	p.lock.Lock()
	defer p.lock.Unlock()

	p.evictLocked(p.nowFunc())
	if previous, ok := p.accounts[accountID]; ok {
		delete(p.records, previous)
	}
	p.records[hash] = &secretRecord{
		accountID: accountID,
		expiresAt: p.nowFunc().Add(p.ttl),
	}
	p.accounts[accountID] = hash
	return secret, nil
}

func (p *MemoryProvider) ConsumeVerificationSecret(_ context.Context, secret []byte) (string, error) {
	hash := hashSecret(secret)

	p.lock.Lock()
	defer p.lock.Unlock()

	now := p.nowFunc()
	record, err := p.redeemableLocked(hash, now)
	if err != nil {
		return "", err
	}

	record.used = true
	record.usedAt = now
	if p.accounts[record.accountID] == hash {
		delete(p.accounts, record.accountID)
	}
	return record.accountID, nil
}

// LookupVerificationSecret reports what ConsumeVerificationSecret would, without consuming
func (p *MemoryProvider) LookupVerificationSecret(_ context.Context, secret []byte) (string, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	record, err := p.redeemableLocked(hashSecret(secret), p.nowFunc())
	if err != nil {
		return "", err
	}
	return record.accountID, nil
}

func (p *MemoryProvider) redeemableLocked(hash string, now time.Time) (*secretRecord, error) {
	record, ok := p.records[hash]
	if ok && !now.Before(record.evictAt(p.retention)) {
		p.evictRecordLocked(hash, record)
		ok = false
	}
	if !ok {
		return nil, ErrTokenUnknown
	}
	if record.used {
		return nil, ErrTokenAlreadyUsed
	}
	if !now.Before(record.expiresAt) {
		return nil, apperrors.Wrapf(ErrTokenExpired, "expired at %s", record.expiresAt.Format(time.RFC3339))
	}
	return record, nil
}

// evictLocked drops every record past its retention window
func (p *MemoryProvider) evictLocked(now time.Time) {
	for hash, record := range p.records {
		if !now.Before(record.evictAt(p.retention)) {
			p.evictRecordLocked(hash, record)
		}
	}
}

func (p *MemoryProvider) evictRecordLocked(hash string, record *secretRecord) {
	delete(p.records, hash)
	if p.accounts[record.accountID] == hash {
		delete(p.accounts, record.accountID)
	}
}

func newSecret() ([]byte, error) {
	secret := make([]byte, defaultSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, apperrors.Wrapf(err, "generate verification secret")
	}
	return secret, nil
}

func hashSecret(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:])
}
