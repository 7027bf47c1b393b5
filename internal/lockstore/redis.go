package lockstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lockstep-dev/lockstep/internal/errors"
)

const (
	leaseKeyPrefix = "lease:"
	scanCount      = 100

	fieldResourceKey = "resource_key"
	fieldPath        = "path"
	fieldHolder      = "holder_instance_id"
	fieldAcquiredAt  = "acquired_at"
	fieldExpiresAt   = "expires_at"
)

// admitScript creates the lease hash only if no hash exists yet. The
// physical TTL is a janitor for abandoned records; logical expiry lives
// in the expires_at field.
var admitScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1],
	"resource_key", ARGV[1],
	"path", ARGV[2],
	"holder_instance_id", ARGV[3],
	"acquired_at", ARGV[4],
	"expires_at", ARGV[5])
redis.call("PEXPIRE", KEYS[1], ARGV[6])
return 1
`)

// swapScript replaces the hash only while it still carries the holder
// and expiry the caller observed, so a record swapped in between the
// caller's read and this script cannot be clobbered.
var swapScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
local holder = redis.call("HGET", KEYS[1], "holder_instance_id")
if holder == false then
	holder = ""
end
local expires = redis.call("HGET", KEYS[1], "expires_at")
if expires == false then
	expires = ""
end
if holder ~= ARGV[1] or expires ~= ARGV[2] then
	return -1
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1],
	"resource_key", ARGV[3],
	"path", ARGV[4],
	"holder_instance_id", ARGV[5],
	"acquired_at", ARGV[6],
	"expires_at", ARGV[7])
redis.call("PEXPIRE", KEYS[1], ARGV[8])
return 1
`)

// releaseScript deletes the hash only if the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if redis.call("HGET", KEYS[1], "holder_instance_id") == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return -1
`)

// Redis stores lease records as hashes under <prefix>lease:<key>.
// Multi-step mutations run as Lua scripts, which Redis executes
// atomically, so no cross-process guard is needed.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis returns a store backed by client. All keys are namespaced
// under prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) leaseKey(key string) string {
	return s.prefix + leaseKeyPrefix + key
}

// Create admits a new record, failing if any hash already occupies the
// key.
func (s *Redis) Create(ctx context.Context, rec Record) error {
	res, err := admitScript.Run(ctx, s.client, []string{s.leaseKey(rec.ResourceKey)},
		rec.ResourceKey, rec.Path, rec.Holder,
		formatTime(rec.AcquiredAt), formatTime(rec.ExpiresAt),
		janitorMillis(rec.ExpiresAt),
	).Int64()
	if err != nil {
		return s.unavailable(rec.ResourceKey, "admitting record", err)
	}
	if res == 0 {
		return errors.Wrapf(errors.ErrRecordExists, "record %s", rec.ResourceKey)
	}
	return nil
}

// Read loads and parses the lease hash for key.
func (s *Redis) Read(ctx context.Context, key string) (Record, error) {
	raw, err := s.client.HGetAll(ctx, s.leaseKey(key)).Result()
	if err != nil {
		return Record{}, s.unavailable(key, "reading record", err)
	}
	if len(raw) == 0 {
		return Record{}, errors.Wrapf(errors.ErrRecordNotFound, "record %s", key)
	}
	rec, err := hashToRecord(raw)
	if err != nil {
		return Record{}, errors.Wrapf(errors.ErrRecordCorrupt, "record %s: %v", key, err)
	}
	return rec, nil
}

// CompareAndSwap replaces the record only while expectedHolder still
// owns it. The swap is gated on the holder and expiry observed here,
// so a corrupt record (which cannot prove any holder) is reclaimable
// without a concurrent winner being overwritten.
func (s *Redis) CompareAndSwap(ctx context.Context, key, expectedHolder string, rec Record) error {
	rkey := s.leaseKey(key)

	raw, err := s.client.HGetAll(ctx, rkey).Result()
	if err != nil {
		return s.unavailable(key, "reading record", err)
	}
	if len(raw) == 0 {
		return errors.Wrapf(errors.ErrRecordNotFound, "record %s", key)
	}
	if _, parseErr := hashToRecord(raw); parseErr == nil && raw[fieldHolder] != expectedHolder {
		return errors.Wrapf(errors.ErrCASMismatch,
			"record %s held by %s", key, raw[fieldHolder])
	}

	res, err := swapScript.Run(ctx, s.client, []string{rkey},
		raw[fieldHolder], raw[fieldExpiresAt],
		rec.ResourceKey, rec.Path, rec.Holder,
		formatTime(rec.AcquiredAt), formatTime(rec.ExpiresAt),
		janitorMillis(rec.ExpiresAt),
	).Int64()
	if err != nil {
		return s.unavailable(key, "swapping record", err)
	}
	switch res {
	case 0:
		return errors.Wrapf(errors.ErrRecordNotFound, "record %s", key)
	case -1:
		return errors.Wrapf(errors.ErrCASMismatch, "record %s changed during swap", key)
	}
	return nil
}

// Delete removes the record if holder still owns it. A hash without a
// holder field cannot prove ownership and reports ErrNotHolder.
func (s *Redis) Delete(ctx context.Context, key, holder string) error {
	res, err := releaseScript.Run(ctx, s.client, []string{s.leaseKey(key)}, holder).Int64()
	if err != nil {
		return s.unavailable(key, "releasing record", err)
	}
	switch res {
	case 0:
		return errors.Wrapf(errors.ErrRecordNotFound, "record %s", key)
	case -1:
		return errors.Wrapf(errors.ErrNotHolder, "record %s not held by %s", key, holder)
	}
	return nil
}

// List scans the lease keyspace. Hashes that vanish or fail to parse
// mid-scan are skipped.
func (s *Redis) List(ctx context.Context) ([]Record, error) {
	var records []Record
	iter := s.client.Scan(ctx, 0, s.prefix+leaseKeyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, s.unavailable("", "scanning leases", err)
		}
		if len(raw) == 0 {
			continue
		}
		rec, err := hashToRecord(raw)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, s.unavailable("", "scanning leases", err)
	}
	return records, nil
}

// Ping reports whether the Redis backend is reachable.
func (s *Redis) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.unavailable("", "pinging redis", err)
	}
	return nil
}

func (s *Redis) unavailable(key, msg string, err error) error {
	e := errors.NewStoreError(fmt.Sprintf("%s: %v", msg, err), errors.ErrStoreUnavailable).
		WithBackend("redis")
	if key != "" {
		e = e.WithKey(key)
	}
	return e
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// janitorMillis converts the logical expiry into a physical TTL for
// PEXPIRE. Already-expired records get the minimum so Redis removes
// them promptly.
func janitorMillis(expiresAt time.Time) int64 {
	ms := time.Until(expiresAt).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return ms
}

func hashToRecord(hash map[string]string) (Record, error) {
	if hash[fieldHolder] == "" {
		return Record{}, fmt.Errorf("missing %s field", fieldHolder)
	}
	acquiredAt, err := time.Parse(time.RFC3339Nano, hash[fieldAcquiredAt])
	if err != nil {
		return Record{}, fmt.Errorf("invalid %s field: %w", fieldAcquiredAt, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, hash[fieldExpiresAt])
	if err != nil {
		return Record{}, fmt.Errorf("invalid %s field: %w", fieldExpiresAt, err)
	}
	return Record{
		ResourceKey: hash[fieldResourceKey],
		Path:        hash[fieldPath],
		Holder:      hash[fieldHolder],
		AcquiredAt:  acquiredAt,
		ExpiresAt:   expiresAt,
	}, nil
}
