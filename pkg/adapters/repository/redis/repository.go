// Package redis stores visits in Redis. Each visit is a hash keyed by
// (date, ip), a sorted set orders them by visited_at, and a counter hands
// out visitor numbers.
package redis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/core/domain"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/ports"
)

const (
	defaultPrefix = "visits"
	timeLayout    = time.RFC3339Nano
)

// recordScript inserts the visit hash if absent and returns
// {inserted, id, visitor_number, total}. A new visit is numbered by its
// position in the timeline, which is only ever appended to.
var recordScript = goredis.NewScript(`
local existing = redis.call('HGET', KEYS[1], 'id')
if existing then
	local number = redis.call('HGET', KEYS[1], 'visitor_number')
	return {0, tonumber(existing), tonumber(number), redis.call('ZCARD', KEYS[3])}
end
local id = redis.call('INCR', KEYS[2])
local number = redis.call('ZCARD', KEYS[3]) + 1
redis.call('HSET', KEYS[1], 'id', id, 'ip_address', ARGV[1], 'visit_date', ARGV[2],
	'visited_at', ARGV[3], 'user_agent', ARGV[4], 'visitor_number', number)
redis.call('ZADD', KEYS[3], ARGV[5], KEYS[1])
return {1, id, number, number}
`)

type Repository struct {
	client *goredis.Client
	prefix string
}

// NewRepository connects using a redis:// or rediss:// URL.
func NewRepository(ctx context.Context, url string) (*Repository, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRepositoryWithClient(client, defaultPrefix), nil
}

func NewRepositoryWithClient(client *goredis.Client, prefix string) *Repository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Repository{client: client, prefix: prefix}
}

func (r *Repository) visitKey(date, ip string) string {
	return fmt.Sprintf("%s:visit:%s:%s", r.prefix, date, ip)
}

func (r *Repository) seqKey() string      { return r.prefix + ":seq" }
func (r *Repository) timelineKey() string { return r.prefix + ":timeline" }

func (r *Repository) RecordVisit(ctx context.Context, visit *domain.Visit) (*domain.VisitReceipt, error) {
	key := r.visitKey(visit.VisitDate, visit.IPAddress)
	res, err := recordScript.Run(ctx, r.client,
		[]string{key, r.seqKey(), r.timelineKey()},
		visit.IPAddress, visit.VisitDate, visit.VisitedAt.UTC().Format(timeLayout),
		visit.UserAgent, visit.VisitedAt.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("record visit: %w", err)
	}
	if len(res) != 4 {
		return nil, fmt.Errorf("record visit: unexpected script reply %v", res)
	}

	receipt := &domain.VisitReceipt{
		Inserted:   res[0] == 1,
		TotalCount: res[3],
	}
	if receipt.Inserted {
		receipt.Visit = *visit
		receipt.Visit.ID = res[1]
		receipt.Visit.VisitorNumber = res[2]
		return receipt, nil
	}

	existing, err := r.load(ctx, key)
	if err != nil {
		return nil, err
	}
	receipt.Visit = *existing
	return receipt, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	return r.client.ZCard(ctx, r.timelineKey()).Result()
}

func (r *Repository) ListVisitedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	zs, err := r.client.ZRangeByScoreWithScores(ctx, r.timelineKey(), &goredis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, len(zs))
	for _, z := range zs {
		out = append(out, time.UnixMilli(int64(z.Score)).UTC())
	}
	return out, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Visit, error) {
	keys, err := r.client.ZRange(ctx, r.timelineKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	pipe := r.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGetAll(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, err
	}

	visits := make([]domain.Visit, 0, len(keys))
	for _, cmd := range cmds {
		v, err := decodeVisit(cmd.Val())
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	slices.SortFunc(visits, func(a, b domain.Visit) int { return cmp.Compare(a.ID, b.ID) })
	return visits, nil
}

// Import stores a visit exported elsewhere with its original timestamp,
// numbered by its position in this store like any new visit.
func (r *Repository) Import(ctx context.Context, visit *domain.Visit) (bool, error) {
	key := r.visitKey(visit.VisitDate, visit.IPAddress)
	res, err := recordScript.Run(ctx, r.client,
		[]string{key, r.seqKey(), r.timelineKey()},
		visit.IPAddress, visit.VisitDate, visit.VisitedAt.UTC().Format(timeLayout),
		visit.UserAgent, visit.VisitedAt.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("import visit: %w", err)
	}
	if len(res) != 4 {
		return false, fmt.Errorf("import visit: unexpected script reply %v", res)
	}
	if res[0] == 1 {
		visit.ID = res[1]
		return true, nil
	}
	return false, nil
}

func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) load(ctx context.Context, key string) (*domain.Visit, error) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load visit: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("load visit: %s vanished", key)
	}
	return decodeVisit(fields)
}

func decodeVisit(fields map[string]string) (*domain.Visit, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode visit id: %w", err)
	}
	number, err := strconv.ParseInt(fields["visitor_number"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode visitor number: %w", err)
	}
	visitedAt, err := time.Parse(timeLayout, fields["visited_at"])
	if err != nil {
		return nil, fmt.Errorf("decode visited_at: %w", err)
	}
	return &domain.Visit{
		ID:            id,
		IPAddress:     fields["ip_address"],
		VisitDate:     fields["visit_date"],
		VisitedAt:     visitedAt,
		UserAgent:     fields["user_agent"],
		VisitorNumber: number,
	}, nil
}

// Ensure interface compliance
var _ ports.VisitRepository = (*Repository)(nil)
