package loader

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/micrictor/fwrules/internal/rules"
)

const DEFAULT_REDIS_KEY = "fwrules:rules"

// Redis reads rules from a list, one comma separated record per element.
// A missing key is an empty list, so an emptied rule set loads as no rules.
type Redis struct {
	Client redis.UniversalClient
	Key    string
}

func (r Redis) key() string {
	if r.Key == "" {
		return DEFAULT_REDIS_KEY
	}
	return r.Key
}

func (r Redis) Load(ctx context.Context) ([]rules.Rule, error) {
	key := r.key()

	records, err := r.Client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}

	result := make([]rules.Rule, 0, len(records))
	for i, record := range records {
		rule, err := ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("redis %s[%d]: %w", key, i, err)
		}
		result = append(result, rule)
	}
	return result, nil
}

func (r Redis) String() string {
	return "redis:" + r.key()
}
