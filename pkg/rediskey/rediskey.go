package rediskey

import "fmt"

const (
	RateLimitPrefix = "ratelimit"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildRateLimitKey returns "ratelimit:{route}:{client}:{window}"
func BuildRateLimitKey(route, client string, window int64) string {
	return NamespaceKey(RateLimitPrefix, fmt.Sprintf("%s:%s:%d", route, client, window))
}
