package probe

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RemoteIPStrategies lists public lookup services first, then local
// interface addresses.
func RemoteIPStrategies() []Strategy[string] {
	public := func(name, url string) Strategy[string] {
		return commandStrategy(name, "curl -fsS --max-time 3 "+url, ParseIPCandidate)
	}
	return []Strategy[string]{
		public("ipify", "https://api.ipify.org"),
		public("ifconfig.me", "https://ifconfig.me"),
		public("icanhazip", "https://icanhazip.com"),
		commandStrategy("hostname -I", "hostname -I", ParseIPCandidate),
		commandStrategy("ip addr", "ip -4 -o addr show scope global", ParseIPAddr),
	}
}

// ParseIPCandidate returns the first whitespace-separated token when it is
// a valid IP address.
func ParseIPCandidate(out string) (string, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", responseError("empty address")
	}
	if net.ParseIP(fields[0]) == nil {
		return "", responseError("%q is not an IP address", truncate(fields[0], 40))
	}
	return fields[0], nil
}

// ParseIPAddr parses `ip -4 -o addr` rows:
// "2: eth0    inet 10.0.0.5/24 brd 10.0.0.255 scope global eth0"
func ParseIPAddr(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		for i := 0; i < len(fields)-1; i++ {
			if fields[i] != "inet" {
				continue
			}
			addr, _, _ := strings.Cut(fields[i+1], "/")
			if ip := net.ParseIP(addr); ip != nil && !ip.IsLoopback() {
				return addr, nil
			}
		}
	}
	return "", responseError("no global inet address")
}

// IPCache remembers discovered addresses per target so public lookup
// services aren't hit every cycle.
type IPCache struct {
	lru *expirable.LRU[string, string]
}

// NewIPCache creates a cache of size entries that expire after ttl.
func NewIPCache(size int, ttl time.Duration) *IPCache {
	if size <= 0 {
		size = 256
	}
	return &IPCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns a cached address.
func (c *IPCache) Get(targetID string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.lru.Get(targetID)
}

// Add stores an address.
func (c *IPCache) Add(targetID, ip string) {
	if c == nil {
		return
	}
	c.lru.Add(targetID, ip)
}

// Remove forgets a target.
func (c *IPCache) Remove(targetID string) {
	if c == nil {
		return
	}
	c.lru.Remove(targetID)
}

// ResolveRemoteIP returns the target's address as seen by the chain. It
// never fails: when nothing works, fallback is returned. Only discovered
// addresses are cached.
func ResolveRemoteIP(ctx context.Context, ex Execer, cache *IPCache, targetID, fallback string) string {
	if ip, ok := cache.Get(targetID); ok {
		return ip
	}
	ip, _, err := Chain(ctx, ex, RemoteIPStrategies()...)
	if err != nil {
		return fallback
	}
	cache.Add(targetID, ip)
	return ip
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
