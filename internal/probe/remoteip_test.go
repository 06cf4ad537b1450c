package probe

import (
	"context"
	"testing"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPCandidate(t *testing.T) {
	ip, err := ParseIPCandidate("203.0.113.7\n")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)

	ip, err = ParseIPCandidate("10.0.0.5 172.17.0.1 \n")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", ip)

	_, err = ParseIPCandidate("<html>rate limited</html>")
	assert.Error(t, err)
	_, err = ParseIPCandidate("")
	assert.Error(t, err)
}

func TestParseIPAddr(t *testing.T) {
	ip, err := ParseIPAddr("2: eth0    inet 10.0.0.5/24 brd 10.0.0.255 scope global eth0\\       valid_lft forever\n")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", ip)

	_, err = ParseIPAddr("")
	assert.Error(t, err)
}

func TestResolveRemoteIP_FallbackOrder(t *testing.T) {
	ex := newFakeExec(map[string]remote.Result{
		"curl -fsS --max-time 3 https://api.ipify.org": {ExitCode: 6},
		"curl -fsS --max-time 3 https://ifconfig.me":   ok("not-an-ip"),
		"curl -fsS --max-time 3 https://icanhazip.com": ok("198.51.100.4\n"),
		"hostname -I": ok("10.0.0.5\n"),
	})

	ip := ResolveRemoteIP(context.Background(), ex, nil, "web", "web.example")

	assert.Equal(t, "198.51.100.4", ip)
	assert.False(t, ex.Called("hostname -I"))
}

func TestResolveRemoteIP_NeverFails(t *testing.T) {
	ip := ResolveRemoteIP(context.Background(), newFakeExec(nil), nil, "web", "web.example")
	assert.Equal(t, "web.example", ip)
}

func TestResolveRemoteIP_Cached(t *testing.T) {
	cache := NewIPCache(10, time.Hour)
	ex := newFakeExec(map[string]remote.Result{
		"curl -fsS --max-time 3 https://api.ipify.org": ok("203.0.113.7"),
	})

	first := ResolveRemoteIP(context.Background(), ex, cache, "web", "h")
	second := ResolveRemoteIP(context.Background(), ex, cache, "web", "h")

	assert.Equal(t, "203.0.113.7", first)
	assert.Equal(t, first, second)
	assert.Len(t, ex.Calls(), 1, "second lookup served from cache")

	cache.Remove("web")
	_, hit := cache.Get("web")
	assert.False(t, hit)
}

func TestResolveRemoteIP_FallbackNotCached(t *testing.T) {
	cache := NewIPCache(10, time.Hour)

	_ = ResolveRemoteIP(context.Background(), newFakeExec(nil), cache, "web", "h")

	_, hit := cache.Get("web")
	assert.False(t, hit)
}
