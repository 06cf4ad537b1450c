package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 << 30, "3.0 GB"},
		{2 << 40, "2.0 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in), "bytes %d", tt.in)
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 B/s"},
		{512, "512 B/s"},
		{2048, "2.0 KB/s"},
		{1.5 * 1024 * 1024, "1.5 MB/s"},
		{2 * 1024 * 1024 * 1024, "2.0 GB/s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRate(tt.in))
	}
}

func TestFormatPercent(t *testing.T) {
	v := 42.25
	assert.Equal(t, "42.2%", FormatPercent(&v))
	assert.Equal(t, Placeholder, FormatPercent(nil))
}

func TestFormatGB(t *testing.T) {
	assert.Equal(t, "7.5 GB", FormatGB(7.5))
	assert.Equal(t, "250 GB", FormatGB(250))
}

func TestFormatLatency(t *testing.T) {
	fast := 1500 * time.Microsecond
	slow := 48 * time.Millisecond
	assert.Equal(t, "1.5 ms", FormatLatency(&fast))
	assert.Equal(t, "48 ms", FormatLatency(&slow))
	assert.Equal(t, Placeholder, FormatLatency(nil))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{5 * time.Second, "5s ago"},
		{3 * time.Minute, "3m ago"},
		{2 * time.Hour, "2h ago"},
		{72 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAge(now.Add(-tt.ago), now))
	}
	assert.Equal(t, "never", FormatAge(time.Time{}, now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "web-serv…", Truncate("web-server-01", 9))
	assert.Equal(t, "…", Truncate("abc", 1))
	assert.Equal(t, "", Truncate("abc", 0))
}
