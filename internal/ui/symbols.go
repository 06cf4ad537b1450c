package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Action completed
	SymbolFail     = "✗" // Action failed
	SymbolPending  = "○" // Target not polled yet
	SymbolOnline   = "●" // Target connected
	SymbolDisabled = "⊘" // Target disabled in config
	SymbolWarning  = "⚠" // Metric over threshold
	SymbolUp       = "↑" // Upload rate
	SymbolDown     = "↓" // Download rate
)
