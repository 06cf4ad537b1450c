// Package ui renders hostwatch's terminal output.
//
// One-shot commands print target tables and details built with Lip Gloss;
// `watch --tui` runs the Bubble Tea Dashboard, fed with StatesMsg values from
// the monitor's per-cycle callback. Prompter asks for secrets and target
// choices through huh forms when stdin is a terminal and reads piped input
// otherwise.
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Online targets, completed actions
//	ColorError     (red)    - Offline targets, failures
//	ColorWarning   (yellow) - Usage between 60% and 80%
//	ColorInfo      (cyan)   - Titles and throughput
//	ColorMuted     (gray)   - Hosts, timings, secondary text
//
// DisableColors switches to monochrome output (for --no-color).
package ui
