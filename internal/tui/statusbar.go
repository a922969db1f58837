package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type statusInfo struct {
	count       int
	filterLabel string
	query       string
	searching   bool
	filtering   bool
	stale       bool
	refreshing  bool
}

func renderStatusBar(s statusInfo, width int) string {
	left := fmt.Sprintf(" %d articles", s.count)
	if s.query != "" {
		left += fmt.Sprintf(" · %q", s.query)
	}
	if s.filterLabel != "All" {
		left += " · " + s.filterLabel
	}
	if s.stale {
		left += " " + staleStyle.Render("(updating)")
	}
	if s.refreshing {
		left += " (refreshing...)"
	}

	right := " / search  f filter  a archive  ? help  q quit "
	switch {
	case s.searching:
		right = " esc clear  enter done "
	case s.filtering:
		right = " ←/→ move  space toggle  esc done "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}
