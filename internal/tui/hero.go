package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matheuskafuri/blogsearch/internal/cache"
)

// renderHero shows the newest article above the list. It is a single block of at
// most three lines so the layout below it does not shift.
func renderHero(a *cache.Article, labels func(string) string, width int) string {
	if a == nil {
		return heroStyle.Width(width).Render(heroDimStyle.Render("No articles yet. Press r to fetch feeds."))
	}
	inner := width - 4
	if inner < 10 {
		inner = 10
	}

	tag := heroTagStyle.Render("LATEST")
	title := heroTitleStyle.Render(truncateStr(a.Title, inner-lipgloss.Width(tag)-1))

	meta := []string{a.Source, a.Published.Format("Jan 2, 2006")}
	if cats := categoryNames(a.CategoryIDs, labels); cats != "" {
		meta = append(meta, cats)
	}
	desc := truncateStr(a.Description, inner)

	lines := []string{
		tag + " " + title,
		heroDimStyle.Render(strings.Join(meta, " · ")),
	}
	if desc != "" {
		lines = append(lines, heroBodyStyle.Render(desc))
	}
	return heroStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func categoryNames(ids []string, labels func(string) string) string {
	if len(ids) == 0 {
		return ""
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id
		if labels != nil {
			names[i] = labels(id)
		}
	}
	return strings.Join(names, ", ")
}
