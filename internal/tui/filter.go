package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/search"
)

type filterBar struct {
	categories   []cache.Category
	filterMode   bool
	filterCursor int
}

func newFilterBar(categories []cache.Category) filterBar {
	return filterBar{categories: categories}
}

func (b *filterBar) current() (string, bool) {
	if b.filterCursor < 0 || b.filterCursor >= len(b.categories) {
		return "", false
	}
	return b.categories[b.filterCursor].ID, true
}

func (b *filterBar) at(i int) (string, bool) {
	if i < 0 || i >= len(b.categories) {
		return "", false
	}
	return b.categories[i].ID, true
}

func (b *filterBar) name(id string) string {
	for _, c := range b.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}

func (b *filterBar) activeLabel(f search.Filter) string {
	if len(f.Categories) == 0 {
		return "All"
	}
	names := make([]string, len(f.Categories))
	for i, id := range f.Categories {
		names[i] = b.name(id)
	}
	return strings.Join(names, ", ")
}

func (b *filterBar) render(width int, f search.Filter) string {
	sep := tabSeparatorStyle.Render(" · ")
	var parts []string

	if len(f.Categories) == 0 {
		parts = append(parts, tabActiveStyle.Render("All"))
	} else {
		parts = append(parts, tabInactiveStyle.Render("All"))
	}

	for i, c := range b.categories {
		style := tabInactiveStyle
		if f.Selected(c.ID) {
			style = tabActiveStyle
		}
		label := c.Name
		if b.filterMode && i == b.filterCursor {
			label = "[" + c.Name + "]"
		}
		parts = append(parts, style.Render(label))
	}

	// Stop adding tabs once the row would overflow.
	var row string
	for i, part := range parts {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
