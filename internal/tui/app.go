package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/matheuskafuri/blogsearch/internal/browser"
	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/search"
	"github.com/matheuskafuri/blogsearch/internal/swr"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeFilter
	modeHelp
)

// Searcher is the part of search.Coordinator the app drives.
type Searcher interface {
	SetQuery(q string)
	ToggleCategory(id string)
	Clear()
	Reload()
	Snapshot() search.View
}

// RefreshFunc pulls new articles into the store and reports how many were stored.
type RefreshFunc func(ctx context.Context) (int, error)

type App struct {
	search     Searcher
	refresh    RefreshFunc
	archiveURL string
	logger     *zap.Logger

	view   search.View
	hero   *cache.Article
	cursor int
	focus  focusPane
	mode   mode

	width  int
	height int

	searchInput textinput.Model
	spinner     spinner.Model
	spinning    bool
	filterBar   filterBar

	refreshing    bool
	previewScroll int
	currentDate   string
	err           error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Provider   search.Provider
	Cache      *swr.Cache
	Search     []search.Option
	Categories []cache.Category
	ArchiveURL string
	Refresh    RefreshFunc // nil disables r
	Logger     *zap.Logger
}

func NewApp(s Searcher, opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search articles..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}

	a := &App{
		search:      s,
		refresh:     opts.Refresh,
		archiveURL:  opts.ArchiveURL,
		logger:      l,
		filterBar:   newFilterBar(opts.Categories),
		searchInput: ti,
		spinner:     sp,
		currentDate: time.Now().Format("Jan 2"),
	}
	a.applyView(s.Snapshot())
	return a
}

func (a *App) Init() tea.Cmd {
	return a.syncSpinner()
}

func (a *App) doRefresh() tea.Cmd {
	refresh := a.refresh
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := refresh(ctx)
		return refreshDoneMsg{count: n, err: err}
	}
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := browser.Open(url); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

// applyView installs v unless a newer view was already shown. Views are
// delivered from separate goroutines and may arrive out of order.
func (a *App) applyView(v search.View) bool {
	if v.Seq < a.view.Seq {
		return false
	}
	a.view = v
	if !v.Filtered && !v.Filter.Active() {
		if len(v.Items) > 0 {
			hero := v.Items[0]
			a.hero = &hero
		} else {
			a.hero = nil
		}
	}
	if a.cursor >= len(v.Items) {
		a.cursor = max(0, len(v.Items)-1)
		a.previewScroll = 0
	}
	if v.Err != nil {
		a.err = v.Err
	}
	return true
}

// syncSpinner starts the spinner tick loop when something is loading.
func (a *App) syncSpinner() tea.Cmd {
	busy := a.view.Loading || a.refreshing
	if busy && !a.spinning {
		a.spinning = true
		return a.spinner.Tick
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case viewMsg:
		if a.applyView(msg.view) {
			return a, a.syncSpinner()
		}
		return a, nil

	case errMsg:
		a.err = msg.err
		return a, nil

	case refreshDoneMsg:
		a.refreshing = false
		if msg.err != nil {
			a.err = msg.err
			a.logger.Warn("refresh failed", zap.Error(msg.err))
		} else {
			a.logger.Info("refresh done", zap.Int("articles", msg.count))
		}
		a.search.Reload()
		return a, nil

	case spinner.TickMsg:
		if a.view.Loading || a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		a.spinning = false
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	items := a.view.Items
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(items)-1 {
			a.cursor++
			a.previewScroll = 0
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "o", "enter":
		if a.cursor < len(items) {
			return a, openBrowserCmd(items[a.cursor].Link)
		}
		return a, nil
	case "a":
		if a.archiveURL != "" {
			return a, openBrowserCmd(a.archiveURL)
		}
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "f":
		a.mode = modeFilter
		a.filterBar.filterMode = true
		return a, nil
	case "c":
		a.searchInput.SetValue("")
		a.cursor = 0
		a.search.Clear()
		return a, nil
	case "r":
		if a.refreshing {
			return a, nil
		}
		if a.refresh == nil {
			a.search.Reload()
			return a, nil
		}
		a.refreshing = true
		return a, tea.Batch(a.doRefresh(), a.syncSpinner())
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		a.search.SetQuery("")
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	}

	before := a.searchInput.Value()
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	// Only re-query on actual value changes, not cursor moves etc.
	if v := a.searchInput.Value(); v != before {
		a.cursor = 0
		a.search.SetQuery(v)
	}
	return a, cmd
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f":
		a.mode = modeNormal
		a.filterBar.filterMode = false
		return a, nil
	case "left", "h":
		if a.filterBar.filterCursor > 0 {
			a.filterBar.filterCursor--
		}
		return a, nil
	case "right", "l":
		if a.filterBar.filterCursor < len(a.filterBar.categories)-1 {
			a.filterBar.filterCursor++
		}
		return a, nil
	case " ", "enter":
		if id, ok := a.filterBar.current(); ok {
			a.cursor = 0
			a.search.ToggleCategory(id)
		}
		return a, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if id, ok := a.filterBar.at(int(msg.String()[0] - '1')); ok {
			a.cursor = 0
			a.search.ToggleCategory(id)
		}
		return a, nil
	}
	return a, nil
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  blogsearch")
	}

	if a.mode == modeHelp {
		return a.renderHelp()
	}

	labels := a.filterBar.name

	// Header
	headerLeft := headerStyle.Render("blogsearch")
	headerRight := headerDateStyle.Render(a.currentDate)
	if a.view.Loading || a.refreshing {
		headerRight = a.spinner.View() + " " + headerRight
	}
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	hero := renderHero(a.hero, labels, a.width)

	filter := a.filterBar.render(a.width, a.view.Filter)
	if a.mode == modeSearch {
		filter = a.searchInput.View()
	}

	contentHeight := a.height - 1 - lipgloss.Height(hero) - 1 - 1 - 2 // header, filter, status, borders
	if contentHeight < 3 {
		contentHeight = 3
	}
	listWidth := int(float64(a.width) * 0.4)
	previewWidth := a.width - listWidth - 1

	items := a.view.Items
	listContent := renderList(items, a.cursor, contentHeight, listWidth-4, labels)
	listStyle := listPaneStyle
	if a.focus == focusList {
		listStyle = listPaneActiveStyle
	}
	listPane := listStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)

	var selected *cache.Article
	if a.cursor < len(items) {
		selected = &items[a.cursor]
	}
	previewContent := renderPreview(selected, labels, previewWidth-4, contentHeight, a.previewScroll)
	previewStyle := previewPaneStyle
	if a.focus == focusPreview {
		previewStyle = previewPaneActiveStyle
	}
	previewPane := previewStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(statusInfo{
		count:       len(items),
		filterLabel: a.filterBar.activeLabel(a.view.Filter),
		query:       strings.TrimSpace(a.view.Filter.Query),
		searching:   a.mode == modeSearch,
		filtering:   a.mode == modeFilter,
		stale:       a.view.Stale,
		refreshing:  a.refreshing,
	}, a.width)
	if a.err != nil {
		status = errorStyle.Render(" " + a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, hero, filter, content, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("blogsearch")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓     Navigate article list\n" +
		"  tab           Switch focus between list and preview\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open article in browser\n" +
		"  a             View the archive\n" +
		"  r             Refresh feeds\n" +
		"  /             Search titles as you type\n" +
		"  f             Category filter mode\n" +
		"  c             Clear search and categories\n\n" +
		dim.Render("Filter Mode") + "\n" +
		"  ←/→, h/l     Move between categories\n" +
		"  space/enter   Toggle category\n" +
		"  1-9           Toggle category by number\n" +
		"  esc, f        Exit filter mode\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c    Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application. Coordinator views are forwarded to the program
// from their own goroutines so the coordinator never blocks on the event loop.
func Run(opts RunOpts) error {
	var p *tea.Program
	ready := make(chan struct{})
	forward := func(v search.View) {
		go func() {
			<-ready
			p.Send(viewMsg{view: v})
		}()
	}

	searchOpts := append([]search.Option{}, opts.Search...)
	coord := search.New(opts.Provider, opts.Cache, append(searchOpts, search.WithOnChange(forward))...)
	defer coord.Close()

	app := NewApp(coord, opts)
	p = tea.NewProgram(app, tea.WithAltScreen())
	close(ready)

	_, err := p.Run()
	return err
}
