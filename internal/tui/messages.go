package tui

import "github.com/matheuskafuri/blogsearch/internal/search"

// viewMsg carries a coordinator view into the event loop.
type viewMsg struct {
	view search.View
}

type errMsg struct {
	err error
}

type refreshDoneMsg struct {
	count int
	err   error
}
