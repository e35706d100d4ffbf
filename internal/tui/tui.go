/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tui is a Bubble Tea browser for the library catalog. It manages
// entries without rendering pages, so it works in cgo-free builds.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"gopdfreader/internal/engine"
	"gopdfreader/internal/library"
	applog "gopdfreader/internal/log"
)

// Options configures the browser.
type Options struct {
	Context context.Context
	Catalog *library.Catalog
	// Engine validates locators before they are added and reads details.
	Engine engine.Engine
	// Add records a locator after it loaded; nil opens it with Engine and
	// adds it to Catalog.
	Add func(ctx context.Context, locator string) (library.Entry, error)
	// Remove deletes an entry together with anything cached for it; nil
	// removes it from Catalog only.
	Remove func(ctx context.Context, id int64) error
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeDetail
)

const dateLayout = "Jan 2, 2006"

type entryItem struct{ e library.Entry }

func (i entryItem) Title() string { return i.e.Title }
func (i entryItem) Description() string {
	return i.e.AddedDate.Local().Format(dateLayout) + "  " + applog.RedactLocator(i.e.Locator)
}
func (i entryItem) FilterValue() string { return i.e.Title + " " + i.e.Locator }

type addedMsg struct {
	entry library.Entry
	err   error
}

type detailMsg struct {
	entry library.Entry
	info  engine.Info
	err   error
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx    context.Context
	cat    *library.Catalog
	eng    engine.Engine
	add    func(context.Context, string) (library.Entry, error)
	remove func(context.Context, int64) error
	keys   keyMap

	list  list.Model
	input textinput.Model
	mode  mode
	busy  bool

	status string
	err    error
	detail detailMsg
}

func items(cat *library.Catalog) []list.Item {
	entries := cat.List()
	out := make([]list.Item, 0, len(entries))
	// newest first, like the home screen
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entryItem{e: entries[i]})
	}
	return out
}

// New builds the model; Catalog and Engine are required.
func New(opts Options) Model {
	ctx := contextOrBackground(opts.Context)
	keys := defaultKeyMap()
	l := list.New(items(opts.Catalog), list.NewDefaultDelegate(), 0, 0)
	l.Title = "Library"
	l.Styles.Title = titleStyle
	l.SetStatusBarItemName("document", "documents")
	l.DisableQuitKeybindings()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Delete, keys.Details, keys.Quit}
	}

	ti := textinput.New()
	ti.Placeholder = "PDF URL or file path"
	ti.CharLimit = 2048
	ti.Width = 60

	m := Model{ctx: ctx, cat: opts.Catalog, eng: opts.Engine, add: opts.Add, remove: opts.Remove, keys: keys, list: l, input: ti}
	if m.add == nil {
		m.add = m.openAndAdd
	}
	if m.remove == nil {
		m.remove = func(_ context.Context, id int64) error { return m.cat.Remove(id) }
	}
	return m
}

func (m Model) openAndAdd(ctx context.Context, locator string) (library.Entry, error) {
	locator = engine.NormalizeLocator(locator)
	doc, err := m.eng.Open(ctx, locator)
	if err != nil {
		return library.Entry{}, err
	}
	_ = doc.Close()
	return m.cat.Add(locator)
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case addedMsg:
		m.busy = false
		m.status, m.err = "", msg.err
		if msg.entry.ID == 0 {
			return m, nil
		}
		if msg.err == nil {
			m.status = "Added " + msg.entry.Title
		}
		return m, m.list.SetItems(items(m.cat))

	case detailMsg:
		m.busy = false
		m.status = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.detail = msg
		m.mode = modeDetail
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeDetail:
			if key.Matches(msg, m.keys.Back, m.keys.Details, m.keys.Quit) {
				m.mode = modeList
			}
			return m, nil
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Add):
			m.mode = modeAdd
			m.input.SetValue("")
			return m, m.input.Focus()
		case key.Matches(msg, m.keys.Delete):
			return m.deleteSelected()
		case key.Matches(msg, m.keys.Details):
			it, ok := m.list.SelectedItem().(entryItem)
			if !ok || m.busy {
				return m, nil
			}
			m.busy = true
			m.err = nil
			m.status = "Opening " + it.e.Title + "…"
			return m, m.detailCmd(it.e)
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		loc := strings.TrimSpace(m.input.Value())
		m.mode = modeList
		m.input.Blur()
		if loc == "" || m.busy {
			return m, nil
		}
		m.busy = true
		m.err = nil
		m.status = "Opening " + applog.RedactLocator(loc) + "…"
		return m, m.addCmd(loc)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	it, ok := m.list.SelectedItem().(entryItem)
	if !ok {
		return m, nil
	}
	m.err = m.remove(m.ctx, it.e.ID)
	m.status = ""
	if m.err == nil {
		m.status = "Removed " + it.e.Title
	}
	return m, m.list.SetItems(items(m.cat))
}

// addCmd opens locator and records it only when the document loads.
func (m Model) addCmd(locator string) tea.Cmd {
	ctx, add := m.ctx, m.add
	return func() tea.Msg {
		e, err := add(ctx, locator)
		if e.ID == 0 && err != nil {
			return addedMsg{err: fmt.Errorf("could not load %s: %w", applog.RedactLocator(locator), err)}
		}
		return addedMsg{entry: e, err: err}
	}
}

func (m Model) detailCmd(e library.Entry) tea.Cmd {
	ctx, eng := m.ctx, m.eng
	return func() tea.Msg {
		doc, err := eng.Open(ctx, e.Locator)
		if err != nil {
			return detailMsg{entry: e, err: fmt.Errorf("could not load %s: %w", e.Title, err)}
		}
		defer doc.Close()
		return detailMsg{entry: e, info: doc.Info()}
	}
}

func (m Model) View() string {
	switch m.mode {
	case modeAdd:
		return panelStyle.Render(titleStyle.Render("Add document") + "\n\n" + m.input.View() + "\n\n" +
			faintStyle.Render("enter open • esc cancel"))
	case modeDetail:
		return m.detailView()
	}
	return m.list.View() + "\n" + m.statusLine()
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return errorStyle.Render(m.err.Error())
	case m.status != "":
		return statusStyle.Render(m.status)
	}
	return ""
}

func (m Model) detailView() string {
	e, info := m.detail.entry, m.detail.info
	row := func(label, value string) string {
		if value == "" {
			value = faintStyle.Render("n/a")
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}
	rows := []string{
		titleStyle.Render(e.Title),
		"",
		row("Locator", applog.RedactLocator(e.Locator)),
		row("Added", e.AddedDate.Local().Format(dateLayout)),
		row("Pages", strconv.Itoa(info.Pages)),
		row("Title", info.Title),
		row("Author", info.Author),
		row("Producer", info.Producer),
		row("PDF", info.Version),
		row("Size", humanize.Bytes(uint64(max(info.Size, 0)))),
		"",
		faintStyle.Render("esc back"),
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// Run shows the browser until the user quits or ctx is done.
func Run(opts Options) error {
	opts.Context = contextOrBackground(opts.Context)
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := p.Run()
	return err
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
