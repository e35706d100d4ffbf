//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"gopdfreader/internal/app"
	"gopdfreader/internal/config"
	"gopdfreader/internal/crash"
	"gopdfreader/internal/export"
	applog "gopdfreader/internal/log"
	"gopdfreader/internal/reader"
	"gopdfreader/internal/version"
)

// Run starts the Fyne desktop reader and blocks until the window is closed.
func Run(opts Options) error {
	cfg := opts.Config
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	st := &crash.State{}
	defer crash.Recover(st)

	fyneApp := fyneapp.NewWithID("io.github.gopdfreader")
	switch strings.ToLower(cfg.General.Theme) {
	case "dark":
		fyneApp.Settings().SetTheme(theme.DarkTheme())
	case "light":
		fyneApp.Settings().SetTheme(theme.LightTheme())
	}
	prefs := fyneApp.Preferences()

	rtOpts := app.RuntimeOptions{Password: opts.Password}
	if cfg.Library.Backend == config.BackendPreferences {
		rtOpts.Store = NewPrefsKV(prefs)
	}
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	rt, err := app.OpenRuntime(rootCtx, cfg, rtOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			l.Warn("closing runtime", slog.Any("err", err))
		}
	}()
	st.DataDir = rt.DataDir

	w := fyneApp.NewWindow("GoPDFReader")
	winW := prefs.IntWithFallback("window.width", 1000)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	pv := NewPageView()
	ctl := rt.Controller(reader.SurfaceFunc(func(img image.Image, page int) {
		fyne.Do(func() { pv.SetPage(img, page) })
	}))
	st.Describe = func() string {
		s := ctl.Navigator().Snapshot()
		if s.View != reader.ViewReader {
			return "view=home"
		}
		return fmt.Sprintf("view=reader page=%d/%d zoom=%d%% doc=%s", s.Page, s.Total, s.ZoomPercent, applog.RedactLocator(s.Entry.Locator))
	}

	// spawn runs blocking controller calls off the UI goroutine.
	spawn := func(op string, fn func(ctx context.Context) error) {
		go func() {
			defer crash.Recover(st)
			if err := fn(rootCtx); err != nil && rootCtx.Err() == nil {
				l.Debug("ui action failed", slog.String("op", op), slog.Any("err", err))
			}
		}()
	}
	submitTimeout := cfg.Fetch.Timeout() + time.Minute

	// Home screen
	var entries []app.EntryView
	thumbCache := map[int64]image.Image{}
	thumbFor := func(id int64) image.Image {
		if img, ok := thumbCache[id]; ok {
			return img
		}
		b := ctl.Thumbnail(rootCtx, id)
		if len(b) == 0 {
			return nil
		}
		img, err := png.Decode(bytes.NewReader(b))
		if err != nil {
			l.Debug("bad thumbnail", slog.Int64("entry", id), slog.Any("err", err))
			return nil
		}
		thumbCache[id] = img
		return img
	}
	openEntry := func(id int64) {
		spawn("open_entry", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, submitTimeout)
			defer cancel()
			return ctl.OpenEntry(ctx, id)
		})
	}
	deleteEntry := func(id int64) {
		delete(thumbCache, id)
		spawn("delete_entry", func(ctx context.Context) error { return ctl.DeleteEntry(ctx, id) })
	}
	newLibraryList := func(thumbH float32) *widget.List {
		return widget.NewList(
			func() int { return len(entries) },
			func() fyne.CanvasObject {
				thumb := canvas.NewImageFromResource(theme.DocumentIcon())
				thumb.FillMode = canvas.ImageFillContain
				thumb.SetMinSize(fyne.NewSize(thumbH*0.75, thumbH))
				title := widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
				title.Truncation = fyne.TextTruncateEllipsis
				date := widget.NewLabel("")
				openBtn := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), nil)
				delBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), nil)
				delBtn.Importance = widget.DangerImportance
				return container.NewBorder(nil, nil, thumb, container.NewHBox(openBtn, delBtn), container.NewVBox(title, date))
			},
			func(i widget.ListItemID, o fyne.CanvasObject) {
				if i < 0 || i >= len(entries) {
					return
				}
				e := entries[i]
				row := o.(*fyne.Container)
				// Border places the center object first.
				text := row.Objects[0].(*fyne.Container)
				thumb := row.Objects[1].(*canvas.Image)
				btns := row.Objects[2].(*fyne.Container)
				title := text.Objects[0].(*widget.Label)
				title.SetText(e.Title)
				if e.Active {
					title.Importance = widget.HighImportance
				} else {
					title.Importance = widget.MediumImportance
				}
				title.Refresh()
				text.Objects[1].(*widget.Label).SetText(e.Added)
				if img := thumbFor(e.ID); img != nil {
					thumb.Resource = nil
					thumb.Image = img
				} else {
					thumb.Image = nil
					thumb.Resource = theme.DocumentIcon()
				}
				thumb.Refresh()
				id := e.ID
				btns.Objects[0].(*widget.Button).OnTapped = func() { openEntry(id) }
				btns.Objects[1].(*widget.Button).OnTapped = func() { deleteEntry(id) }
			},
		)
	}

	input := widget.NewEntry()
	input.SetPlaceHolder("PDF URL or file path")
	input.OnChanged = ctl.SetInput
	submit := func() {
		spawn("submit", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, submitTimeout)
			defer cancel()
			return ctl.Submit(ctx)
		})
	}
	input.OnSubmitted = func(string) { submit() }
	addBtn := widget.NewButtonWithIcon("Open", theme.ContentAddIcon(), submit)
	busy := widget.NewProgressBarInfinite()
	busy.Hide()

	noticeLabel := widget.NewLabel("")
	noticeLabel.Importance = widget.DangerImportance
	noticeLabel.Wrapping = fyne.TextWrapWord
	noticeBox := container.NewBorder(nil, nil, nil, widget.NewButtonWithIcon("", theme.CancelIcon(), ctl.DismissNotice), noticeLabel)
	noticeBox.Hide()

	homeList := newLibraryList(96)
	emptyLabel := widget.NewLabel("Your library is empty. Open a PDF to get started.")
	header := container.NewVBox(
		widget.NewLabelWithStyle("GoPDFReader", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, addBtn, input),
		busy,
		noticeBox,
		widget.NewSeparator(),
		emptyLabel,
	)
	homeScreen := container.NewBorder(header, nil, nil, nil, homeList)

	// Reader screen
	titleLabel := widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	titleLabel.Truncation = fyne.TextTruncateEllipsis
	homeBtn := widget.NewButtonWithIcon("", theme.HomeIcon(), ctl.Home)
	panelBtn := widget.NewButtonWithIcon("", theme.MenuIcon(), ctl.TogglePanel)
	topBar := container.NewBorder(nil, nil, container.NewHBox(homeBtn, panelBtn), nil, titleLabel)

	pageLabel := widget.NewLabel("")
	zoomLabel := widget.NewLabel("")
	prevBtn := widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() { ctl.Prev() })
	nextBtn := widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() { ctl.Next() })
	zoomIn := func() { spawn("zoom_in", ctl.ZoomIn) }
	zoomOut := func() { spawn("zoom_out", ctl.ZoomOut) }
	zoomOutBtn := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), zoomOut)
	zoomInBtn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), zoomIn)
	bottomBar := container.NewHBox(layout.NewSpacer(), prevBtn, pageLabel, nextBtn, widget.NewSeparator(), zoomOutBtn, zoomLabel, zoomInBtn, layout.NewSpacer())

	panelList := newLibraryList(56)
	panel := container.NewBorder(widget.NewLabelWithStyle("Library", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), nil, nil, nil, panelList)
	panelWidth := canvas.NewRectangle(color.Transparent)
	panelWidth.SetMinSize(fyne.NewSize(280, 0))
	panelHolder := container.NewStack(panelWidth, panel)
	panelHolder.Hide()

	readerScreen := container.NewBorder(container.NewVBox(topBar, widget.NewSeparator()), bottomBar, panelHolder, nil, container.NewScroll(pv))
	readerScreen.Hide()

	flipping := false
	render := func() {
		vm := ctl.View()
		entries = vm.Entries
		homeList.Refresh()
		panelList.Refresh()
		if len(entries) == 0 {
			emptyLabel.Show()
		} else {
			emptyLabel.Hide()
		}
		if input.Text != vm.Input {
			input.SetText(vm.Input)
		}
		if vm.Busy {
			addBtn.Disable()
			busy.Show()
		} else {
			addBtn.Enable()
			busy.Hide()
		}
		if vm.Notice != "" {
			noticeLabel.SetText(vm.Notice)
			noticeBox.Show()
		} else {
			noticeBox.Hide()
		}

		if vm.Screen == reader.ViewHome {
			readerScreen.Hide()
			homeScreen.Show()
		} else {
			homeScreen.Hide()
			readerScreen.Show()
		}
		titleLabel.SetText(vm.ActiveTitle)
		pageLabel.SetText(vm.PageLabel)
		zoomLabel.SetText(vm.ZoomLabel)
		setEnabled(prevBtn, vm.CanPrev)
		setEnabled(nextBtn, vm.CanNext)
		if vm.PanelOpen {
			panelHolder.Show()
		} else {
			panelHolder.Hide()
		}
		switch {
		case vm.Flipping && !flipping:
			pv.StartFlip(vm.Direction, cfg.Reader.FlipDelay())
		case !vm.Flipping && flipping:
			pv.StopFlip()
		}
		flipping = vm.Flipping
	}
	unsubscribe := ctl.OnChange(func() { fyne.Do(render) })
	defer unsubscribe()

	w.SetContent(container.NewStack(homeScreen, readerScreen))

	dispatch := func(a Action) {
		switch a {
		case ActionNext:
			ctl.Next()
		case ActionPrev:
			ctl.Prev()
		case ActionZoomIn:
			zoomIn()
		case ActionZoomOut:
			zoomOut()
		case ActionHome:
			ctl.Home()
		}
	}
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) { dispatch(KeyAction(string(ev.Name), 0)) })
	w.Canvas().SetOnTypedRune(func(r rune) { dispatch(KeyAction("", r)) })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyL, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		ctl.Home()
		w.Canvas().Focus(input)
	})

	exportItem := fyne.NewMenuItem("Export Library…", func() {
		save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			out := uc.URI().Path()
			_ = uc.Close()
			go func() {
				defer crash.Recover(st)
				err := export.Library(rt.Catalog.List(), export.Options{
					OutPath: out,
					Title:   "Library",
					Thumbs:  func(id int64) []byte { return rt.ThumbnailPNG(rootCtx, id) },
				})
				fyne.Do(func() {
					if err != nil {
						l.Error("export failed", slog.Any("err", err))
						dialog.ShowError(err, w)
						return
					}
					dialog.ShowInformation("Export Library", "Exported to "+out, w)
				})
			}()
		}, w)
		save.SetFileName("library.pdf")
		save.SetFilter(fstorage.NewExtensionFileFilter([]string{".pdf", ".json", ".zip"}))
		save.Show()
	})
	openItem := fyne.NewMenuItem("Open Location…", func() {
		ctl.Home()
		w.Canvas().Focus(input)
	})
	fileMenu := fyne.NewMenu("File", openItem, exportItem)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Library", ctl.Home),
		fyne.NewMenuItem("Toggle Panel", ctl.TogglePanel),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Previous Page", func() { ctl.Prev() }),
		fyne.NewMenuItem("Next Page", func() { ctl.Next() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Zoom In", zoomIn),
		fyne.NewMenuItem("Zoom Out", zoomOut),
	)
	aboutItem := fyne.NewMenuItem("About GoPDFReader", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("GoPDFReader\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nData Dir: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, rt.DataDir)
		dialog.ShowInformation("About", info, w)
	})
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, fyne.NewMenu("About", aboutItem)))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		cancelRoot()
		ctl.Close()
		w.Close()
	})

	render()
	if loc := strings.TrimSpace(opts.Locator); loc != "" {
		ctl.SetInput(loc)
		submit()
	}

	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}
