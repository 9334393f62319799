package ui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"

	"SmartBoard/internal/config"
	"SmartBoard/internal/export"
	"SmartBoard/internal/keymap"
	"SmartBoard/internal/record"
	"SmartBoard/internal/render"
	"SmartBoard/internal/state"
	"SmartBoard/internal/store"
	"SmartBoard/internal/viewport"
)

const (
	appID         = "io.smartboard.desktop"
	autosaveEvery = time.Minute
)

// Options configures the desktop app.
type Options struct {
	Config config.Config
	Store  *store.FileStore
	// Document is shown at start; Path is where it came from, if anywhere.
	Document *store.Document
	Path     string
	Logger   *log.Logger
}

type desk struct {
	ctx     context.Context
	opts    Options
	log     *log.Logger
	win     fyne.Window
	board   *state.Board
	view    *BoardWidget
	toolbar *Toolbar
	layers  *Layers
	rec     *record.Recorder
	path    string
	dirty   bool

	recordItem *fyne.MenuItem
}

// RunApp opens the board window and blocks until it is closed or ctx is
// done, in which case it returns ctx's error.
func RunApp(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Store == nil {
		fs, err := store.NewFileStore(opts.Config.Data.Dir, opts.Logger)
		if err != nil {
			return err
		}
		opts.Store = fs
	}
	r, err := render.New(opts.Config.RenderOptions(), opts.Logger)
	if err != nil {
		return err
	}

	myApp := app.NewWithID(appID)
	myWindow := myApp.NewWindow("SmartBoard")
	myWindow.Resize(fyne.NewSize(float32(opts.Config.Canvas.Width), float32(opts.Config.Canvas.Height)))

	d := newDesk(ctx, opts, r, myWindow)
	myWindow.SetMainMenu(d.menu())
	d.addShortcuts()
	myWindow.SetContent(container.NewBorder(d.toolbar.Content(), d.toolbar.Status(), nil, d.layers.Content(), d.view))
	myWindow.SetCloseIntercept(d.close)

	go d.autosaveLoop(ctx)
	go func() {
		<-ctx.Done()
		fyne.Do(myApp.Quit)
	}()

	myWindow.ShowAndRun()
	return ctx.Err()
}

func newDesk(ctx context.Context, opts Options, r *render.Renderer, win fyne.Window) *desk {
	bo := opts.Config.BoardOptions()
	bo.Post = fyne.Do
	bo.Logger = opts.Logger
	board := state.NewBoard(bo)
	if opts.Document != nil {
		board.Load(opts.Document.Pages, opts.Document.Current)
	}
	if opts.Config.Canvas.Grid {
		board.ToggleGrid()
	}

	d := &desk{
		ctx:   ctx,
		opts:  opts,
		log:   opts.Logger.WithPrefix("desktop"),
		win:   win,
		board: board,
		path:  opts.Path,
		rec: record.New(record.Options{
			FPS:       opts.Config.Record.FPS,
			MaxFrames: opts.Config.Record.MaxFrames,
			Logger:    opts.Logger,
		}),
	}
	d.view = NewBoardWidget(board, r)
	d.toolbar = NewToolbar(d.view)
	d.layers = NewLayers(d.view, d.log)
	d.view.OnChange = func() {
		d.dirty = true
		d.toolbar.Update()
		d.layers.Update()
	}
	board.OnEditText = d.editText
	board.OnRequestImage = d.requestImage
	d.updateTitle()
	return d
}

func (d *desk) updateTitle() {
	title := "SmartBoard"
	if d.path != "" {
		title += " - " + filepath.Base(d.path)
	}
	d.win.SetTitle(title)
}

func (d *desk) menu() *fyne.MainMenu {
	b := d.board
	d.recordItem = fyne.NewMenuItem("Start Recording", d.toggleRecording)
	return fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("New", d.newBoard),
			fyne.NewMenuItem("Open…", d.open),
			fyne.NewMenuItem("Save", func() { d.save(false) }),
			fyne.NewMenuItem("Save As…", func() { d.save(true) }),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Export PNG…", func() { d.export(export.KindPNG) }),
			fyne.NewMenuItem("Export PDF…", func() { d.export(export.KindPDF) }),
			fyne.NewMenuItem("Export SVG…", func() { d.export(export.KindSVG) }),
			fyne.NewMenuItemSeparator(),
			d.recordItem,
		),
		fyne.NewMenu("Edit",
			fyne.NewMenuItem("Undo", func() { b.Undo() }),
			fyne.NewMenuItem("Redo", func() { b.Redo() }),
			fyne.NewMenuItem("Delete Selected", b.DeleteSelected),
		),
		fyne.NewMenu("Page",
			fyne.NewMenuItem("Add Page", b.AddPage),
			fyne.NewMenuItem("Duplicate Page", b.DuplicatePage),
			fyne.NewMenuItem("Delete Page", func() { b.DeleteCurrentPage() }),
			fyne.NewMenuItem("Clear Page", b.ClearPage),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Previous Page", b.PrevPage),
			fyne.NewMenuItem("Next Page", b.NextPage),
		),
		fyne.NewMenu("View",
			fyne.NewMenuItem("Fit to Content", func() { b.Fit(d.view.ViewSize()) }),
			fyne.NewMenuItem("Reset Zoom", b.ResetView),
			fyne.NewMenuItem("Toggle Grid", b.ToggleGrid),
		),
	)
}

func (d *desk) addShortcuts() {
	c := d.win.Canvas()
	mod := fyne.KeyModifierShortcutDefault
	for _, s := range []*desktop.CustomShortcut{
		{KeyName: fyne.KeyZ, Modifier: mod},
		{KeyName: fyne.KeyZ, Modifier: mod | fyne.KeyModifierShift},
		{KeyName: fyne.KeyY, Modifier: mod},
		{KeyName: fyne.KeyS, Modifier: mod},
	} {
		c.AddShortcut(s, func(fyne.Shortcut) { d.shortcut(s.KeyName, s.Modifier) })
	}
}

func (d *desk) shortcut(key fyne.KeyName, mods fyne.KeyModifier) {
	a, ok := keymap.Resolve(string(key), keyMods(mods))
	if !ok {
		return
	}
	if a == keymap.Save {
		d.save(false)
		return
	}
	keymap.Apply(d.board, a, d.view.ViewSize())
}

func (d *desk) editText(id, text string) {
	entry := widget.NewMultiLineEntry()
	entry.SetText(text)
	dialog.ShowForm("Edit text", "Save", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Text", entry)},
		func(ok bool) {
			if !ok {
				return
			}
			if err := d.board.SetText(id, entry.Text); err != nil {
				dialog.ShowError(err, d.win)
			}
		}, d.win)
}

func (d *desk) requestImage(at viewport.Point) {
	open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, d.win)
			return
		}
		if rc == nil {
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(fmt.Errorf("read image: %w", err), d.win)
			return
		}
		d.board.AddImage(at, data)
	}, d.win)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif"}))
	open.Show()
}

func (d *desk) document() store.Document {
	return store.New(d.board.Pages(), d.board.PageIndex())
}

func (d *desk) newBoard() {
	d.board.Load([]state.Page{state.NewPage()}, 0)
	d.path = ""
	d.updateTitle()
}

func (d *desk) open() {
	open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, d.win)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		rc.Close()
		go func() {
			doc, err := d.opts.Store.Load(d.ctx, path)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, d.win)
					return
				}
				d.board.Load(doc.Pages, doc.Current)
				d.path = path
				d.updateTitle()
			})
		}()
	}, d.win)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".json", ".sbd"}))
	open.Show()
}

func (d *desk) save(saveAs bool) {
	if d.path == "" || saveAs {
		save := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, d.win)
				return
			}
			if wc == nil {
				return
			}
			path := wc.URI().Path()
			wc.Close()
			d.path = path
			d.updateTitle()
			d.writeDocument(path)
		}, d.win)
		save.SetFileName("board.json")
		save.Show()
		return
	}
	d.writeDocument(d.path)
}

func (d *desk) writeDocument(path string) {
	doc := d.document()
	go func() {
		err := d.opts.Store.Save(d.ctx, path, doc)
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, d.win)
				return
			}
			d.toolbar.Status().SetText("Saved " + filepath.Base(path))
		})
	}()
}

func (d *desk) export(kind export.Kind) {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, d.win)
			return
		}
		if dir == nil {
			return
		}
		pages := d.board.Pages()
		opts := export.Options{Smooth: d.opts.Config.SmoothOptions()}
		ro := d.opts.Config.RenderOptions()
		go func() {
			paths, err := export.Pages(d.ctx, kind, pages, dir.Path(), ro, opts)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, d.win)
					return
				}
				dialog.ShowInformation("Export", fmt.Sprintf("Wrote %d file(s):\n%s", len(paths), strings.Join(paths, "\n")), d.win)
			})
		}()
	}, d.win)
}

func (d *desk) toggleRecording() {
	if !d.rec.Recording() {
		if err := d.rec.Start(d.ctx, record.SourceFunc(d.view.Snapshot)); err != nil {
			dialog.ShowError(err, d.win)
			return
		}
		d.recordItem.Label = "Stop Recording"
		d.win.MainMenu().Refresh()
		return
	}
	d.recordItem.Label = "Start Recording"
	d.win.MainMenu().Refresh()
	dir := d.opts.Config.Export.Dir
	go func() {
		path, err := SaveRecording(d.rec, dir)
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, d.win)
				return
			}
			dialog.ShowInformation("Recording", "Saved "+path, d.win)
		})
	}()
}

func (d *desk) autosave() {
	if !d.dirty || !d.opts.Config.Data.Autosave {
		return
	}
	d.dirty = false
	doc := d.document()
	go func() {
		if err := d.opts.Store.Autosave(d.ctx, doc); err != nil {
			d.log.Warn("autosave failed", "err", err)
		}
	}()
}

func (d *desk) autosaveLoop(ctx context.Context) {
	ticker := time.NewTicker(autosaveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fyne.Do(d.autosave)
		}
	}
}

func (d *desk) close() {
	if d.rec.Recording() {
		if _, err := d.rec.Stop(); err != nil {
			d.log.Warn("discarding recording", "err", err)
		}
	}
	if d.dirty && d.opts.Config.Data.Autosave {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.opts.Store.Autosave(ctx, d.document()); err != nil {
			d.log.Warn("autosave failed", "err", err)
		}
	}
	d.win.Close()
}
