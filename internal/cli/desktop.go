package cli

import (
	"context"

	"github.com/spf13/cobra"

	"SmartBoard/internal/store"
	"SmartBoard/internal/ui"
)

// desktopCommand creates the command that opens the board window. It is also
// what runs when no command is given.
func (c *CLI) desktopCommand() *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "desktop [file]",
		Short: "Open the board in a desktop window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := c.newStore()
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			doc, err := c.openDocument(cmd.Context(), fs, path, !fresh)
			if err != nil {
				return err
			}
			return ui.RunApp(cmd.Context(), ui.Options{
				Config:   c.Config,
				Store:    fs,
				Document: &doc,
				Path:     path,
				Logger:   c.Logger,
			})
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "start with a blank board instead of the autosave")
	return cmd
}

// openDocument loads path, or the autosave when path is empty and restore
// is set, or a blank document.
func (c *CLI) openDocument(ctx context.Context, fs *store.FileStore, path string, restore bool) (store.Document, error) {
	if path != "" {
		return fs.Load(ctx, path)
	}
	if !restore || !c.Config.Data.Autosave {
		return store.Blank(), nil
	}
	doc, ok, err := fs.LoadAutosave(ctx)
	if err != nil {
		c.Logger.Warn("could not restore autosave", "err", err)
		return store.Blank(), nil
	}
	if ok {
		c.Logger.Info("restored autosave", "pages", len(doc.Pages), "path", fs.AutosavePath())
	}
	return doc, nil
}
