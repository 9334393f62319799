package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"SmartBoard/internal/keymap"
)

// keysCommand creates the command that lists the keyboard shortcuts.
func (c *CLI) keysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List keyboard shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, StyleTitle.Render("Shortcuts"))
			for _, b := range keymap.Bindings() {
				printField(out, b.Keys, b.Action)
			}
			printDetail(out, "Mod is Ctrl, or Cmd on macOS")
			return nil
		},
	}
}
