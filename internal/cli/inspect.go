package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"SmartBoard/internal/state"
	"SmartBoard/internal/store"
)

// inspectCommand creates the command that summarizes a saved board.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize the pages of a saved board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := c.newStore()
			if err != nil {
				return err
			}
			doc, err := fs.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDocument(cmd.OutOrStdout(), args[0], doc)
			return nil
		},
	}
}

func printDocument(w io.Writer, path string, doc store.Document) {
	fmt.Fprintln(w, StyleTitle.Render(path))
	printField(w, "format", store.FormatFor(path))
	printField(w, "version", doc.Version)
	printField(w, "pages", len(doc.Pages))
	printField(w, "current", doc.Current+1)
	for i, p := range doc.Pages {
		fmt.Fprintln(w)
		fmt.Fprintln(w, StyleNumber.Render(fmt.Sprintf("Page %d", i+1))+" "+StyleDim.Render(p.ID))
		printField(w, "strokes", strokeSummary(p.Strokes))
		printField(w, "objects", objectSummary(p.Objects))
		if p.BG != nil {
			printField(w, "background", fmt.Sprintf("%s, %d bytes", p.BG.Format, len(p.BG.Data)))
		}
		if b := state.ContentBounds(&p); !b.Empty() {
			printField(w, "bounds", fmt.Sprintf("%.0f,%.0f %.0fx%.0f", b.X, b.Y, b.W, b.H))
		}
	}
}

func strokeSummary(strokes []state.Stroke) string {
	counts := make(map[state.Mode]int)
	for _, s := range strokes {
		counts[s.Mode]++
	}
	return summary(len(strokes), counts)
}

func objectSummary(objects []state.Object) string {
	counts := make(map[state.Kind]int)
	for _, o := range objects {
		counts[o.Kind]++
	}
	return summary(len(objects), counts)
}

func summary[K ~string](total int, counts map[K]int) string {
	s := fmt.Sprint(total)
	if total == 0 {
		return s
	}
	s += " ("
	for i, k := range slices.Sorted(maps.Keys(counts)) {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d %s", counts[k], k)
	}
	return s + ")"
}
