package cli

import (
	"fmt"
	"image"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"SmartBoard/internal/export"
)

// exportCommand creates the command that renders a saved board to files.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		format string
		outDir string
		width  int
		height int
		grid   bool
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a saved board as PNG, PDF or SVG",
		Long: `Export renders every page of a saved board. PNG and SVG write one file
per page (smartboard_page_<n>.png/.svg); PDF writes smartboard.pdf with one
board page per PDF page. Each page is fitted to its content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := export.Kind(strings.ToLower(format))
			if !slices.Contains(export.Kinds, kind) {
				return fmt.Errorf("unknown format %q (want png, pdf or svg)", format)
			}
			if outDir == "" {
				outDir = c.Config.Export.Dir
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			fs, err := c.newStore()
			if err != nil {
				return err
			}
			doc, err := fs.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			opts := export.Options{
				Size:   image.Pt(width, height),
				Grid:   grid,
				Smooth: c.Config.SmoothOptions(),
			}
			paths, err := export.Pages(cmd.Context(), kind, doc.Pages, outDir, c.Config.RenderOptions(), opts)
			if err != nil {
				return err
			}
			p.done(fmt.Sprintf("Exported %d page(s)", len(doc.Pages)))

			out := cmd.OutOrStdout()
			printSuccess(out, "Wrote %d file(s)", len(paths))
			for _, path := range paths {
				printDetail(out, "%s", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "png", "output format: png, pdf or svg")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().IntVar(&width, "width", export.DefaultSize.X, "raster width in pixels")
	cmd.Flags().IntVar(&height, "height", export.DefaultSize.Y, "raster height in pixels")
	cmd.Flags().BoolVar(&grid, "grid", false, "draw the background grid")
	return cmd
}
