package cli

import (
	"fmt"
	"image"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	boardnet "SmartBoard/internal/net"
)

// serveCommand creates the command that serves the board to a browser.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		host   string
		port   int
		name   string
		noMDNS bool
		fresh  bool
	)
	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve the board to a browser on the local network",
		Long: `Serve runs the board headless and streams it to one browser at a time.
Pointer, key and wheel input from the browser drive the board; the rendered
frames come back over a WebSocket. Mod+S saves to [file], or to the
autosave slot when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("name") {
				cfg.Server.Name = name
			}
			if noMDNS {
				cfg.Server.MDNS = false
			}

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

			srv, err := boardnet.NewServer(cfg.BoardOptions(), cfg.RenderOptions(), boardnet.Options{
				Addr:      net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
				Size:      image.Pt(cfg.Canvas.Width, cfg.Canvas.Height),
				Smooth:    cfg.SmoothOptions(),
				Grid:      cfg.Canvas.Grid,
				SavePath:  path,
				Store:     fs,
				Document:  &doc,
				Advertise: cfg.Server.MDNS,
				Name:      cfg.Server.Name,
				Logger:    c.Logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			link := boardnet.ShareLink(cfg.Server.Port)
			fmt.Fprintln(out, StyleTitle.Render("SmartBoard")+" "+StyleDim.Render("serving on")+" "+StyleLink.Render(link))
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "interface to listen on (default all)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config, 8765)")
	cmd.Flags().StringVar(&name, "name", "", "name to advertise over mDNS")
	cmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "do not advertise the board on the local network")
	cmd.Flags().BoolVar(&fresh, "new", false, "start with a blank board instead of the autosave")
	return cmd
}
