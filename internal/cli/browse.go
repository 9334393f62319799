package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	boardnet "SmartBoard/internal/net"
)

// browseCommand creates the command that lists boards on the local network.
func (c *CLI) browseCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Find boards served on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			seen := make(map[string]bool)
			err := boardnet.Browse(cmd.Context(), timeout, func(p boardnet.Peer) {
				if seen[p.Addr] {
					return
				}
				seen[p.Addr] = true
				line := StyleValue.Render(p.Name) + "  " + StyleLink.Render(p.URL())
				if len(p.Info) > 0 {
					line += "  " + StyleDim.Render(strings.Join(p.Info, " "))
				}
				fmt.Fprintln(out, line)
			})
			if err != nil {
				return err
			}
			if len(seen) == 0 {
				printWarning(out, "No boards found in %s", timeout)
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 3*time.Second, "how long to listen for answers")
	return cmd
}
