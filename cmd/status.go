package cmd

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

const statusTimeout = 5 * time.Second

// Status constructs a CLI command printing the relay status reported by a running daemon.
func Status(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Prints the relays and the fetch queue of a running bridge daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := NodeConfig(cmd.Context())
			url := fmt.Sprintf("http://%s/relays", net.JoinHostPort(cfg.Gateway.Address, cfg.Gateway.Port))

			var status json.RawMessage
			err := getJSON(cmd, url, &status)
			return PrintOutput(cmd.OutOrStdout(), status, err)
		},
	}
	for _, set := range fsets {
		cmd.Flags().AddFlagSet(set)
	}
	return cmd
}

func getJSON(cmd *cobra.Command, url string, v any) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: statusTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("cmd: querying daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cmd: daemon responded with %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
