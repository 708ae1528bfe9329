package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-tts/pkg/tts"
)

func newVoicesCmd() *cobra.Command {
	var (
		provider string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List available voices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			client, err := buildClient(cfg, nil)
			if err != nil {
				return err
			}

			all := client.ListVoices()
			voices := make([]tts.Voice, 0, len(all))
			for _, v := range all {
				if provider == "" || v.Provider == provider {
					voices = append(voices, v)
				}
			}

			if asJSON {
				data, err := sonic.ConfigStd.MarshalIndent(voices, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PROVIDER\tID\tNAME\tGENDER")
			for _, v := range voices {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Provider, v.ID, v.DisplayName, v.Gender)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Only list voices of this provider")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}
