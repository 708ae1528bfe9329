package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-tts/pkg/speech"
	"github.com/teslashibe/go-tts/pkg/volcano"
)

func newSynthCmd() *cobra.Command {
	var (
		text      string
		voice     string
		protocol  string
		operation string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to an audio file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			input, err := readSynthText(text, cmd.InOrStdin())
			if err != nil {
				return err
			}

			client, err := buildClient(cfg, nil)
			if err != nil {
				return err
			}

			audio, err := client.Synthesize(cmd.Context(), speech.Request{
				Text:      input,
				Voice:     voice,
				Protocol:  speech.ParseProtocol(protocol),
				Operation: volcano.ParseOperation(operation),
			})
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(audio)
				return err
			}
			if err := os.WriteFile(out, audio, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(audio), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (reads stdin when empty)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice id or display name")
	cmd.Flags().StringVar(&protocol, "protocol", "", "Protocol: default or streaming")
	cmd.Flags().StringVar(&operation, "operation", "", "Volcano operation: submit or query")
	cmd.Flags().StringVarP(&out, "out", "o", "out.mp3", "Output file, - for stdout")

	return cmd
}

// readSynthText returns text, or stdin when text is empty. Blank input
// is passed through so the client substitutes its default text.
func readSynthText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if f, ok := stdin.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", errors.Join(errors.New("read stdin"), err)
	}
	return strings.TrimSpace(string(data)), nil
}
