package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/textstruct/core/process"
	"github.com/leofalp/textstruct/internal/htmltext"
)

func newStructureCommand(configPath *string) *cobra.Command {
	var (
		fileA string
		fileB string
		html  bool
	)

	cmd := &cobra.Command{
		Use:   "structure --a FILE --b FILE",
		Short: "Structure one pair of texts and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			textA, err := os.ReadFile(fileA)
			if err != nil {
				return fmt.Errorf("reading text A: %w", err)
			}
			textB, err := os.ReadFile(fileB)
			if err != nil {
				return fmt.Errorf("reading text B: %w", err)
			}

			a, err := newApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			format := htmltext.FormatText
			if html {
				format = htmltext.FormatHTML
			}

			response, err := a.processor.Run(cmd.Context(), process.Request{
				TextA:  string(textA),
				TextB:  string(textB),
				Format: format,
			})
			if err != nil {
				var runErr *process.RunError
				if errors.As(err, &runErr) {
					return fmt.Errorf("%w (see %s/%s.log)", err, a.store.Dir, runErr.ProcessID)
				}
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			encoder.SetEscapeHTML(false)
			return encoder.Encode(response)
		},
	}
	cmd.Flags().StringVar(&fileA, "a", "", "file holding text A")
	cmd.Flags().StringVar(&fileB, "b", "", "file holding text B")
	cmd.Flags().BoolVar(&html, "html", false, "treat both inputs as HTML")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}
