package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/action-kernel/internal/validator"
	"github.com/spf13/cobra"
)

var validateJSON bool

// validateCmd checks narrative text against the policy
var validateCmd = &cobra.Command{
	Use:   "validate [text]",
	Short: "Check narrative text for forbidden words, recommendations and identity leaks",
	Long: `Validates the arguments joined by spaces, or stdin when no arguments are given.
Exits 1 when the text is rejected.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	text := strings.Join(args, " ")
	if len(args) == 0 {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}

	res := validator.Default().Validate(text)
	if validateJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "policy=%s valid=%v\n", res.PolicyVersion, res.IsValid)
		for _, v := range res.Violations {
			fmt.Fprintf(out, "  %-22s %-24s %-3s @%d %q\n", v.Type, v.Rule, v.Locale, v.Offset, v.Excerpt)
		}
	}
	if !res.IsValid {
		return errFailed
	}
	return nil
}
