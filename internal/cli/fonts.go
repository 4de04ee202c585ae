package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/watermarker/pkg/fonts"
)

// fontsCommand creates the fonts command listing usable font families.
func (c *CLI) fontsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fonts [query]",
		Short: "List embedded and installed fonts",
		Long: `List the embedded font families and the installed font files whose name
contains query (case-insensitive). Any listed family or file can be passed
to --font.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			printTitle(out, "Embedded")
			for _, family := range fonts.EmbeddedFamilies() {
				if query == "" || strings.Contains(strings.ToLower(family), strings.ToLower(query)) {
					printFile(out, family)
				}
			}

			installed := fonts.List(query)
			loggerFromContext(cmd.Context()).Debug("scanned font directories", "matches", len(installed))

			printTitle(out, "Installed")
			if len(installed) == 0 {
				printWarning(out, "No installed fonts match %q", query)
				return nil
			}
			for _, path := range installed {
				printFile(out, path)
			}
			printKeyValue(out, "Total", strconv.Itoa(len(installed)))
			return nil
		},
	}
}
