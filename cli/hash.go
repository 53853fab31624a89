package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"rwlock_kv/hasher"
)

// NewHashCommand creates the hash command, which prints the fingerprint the
// table would use for each name.
func NewHashCommand() *cobra.Command {
	var normalize bool

	cmd := &cobra.Command{
		Use:   "hash <name>...",
		Short: "Print the fingerprint of each name",
		Example: `  rwkv hash Alice Bob
  rwkv hash --normalize "José"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if normalize {
					name = norm.NFC.String(name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s,%d\n", name, hasher.Hash(name))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&normalize, "normalize", false, "NFC-normalize names before hashing")
	return cmd
}
