package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loog-project/roster/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed FILE...",
	Short: "Loads coaches, players and teams from YAML fixture files",
	Long: `Seed creates the coaches, players and teams listed in the given YAML
files. Entities whose ID already exists are updated instead, so seeding the
same file again only records what changed.`,
	Args: cobra.MinimumNArgs(1),
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openDefaultApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			fixtures, err := seed.Load(path)
			if err != nil {
				return err
			}
			res, err := fixtures.Apply(cmd.Context(), a.roster)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d created, %d updated\n", path, res.Created, res.Updated)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
