package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loog-project/roster/internal/store"
	"github.com/loog-project/roster/pkg/diffmap"
	"github.com/loog-project/roster/pkg/diffpreview"
)

var (
	historyAt   uint64
	historyDiff uint64
	historyAll  bool
)

var historyCmd = &cobra.Command{
	Use:   "history KIND ID",
	Short: "Prints the revisions of a coach, player or team",
	Example: `  roster history players 7
  roster history team 1 --at 3
  roster history coaches 2 --diff 4`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: kindCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseRef(args)
		if err != nil {
			return err
		}
		a, err := openDefaultApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		svc := a.history(kind)
		out := cmd.OutOrStdout()

		if cmd.Flags().Changed("at") {
			snapshot, err := svc.Revision(ctx, id, store.RevisionID(historyAt))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s %d at revision %s (%s)",
				kind, id, snapshot.ID, humanize.Time(snapshot.Time))))
			fmt.Fprintln(out, renderObject(snapshot.Object))
			return nil
		}

		if cmd.Flags().Changed("diff") {
			current, err := svc.Revision(ctx, id, store.RevisionID(historyDiff))
			if err != nil {
				return err
			}
			var before diffmap.DiffMap
			if current.ID > 0 {
				previous, err := svc.Revision(ctx, id, current.PreviousID)
				if err != nil {
					return err
				}
				before = previous.Object
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s %d, revision %s (%s)",
				kind, id, current.ID, humanize.Time(current.Time))))
			fmt.Fprint(out, diffpreview.Render(before, current.Object, diffpreview.DarkTheme, !historyAll))
			return nil
		}

		desc, err := a.describe(ctx, kind, id)
		if err != nil {
			return err
		}
		revisions, err := svc.History(ctx, id)
		if err != nil {
			return err
		}

		t := newTable("Revision", "Type", "Recorded", "Changes")
		for _, rev := range revisions {
			typ := "patch"
			if rev.Snapshot {
				typ = snapshotStyle.Render("snapshot")
			}
			changes := strings.Join(changeLines(rev.Changes), "\n")
			if rev.ID == 0 {
				changes = "created"
			}
			t.Row(rev.ID.String(), typ, humanize.Time(rev.Time), changes)
		}

		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s %d: %s", kind, id, desc)))
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

func init() {
	historyCmd.Flags().Uint64Var(&historyAt, "at", 0,
		"Print the fields of the entity at this revision instead of the history")
	historyCmd.Flags().Uint64Var(&historyDiff, "diff", 0,
		"Print what changed in this revision instead of the history")
	historyCmd.Flags().BoolVar(&historyAll, "all-fields", false,
		"Include unchanged fields in the --diff output")
	historyCmd.MarkFlagsMutuallyExclusive("at", "diff")
	rootCmd.AddCommand(historyCmd)
}

// changeLines renders a change summary as sorted "key: before -> after" lines.
func changeLines(changes map[string]string) []string {
	lines := make([]string, 0, len(changes))
	for k, v := range changes {
		lines = append(lines, k+": "+v)
	}
	slices.Sort(lines)
	return lines
}

func renderObject(obj diffmap.DiffMap) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	t := newTable("Field", "Value")
	for _, k := range keys {
		v := obj[k]
		if f, ok := v.(float64); ok && k == "marketValue" {
			t.Row(k, humanize.Commaf(f))
			continue
		}
		t.Row(k, fmt.Sprint(v))
	}
	return t.Render()
}
