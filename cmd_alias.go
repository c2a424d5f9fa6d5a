package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAliasCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage short names for calendar IDs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases, err := a.aliases.List()
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(aliases)
			}
			if len(aliases) == 0 {
				fmt.Fprintln(a.out, "No aliases defined")
				return nil
			}
			for _, alias := range sortedKeys(aliases) {
				fmt.Fprintf(a.out, "  🏷  %s → %s\n", alias, aliases[alias])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <alias> <calendar-id>",
		Short: "Create or replace an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.aliases.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Alias %s → %s saved\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <alias>",
		Short: "Remove an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.aliases.Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: alias %q does not exist", ErrUsage, args[0])
			}
			fmt.Fprintf(a.out, "✅ Alias %s removed\n", args[0])
			return nil
		},
	})

	return cmd
}
