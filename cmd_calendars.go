package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCalendarsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List, create and delete calendars",
	}
	cmd.AddCommand(newCalendarsListCmd(a), newCalendarsCreateCmd(a), newCalendarsDeleteCmd(a))
	return cmd
}

func newCalendarsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List calendars of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			calendars, err := provider.ListCalendars(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(calendars)
			}

			aliases, err := a.aliases.List()
			if err != nil {
				return err
			}
			byID := map[string][]string{}
			for _, alias := range sortedKeys(aliases) {
				byID[aliases[alias]] = append(byID[aliases[alias]], alias)
			}

			fmt.Fprintf(a.out, "📋 Calendars of account %s:\n", name)
			for _, cal := range calendars {
				marker := ""
				if cal.Primary {
					marker = " ⭐️"
				}
				fmt.Fprintf(a.out, "  📅 %s%s (%s)", cal.Summary, marker, cal.ID)
				if names := byID[cal.ID]; len(names) > 0 {
					fmt.Fprintf(a.out, " aliases: %v", names)
				}
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
}

func newCalendarsCreateCmd(a *app) *cobra.Command {
	var timeZone, alias string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a secondary calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			cal, err := provider.CreateCalendar(cmd.Context(), args[0], timeZone)
			if err != nil {
				return err
			}
			if alias != "" {
				if err := a.aliases.Set(alias, cal.ID); err != nil {
					return err
				}
			}
			if a.jsonOut {
				return a.printJSON(cal)
			}
			fmt.Fprintf(a.out, "✅ Calendar %s created (%s)\n", cal.Summary, cal.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&timeZone, "timezone", "", "IANA time zone of the calendar (default: configured timezone)")
	cmd.Flags().StringVar(&alias, "alias", "", "Also register an alias for the new calendar")
	return cmd
}

func newCalendarsDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <calendar>",
		Short: "Delete a calendar by ID or alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calendarID, err := a.aliases.Resolve(args[0])
			if err != nil {
				return err
			}
			if calendarID == primaryCalendarID {
				return fmt.Errorf("%w: the primary calendar cannot be deleted", ErrUsage)
			}
			if !yes {
				return fmt.Errorf("%w: deleting %s is permanent, pass --yes to confirm", ErrUsage, calendarID)
			}
			_, provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			if err := provider.DeleteCalendar(cmd.Context(), calendarID); err != nil {
				return err
			}
			if args[0] != calendarID {
				if _, err := a.aliases.Remove(args[0]); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "✅ Calendar %s deleted successfully\n", calendarID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
