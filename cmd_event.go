package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type eventFlags struct {
	summary     string
	description string
	location    string
	start       string
	end         string
	allDay      bool
	attendees   []string

	// update leaves the end unset when --end is absent, so the provider
	// keeps the event's length.
	update bool
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.summary, "summary", "", "Event title")
	cmd.Flags().StringVar(&f.description, "description", "", "Event description")
	cmd.Flags().StringVar(&f.location, "location", "", "Event location")
	cmd.Flags().StringVar(&f.start, "start", "", "Start (YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "End, exclusive (default: +1h, or next day for all-day events)")
	cmd.Flags().BoolVar(&f.allDay, "all-day", false, "Create an all-day event")
	cmd.Flags().StringSliceVar(&f.attendees, "attendee", nil, "Attendee email (repeatable)")
}

// input builds an EventInput from the flags that were actually set.
func (f *eventFlags) input(cmd *cobra.Command, a *app) (*EventInput, error) {
	in := &EventInput{}
	changed := cmd.Flags().Changed
	if changed("summary") {
		in.Summary = stringPtr(f.summary)
	}
	if changed("description") {
		in.Description = stringPtr(f.description)
	}
	if changed("location") {
		in.Location = stringPtr(f.location)
	}
	if changed("attendee") {
		in.Attendees = append([]string{}, f.attendees...)
	}
	if changed("end") && !changed("start") {
		return nil, fmt.Errorf("%w: --end requires --start", ErrUsage)
	}
	if changed("start") {
		start, end, err := buildEventTimes(f.start, f.end, f.allDay, a.loc, a.now())
		if err != nil {
			return nil, err
		}
		in.Start, in.End = &start, &end
		if f.update && !changed("end") {
			in.End = nil
		}
	}
	return in, nil
}

func newEventCmd(a *app) *cobra.Command {
	var calendarRef string

	cmd := &cobra.Command{
		Use:   "event",
		Short: "Show, create, update, delete or move a single event",
	}
	cmd.PersistentFlags().StringVarP(&calendarRef, "calendar", "c", "", "Calendar ID or alias (default primary)")

	calendarID := func() (string, error) {
		return a.aliases.Resolve(calendarRef)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <event-id>",
		Short: "Show the full detail of one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calID, err := calendarID()
			if err != nil {
				return err
			}
			_, provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := provider.GetEvent(cmd.Context(), calID, args[0])
			if err != nil {
				return err
			}
			return a.printEvent(ev)
		},
	})

	var createFlags eventFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := createFlags.input(cmd, a)
			if err != nil {
				return err
			}
			calID, err := calendarID()
			if err != nil {
				return err
			}
			_, provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := provider.InsertEvent(cmd.Context(), calID, in)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(ev)
			}
			fmt.Fprintf(a.out, "✅ Event %s created (%s)\n", ev.Summary, ev.ID)
			return nil
		},
	}
	createFlags.register(createCmd)
	_ = createCmd.MarkFlagRequired("summary")
	_ = createCmd.MarkFlagRequired("start")
	cmd.AddCommand(createCmd)

	updateFlags := eventFlags{update: true}
	updateCmd := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Update fields of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := updateFlags.input(cmd, a)
			if err != nil {
				return err
			}
			if in.IsEmpty() {
				return fmt.Errorf("%w: nothing to update", ErrUsage)
			}
			calID, err := calendarID()
			if err != nil {
				return err
			}
			_, provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := provider.UpdateEvent(cmd.Context(), calID, args[0], in)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(ev)
			}
			fmt.Fprintf(a.out, "✅ Event %s updated\n", ev.ID)
			return nil
		},
	}
	updateFlags.register(updateCmd)
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calID, err := calendarID()
			if err != nil {
				return err
			}
			_, provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			if err := provider.DeleteEvent(cmd.Context(), calID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Event %s deleted\n", args[0])
			return nil
		},
	})

	var destination string
	moveCmd := &cobra.Command{
		Use:   "move <event-id>",
		Short: "Move an event to another calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calID, err := calendarID()
			if err != nil {
				return err
			}
			destID, err := a.aliases.Resolve(destination)
			if err != nil {
				return err
			}
			if destID == calID {
				return fmt.Errorf("%w: source and destination calendar are the same", ErrUsage)
			}
			_, provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := provider.MoveEvent(cmd.Context(), calID, args[0], destID)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Event %s moved to %s\n", ev.ID, destID)
			return nil
		},
	}
	moveCmd.Flags().StringVar(&destination, "to", "", "Destination calendar ID or alias")
	_ = moveCmd.MarkFlagRequired("to")
	cmd.AddCommand(moveCmd)

	return cmd
}

func (a *app) printEvent(ev *RawEvent) error {
	if a.jsonOut {
		return a.printJSON(ev)
	}
	n := a.formatter.Format(ev)
	fmt.Fprintf(a.out, "📌 %s\n", n.Title)
	fmt.Fprintf(a.out, "   🆔 %s\n", ev.ID)
	fmt.Fprintf(a.out, "   📅 %s (%s) %s\n", n.DateLabel, n.Date, n.Time)
	if ev.Location != "" {
		fmt.Fprintf(a.out, "   📍 %s\n", ev.Location)
	}
	if ev.Organizer != "" {
		fmt.Fprintf(a.out, "   👤 %s\n", ev.Organizer)
	}
	for _, att := range ev.Attendees {
		name := att.Email
		if att.DisplayName != "" {
			name = att.DisplayName + " <" + att.Email + ">"
		}
		fmt.Fprintf(a.out, "   👥 %s (%s)\n", name, att.ResponseStatus)
	}
	if ev.Description != "" {
		fmt.Fprintf(a.out, "   📝 %s\n", ev.Description)
	}
	if ev.HTMLLink != "" {
		fmt.Fprintf(a.out, "   🔗 %s\n", ev.HTMLLink)
	}
	return nil
}
