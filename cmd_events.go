package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	var date, calendarRef string
	var week bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show events of one day or one week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.account()
			if err != nil {
				return err
			}
			day, _, err := parseTimeInput(date, a.loc, a.now())
			if err != nil {
				return err
			}
			r := DateRange{From: startOfDay(day), To: startOfDay(day).AddDate(0, 0, 1)}
			if week {
				r.To = r.From.AddDate(0, 0, 7)
			}

			events, err := a.fetcher.FetchEvents(cmd.Context(), name, calendarRef, EventQuery{From: r.From, To: r.To})
			if err != nil {
				return err
			}
			return a.printDays(buildSyncDocument(name, r, events, a.formatter, a.now()))
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "Day to show (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().BoolVar(&week, "week", false, "Show seven days starting at --date")
	cmd.Flags().StringVarP(&calendarRef, "calendar", "c", "", "Calendar ID or alias (default primary)")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var from, to, calendarRef string
	var limit int64

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search events by free text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.account()
			if err != nil {
				return err
			}
			today := startOfDay(a.now().In(a.loc))
			r := DateRange{From: today, To: today.AddDate(0, 0, 90)}
			if from != "" || to != "" {
				if from == "" {
					from = today.Format(dateLayout)
				}
				if to == "" {
					to = today.AddDate(0, 0, 90).Format(dateLayout)
				}
				rng, err := parseDateRange(from, to, a.loc, a.now())
				if err != nil {
					return err
				}
				r = *rng
			}

			events, err := a.fetcher.FetchEvents(cmd.Context(), name, calendarRef, EventQuery{
				From:  r.From,
				To:    r.To,
				Query: args[0],
				Limit: limit,
			})
			if err != nil {
				return err
			}
			return a.printDays(buildSyncDocument(name, r, events, a.formatter, a.now()))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Range start (default today)")
	cmd.Flags().StringVar(&to, "to", "", "Range end, exclusive (default today + 90 days)")
	cmd.Flags().StringVarP(&calendarRef, "calendar", "c", "", "Calendar ID or alias (default primary)")
	cmd.Flags().Int64Var(&limit, "limit", 50, "Maximum number of results (0 for no limit)")
	return cmd
}

func (a *app) printDays(doc *SyncDocument) error {
	if a.jsonOut {
		return a.printJSON(doc)
	}
	if doc.TotalEvents == 0 {
		fmt.Fprintln(a.out, "No events found")
		return nil
	}
	for _, day := range doc.Days {
		label := day.Weekday
		if len(day.Events) > 0 {
			label = day.Events[0].DateLabel
		}
		fmt.Fprintf(a.out, "📅 %s (%s)\n", label, day.Date)
		for _, ev := range day.Events {
			line := fmt.Sprintf("   %-13s  %s", ev.Time, ev.Title)
			if ev.Location != "" {
				line += "  📍 " + ev.Location
			}
			fmt.Fprintln(a.out, line)
			fmt.Fprintf(a.out, "   %s  🆔 %s\n", strings.Repeat(" ", 13), ev.ID)
		}
	}
	return nil
}
