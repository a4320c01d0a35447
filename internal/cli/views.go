package cli

import (
	"fmt"
	"strings"

	"github.com/celerix-dev/looply/pkg/tracker"
	"github.com/spf13/cobra"
)

func newTodayCmd(s *session) *cobra.Command {
	var complete bool
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's checklist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			if complete {
				if _, err := svc.CompleteDay(s.cfg.Profile); err != nil {
					return err
				}
			}
			d, err := svc.Dashboard(s.cfg.Profile)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), d)
			}
			renderToday(cmd, d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&complete, "complete", false, "mark every active habit done first")
	return cmd
}

func renderToday(cmd *cobra.Command, d tracker.Dashboard) {
	out := cmd.OutOrStdout()
	greeting := d.Greeting
	if d.UserName != "" {
		greeting += ", " + d.UserName
	}
	fmt.Fprintln(out, headerStyle.Render(greeting))
	fmt.Fprintln(out, hintStyle.Render(d.Date))

	if d.NeedsOnboarding {
		fmt.Fprintln(out, "No active habits. Run 'looply onboard' to get started.")
		return
	}

	var b strings.Builder
	for _, row := range d.Habits {
		fmt.Fprintf(&b, "%s %-28s %s\n", check(row.Done), row.Habit.Title, streakLabel(row.Streak))
	}
	fmt.Fprintf(&b, "\n%d/%d done today", d.CompletedToday, d.ActiveHabits)
	fmt.Fprintln(out, baseStyle.Render(b.String()))
	if d.DayComplete {
		fmt.Fprintln(out, statusDone.Render("All done for today!"))
	}
}

func newStatsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show streaks and this week's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			d, err := svc.Dashboard(s.cfg.Profile)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), d)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render("This week"))
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Progress:"), progressBar(d.WeekProgress, 20))
			fmt.Fprintf(out, "%s %d/%d\n", labelStyle.Render("Today:   "), d.CompletedToday, d.ActiveHabits)
			if len(d.Habits) > 0 {
				var b strings.Builder
				for _, row := range d.Habits {
					fmt.Fprintf(&b, "%-28s %s\n", row.Habit.Title, streakLabel(row.Streak))
				}
				fmt.Fprintln(out, baseStyle.Render(strings.TrimRight(b.String(), "\n")))
			}
			if d.ShowUpgrade {
				fmt.Fprintln(out, hintStyle.Render("Upgrade to pro for unlimited habits: looply upgrade"))
			}
			return nil
		},
	}
}

func newInsightsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Review the last seven days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			in, err := svc.Insights(s.cfg.Profile)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), in)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render("Last 7 days"))
			var b strings.Builder
			for _, d := range in.Days {
				fmt.Fprintf(&b, "%s %s  %d/%d  %s\n", d.Weekday.String()[:3], d.Date, d.Completed, d.Total, progressBar(d.Percent(), 10))
			}
			fmt.Fprintln(out, baseStyle.Render(strings.TrimRight(b.String(), "\n")))
			fmt.Fprintf(out, "%s %d%%\n", labelStyle.Render("Completion rate:"), in.CompletionRate)
			if in.BestDay != nil {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Best day:"), in.BestDay.Date)
			}
			if in.HardestDay != nil {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Hardest day:"), in.HardestDay.Date)
			}
			if in.MostConsistent != nil {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Most consistent:"), in.MostConsistent.Habit.Title)
			}
			if in.Pro != nil {
				fmt.Fprintf(out, "%s %d\n", labelStyle.Render("Top streak:"), in.Pro.TopStreak)
			} else {
				fmt.Fprintln(out, hintStyle.Render("Pro adds per-habit consistency and your top streak."))
			}
			return nil
		},
	}
}

func streakLabel(n int) string {
	switch n {
	case 0:
		return hintStyle.Render("no streak")
	case 1:
		return statusWIP.Render("1 day")
	default:
		return statusWIP.Render(fmt.Sprintf("%d days", n))
	}
}
