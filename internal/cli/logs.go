package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/spf13/cobra"
)

func newLogCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record and inspect daily progress",
	}
	cmd.AddCommand(newLogToggleCmd(s), newLogValueCmd(s), newLogListCmd(s))
	return cmd
}

func newLogToggleCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <habit>",
		Short: "Mark a habit done for today, or undo it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			h, err := s.resolveHabit(args[0])
			if err != nil {
				return err
			}
			l, err := svc.ToggleToday(s.cfg.Profile, h.ID)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), l)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", check(l.Completed), h.Title)
			return nil
		},
	}
}

func newLogValueCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "value <habit> <value>",
		Short:   "Record today's value for a habit with a target",
		Example: "  looply log value walk 25",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return NewCLIError(fmt.Sprintf("invalid value %q", args[1]), "Pass a number, e.g. 25 or 1.5", err)
			}
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			h, err := s.resolveHabit(args[0])
			if err != nil {
				return err
			}
			l, err := svc.SetTodayValue(s.cfg.Profile, h.ID, value)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), l)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", check(l.Completed), h.Title, formatValue(h, l))
			return nil
		},
	}
}

func newLogListCmd(s *session) *cobra.Command {
	var habitRef, date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logs, newest date first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := s.store()
			if err != nil {
				return err
			}
			habits, err := st.Habits(s.cfg.Profile)
			if err != nil {
				return err
			}
			logs, err := st.Logs(s.cfg.Profile)
			if err != nil {
				return err
			}

			var habitID string
			if habitRef != "" {
				h, err := s.resolveHabit(habitRef)
				if err != nil {
					return err
				}
				habitID = h.ID
			}
			titles := make(map[string]habit.Habit, len(habits))
			for _, h := range habits {
				titles[h.ID] = h
			}

			shown := make([]habit.Log, 0, len(logs))
			for i := len(logs) - 1; i >= 0; i-- {
				l := logs[i]
				if habitID != "" && l.HabitID != habitID {
					continue
				}
				if date != "" && l.Date != date {
					continue
				}
				shown = append(shown, l)
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), shown)
			}
			if len(shown) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No logs.")
				return nil
			}
			var b strings.Builder
			for _, l := range shown {
				h := titles[l.HabitID]
				fmt.Fprintf(&b, "%s  %s %-28s %s\n", l.Date, check(l.Completed), h.Title, formatValue(h, l))
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&habitRef, "habit", "", "only logs of this habit")
	cmd.Flags().StringVar(&date, "date", "", "only logs of this date (YYYY-MM-DD)")
	return cmd
}

func formatValue(h habit.Habit, l habit.Log) string {
	if l.Value == nil {
		return ""
	}
	v := strconv.FormatFloat(*l.Value, 'f', -1, 64)
	if h.HasTarget() {
		return fmt.Sprintf("%s/%s %s", v, strconv.FormatFloat(*h.Target, 'f', -1, 64), *h.Unit)
	}
	return v
}
