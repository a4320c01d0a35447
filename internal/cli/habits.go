package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
	"github.com/celerix-dev/looply/pkg/tracker"
	"github.com/spf13/cobra"
)

func newHabitCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Manage habits",
	}
	cmd.AddCommand(
		newHabitAddCmd(s),
		newHabitListCmd(s),
		newHabitEditCmd(s),
		newHabitArchiveCmd(s),
		newHabitRestoreCmd(s),
	)
	return cmd
}

func newHabitAddCmd(s *session) *cobra.Command {
	var (
		target float64
		unit   string
	)
	cmd := &cobra.Command{
		Use:     "add <title>",
		Short:   "Add a custom daily habit",
		Example: "  looply habit add \"Read\" --target 20 --unit pages",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			in := tracker.HabitInput{Title: strings.Join(args, " ")}
			if cmd.Flags().Changed("target") {
				in.Target = habit.Float(target)
			}
			if cmd.Flags().Changed("unit") {
				in.Unit = habit.String(unit)
			}
			h, err := svc.CreateHabit(s.cfg.Profile, in)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), h)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", h.Title, shortID(h.ID))
			return nil
		},
	}
	cmd.Flags().Float64Var(&target, "target", 0, "daily target value")
	cmd.Flags().StringVar(&unit, "unit", "", "unit of the target, e.g. min")
	return cmd
}

func newHabitListCmd(s *session) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active habits",
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
			shown := make([]habit.Habit, 0, len(habits))
			for _, h := range habits {
				if all || h.Active {
					shown = append(shown, h)
				}
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), shown)
			}
			if len(shown) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No habits. Run 'looply onboard' or 'looply habit add'.")
				return nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%-8s  %-28s  %-10s  %s\n", "ID", "TITLE", "TARGET", "STATUS")
			for _, h := range shown {
				status := statusDone.Render("active")
				if !h.Active {
					status = hintStyle.Render("archived")
				}
				fmt.Fprintf(&b, "%-8s  %-28s  %-10s  %s\n", shortID(h.ID), h.Title, formatTarget(h), status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), baseStyle.Render(strings.TrimRight(b.String(), "\n")))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include archived habits")
	return cmd
}

func newHabitEditCmd(s *session) *cobra.Command {
	var (
		title  string
		target float64
		unit   string
	)
	cmd := &cobra.Command{
		Use:   "edit <habit>",
		Short: "Change the title or target of a habit",
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
			var patch habit.HabitPatch
			if cmd.Flags().Changed("title") {
				patch.Title = habit.String(title)
			}
			if cmd.Flags().Changed("target") {
				patch.Target = habit.Float(target)
			}
			if cmd.Flags().Changed("unit") {
				patch.Unit = habit.String(unit)
			}
			updated, err := svc.UpdateHabit(s.cfg.Profile, h.ID, patch)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().Float64Var(&target, "target", 0, "new daily target")
	cmd.Flags().StringVar(&unit, "unit", "", "new unit")
	return cmd
}

func newHabitArchiveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <habit>",
		Short: "Archive a habit; its logs are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.setActive(cmd, args[0], false)
		},
	}
}

func newHabitRestoreCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <habit>",
		Short: "Reactivate an archived habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.setActive(cmd, args[0], true)
		},
	}
}

func (s *session) setActive(cmd *cobra.Command, ref string, active bool) error {
	svc, err := s.tracker()
	if err != nil {
		return err
	}
	h, err := s.resolveHabit(ref)
	if err != nil {
		return err
	}
	if active {
		h, err = svc.RestoreHabit(s.cfg.Profile, h.ID)
	} else {
		h, err = svc.ArchiveHabit(s.cfg.Profile, h.ID)
	}
	if err != nil {
		return err
	}
	if s.asJSON {
		return printJSON(cmd.OutOrStdout(), h)
	}
	verb := "Archived"
	if active {
		verb = "Restored"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, h.Title)
	return nil
}

// resolveHabit finds a habit by full id, unique id prefix or exact title
// (case-insensitive).
func (s *session) resolveHabit(ref string) (habit.Habit, error) {
	st, err := s.store()
	if err != nil {
		return habit.Habit{}, err
	}
	habits, err := st.Habits(s.cfg.Profile)
	if err != nil {
		return habit.Habit{}, err
	}

	var matches []habit.Habit
	for _, h := range habits {
		if h.ID == ref {
			return h, nil
		}
		if strings.HasPrefix(h.ID, ref) || strings.EqualFold(h.Title, ref) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return habit.Habit{}, fmt.Errorf("%w: %s", sdk.ErrHabitNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return habit.Habit{}, NewCLIError(
			fmt.Sprintf("%q matches %d habits", ref, len(matches)),
			"Use a longer id prefix",
			nil,
		)
	}
}

func formatTarget(h habit.Habit) string {
	if !h.HasTarget() {
		return "-"
	}
	return strconv.FormatFloat(*h.Target, 'f', -1, 64) + " " + *h.Unit
}
