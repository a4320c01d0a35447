package cli

import (
	"fmt"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/tracker"
	"github.com/spf13/cobra"
)

func newProfilesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles that hold data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := s.store()
			if err != nil {
				return err
			}
			list, err := st.Profiles()
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles yet.")
				return nil
			}
			for _, p := range list {
				marker := " "
				if p == s.cfg.Profile {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, p)
			}
			return nil
		},
	}
}

func newSignUpCmd(s *session) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create or update the local user of the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			u, err := svc.SignUp(s.cfg.Profile, name, email)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are on the %s plan.\n", u.Name, u.Plan)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "your name")
	cmd.Flags().StringVar(&email, "email", "", "your email (optional)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUpgradeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Switch the user to the pro plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			u, err := svc.UpgradeToPro(s.cfg.Profile)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusDone.Render("You are now on the pro plan. Unlimited habits unlocked."))
			return nil
		},
	}
}

func newOnboardCmd(s *session) *cobra.Command {
	var (
		presets       []string
		custom        string
		notifications string
	)
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Create the first habits from presets",
		Long: `Create the first habits of a profile from presets and an optional custom habit.

Presets: walk, water, meditate, sleep.`,
		Example: "  looply onboard --preset walk --preset water --custom \"Stretch\"",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.tracker()
			if err != nil {
				return err
			}
			in := tracker.OnboardingInput{
				PresetIDs:     presets,
				CustomTitle:   custom,
				Notifications: habit.NotificationPermission(notifications),
			}
			created, err := svc.Onboard(s.cfg.Profile, in)
			if err != nil {
				return err
			}
			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d habit(s):\n", len(created))
			for _, h := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", hintStyle.Render(shortID(h.ID)), h.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&presets, "preset", nil, "preset id to add (repeatable)")
	cmd.Flags().StringVar(&custom, "custom", "", "title of a custom habit")
	cmd.Flags().StringVar(&notifications, "notifications", "", "reminder permission: allowed or denied")
	return cmd
}

func newResetCmd(s *session) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every habit, log and the user of the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewCLIError("refusing to reset without confirmation", "Re-run with --yes", nil)
			}
			st, err := s.store()
			if err != nil {
				return err
			}
			if err := st.Reset(s.cfg.Profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %s reset.\n", s.cfg.Profile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
