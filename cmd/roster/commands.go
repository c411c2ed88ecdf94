package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naveenspark/roster/internal/pubsub"
	"github.com/naveenspark/roster/internal/workflow"
	"github.com/naveenspark/roster/pkg/domain"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// readPassword prompts on stderr and reads one line from in.
func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ") //nolint:errcheck
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// fail turns a workflow error into the message shown to the user.
func fail(err error) error {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		lines := make([]string, len(verrs))
		for i, fe := range verrs {
			lines[i] = "  " + fe.Message
		}
		return fmt.Errorf("invalid input:\n%s", strings.Join(lines, "\n"))
	}
	return errors.New(workflow.UserMessage(err))
}

// parseDepartment accepts a catalog ID or a case-insensitive name.
func parseDepartment(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.NoDepartment, nil
	}
	if id, err := strconv.Atoi(s); err == nil {
		if !domain.ValidDepartmentID(id) {
			return 0, fmt.Errorf("unknown department %d (see roster departments)", id)
		}
		return id, nil
	}
	for _, d := range domain.Departments {
		if strings.EqualFold(d.Name, s) {
			return d.ID, nil
		}
	}
	return 0, fmt.Errorf("unknown department %q (see roster departments)", s)
}

func requireSignedIn(rt *runtime, out io.Writer) error {
	if rt.session().LoggedIn() {
		return nil
	}
	printSignedOutGreeting(out)
	return errors.New("not signed in")
}

func newLoginCmd(rt func() *runtime) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with your email and password",
		Long: `Sign in and remember the session for later commands and the TUI.

The password is read from stdin:
  roster login --email you@university.edu
  echo "$PASSWORD" | roster login --email you@university.edu`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			acct, err := rt().svc.SignIn(commandContext(cmd), domain.SignInInput{Email: email, Password: password})
			if err != nil {
				return fail(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", acct.Email) //nolint:errcheck
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newSignupCmd(rt func() *runtime) *cobra.Command {
	var (
		email, department string
		profile           domain.ProfileInput
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and a student profile",
		Long: `Create an account and save your profile in one step. If the profile
cannot be saved the new account is removed again.

  roster signup --email you@university.edu --student-id 22L-1234 \
    --name "Ayesha Khan" --department "Computer Science" --year 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dept, err := parseDepartment(department)
			if err != nil {
				return err
			}
			profile.DepartmentID = dept
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := domain.RegistrationInput{
				Credentials: domain.Credentials{Email: email, Password: password},
				Profile:     profile,
			}
			prof, err := rt().svc.Register(commandContext(cmd), in, func(s workflow.Stage) {
				if s.Busy() {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s...\n", strings.ReplaceAll(s.String(), "_", " ")) //nolint:errcheck
				}
			})
			if err != nil {
				return fail(err)
			}
			fmt.Fprintf(out, "Registered %s (%s)\n", prof.Name, prof.StudentID) //nolint:errcheck
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&email, "email", "e", "", "account email")
	f.StringVar(&profile.StudentID, "student-id", "", "student ID, e.g. 22L-1234")
	f.StringVar(&profile.Name, "name", "", "full name")
	f.StringVar(&department, "department", "", "department name or ID")
	f.StringVar(&profile.YearOfStudy, "year", "", "year of study")
	f.StringVar(&profile.RegistrationDate, "date", "", "registration date YYYY-MM-DD (default today)")
	return cmd
}

func newLogoutCmd(rt func() *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt().svc.SignOut(commandContext(cmd)); err != nil {
				return fail(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.") //nolint:errcheck
			return nil
		},
	}
}

func newResetPasswordCmd(rt func() *runtime) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt().svc.ResetPassword(commandContext(cmd), email); err != nil {
				return fail(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password reset email sent to %s\n", strings.TrimSpace(email)) //nolint:errcheck
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newListCmd(rt func() *runtime) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the directory, oldest registration first",
		Long: `Print every other student ordered by registration date. Students in your
department are marked with *. With --watch the list is reprinted on every
change until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			r := rt()
			if err := requireSignedIn(r, out); err != nil {
				return err
			}
			ctx := commandContext(cmd)
			if !watch {
				dir, err := r.svc.Directory(ctx)
				if err != nil {
					return fail(err)
				}
				printDirectory(out, dir, r.cfg.UI.HighlightColor)
				return nil
			}
			return watchDirectory(ctx, r, out)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep printing updates")
	return cmd
}

func watchDirectory(ctx context.Context, rt *runtime, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := rt.svc.NewFeed()
	defer feed.Close()
	updates := feed.Subscribe(ctx)
	if err := feed.Start(ctx); err != nil {
		return fail(err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-updates:
			if !ok {
				return nil
			}
			if ev.Type == pubsub.FailedEvent {
				return fail(ev.Payload.Err)
			}
			printDirectory(out, ev.Payload.Directory, rt.cfg.UI.HighlightColor)
			fmt.Fprintln(out) //nolint:errcheck
		}
	}
}

func newProfileCmd(rt func() *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print your own profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			r := rt()
			if err := requireSignedIn(r, out); err != nil {
				return err
			}
			prof, err := r.svc.LoadProfile(commandContext(cmd))
			if err != nil {
				return fail(err)
			}
			printProfile(out, prof)
			return nil
		},
	}
}

func newEditCmd(rt func() *runtime) *cobra.Command {
	var studentID, name, department, year, date string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change fields of your profile",
		Long: `Change one or more profile fields. Fields without a flag keep their
current value.

  roster edit --name "Ayesha Khan" --year 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			r := rt()
			if err := requireSignedIn(r, out); err != nil {
				return err
			}
			ctx := commandContext(cmd)
			current, err := r.svc.LoadProfile(ctx)
			if err != nil {
				return fail(err)
			}

			in := domain.InputFromProfile(current)
			f := cmd.Flags()
			if f.Changed("student-id") {
				in.StudentID = studentID
			}
			if f.Changed("name") {
				in.Name = name
			}
			if f.Changed("department") {
				if in.DepartmentID, err = parseDepartment(department); err != nil {
					return err
				}
			}
			if f.Changed("year") {
				in.YearOfStudy = year
			}
			if f.Changed("date") {
				in.RegistrationDate = date
			}

			prof, err := r.svc.UpdateProfile(ctx, in)
			if err != nil {
				return fail(err)
			}
			printProfile(out, prof)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&studentID, "student-id", "", "student ID, e.g. 22L-1234")
	f.StringVar(&name, "name", "", "full name")
	f.StringVar(&department, "department", "", "department name or ID")
	f.StringVar(&year, "year", "", "year of study")
	f.StringVar(&date, "date", "", "registration date YYYY-MM-DD")
	return cmd
}

func newDepartmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "List the department catalog",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, d := range domain.Departments {
				fmt.Fprintf(out, "%2d  %s\n", d.ID, d.Name) //nolint:errcheck
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "roster "+version) //nolint:errcheck
		},
	}
}
