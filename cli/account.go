package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/session"
	"github.com/stevemurr/storefront/storefront"
)

// NewAccountCommand creates the account command group.
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Register, log in and out",
	}
	cmd.AddCommand(
		newAccountRegisterCommand(rootOpts),
		newAccountLoginCommand(rootOpts),
		newAccountLogoutCommand(rootOpts),
		newAccountWhoamiCommand(rootOpts),
	)
	return cmd
}

func newAccountRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		role string
		reg  session.Registration
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create a customer or admin account. Admin registration needs the
admin registration code. Registering does not log in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				r, err := session.ParseRole(role)
				if err != nil {
					return fault.Invalid("session.register", err)
				}
				u, err := sf.Session.Register(r, reg)
				if err != nil {
					return err
				}
				return out.Success(u, func(w io.Writer) {
					fmt.Fprintf(w, "Registered %s (%s)\n", u.Email, u.Role.Label())
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&role, "role", "customer", "customer|admin")
	f.StringVar(&reg.Email, "email", "", "email address")
	f.StringVar(&reg.Password, "password", "", "password")
	f.StringVar(&reg.Name, "name", "", "display name")
	f.StringVar(&reg.Code, "code", "", "admin registration code")
	return cmd
}

func newAccountLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var role, email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in, replacing any current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				r, err := session.ParseRole(role)
				if err != nil {
					return fault.Invalid("session.login", err)
				}
				u, err := sf.Session.Login(r, email, password)
				if err != nil {
					return err
				}
				return out.Success(u, func(w io.Writer) { renderUser(w, u) })
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&role, "role", "customer", "customer|admin")
	f.StringVar(&email, "email", "", "email address")
	f.StringVar(&password, "password", "", "password")
	return cmd
}

func newAccountLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				if err := sf.Session.Logout(); err != nil {
					return err
				}
				return out.Success(map[string]bool{"authenticated": false}, func(w io.Writer) {
					fmt.Fprintln(w, "Logged out")
				})
			})
		},
	}
}

func newAccountWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				u, err := sf.Session.RequireUser("session.whoami")
				if err != nil {
					return err
				}
				return out.Success(u, func(w io.Writer) { renderUser(w, u) })
			})
		},
	}
}

func renderUser(w io.Writer, u session.User) {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	fmt.Fprintf(w, "%s <%s> (%s)\n", name, u.Email, u.Role.Label())
}
