package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"smart-spend/internal/models"
)

type authOptions struct {
	Name     string
	Email    string
	Password string
	Budget   string
}

func addAuthArgs(cmd *cobra.Command, o *authOptions) {
	cmd.Flags().StringVar(&o.Email, "email", "", "Account email.")
	cmd.Flags().StringVar(&o.Password, "password", "", "Account password. Read from stdin when omitted.")
	_ = cmd.MarkFlagRequired("email")
}

// password returns the flag value or the first line of in.
func (o *authOptions) password(in io.Reader) (string, error) {
	if o.Password != "" {
		return o.Password, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func addLogin(topLevel *cobra.Command, e *env) {
	o := &authOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "log in and remember the session",
		Example: `
smartspend login --email asha@example.com
echo secret1 | smartspend login --email asha@example.com
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := o.password(cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctrl, err := e.controller()
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.Login(cmd.Context(), models.Credentials{Email: o.Email, Password: password}); err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), "Logged in", ctrl.Session())
			return nil
		},
	}

	addAuthArgs(cmd, o)
	topLevel.AddCommand(cmd)
}

func addRegister(topLevel *cobra.Command, e *env) {
	o := &authOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "create an account and remember the session",
		Example: `
smartspend register --name Asha --email asha@example.com --budget 20000
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			budget, err := decimal.NewFromString(o.Budget)
			if err != nil {
				return fmt.Errorf("invalid budget %q: %w", o.Budget, err)
			}
			password, err := o.password(cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctrl, err := e.controller()
			if err != nil {
				return err
			}
			defer ctrl.Close()

			err = ctrl.Register(cmd.Context(), models.Registration{
				Name:          o.Name,
				Email:         o.Email,
				Password:      password,
				MonthlyBudget: budget,
			})
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), "Registered", ctrl.Session())
			return nil
		},
	}

	addAuthArgs(cmd, o)
	cmd.Flags().StringVar(&o.Name, "name", "", "Display name.")
	cmd.Flags().StringVar(&o.Budget, "budget", "0", "Monthly budget.")
	_ = cmd.MarkFlagRequired("name")
	topLevel.AddCommand(cmd)
}

func addLogout(topLevel *cobra.Command, e *env) {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := e.controller()
			if err != nil {
				return err
			}
			ctrl.Restore()
			if err := ctrl.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
