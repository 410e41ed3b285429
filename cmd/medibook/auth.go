package main

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/internal/session"
)

const authFallback = "Authentication failed. Please try again."

// authError turns a login or registration failure into what the user should see:
// input problems verbatim, server messages when given, otherwise the generic fallback.
func authError(err error) error {
	if errors.Is(err, session.ErrInvalidInput) {
		return err
	}
	return errors.New(api.Message(err, authFallback))
}

func loginCmd(current func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			var err error
			if email == "" {
				if email, err = a.prompt("Email", ""); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.prompt("Password", ""); err != nil {
					return err
				}
			}
			user, err := a.session.Login(cmd.Context(), api.Credentials{Email: email, Password: password})
			if err != nil {
				a.logger.Debug("login failed", "error", err)
				return authError(err)
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s).\n", user.Name, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

type registerOptions struct {
	doctor     bool
	name       string
	email      string
	password   string
	phone      string
	specialty  string
	hospital   string
	experience string
	fee        string
	image      string
}

func registerCmd(current func() *app) *cobra.Command {
	opts := &registerOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a patient account, or a doctor account with --doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			var (
				user *api.User
				err  error
			)
			if opts.doctor {
				fee, ferr := decimal.NewFromString(opts.fee)
				if ferr != nil {
					return fmt.Errorf("invalid --fee %q: %w", opts.fee, ferr)
				}
				user, err = a.session.RegisterDoctor(cmd.Context(), api.DoctorRegistration{
					Name:       opts.name,
					Email:      opts.email,
					Password:   opts.password,
					Specialty:  opts.specialty,
					Hospital:   opts.hospital,
					Experience: opts.experience,
					Fee:        fee,
					Image:      opts.image,
				})
			} else {
				user, err = a.session.Register(cmd.Context(), api.Registration{
					Name:     opts.name,
					Email:    opts.email,
					Password: opts.password,
					Phone:    opts.phone,
				})
			}
			if err != nil {
				a.logger.Debug("registration failed", "error", err)
				return authError(err)
			}
			fmt.Fprintf(a.out, "Welcome, %s. You are logged in as a %s.\n", user.Name, user.Role)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.doctor, "doctor", false, "register as a doctor")
	f.StringVar(&opts.name, "name", "", "full name")
	f.StringVar(&opts.email, "email", "", "account email")
	f.StringVar(&opts.password, "password", "", "password, at least 6 characters")
	f.StringVar(&opts.phone, "phone", "", "contact number")
	f.StringVar(&opts.specialty, "specialty", "", "doctor specialty")
	f.StringVar(&opts.hospital, "hospital", "", "doctor hospital")
	f.StringVar(&opts.experience, "experience", "", "doctor experience, e.g. \"8 years\"")
	f.StringVar(&opts.fee, "fee", "", "consultation fee")
	f.StringVar(&opts.image, "image", "", "profile image path")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}
