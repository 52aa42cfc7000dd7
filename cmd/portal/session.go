package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/apiclient"
	"github.com/goliatone/go-portal/web"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

func loginCmd(configPath *string) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <identifier>",
		Short: "Sign in to the api and keep the session token",
		Long: `Sign in with the api login endpoint and store the returned token in
the configured token store. The password can also be set with
PORTAL_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PORTAL_PASSWORD")
			}

			payload := web.LoginRequest{Identifier: args[0], Password: password}
			if err := payload.Validate(); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login")
			}

			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			token, err := app.api.Login(ctx, apiclient.Credentials{
				Identifier: payload.Identifier,
				Password:   payload.Password,
			})
			if err != nil {
				app.record(cmd, portal.ActivityEventLoginFailure, map[string]any{"identifier": payload.Identifier})
				return err
			}

			if err := app.tokenStore(cliSessionKey).SetToken(ctx, token); err != nil {
				return err
			}
			app.record(cmd, portal.ActivityEventLoginSuccess, map[string]any{"identifier": payload.Identifier})

			info := app.guard.Validator().Inspect(token)
			if info.ExpiresAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s until %s\n", payload.Identifier, info.ExpiresAt.Format("2006-01-02 15:04:05"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", payload.Identifier)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")

	return cmd
}

func logoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.tokenStore(cliSessionKey).ClearToken(ctx); err != nil {
				return err
			}
			app.record(cmd, portal.ActivityEventLogout, nil)

			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func tokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with session tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "inspect [token]",
		Short: "Decode a session token without verifying it",
		Long: `Print the shape, subject and expiry of a token. Without an argument
the stored session token is inspected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = strings.TrimSpace(args[0])
			} else {
				ctx := cmd.Context()
				app, err := newApp(ctx, *configPath)
				if err != nil {
					return err
				}
				defer app.Close()

				token, err = app.tokenStore(cliSessionKey).Token(ctx)
				if err != nil {
					return err
				}
			}

			info := portal.NewTokenValidator().Inspect(token)
			fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(info))
			return nil
		},
	})

	return cmd
}

func apiCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Call the portal api with the stored session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <path>",
		Short: "GET an api path and print the JSON answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			nav := portal.NavigatorFunc(func(_ context.Context, path string) error {
				fmt.Fprintf(cmd.ErrOrStderr(), "session rejected, sign in again (%s)\n", path)
				return nil
			})
			client := app.api.ForSession(app.tokenStore(cliSessionKey), nav)

			var out any
			if err := client.Do(ctx, http.MethodGet, args[0], nil, &out); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), print.MaybeHighlightJSON(out))
			return nil
		},
	})

	return cmd
}
