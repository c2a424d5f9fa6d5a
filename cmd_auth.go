package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth [account]",
		Short: "Authorize an account and store its token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.accountName = args[0]
			}
			name, err := a.account()
			if err != nil {
				return err
			}
			acc, _ := a.config.Account(name)
			if acc.Provider != providerGoogle {
				return fmt.Errorf("%w: account %s uses %s, configure its credentials in the config file", ErrUsage, name, acc.Provider)
			}
			if a.config.ClientID == "" || a.config.ClientSecret == "" {
				return fmt.Errorf("%w: client_id and client_secret must be set in the config", ErrUsage)
			}

			flow := NewAuthFlow(a.oauth, a.config.CallbackAddr, a.config.AuthTimeoutDuration())
			token, err := flow.Run(cmd.Context(), func(authURL string) {
				fmt.Fprintf(a.out, "🔑 Open the following link in your browser to authorize account %s:\n%v\n", name, authURL)
			})
			if err != nil {
				return err
			}
			if err := a.tokens.Save(name, token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}

			log.Info().Str("account", name).Msg("token stored")
			fmt.Fprintf(a.out, "✅ Account %s authorized\n", name)
			return nil
		},
	}
}
