package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dalgona/diary/pkg/jwt"
)

// newTokenCmd signs an access token for local testing without going
// through sign-in.
func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(cmd, map[string]string{
				"key": "jwt.private_key_path",
			})
			if err != nil {
				return err
			}

			account, _ := cmd.Flags().GetString("account")
			email, _ := cmd.Flags().GetString("email")
			nickname, _ := cmd.Flags().GetString("nickname")
			expMins, _ := cmd.Flags().GetInt("exp")
			asJSON, _ := cmd.Flags().GetBool("json")

			svc, err := jwt.NewService(jwt.Config{
				PrivateKeyPath: v.GetString("jwt.private_key_path"),
				Issuer:         v.GetString("jwt.issuer"),
				Audience:       v.GetString("jwt.audience"),
				ExpirationMins: expMins,
			})
			if err != nil {
				return fmt.Errorf("%w (generate keys with: dalgona keys generate)", err)
			}

			token, err := svc.Sign(jwt.Claims{
				Subject:  account,
				Email:    email,
				Nickname: nickname,
			})
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"access_token": token,
					"token_type":   "Bearer",
					"expires_in":   expMins * 60,
					"account_id":   account,
					"email":        email,
				})
			}

			fmt.Fprintf(out, "Account:  %s\n", account)
			fmt.Fprintf(out, "Email:    %s\n", email)
			fmt.Fprintf(out, "Expires:  %s\n\n", time.Now().Add(time.Duration(expMins)*time.Minute).Format(time.RFC3339))
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().String("key", "", "private key path (JWT_PRIVATE_KEY_PATH)")
	cmd.Flags().String("account", "account:dev", "account record ID used as the token subject")
	cmd.Flags().String("email", "dev@dalgona.local", "email claim")
	cmd.Flags().String("nickname", "달고나", "nickname claim")
	cmd.Flags().Int("exp", 60*24*7, "expiration in minutes")
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}
