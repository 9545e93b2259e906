package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dalgona/diary/pkg/jwt"
)

func newKeysGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a new RSA key pair for signing access tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(cmd, map[string]string{
				"private": "jwt.private_key_path",
				"public":  "jwt.public_key_path",
			})
			if err != nil {
				return err
			}
			privatePath := v.GetString("jwt.private_key_path")
			publicPath := v.GetString("jwt.public_key_path")

			force, _ := cmd.Flags().GetBool("force")
			if !force {
				for _, p := range []string{privatePath, publicPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists, pass --force to overwrite", p)
					}
				}
			}

			for _, p := range []string{privatePath, publicPath} {
				if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
					return fmt.Errorf("create key directory: %w", err)
				}
			}
			if err := jwt.GenerateKeyPair(privatePath, publicPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\npublic key:  %s\n", privatePath, publicPath)
			return nil
		},
	}

	cmd.Flags().String("private", "", "private key output path (JWT_PRIVATE_KEY_PATH)")
	cmd.Flags().String("public", "", "public key output path (JWT_PUBLIC_KEY_PATH)")
	cmd.Flags().Bool("force", false, "overwrite existing keys")
	return cmd
}
