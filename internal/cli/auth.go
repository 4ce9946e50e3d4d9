package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/phabmd/internal/config"
	"github.com/dshills/phabmd/internal/session"
)

var flagAuthBaseURL string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect web UI credentials",
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether browser session cookies can be found",
	Long: "Look for Phabricator session cookies in PHABRICATOR_COOKIES or the Firefox profiles " +
		"and report which ones were found. Cookie values are never printed.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]string{}
		if flagAuthBaseURL != "" {
			overrides["baseUrl"] = flagAuthBaseURL
		}
		cfg, err := config.Load(overrides)
		if err != nil {
			return err
		}

		domain := cookieDomain(cfg.BaseURL)
		locator := session.NewLocator(cfg.Cookies, cfg.ProfileRoot, newLogger(cfg.LogLevel))
		cookies, err := locator.Resolve(cmd.Context(), domain)
		if err != nil {
			if errors.Is(err, session.ErrNoCredentials) {
				fmt.Fprintf(os.Stderr, "No session cookies found for %s: %v\n", domain, err)
				exitCode = ExitAuthError
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(os.Stdout, "Session cookies found for %s: %s\n", domain, strings.Join(cookies.Names(), ", "))
		return nil
	},
}

func init() {
	authCheckCmd.Flags().StringVar(&flagAuthBaseURL, "base-url", "", "Phabricator base URL")
	authCmd.AddCommand(authCheckCmd)
}
