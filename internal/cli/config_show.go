package cli

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/salarysys/payrun/internal/config"
)

// NewConfigShowCmd creates the config show command, which prints the
// effective configuration with the database password masked.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Example: `  # Show configuration after file and environment overrides
  payrun config show`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *config.GetGlobalConfig()
			cfg.Database.URL = redactURL(cfg.Database.URL)

			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("marshalling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

//nolint:gochecknoglobals // Compiled once.
var keywordPassword = regexp.MustCompile(`password=\S+`)

// redactURL masks the password of a connection string in either URL or
// keyword/value form.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.User != nil {
		return u.Redacted()
	}
	return keywordPassword.ReplaceAllString(raw, "password=xxxxx")
}
