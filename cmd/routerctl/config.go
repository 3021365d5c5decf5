package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ncecere/model_router/internal/config"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the merged configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, redact(cfg))
		},
	}
}

func redact(cfg *config.Config) *config.Config {
	out := *cfg
	out.Providers = make(map[string]config.ProviderSettings, len(cfg.Providers))
	for name, settings := range cfg.Providers {
		settings.APIKey = mask(settings.APIKey)
		settings.SecretAccessKey = mask(settings.SecretAccessKey)
		settings.SessionToken = mask(settings.SessionToken)
		settings.CredentialsJSON = mask(settings.CredentialsJSON)
		out.Providers[name] = settings
	}
	out.Redis.URL = mask(cfg.Redis.URL)
	return &out
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	}
	return secret[:4] + "****"
}
