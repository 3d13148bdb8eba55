package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maastricht-university/chatrisk/clients"
	"github.com/maastricht-university/chatrisk/clump"
	"github.com/maastricht-university/chatrisk/config"
	"github.com/maastricht-university/chatrisk/logging"
	"github.com/maastricht-university/chatrisk/orchestrator"
	"github.com/maastricht-university/chatrisk/score"
	"github.com/maastricht-university/chatrisk/source"
	"github.com/maastricht-university/chatrisk/textnorm"
)

const envPrefix = "CHATRISK"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatrisk",
		Short:         "Score emotional risk in chat exports",
		Long:          `chatrisk groups chat messages into time windows, annotates them with a natural language understanding service and writes per-window risk scores as CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to config.yaml")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")
	root.PersistentFlags().StringP("input", "i", "", "conversation export (json or sqlite)")
	root.PersistentFlags().String("format", "", "input format: json or sqlite (default: by extension)")
	root.PersistentFlags().StringP("target", "u", "", "target user whose messages are scored")
	root.PersistentFlags().Duration("window", 0, "clump window length (default 20m)")

	root.AddCommand(newRunCmd(), newClumpsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clump, enrich, score and write the CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, true)
			if err != nil {
				return err
			}
			return run(cmd, cfg, log)
		},
	}
	cmd.Flags().StringP("output", "o", "", "CSV output path")
	cmd.Flags().String("stop-words", "", "stop-word list, one word per line")
	cmd.Flags().String("credentials", "", "NLU credentials JSON")
	cmd.Flags().String("nlu-url", "", "NLU service base URL")
	cmd.Flags().String("backend", "", "NLU backend: watson or openai")
	cmd.Flags().String("model", "", "model name for the openai backend")
	cmd.Flags().Int("retries", 0, "retries for unavailable NLU calls (0 = fail fast)")
	return cmd
}

func newClumpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clumps",
		Short: "Print the target user's clumps as JSON lines without calling the NLU service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, false)
			if err != nil {
				return err
			}
			exp, err := source.Load(cmd.Context(), cfg.Input.Path, cfg.Input.Format, cfg.Input.TargetUser, log)
			if err != nil {
				return err
			}
			p := orchestrator.NewPipeline(
				textnorm.New(cfg.Abbreviations),
				clump.New(cfg.Clumping.Window, cfg.Clumping.Terminators),
				nil, nil, log,
			)
			pairs, err := p.Clumps(exp)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, pair := range pairs {
				if err := enc.Encode(pair.User); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// setup loads .env, the YAML config and flag/env overrides, then builds the
// logger.
func setup(cmd *cobra.Command, needNLU bool) (*config.Root, *logrus.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, nil, err
	}
	applyOverrides(v, cfg)

	log, err := logging.New(cfg.Pipeline.LogLvl, cfg.Pipeline.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	validate := cfg.Validate
	if !needNLU {
		validate = cfg.ValidateInput
	}
	if err := validate(); err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// applyOverrides copies every flag or CHATRISK_* variable that was set onto
// cfg.
func applyOverrides(v *viper.Viper, cfg *config.Root) {
	str := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	str("log-level", &cfg.Pipeline.LogLvl)
	str("log-format", &cfg.Pipeline.LogFormat)
	str("input", &cfg.Input.Path)
	str("format", &cfg.Input.Format)
	str("target", &cfg.Input.TargetUser)
	str("output", &cfg.Paths.Output)
	str("stop-words", &cfg.Paths.StopWords)
	str("credentials", &cfg.NLU.CredentialsPath)
	str("nlu-url", &cfg.NLU.URL)
	str("backend", &cfg.NLU.Backend)
	str("model", &cfg.NLU.Model)
	if v.IsSet("window") && v.GetDuration("window") > 0 {
		cfg.Clumping.Window = v.GetDuration("window")
	}
	if v.IsSet("retries") {
		cfg.NLU.Retries = v.GetInt("retries")
	}
	if cfg.Input.Format == "" {
		cfg.Input.Format = source.Format(cfg.Input.Path)
	}
}

func run(cmd *cobra.Command, cfg *config.Root, log *logrus.Logger) error {
	creds, err := config.LoadCredentials(cfg.NLU.CredentialsPath)
	if err != nil {
		return err
	}
	stop, err := score.LoadStopWords(cfg.Paths.StopWords)
	if err != nil {
		return err
	}
	nlu, err := newAnalyzer(cfg, creds)
	if err != nil {
		return err
	}
	exp, err := source.Load(cmd.Context(), cfg.Input.Path, cfg.Input.Format, cfg.Input.TargetUser, log)
	if err != nil {
		return err
	}

	p := orchestrator.NewPipeline(
		textnorm.New(cfg.Abbreviations),
		clump.New(cfg.Clumping.Window, cfg.Clumping.Terminators),
		nlu, stop, log,
	)
	res, err := p.Run(cmd.Context(), exp, cfg.Paths.Output)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "records_written=%d run_id=%s out=%s\n", len(res.Records), res.RunID, res.OutputPath)
	return nil
}

func newAnalyzer(cfg *config.Root, creds config.Credentials) (clients.Analyzer, error) {
	var a clients.Analyzer
	switch cfg.NLU.Backend {
	case "watson":
		a = clients.NewNLU(clients.NewHTTP(cfg.NLU.Timeout), clients.NLUConfig{
			URL:          cfg.NLU.URL,
			Username:     creds.Username,
			Password:     creds.Password,
			APIKey:       creds.APIKey,
			Version:      cfg.NLU.Version,
			Language:     cfg.NLU.Language,
			KeywordLimit: cfg.NLU.KeywordLimit,
		})
	case "openai":
		if creds.APIKey == "" {
			return nil, fmt.Errorf("openai backend needs an apikey: %w", config.ErrMissingCredentials)
		}
		opts := []option.RequestOption{option.WithRequestTimeout(cfg.NLU.Timeout)}
		if cfg.NLU.URL != "" {
			opts = append(opts, option.WithBaseURL(cfg.NLU.URL))
		}
		a = clients.NewOpenAI(creds.APIKey, cfg.NLU.Model, cfg.NLU.KeywordLimit, opts...)
	default:
		return nil, fmt.Errorf("unknown nlu backend %q", cfg.NLU.Backend)
	}
	if cfg.NLU.Retries > 0 {
		a = clients.NewRetrying(a, cfg.NLU.Retries, cfg.NLU.RetryBackoff, 0)
	}
	return a, nil
}
