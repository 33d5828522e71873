package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcore "github.com/anvilos/ingot/cmd/core"
	cmdothers "github.com/anvilos/ingot/cmd/others"
	cmdprovision "github.com/anvilos/ingot/cmd/provision"
	"github.com/anvilos/ingot/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingot",
		Short: "Ingot - guided bare-metal provisioning sequencer",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmdcore.CommandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("staging-root", "", "staging mount root")
	cmd.PersistentFlags().String("hostname", "", "target hostname")
	cmd.PersistentFlags().Int("gate-timeout", 0, "confirmation gate timeout in seconds (0 = wait forever)")

	_ = viper.BindPFlag("staging_root", cmd.PersistentFlags().Lookup("staging-root"))
	_ = viper.BindPFlag("hostname", cmd.PersistentFlags().Lookup("hostname"))
	_ = viper.BindPFlag("gate_timeout_seconds", cmd.PersistentFlags().Lookup("gate-timeout"))

	viper.SetEnvPrefix("INGOT")
	viper.AutomaticEnv()

	confProvider := func() *config.Config { return conf }

	cmd.AddCommand(cmdprovision.Command(cmdprovision.Handler{
		BaseHandler: cmdcore.BaseHandler{ConfProvider: confProvider},
	}))
	for _, c := range cmdothers.Commands(cmdothers.Handler{}) {
		cmd.AddCommand(c)
	}

	return cmd
}()

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	_ = viper.ReadInConfig() // optional; missing file is OK

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return log.SetupLog(ctx, &conf.Log, "")
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
