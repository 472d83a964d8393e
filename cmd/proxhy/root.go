// Package proxhy is the cobra/viper-driven entry point, adapted from
// cmd/gate/gate.go's viper.Unmarshal+zap pattern but split across a root
// command (this file) and the proxy run loop (run.go) since spec.md's
// surface needs a config-file flag cobra already exists to serve.
package proxhy

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// NewRootCmd builds the "proxhy" root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxhy",
		Short: "A Minecraft 1.8.9 intercepting proxy with spectator broadcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run()
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./proxhy.yaml)")
	cobra.OnInitialize(initConfig)
	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("proxhy")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("PROXHY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Println("proxhy: error reading config:", err)
		}
	}
}
