package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "jvs-host",
		Short:        "JVS bus-master host: enumerate and poll arcade I/O boards",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.jvs-host.yaml)")
	cmd.PersistentFlags().String("device", "/dev/ttyUSB0", "serial device the JVS adapter is attached to")
	cmd.PersistentFlags().Int("baud", 115200, "serial line rate")
	cmd.PersistentFlags().Int("assume-devices", 0, "skip sense-line polling and assign this many addresses unconditionally")
	cmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")

	_ = viper.BindPFlag("device", cmd.PersistentFlags().Lookup("device"))
	_ = viper.BindPFlag("baud", cmd.PersistentFlags().Lookup("baud"))
	_ = viper.BindPFlag("assume-devices", cmd.PersistentFlags().Lookup("assume-devices"))
	_ = viper.BindPFlag("log-level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(enumerateCmd(), pollCmd(), versionCmd())
	return cmd
}

func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".jvs-host")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("JVS")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	level, err := logrus.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	return nil
}
