package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	consts "github.com/nvtrung/certprobe-cli/internal/constants"
)

var cfgFile string
var logger *zap.SugaredLogger
var resultsDir string

var rootCmd = &cobra.Command{
	Use:   "certprobe",
	Short: "Batch TLS certificate inspection for hosts and endpoints",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment variables always win.
		_ = godotenv.Load()

		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".certprobe")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("CERTPROBE")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		viper.AutomaticEnv()

		_ = viper.ReadInConfig()
		resultsDir = viper.GetString("results_dir")
		if resultsDir == "" {
			resultsDir = "./results"
		}

		// create results dir if not exists
		if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create results directory: %s", err.Error())
		}

		// Make final resultsDir absolute (for clarity in logs)
		if abs, err := filepath.Abs(resultsDir); err == nil {
			resultsDir = abs
		}

		// init logger
		l, _ := zap.NewProduction()
		logger = l.Sugar()

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.certprobe.yaml)")

	// add subcommands
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(versionCmd)
}
