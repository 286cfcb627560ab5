package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harun/mistalic/internal/config"
	"github.com/harun/mistalic/pkg/client"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
	addr     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mistalic",
	Short: "Mistalic - AI agent workspace",
	Long: `Mistalic keeps a workspace of agent definition files, detects the
agent each file declares, and proxies generation requests to Mistral,
OpenAI, Anthropic and Gemini models.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mistalic/mistalic.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "address of a running server, e.g. http://127.0.0.1:3000")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// loadConfig loads the file named by --config and applies --log-level when
// it was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// remoteMode reports whether commands should go through the HTTP API: when
// --addr is set or a server started by `mistalic serve` is alive.
func remoteMode() bool {
	return addr != "" || isRunning(getPIDFilePath())
}

// newClient builds an API client for --addr, falling back to the configured
// listen address.
func newClient(cfg *config.Config) *client.Client {
	base := addr
	if base == "" && cfg != nil {
		base = "http://" + cfg.Server.Addr()
	}
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return client.New(client.Config{BaseURL: base})
}

// readInput returns the content of path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
