package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configName = ".vav"

// initConfig loads ~/.vav.yaml if present and enables VAV_* overrides.
func initConfig() error {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("VAV")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vav configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vav.yaml.",
		Example: `  vav config                  # show all config
  vav config set mapq 20      # lower the mapping quality threshold
  vav config get margin       # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

// settingParsers lists the keys a config file may hold and how their
// values are read from the command line.
var settingParsers = map[string]func(string) (any, error){
	"mapq":    parseInt,
	"margin":  parseInt,
	"workers": parseInt,
	"format":  parseString,
	"db":      parseString,
	"verbose": parseBool,
}

func parseInt(s string) (any, error)    { return strconv.Atoi(s) }
func parseString(s string) (any, error) { return s, nil }

func parseBool(s string) (any, error) {
	switch s {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// configFile returns the config file in use, or ~/.vav.yaml.
func configFile() (string, error) {
	if f := viper.ConfigFileUsed(); f != "" {
		return f, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}

// readConfigFile loads only what the config file holds, without flag
// defaults or environment overrides. A missing file is empty.
func readConfigFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return v, nil
}

func runConfigShow(w io.Writer) error {
	path, err := configFile()
	if err != nil {
		return err
	}
	v, err := readConfigFile(path)
	if err != nil {
		return err
	}
	settings := v.AllSettings()
	if len(settings) == 0 {
		fmt.Fprintf(w, "# No configuration set. Config file: %s\n", path)
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(w io.Writer, key, value string) error {
	parse, ok := settingParsers[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	parsed, err := parse(value)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}

	path, err := configFile()
	if err != nil {
		return err
	}
	v, err := readConfigFile(path)
	if err != nil {
		return err
	}
	v.Set(key, parsed)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %v in %s\n", key, parsed, path)
	return nil
}
func runConfigGet(w io.Writer, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}
