// File: cmd/cabinet/config_cmd.go
package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cabinet/pkg/formatter"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cabinet definitions",
		Long: `Manage cabinet definitions. Each cabinet has a provider type and provider settings:

  cabinets.<name>.type             filesystem, s3 or gcs
  cabinets.<name>.config.<field>   e.g. root, bucket, region, key_prefix`,
	}

	setCmd := &cobra.Command{
		Use:     "set [key] [value]",
		Short:   "Set a configuration value",
		Example: "  cabinet config set cabinets.media.type s3\n  cabinet config set cabinets.media.config.bucket my-bucket",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			key := strings.ToLower(args[0])
			if err := app.ConfigManager.SetValue(key, args[1]); err != nil {
				return fmt.Errorf("error setting configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration set: %s = %s\n", key, args[1])
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:     "get [key]",
		Short:   "Show a configuration value or a whole cabinet",
		Example: "  cabinet config get cabinets.media.type\n  cabinet config get cabinets.media",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			key := strings.ToLower(args[0])
			value, exists := app.ConfigManager.GetValue(key)
			if !exists || value == "" {
				return fmt.Errorf("configuration key '%s' not found or not set", key)
			}

			if nested, ok := value.(map[string]any); ok {
				return printSettings(cmd.OutOrStdout(), app.Output, flattenSettings(key, nested))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete [key]",
		Short:   "Delete a configuration value or a whole cabinet",
		Example: "  cabinet config delete cabinets.media.config.endpoint\n  cabinet config delete cabinets.media",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			key := strings.ToLower(args[0])
			deleted, err := app.ConfigManager.DeleteValue(key)
			if err != nil {
				return fmt.Errorf("error deleting configuration: %w", err)
			}
			if !deleted {
				return fmt.Errorf("configuration key '%s' not found", key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration key '%s' deleted\n", key)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every configuration value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			settings := flattenSettings("", app.ConfigManager.GetAllSettings())
			if len(settings) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No configuration values set in %s. Use 'cabinet config set <key> <value>'.\n", app.ConfigManager.Path())
				return nil
			}
			return printSettings(cmd.OutOrStdout(), app.Output, settings)
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Long:  `Prints the configuration file in use. Set CABINET_CONFIG to use another file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.ConfigManager.Path())
			return nil
		},
	}

	configCmd.AddCommand(setCmd, getCmd, deleteCmd, listCmd, pathCmd)
	return configCmd
}

// Flattens nested settings into dot-notation keys. Empty strings and nil values are dropped.
func flattenSettings(prefix string, settings map[string]any) map[string]any {
	flat := make(map[string]any)
	for k, v := range settings {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]any:
			maps.Copy(flat, flattenSettings(key, v))
		case nil:
		case string:
			if v != "" {
				flat[key] = v
			}
		default:
			flat[key] = v
		}
	}
	return flat
}

func printSettings(w io.Writer, output string, settings map[string]any) error {
	if output == formatter.OutputYAML {
		out, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		fmt.Fprint(w, string(out))
		return nil
	}

	table := formatter.NewTable([]string{"KEY", "VALUE"})
	for _, k := range slices.Sorted(maps.Keys(settings)) {
		table.AddRow([]string{k, fmt.Sprint(settings[k])})
	}
	fmt.Fprintln(w, table.String())
	return nil
}
