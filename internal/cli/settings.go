package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/harun/mistalic/pkg/workspace"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage editor, theme, API key and environment settings",
}

var settingsEditorCmd = &cobra.Command{
	Use:   "editor",
	Short: "Show or change editor settings",
	Long: `Show the editor settings. Flags given on the command line are applied
first, e.g. mistalic settings editor --font-size 16 --minimap=false`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			settings, err := svc.EditorSettings(ctx)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			changed := false
			if flags.Changed("font-size") {
				settings.FontSize, _ = flags.GetInt("font-size")
				changed = true
			}
			if flags.Changed("tab-size") {
				settings.TabSize, _ = flags.GetInt("tab-size")
				changed = true
			}
			if flags.Changed("word-wrap") {
				settings.WordWrap, _ = flags.GetBool("word-wrap")
				changed = true
			}
			if flags.Changed("minimap") {
				settings.Minimap, _ = flags.GetBool("minimap")
				changed = true
			}
			if flags.Changed("line-numbers") {
				settings.LineNumbers, _ = flags.GetBool("line-numbers")
				changed = true
			}
			if flags.Changed("auto-save") {
				settings.AutoSave, _ = flags.GetBool("auto-save")
				changed = true
			}
			if changed {
				if settings, err = svc.UpdateEditorSettings(ctx, settings); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Font size: %d\n", settings.FontSize)
			fmt.Fprintf(out, "Tab size: %d\n", settings.TabSize)
			fmt.Fprintf(out, "Word wrap: %t\n", settings.WordWrap)
			fmt.Fprintf(out, "Minimap: %t\n", settings.Minimap)
			fmt.Fprintf(out, "Line numbers: %t\n", settings.LineNumbers)
			fmt.Fprintf(out, "Auto save: %t\n", settings.AutoSave)
			return nil
		})
	},
}

var settingsThemeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change the theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			theme, err := svc.Theme(ctx)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") || flags.Changed("accent") {
				if flags.Changed("name") {
					theme.Name, _ = flags.GetString("name")
				}
				if flags.Changed("accent") {
					theme.AccentColor, _ = flags.GetString("accent")
				}
				if theme, err = svc.UpdateTheme(ctx, theme); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\nAccent color: %s\n", theme.Name, theme.AccentColor)
			return nil
		})
	},
}

var settingsKeysCmd = &cobra.Command{
	Use:     "keys",
	Aliases: []string{"api-keys"},
	Short:   "Manage stored provider API keys",
}

var settingsKeysListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored API keys (masked)",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			keys, err := svc.APIKeys(ctx)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No API keys stored")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tKEY")
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k.ID, k.Name, k.Provider, k.Key)
			}
			return w.Flush()
		})
	},
}

var settingsKeysAddCmd = &cobra.Command{
	Use:   "add <name> <key>",
	Short: "Store an API key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			added, err := svc.AddAPIKey(ctx, args[0], args[1], provider)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored key %s (%s) as %s\n", added.Name, added.Key, added.ID)
			return nil
		})
	},
}

var settingsKeysRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a stored API key",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			if err := svc.DeleteAPIKey(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted key %s\n", args[0])
			return nil
		})
	},
}

var settingsEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage stored environment variables",
}

var settingsEnvListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored environment variables",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			env, err := svc.Env(ctx)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(env))
			for k := range env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, env[k])
			}
			return nil
		})
	},
}

var settingsEnvSetCmd = &cobra.Command{
	Use:   "set <KEY=value>",
	Short: "Store an environment variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value, ok := strings.Cut(args[0], "=")
		if !ok || key == "" {
			return fmt.Errorf("expected KEY=value, got %q", args[0])
		}
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			if err := svc.SetEnv(ctx, key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
			return nil
		})
	},
}

func init() {
	flags := settingsEditorCmd.Flags()
	flags.Int("font-size", 14, "editor font size")
	flags.Int("tab-size", 2, "tab width")
	flags.Bool("word-wrap", false, "wrap long lines")
	flags.Bool("minimap", true, "show the minimap")
	flags.Bool("line-numbers", true, "show line numbers")
	flags.Bool("auto-save", false, "save on every change")

	settingsThemeCmd.Flags().String("name", "", "theme: dark, light, high-contrast")
	settingsThemeCmd.Flags().String("accent", "", "accent color, one of "+strings.Join(workspace.AccentColors, ", "))

	settingsKeysAddCmd.Flags().String("provider", "", "provider: mistral, openai, anthropic, gemini")

	settingsKeysCmd.AddCommand(settingsKeysListCmd, settingsKeysAddCmd, settingsKeysRemoveCmd)
	settingsEnvCmd.AddCommand(settingsEnvListCmd, settingsEnvSetCmd)
	settingsCmd.AddCommand(settingsEditorCmd, settingsThemeCmd, settingsKeysCmd, settingsEnvCmd)
	rootCmd.AddCommand(settingsCmd)
}
