package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/harun/mistalic/pkg/workspace"
	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:     "files",
	Aliases: []string{"file", "ws"},
	Short:   "Manage workspace files",
	Long: `Manage the files of the Mistalic workspace.

Commands talk to the running server when there is one (or when --addr is
given) and open the configured storage directly otherwise.`,
}

var filesListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List workspace files",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			files, active, err := svc.ListFiles(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tPATH\tLANGUAGE\tSIZE")
			for _, f := range files {
				marker := ""
				if f.Path == active {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", marker, f.Path, f.Language, len(f.Content))
			}
			return w.Flush()
		})
	},
}

var filesNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a workspace file",
	Long:  `Create a file. The language is inferred from the extension unless --language is given.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		from, _ := cmd.Flags().GetString("from")
		language, _ := cmd.Flags().GetString("language")
		if from != "" {
			data, err := readInput(cmd, from)
			if err != nil {
				return err
			}
			content = data
		}

		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			file, err := svc.CreateFile(ctx, args[0], content, language)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", file.Path, file.Language)
			return nil
		})
	},
}

var filesCatCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print the content of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			file, err := svc.GetFile(ctx, normalizePath(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, file.Content)
			if !strings.HasSuffix(file.Content, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		})
	},
}

var filesEditCmd = &cobra.Command{
	Use:   "edit <path>",
	Short: "Replace the content of a file and save it",
	Long: `Replace the content of a file with the content of --from (default: stdin)
and save it. Saving a script file reports the agent it declares.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		content, err := readInput(cmd, from)
		if err != nil {
			return err
		}
		path := normalizePath(args[0])

		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			if _, err := svc.UpdateFile(ctx, path, content); err != nil {
				return err
			}
			result, err := svc.SaveFile(ctx, path)
			if err != nil {
				return err
			}
			printSaveResult(cmd, result)
			return nil
		})
	},
}

var filesSaveCmd = &cobra.Command{
	Use:   "save <path>",
	Short: "Save a file and detect the agent it declares",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			result, err := svc.SaveFile(ctx, normalizePath(args[0]))
			if err != nil {
				return err
			}
			printSaveResult(cmd, result)
			return nil
		})
	},
}

var filesMoveCmd = &cobra.Command{
	Use:     "mv <path> <new-name>",
	Aliases: []string{"rename"},
	Short:   "Rename a file",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			file, err := svc.RenameFile(ctx, normalizePath(args[0]), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %s\n", file.Path)
			return nil
		})
	},
}

var filesRemoveCmd = &cobra.Command{
	Use:     "rm <path>",
	Aliases: []string{"delete"},
	Short:   "Delete a file",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := normalizePath(args[0])
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			if err := svc.DeleteFile(ctx, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
			return nil
		})
	},
}

var filesOpenCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Make a file the active file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			file, err := svc.SetActive(ctx, normalizePath(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active file: %s\n", file.Path)
			return nil
		})
	},
}

var filesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a local file into the workspace",
	Long: `Import a local file. JSON agent definitions are pretty-printed.
Use "-" to read from stdin together with --name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			if args[0] == "-" {
				return fmt.Errorf("--name is required when importing from stdin")
			}
			name = filepath.Base(args[0])
		}
		content, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			file, err := svc.ImportFile(ctx, name, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s)\n", file.Path, file.Language)
			return nil
		})
	},
}

var filesExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export a file as JSON or JavaScript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			exported, err := svc.ExportFile(ctx, normalizePath(args[0]), format)
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), exported.Content)
				return nil
			}
			if err := os.WriteFile(output, []byte(exported.Content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", exported.Name, output)
			return nil
		})
	},
}

var filesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search file names and contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ctx context.Context, svc workspaceService) error {
			matches, err := svc.Search(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "No matches")
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(out, "%s\n", m.Path)
				for _, line := range m.Matches {
					fmt.Fprintf(out, "  %d: %s\n", line.Line, line.Preview)
				}
			}
			return nil
		})
	},
}

func printSaveResult(cmd *cobra.Command, result workspace.SaveResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Saved %s\n", result.File.Path)
	switch {
	case result.Agent != nil:
		fmt.Fprintf(out, "Agent detected: %s (%s)\n", result.Agent.Name, result.Agent.PrimaryModel())
	case result.AgentError != "":
		fmt.Fprintf(out, "Agent not detected: %s\n", result.AgentError)
	}
}

func init() {
	filesNewCmd.Flags().String("content", "", "initial content")
	filesNewCmd.Flags().String("from", "", `read initial content from a file ("-" for stdin)`)
	filesNewCmd.Flags().String("language", "", "language (default: inferred from the extension)")
	filesEditCmd.Flags().String("from", "-", `read the new content from a file ("-" for stdin)`)
	filesImportCmd.Flags().String("name", "", "workspace file name (default: base name of the file)")
	filesExportCmd.Flags().String("format", "json", "export format: json or js")
	filesExportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	filesCmd.AddCommand(filesListCmd, filesNewCmd, filesCatCmd, filesEditCmd, filesSaveCmd,
		filesMoveCmd, filesRemoveCmd, filesOpenCmd, filesImportCmd, filesExportCmd, filesSearchCmd)
	rootCmd.AddCommand(filesCmd)
}
