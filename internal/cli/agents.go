package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/client"
	"github.com/spf13/cobra"
)

// errNoServer is returned by commands that need the server's agent store.
var errNoServer = errors.New("no running server: start one with `mistalic serve` or pass --addr")

var agentsCmd = &cobra.Command{
	Use:     "agents",
	Aliases: []string{"agent"},
	Short:   "Manage the agents registered with the server",
	Long: `Manage the agents registered with the running server.

Agents live in the server's memory, so these commands need a running
server (see mistalic serve) or --addr.`,
}

// remoteClient returns a client for the running server, or errNoServer.
func remoteClient(cmd *cobra.Command) (*client.Client, context.Context, error) {
	if !remoteMode() {
		return nil, nil, errNoServer
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return newClient(cfg), ctx, nil
}

var agentsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List agents",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, err := remoteClient(cmd)
		if err != nil {
			return err
		}
		agents, err := c.Agents(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMODEL\tDESCRIPTION")
		for _, a := range agents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Model, a.Description)
		}
		return w.Flush()
	},
}

var agentsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, err := remoteClient(cmd)
		if err != nil {
			return err
		}
		description, _ := cmd.Flags().GetString("description")
		model, _ := cmd.Flags().GetString("model")
		system, _ := cmd.Flags().GetString("system")

		created, err := c.CreateAgent(ctx, agent.CreateParams{
			Name:         args[0],
			Description:  description,
			Model:        model,
			SystemPrompt: system,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created agent %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

var agentsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an agent",
	Long:  `Update an agent. Only the flags given are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, err := remoteClient(cmd)
		if err != nil {
			return err
		}
		params := agent.UpdateParams{ID: args[0]}
		params.Name, _ = cmd.Flags().GetString("name")
		params.Description, _ = cmd.Flags().GetString("description")
		params.Model, _ = cmd.Flags().GetString("model")
		params.SystemPrompt, _ = cmd.Flags().GetString("system")

		updated, err := c.UpdateAgent(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated agent %s (%s)\n", updated.Name, updated.ID)
		return nil
	},
}

var agentsRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an agent",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, err := remoteClient(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteAgent(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted agent %s\n", args[0])
		return nil
	},
}

var agentsPublishCmd = &cobra.Command{
	Use:   "publish [path]",
	Short: "Register the agent declared in a workspace file",
	Long:  `Register the agent declared in a workspace file (default: the active file).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, err := remoteClient(cmd)
		if err != nil {
			return err
		}
		path := ""
		if len(args) == 1 {
			path = normalizePath(args[0])
		}
		published, err := c.PublishAgent(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published agent %s (%s)\n", published.Name, published.ID)
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models [id]",
	Short: "List available models, or describe one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return describeModel(cmd, args[0])
		}

		models := agent.Models()
		if remoteMode() {
			c, ctx, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			if models, err = c.Models(ctx); err != nil {
				return err
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tFREE")
		for _, m := range models {
			free := ""
			if m.Free {
				free = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, agent.ProviderForModel(m.ID), free)
		}
		return w.Flush()
	},
}

func describeModel(cmd *cobra.Command, id string) error {
	m, ok := agent.LookupModel(id)
	if !ok {
		return fmt.Errorf("unknown model %q", id)
	}
	free := "no"
	if m.Free {
		free = "yes"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", m.ID)
	fmt.Fprintf(out, "Name:        %s\n", m.Name)
	fmt.Fprintf(out, "Provider:    %s\n", agent.ProviderForModel(m.ID))
	fmt.Fprintf(out, "Free:        %s\n", free)
	fmt.Fprintf(out, "Description: %s\n", m.Description)
	return nil
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send a prompt to a model",
	Long: `Send a prompt to a model and print the reply.

Without a running server the request is made from this process, using the
configured provider profiles and the keys stored in the workspace.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		system, _ := cmd.Flags().GetString("system")
		req := agent.GenerateRequest{
			Prompt:       strings.Join(args, " "),
			Model:        model,
			SystemPrompt: system,
		}

		if remoteMode() {
			c, ctx, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			text, err := c.Generate(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := cliLogger(cmd, cfg)
		store, ws, err := openWorkspace(cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		result, err := newGenerator(cfg, ws, logger).Generate(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Text)
		return nil
	},
}

func init() {
	agentsCreateCmd.Flags().String("description", "", "agent description")
	agentsCreateCmd.Flags().String("model", "", "model (default: "+agent.DefaultModel+")")
	agentsCreateCmd.Flags().String("system", "", "system prompt")
	agentsUpdateCmd.Flags().String("name", "", "new name")
	agentsUpdateCmd.Flags().String("description", "", "new description")
	agentsUpdateCmd.Flags().String("model", "", "new model")
	agentsUpdateCmd.Flags().String("system", "", "new system prompt")

	askCmd.Flags().String("model", "", "model (default: configured default model)")
	askCmd.Flags().String("system", "", "system prompt (default: configured system prompt)")

	agentsCmd.AddCommand(agentsListCmd, agentsCreateCmd, agentsUpdateCmd, agentsRemoveCmd, agentsPublishCmd)
	rootCmd.AddCommand(agentsCmd, modelsCmd, askCmd)
}
