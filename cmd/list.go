package cmd

import (
	"fmt"
	"os"
	"strings"

	"agenthub/internal/config"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var listConfigPath string

// listCmd prints the providers and tool servers defined in the configuration.
// Useful for checking what a config file declares without starting the server.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured OAuth providers and MCP tool servers",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(listConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	renderProviders(cfg.Providers)
	fmt.Println()
	renderToolServers(cfg.ToolServers)
	return nil
}

func renderProviders(providers []config.ProviderConfig) {
	if len(providers) == 0 {
		fmt.Printf("%s\n", text.FgYellow.Sprint("No OAuth providers configured"))
		return
	}

	t := newListTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("PROVIDER"),
		text.FgHiCyan.Sprint("AUTH URL"),
		text.FgHiCyan.Sprint("SCOPES"),
		text.FgHiCyan.Sprint("SECRET"),
	})
	for _, p := range providers {
		secret := "inline"
		if p.ClientSecretEnv != "" {
			secret = "env:" + p.ClientSecretEnv
		}
		t.AppendRow(table.Row{p.Name, p.AuthURL, strings.Join(p.Scopes, " "), secret})
	}
	t.Render()
}

func renderToolServers(servers []config.ToolServerConfig) {
	if len(servers) == 0 {
		fmt.Printf("%s\n", text.FgYellow.Sprint("No tool servers configured"))
		return
	}

	t := newListTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TOOL SERVER"),
		text.FgHiCyan.Sprint("TRANSPORT"),
		text.FgHiCyan.Sprint("TARGET"),
		text.FgHiCyan.Sprint("OAUTH"),
	})
	for _, s := range servers {
		target := s.URL
		if s.Transport == config.TransportStdio {
			target = strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
		}
		provider := s.OAuthProvider()
		if provider == "" {
			provider = "-"
		}
		t.AppendRow(table.Row{s.Name, s.Transport, target, provider})
	}
	t.Render()
}

// newListTable creates a table with the standard styling.
func newListTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listConfigPath, "config", "agenthub.yaml", "Path to the configuration file")
}
