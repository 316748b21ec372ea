package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

const serverName = "jsxusage"

// agent is an MCP client that reads its server list from a JSON file.
type agent struct {
	id   string
	name string
	// markers are paths whose presence means the agent is used in this
	// project. Without markers the config file's directory must exist.
	markers    []string
	configPath func() string
	serversKey string
	extra      map[string]string
}

var agents = []agent{
	{
		id: "claude-code", name: "Claude Code (.mcp.json)",
		markers:    []string{".mcp.json", ".claude"},
		configPath: func() string { return ".mcp.json" },
		serversKey: "mcpServers",
	},
	{
		id: "vscode", name: "VS Code",
		markers:    []string{".vscode"},
		configPath: func() string { return filepath.Join(".vscode", "mcp.json") },
		serversKey: "servers",
		extra:      map[string]string{"type": "stdio"},
	},
	{
		id: "cursor", name: "Cursor",
		markers:    []string{".cursor"},
		configPath: func() string { return filepath.Join(".cursor", "mcp.json") },
		serversKey: "mcpServers",
	},
	{
		id: "claude-desktop", name: "Claude Desktop",
		configPath: claudeDesktopConfigPath,
		serversKey: "mcpServers",
	},
}

var statFunc = os.Stat

func claudeDesktopConfigPath() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

// detected reports whether the agent is in use, and its config path.
func (a agent) detected() (string, bool) {
	path := a.configPath()
	if len(a.markers) == 0 {
		_, err := statFunc(filepath.Dir(path))
		return path, err == nil
	}
	for _, m := range a.markers {
		if _, err := statFunc(m); err == nil {
			return path, true
		}
	}
	return path, false
}

// serverEntry is the MCP server definition pointing at tsconfig.
func serverEntry(tsconfig string, extra map[string]string) map[string]any {
	entry := map[string]any{
		"command": serverName,
		"args":    []any{"serve", "--tsconfig", tsconfig},
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

// mergeServerEntry adds entry under serversKey in the JSON document
// existing, which may be empty. It returns nil when a jsxusage server is
// already listed.
func mergeServerEntry(existing []byte, serversKey string, entry map[string]any) ([]byte, error) {
	doc := make(map[string]any)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	servers, ok := doc[serversKey].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	if _, exists := servers[serverName]; exists {
		return nil, nil
	}
	servers[serverName] = entry
	doc[serversKey] = servers

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// addToConfig merges the server into path. It reports false when the
// server was already there.
func addToConfig(path, serversKey string, entry map[string]any) (bool, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	merged, err := mergeServerEntry(existing, serversKey, entry)
	if err != nil || merged == nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create directory: %w", err)
	}
	return true, os.WriteFile(path, merged, 0644)
}

// promptYesNo asks question and defaults to yes on empty input or EOF.
func promptYesNo(sc *bufio.Scanner, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [Y/n] ", question)
	if !sc.Scan() {
		return true
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}

type registerOptions struct {
	yes      bool
	only     []string
	tsconfig string
}

// register adds the server to every detected agent, asking first unless
// opts.yes is set. It returns the number of files changed.
func register(r io.Reader, w io.Writer, opts registerOptions) (int, error) {
	sc := bufio.NewScanner(r)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	found := 0
	changed := 0
	for _, a := range agents {
		if len(opts.only) > 0 && !slices.Contains(opts.only, a.id) {
			continue
		}
		path, present := a.detected()
		if !present {
			continue
		}
		found++

		if !opts.yes && !promptYesNo(sc, w, fmt.Sprintf("Add %s to %s (%s)?", serverName, a.name, path)) {
			fmt.Fprintf(w, "  skipped %s\n", a.name)
			continue
		}
		added, err := addToConfig(path, a.serversKey, serverEntry(opts.tsconfig, a.extra))
		switch {
		case err != nil:
			warn.Fprintf(w, "  ! %s: %v\n", a.name, err)
		case !added:
			fmt.Fprintf(w, "  = %s already lists %s\n", a.name, serverName)
		default:
			changed++
			ok.Fprintf(w, "  + %s configured (%s)\n", a.name, path)
		}
	}

	if found == 0 {
		fmt.Fprintln(w, "No supported MCP clients detected.")
	}
	return changed, nil
}

func registerCmd() *cli.Command {
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.id
	}
	return &cli.Command{
		Name:  "register",
		Usage: "Add the jsxusage MCP server to detected AI agents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tsconfig",
				Aliases: []string{"c"},
				Value:   "./tsconfig.json",
				Usage:   "tsconfig the server should scan",
			},
			&cli.StringSliceFlag{
				Name:  "agent",
				Usage: "Only configure these agents: " + strings.Join(ids, ", "),
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Configure every detected agent without asking",
			},
		},
		Action: func(c *cli.Context) error {
			tsconfig, err := filepath.Abs(c.String("tsconfig"))
			if err != nil {
				return err
			}
			_, err = register(os.Stdin, c.App.Writer, registerOptions{
				yes:      c.Bool("yes"),
				only:     c.StringSlice("agent"),
				tsconfig: tsconfig,
			})
			return err
		},
	}
}
