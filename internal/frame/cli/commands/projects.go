package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/registry"
)

func ProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage the global project registry",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("projects", err)
				}
			}()
			return runProjectsList(cmd)
		},
	}
	cmd.AddCommand(projectsListCmd(), projectsAddCmd(), projectsRemoveCmd())
	return cmd
}

func runProjectsList(cmd *cobra.Command) error {
	reg := registry.Read()
	entries := append([]registry.Entry(nil), reg.Projects...)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].LastAccessedCLI, entries[j].LastAccessedCLI
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	if jsonEnabled(cmd) {
		type projectJSON struct {
			Name         string `json:"name"`
			Path         string `json:"path"`
			Exists       bool   `json:"exists"`
			LastAccessed string `json:"last_accessed,omitempty"`
		}
		payload := []projectJSON{}
		for _, e := range entries {
			pj := projectJSON{Name: e.Name, Path: e.Path}
			if info, err := os.Stat(e.Path); err == nil && info.IsDir() {
				pj.Exists = true
			}
			if e.LastAccessedCLI != nil {
				pj.LastAccessed = e.LastAccessedCLI.Format("2006-01-02 15:04")
			}
			payload = append(payload, pj)
		}
		return writeJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "(no registered projects)")
		return nil
	}
	nameW := 0
	for _, e := range entries {
		nameW = max(nameW, len(e.Name))
	}
	for _, e := range entries {
		location := registry.AbbreviatePath(e.Path)
		if info, err := os.Stat(e.Path); err != nil || !info.IsDir() {
			location = "(not found)"
		}
		accessed := ""
		if e.LastAccessedCLI != nil {
			accessed = registry.RelativeTime(*e.LastAccessedCLI)
		}
		fmt.Fprintf(out, "%-*s  %s", nameW, e.Name, location)
		if accessed != "" {
			fmt.Fprintf(out, "  (%s)", accessed)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func projectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		Args:  wrapArgs("projects list", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("projects list", err)
				}
			}()
			return runProjectsList(cmd)
		},
	}
}

func projectsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Register an existing project",
		Args:  wrapArgs("projects add", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("projects add", err)
				}
			}()
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			configPath := filepath.Join(absPath, "frame", "project.toml")
			data, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("not a frame project: %s", absPath)
			}
			config := model.DefaultConfig()
			if _, err := toml.Decode(string(data), &config); err != nil {
				return fmt.Errorf("parse %s: %w", configPath, err)
			}
			name := config.Project.Name
			if name == "" {
				name = filepath.Base(absPath)
			}
			registry.Register(name, absPath)
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", name, registry.AbbreviatePath(absPath))
			return nil
		},
	}
}

func projectsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name-or-path>",
		Short: "Remove a project from the registry",
		Args:  wrapArgs("projects remove", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("projects remove", err)
				}
			}()
			removed, err := registry.Remove(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%s)\n", removed.Name, registry.AbbreviatePath(removed.Path))
			return nil
		},
	}
}
