package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
	"github.com/joshsegall/frame-sub002/internal/frame/registry"
)

const projectTomlTemplate = `[project]
name = "{{PROJECT_NAME}}"

# [agent]
# cc_focus = "my-track"

[clean]
auto_clean = true
done_threshold = 100
done_retain = 10
archive_per_track = true

# [[tracks]]
# id = "my-track"
# name = "My Track"
# state = "active"
# file = "tracks/my-track.md"

[ui]
note_wrap = true
`

const inboxTemplate = "# Inbox\n"

const trackTemplate = "# {name}\n\n> \n\n## Backlog\n\n## Parked\n\n## Done\n"

func validateTrackID(id string) error {
	if id == "" {
		return fmt.Errorf("track id cannot be empty")
	}
	for _, c := range id {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return fmt.Errorf("invalid track id %q: use lowercase with hyphens (e.g. \"my-track\")", id)
		}
	}
	return nil
}

// inferName turns a directory name into a project name:
// "my-cool-project" becomes "My Cool Project".
func inferName(dirName string) string {
	words := strings.Split(dirName, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

type trackPair struct {
	ID   string
	Name string
}

// parseTrackPairs splits repeated --track values of the form "id:Name".
// A bare "id" gets its name inferred the same way the project name is.
func parseTrackPairs(values []string) ([]trackPair, error) {
	var pairs []trackPair
	for _, v := range values {
		id, name, found := strings.Cut(v, ":")
		if !found {
			name = inferName(id)
		}
		if err := validateTrackID(id); err != nil {
			return nil, err
		}
		pairs = append(pairs, trackPair{ID: id, Name: name})
	}
	seen := make(map[string]bool)
	for _, p := range pairs {
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate track id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return pairs, nil
}

func renderProjectToml(name string, pairs []trackPair, prefixes []trackPair) string {
	out := strings.ReplaceAll(projectTomlTemplate, "{{PROJECT_NAME}}", name)
	if len(pairs) == 0 {
		return out
	}
	var b strings.Builder
	b.WriteString(out)
	for _, p := range pairs {
		fmt.Fprintf(&b, "\n[[tracks]]\nid = %q\nname = %q\nstate = \"active\"\nfile = \"tracks/%s.md\"\n", p.ID, p.Name, p.ID)
	}
	b.WriteString("\n[ids.prefixes]\n")
	for _, p := range prefixes {
		fmt.Fprintf(&b, "%s = %q\n", p.ID, p.Name)
	}
	return b.String()
}

// updateGitignore appends the frame runtime files to .gitignore when the
// directory is a git repo. Returns true if entries were added.
func updateGitignore(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return false
	}
	gitignorePath := filepath.Join(dir, ".gitignore")
	existingBytes, _ := os.ReadFile(gitignorePath)
	existing := string(existingBytes)

	lines := make(map[string]bool)
	for _, line := range strings.Split(existing, "\n") {
		lines[strings.TrimSpace(line)] = true
	}

	entries := []string{"frame/.state.json", "frame/.lock", "frame/.recovery.log"}
	var toAdd []string
	for _, entry := range entries {
		if !lines[entry] {
			toAdd = append(toAdd, entry)
		}
	}
	if len(toAdd) == 0 {
		return false
	}

	content := existing
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n# frame (added by fr init)\n"
	for _, entry := range toAdd {
		content += entry + "\n"
	}
	return os.WriteFile(gitignorePath, []byte(content), 0o644) == nil
}

func runInit(cmd *cobra.Command, name string, trackValues []string, force bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("project-dir"); dir != "" {
		cwd, err = filepath.Abs(dir)
		if err != nil {
			return err
		}
	}
	frameDir := filepath.Join(cwd, "frame")

	if info, err := os.Stat(frameDir); err == nil && info.IsDir() && !force {
		return fmt.Errorf("frame/ already exists (use --force to reinitialize)")
	}

	if parentRoot, err := project.Discover(filepath.Dir(cwd)); err == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Note: parent project found at %s/\n", filepath.Join(parentRoot, "frame"))
		fmt.Fprintln(cmd.ErrOrStderr(), "Creating new project in ./frame/")
	}

	pairs, err := parseTrackPairs(trackValues)
	if err != nil {
		return err
	}

	if name == "" {
		name = inferName(filepath.Base(cwd))
		if name == "" {
			name = "Untitled"
		}
	}

	var prefixes []trackPair
	var existing []string
	for _, p := range pairs {
		pfx := ops.GeneratePrefix(p.ID, existing)
		existing = append(existing, pfx)
		prefixes = append(prefixes, trackPair{ID: p.ID, Name: pfx})
	}

	if err := os.MkdirAll(filepath.Join(frameDir, "tracks"), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(frameDir, "archive"), 0o755); err != nil {
		return err
	}

	tomlContent := renderProjectToml(name, pairs, prefixes)
	if err := os.WriteFile(filepath.Join(frameDir, "project.toml"), []byte(tomlContent), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(frameDir, "inbox.md"), []byte(inboxTemplate), 0o644); err != nil {
		return err
	}
	for _, p := range pairs {
		content := strings.ReplaceAll(trackTemplate, "{name}", p.Name)
		if err := os.WriteFile(filepath.Join(frameDir, "tracks", p.ID+".md"), []byte(content), 0o644); err != nil {
			return err
		}
	}

	registry.Register(name, cwd)
	gitignoreUpdated := updateGitignore(cwd)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "[>] frame initialized")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  project.toml")
	fmt.Fprintln(out, "  inbox.md")
	for _, p := range pairs {
		fmt.Fprintf(out, "  tracks/%s.md\n", p.ID)
	}
	if gitignoreUpdated {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  added frame/.state.json, frame/.lock to .gitignore")
	}
	return nil
}

func InitCmd() *cobra.Command {
	var name string
	var tracks []string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a frame/ project in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("init", err)
				}
			}()
			return runInit(cmd, name, tracks, force)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (default: inferred from directory)")
	cmd.Flags().StringArrayVar(&tracks, "track", nil, "Track to create, as id or id:Name (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if frame/ exists")
	return cmd
}
