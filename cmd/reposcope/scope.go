package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"reposcope/internal/project"
	"reposcope/internal/scope"
)

var (
	scopeProjectFlag int64
	scopeFileFlag    string
	scopeIncludeFlag []string
	scopeExcludeFlag []string
)

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Inspect and replace a project's search scope",
}

var scopeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored scope",
	Args:  cobra.NoArgs,
	RunE:  runScopeShow,
}

var scopeSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the scope from flags or a YAML selection file",
	Long: `Replace the project's search scope.

Includes and excludes come either from repeated --include/--exclude
flags or from a YAML selection file:

  includes:
    - src
    - docs/readme.md
  excludes:
    - src/generated

Directory includes are expanded to the files they currently contain.
Reserved excludes (.git, vendor, .idea) are always enforced.`,
	Args: cobra.NoArgs,
	RunE: runScopeSet,
}

func init() {
	scopeCmd.PersistentFlags().Int64Var(&scopeProjectFlag, "project", 0, "Project id (required)")
	_ = scopeCmd.MarkPersistentFlagRequired("project")

	scopeSetCmd.Flags().StringVar(&scopeFileFlag, "file", "", "YAML selection file")
	scopeSetCmd.Flags().StringArrayVar(&scopeIncludeFlag, "include", nil, "Path to include (repeatable)")
	scopeSetCmd.Flags().StringArrayVar(&scopeExcludeFlag, "exclude", nil, "Path to exclude (repeatable)")

	scopeCmd.AddCommand(scopeShowCmd)
	scopeCmd.AddCommand(scopeSetCmd)
	rootCmd.AddCommand(scopeCmd)
}

// selectionFile is the YAML document scope set accepts.
type selectionFile struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

func runScopeShow(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := project.NewStore(e.db).Get(scopeProjectFlag); err != nil {
		return err
	}
	state := scope.NewStore(e.home).Load(scopeProjectFlag)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

func runScopeSet(cmd *cobra.Command, args []string) error {
	includes := scopeIncludeFlag
	excludes := scopeExcludeFlag

	if scopeFileFlag != "" {
		data, err := os.ReadFile(scopeFileFlag)
		if err != nil {
			return fmt.Errorf("reading selection file: %w", err)
		}
		var sel selectionFile
		if err := yaml.Unmarshal(data, &sel); err != nil {
			return fmt.Errorf("parsing selection file: %w", err)
		}
		includes = append(sel.Includes, includes...)
		excludes = append(sel.Excludes, excludes...)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	p, err := project.NewStore(e.db).Get(scopeProjectFlag)
	if err != nil {
		return err
	}

	// Without a usable root the scope is stored as-is; directory
	// expansion happens once the root exists.
	root, err := p.ResolveRoot()
	if err != nil {
		root = ""
		e.logger.Warn("root not resolvable, storing scope unexpanded", "error", err.Error())
	}

	state, err := scope.NewStore(e.home).Save(scopeProjectFlag, root, includes, excludes)
	if err != nil {
		return err
	}

	fmt.Printf("Scope saved: %d includes, %d excludes\n", len(state.Includes), len(state.Excludes))
	return nil
}
