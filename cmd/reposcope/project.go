package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reposcope/internal/project"
	"reposcope/internal/scope"
)

var (
	projectPathFlag  string
	projectDescFlag  string
	projectThemeFlag string
	projectJSONFlag  bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage registered projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a project with its sandbox root",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one project and its scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a project and its stored scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectRm,
}

var projectDuplicateCmd = &cobra.Command{
	Use:   "duplicate <id> <new-name>",
	Short: "Copy a project registration including its scope",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectDuplicate,
}

func init() {
	projectAddCmd.Flags().StringVar(&projectPathFlag, "path", "", "Sandbox root directory (required)")
	projectAddCmd.Flags().StringVar(&projectDescFlag, "description", "", "Free-form description")
	projectAddCmd.Flags().StringVar(&projectThemeFlag, "theme", "", "UI theme hint")
	_ = projectAddCmd.MarkFlagRequired("path")

	projectListCmd.Flags().BoolVar(&projectJSONFlag, "json", false, "Output as JSON")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectRmCmd)
	projectCmd.AddCommand(projectDuplicateCmd)
	rootCmd.AddCommand(projectCmd)
}

func parseProjectID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	p := project.NewProject(args[0], projectDescFlag, projectPathFlag, projectThemeFlag)
	if _, err := p.ResolveRoot(); err != nil {
		return err
	}
	if err := project.NewStore(e.db).Create(p); err != nil {
		return err
	}

	fmt.Printf("Registered project %d (%s) at %s\n", p.ID, p.Name, p.DocPath)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	projects, err := project.NewStore(e.db).List()
	if err != nil {
		return err
	}

	if projectJSONFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(projects)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPATH\tCREATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.DocPath, p.CreatedAt)
	}
	return w.Flush()
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	id, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	p, err := project.NewStore(e.db).Get(id)
	if err != nil {
		return err
	}
	state := scope.NewStore(e.home).Load(id)

	doc := map[string]interface{}{
		"project": p,
		"scope":   state,
	}
	if root, err := p.ResolveRoot(); err != nil {
		doc["rootError"] = err.Error()
	} else {
		doc["root"] = root
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func runProjectRm(cmd *cobra.Command, args []string) error {
	id, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if err := project.NewStore(e.db).Delete(id); err != nil {
		return err
	}
	if err := scope.NewStore(e.home).Delete(id); err != nil {
		e.logger.Warn("scope cleanup failed", "projectId", id, "error", err.Error())
	}

	fmt.Printf("Removed project %d\n", id)
	return nil
}

func runProjectDuplicate(cmd *cobra.Command, args []string) error {
	id, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	copied, err := project.NewStore(e.db).Duplicate(id, args[1])
	if err != nil {
		return err
	}
	if err := scope.NewStore(e.home).Copy(id, copied.ID); err != nil {
		e.logger.Warn("scope copy failed", "projectId", id, "error", err.Error())
	}

	fmt.Printf("Duplicated project %d as %d (%s)\n", id, copied.ID, copied.Name)
	return nil
}
