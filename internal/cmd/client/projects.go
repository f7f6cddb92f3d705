package client

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// NewProjectCommand constructs the `project` command group.
func NewProjectCommand(baseURL BaseURLFunc) *cobra.Command {
	projectCmd := &cobra.Command{Use: "project", Short: "Project operations"}
	projectCmd.AddCommand(
		newProjectListCommand(baseURL),
		newProjectCreateCommand(baseURL),
		newProjectGetCommand(baseURL),
		newProjectDeleteCommand(baseURL),
	)
	return projectCmd
}

func newProjectListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects with board counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out []map[string]any
			if err := doJSON(cmd.Context(), http.MethodGet, baseURL()+"/api/v1/projects", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newProjectCreateCommand(baseURL BaseURLFunc) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			slug, _ := cmd.Flags().GetString("slug")
			goal, _ := cmd.Flags().GetString("goal")
			body := map[string]string{"name": name, "slug": slug, "goal": goal}
			var out map[string]any
			if err := doJSON(cmd.Context(), http.MethodPost, baseURL()+"/api/v1/projects", body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	createCmd.Flags().String("name", "", "Project name")
	createCmd.Flags().String("slug", "", "Project slug (uppercase, e.g. ACME)")
	createCmd.Flags().String("goal", "", "Project goal")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("slug")
	return createCmd
}

func newProjectGetCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			endpoint := baseURL() + "/api/v1/projects/" + url.PathEscape(args[0])
			if err := doJSON(cmd.Context(), http.MethodGet, endpoint, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newProjectDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := baseURL() + "/api/v1/projects/" + url.PathEscape(args[0])
			if err := doJSON(cmd.Context(), http.MethodDelete, endpoint, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}
