package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a project and all its crawled data",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeForce, "force", false, "Skip the confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	name := args[0]
	project, err := application.Store.ProjectStorage().GetProjectByName(ctx, name)
	if err != nil {
		return fmt.Errorf("project not found: %s", name)
	}

	if !removeForce {
		fmt.Printf("Remove project %q and its %d pages? [y/N] ", project.Name, project.TotalPages)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted")
			return nil
		}
	}

	// Pages and documents first so a failure cannot orphan them.
	if err := application.Store.DocumentStorage().DeleteDocumentsByProject(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	if err := application.Store.PageStorage().DeletePagesByProject(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete pages: %w", err)
	}
	if err := application.Store.SessionStorage().DeleteSessionsByProject(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	if err := application.Store.ProjectStorage().DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	fmt.Printf("Removed project %q\n", name)
	return nil
}
