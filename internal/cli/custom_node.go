package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCustomNodeCmd создаёт группу команд модерации пользовательских нод.
func NewCustomNodeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "custom-node",
		Aliases: []string{"cn"},
		Short:   "Manage custom marketplace nodes",
	}

	cmd.AddCommand(
		newCustomNodeCreateCmd(clientFn, outputFn),
		newCustomNodeGetCmd(clientFn, outputFn),
		newCustomNodeStatusCmd(clientFn, outputFn),
	)

	return cmd
}

func newCustomNodeCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CustomNodeRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new custom node as draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := clientFn().CreateCustomNode(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Custom node created: %s", n.Slug))
			printCustomNode(out, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Machine name (required)")
	cmd.Flags().StringVar(&req.Slug, "slug", "", "Slug, defaults to the generated id")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().StringVar(&req.Category, "category", "", "Marketplace category")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&req.Version, "version", "", "Node version (semver)")
	cmd.Flags().StringVar(&req.MinSDKVersion, "min-sdk", "", "Minimum SDK version")
	cmd.Flags().StringVar(&req.MaxSDKVersion, "max-sdk", "", "Maximum SDK version")
	cmd.Flags().StringVar(&req.MinAppVersion, "min-app", "", "Minimum app version")
	cmd.Flags().StringVar(&req.MaxAppVersion, "max-app", "", "Maximum app version")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newCustomNodeGetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "get SLUG",
		Short: "Show a custom node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := clientFn().GetCustomNode(args[0])
			if err != nil {
				return err
			}
			printCustomNode(outputFn(), n)
			return nil
		},
	}
}

func newCustomNodeStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status SLUG STATUS",
		Short: "Move a custom node through moderation",
		Long: `Move a custom node to a new status.

Allowed transitions:
  draft → pending → approved → published ⇄ deprecated
  pending → rejected → pending
  published, deprecated → removed`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := clientFn().SetCustomNodeStatus(args[0], args[1])
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Custom node %s is now %s", n.Slug, n.Status))
			printCustomNode(out, n)
			return nil
		},
	}
}

func printCustomNode(out *Output, n *CustomNodeResponse) {
	published := "-"
	if n.PublishedAt != nil {
		published = n.PublishedAt.Format("2006-01-02 15:04")
	}
	headers := []string{"SLUG", "CATALOG ID", "STATUS", "VERSION", "CATEGORY", "PUBLISHED"}
	rows := [][]string{{n.Slug, n.Entry.ID, n.Status, n.Version, n.Entry.Category, published}}
	out.Print(headers, rows, n)
}
