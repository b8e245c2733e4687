package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewCatalogCmd создаёт группу команд для работы с каталогом нод.
func NewCatalogCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the node catalog",
	}

	cmd.AddCommand(
		newCatalogListCmd(clientFn, outputFn),
		newCatalogExtensionsCmd(clientFn, outputFn),
		newCatalogAddCmd(clientFn, outputFn),
		newCatalogRemoveCmd(clientFn, outputFn),
	)

	return cmd
}

func newCatalogListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts CatalogOpts
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			listing, err := client.GetCatalog(opts)
			if err != nil {
				return err
			}

			nodes := listing.Nodes
			if category != "" {
				filtered := nodes[:0:0]
				for _, n := range nodes {
					if n.Category == category {
						filtered = append(filtered, n)
					}
				}
				nodes = filtered
			}

			out.Print(entryHeaders, entryRows(nodes), nodes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.ExcludeBuiltin, "no-builtin", false, "Exclude builtin nodes")
	cmd.Flags().BoolVar(&opts.ExcludeExtensions, "no-extensions", false, "Exclude extension nodes")
	cmd.Flags().BoolVar(&opts.ExcludeCustom, "no-custom", false, "Exclude custom nodes")
	cmd.Flags().StringVar(&opts.SDKVersion, "sdk-version", "", "SDK version for compatibility checks")
	cmd.Flags().StringVar(&opts.AppVersion, "app-version", "", "App version for compatibility checks")
	cmd.Flags().StringVar(&category, "category", "", "Show only this category (ai, http, db, ui, utility)")

	return cmd
}

func newCatalogExtensionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "List registered extensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			entries, err := client.ListExtensions()
			if err != nil {
				return err
			}

			out.Print(entryHeaders, entryRows(entries), entries)
			return nil
		},
	}
}

func newCatalogAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req ExtensionRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an extension node",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			entry, err := client.AddExtension(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Extension registered: %s", entry.ID))
			out.Print(entryHeaders, entryRows([]CatalogEntry{*entry}), entry)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "Node id (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().StringVar(&req.Category, "category", "", "Category (ai, http, db, ui, utility)")
	cmd.Flags().StringVar(&req.Version, "version", "", "Node version (semver)")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&req.MinSDKVersion, "min-sdk", "", "Minimum SDK version")
	cmd.Flags().StringVar(&req.MaxSDKVersion, "max-sdk", "", "Maximum SDK version")
	cmd.Flags().StringVar(&req.MinAppVersion, "min-app", "", "Minimum app version")
	cmd.Flags().StringVar(&req.MaxAppVersion, "max-app", "", "Maximum app version")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newCatalogRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove an extension node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.RemoveExtension(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Extension removed: %s", args[0]))
			return nil
		},
	}
}

var entryHeaders = []string{"ID", "NAME", "CATEGORY", "SOURCE", "VERSION", "COMPATIBLE"}

func entryRows(entries []CatalogEntry) [][]string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.ID, e.Name, e.Category, e.Source, e.Version, compatibilityCell(e.Compatibility)}
	}
	return rows
}

// compatibilityCell: "-" без ограничений, иначе yes/no и сообщения ошибок.
func compatibilityCell(c *CompatibilityResponse) string {
	if c == nil {
		return "-"
	}
	if c.Compatible {
		return "yes"
	}
	var msgs []string
	for _, issue := range c.Issues {
		if issue.Severity == "error" {
			msgs = append(msgs, issue.Message)
		}
	}
	return "no: " + strings.Join(msgs, "; ")
}
