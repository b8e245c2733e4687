package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewVersionCmd создаёт группу команд для работы с версиями нод.
func NewVersionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Compare node versions and check compatibility",
	}

	cmd.AddCommand(
		newVersionCompareCmd(clientFn, outputFn),
		newVersionCheckCmd(clientFn, outputFn),
	)

	return cmd
}

func newVersionCompareCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "compare FROM TO",
		Short: "Compare two semver versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.CompareVersions(args[0], args[1])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"FROM", "TO", "COMPARISON", "UPGRADE", "AUTO"},
				[][]string{{res.From, res.To, strconv.Itoa(res.Comparison), res.UpgradeType, strconv.FormatBool(res.AutoUpgrade)}},
				res,
			)
			return nil
		},
	}
}

func newVersionCheckCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CompatibilityRequest
	var vctx VersionContext

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check node version bounds against an environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if vctx != (VersionContext{}) {
				req.Context = &vctx
			}

			res, err := client.CheckCompatibility(req)
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(res)
			} else {
				rows := make([][]string, len(res.Issues))
				for i, issue := range res.Issues {
					rows[i] = []string{issue.Severity, issue.Message}
				}
				out.Table([]string{"SEVERITY", "MESSAGE"}, rows)
			}

			if !res.Compatible {
				return fmt.Errorf("node is not compatible")
			}
			out.Success("Compatible")
			return nil
		},
	}

	cmd.Flags().StringVar(&req.MinSDKVersion, "min-sdk", "", "Minimum SDK version")
	cmd.Flags().StringVar(&req.MaxSDKVersion, "max-sdk", "", "Maximum SDK version")
	cmd.Flags().StringVar(&req.MinAppVersion, "min-app", "", "Minimum app version")
	cmd.Flags().StringVar(&req.MaxAppVersion, "max-app", "", "Maximum app version")
	cmd.Flags().StringVar(&vctx.SDKVersion, "sdk-version", "", "SDK version (default: server)")
	cmd.Flags().StringVar(&vctx.AppVersion, "app-version", "", "App version (default: server)")

	return cmd
}
