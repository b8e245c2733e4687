package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/nodeflow/internal/xjson"
)

// NewExecutorsCmd создаёт команду вывода исполнителей.
func NewExecutorsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "executors",
		Short: "List registered node executors",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executors, err := client.ListExecutors()
			if err != nil {
				return err
			}

			headers := []string{"TYPE", "BUILTIN"}
			rows := make([][]string, len(executors))
			for i, e := range executors {
				rows[i] = []string{e.Type, strconv.FormatBool(e.Builtin)}
			}

			out.Print(headers, rows, executors)
			return nil
		},
	}
}

// NewNodeCmd создаёт группу команд для выполнения нод.
func NewNodeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Execute and validate single nodes",
	}

	cmd.AddCommand(
		newNodeRunCmd(clientFn, outputFn),
		newNodeValidateCmd(clientFn, outputFn),
	)

	return cmd
}

func newNodeRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		nodeID      string
		config      string
		inputs      string
		variables   string
		credentials map[string]string
		async       bool
		stream      bool
		local       bool
	)

	cmd := &cobra.Command{
		Use:   "run TYPE",
		Short: "Execute a node",
		Long: `Execute a node of the given type.

JSON flags accept inline JSON or @path to a file:

  nodeflow node run template --config '{"template":"Hi {{name}}"}' --inputs '{"name":"Ada"}'
  nodeflow node run llm --config @chat.json --credential openai=$OPENAI_API_KEY --stream`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if async && stream {
				return fmt.Errorf("--async and --stream are mutually exclusive")
			}
			if async && local {
				return fmt.Errorf("--async requires the API")
			}

			req := ExecuteRequest{NodeID: nodeID, Credentials: credentials}
			var err error
			if req.Config, err = parseJSONFlag("config", config); err != nil {
				return err
			}
			if req.Inputs, err = parseJSONFlag("inputs", inputs); err != nil {
				return err
			}
			if req.Variables, err = parseJSONFlag("variables", variables); err != nil {
				return err
			}

			if async {
				queued, err := client.Enqueue(args[0], req)
				if err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Execution queued: %s", queued.ExecutionID))
				out.Print(
					[]string{"EXECUTION", "TYPE", "STATUS"},
					[][]string{{queued.ExecutionID, queued.NodeType, queued.Status}},
					queued,
				)
				return nil
			}

			onChunk := func(chunk StreamChunk) {
				if !chunk.Done {
					out.Stream(chunk.Content)
				}
			}

			var res *ExecutionResponse
			switch {
			case local && stream:
				res, err = NewLocalRunner().Execute(cmd.Context(), args[0], req, onChunk)
				out.Stream("\n")
			case local:
				res, err = NewLocalRunner().Execute(cmd.Context(), args[0], req, nil)
			case stream:
				res, err = client.ExecuteStream(args[0], req, onChunk)
				out.Stream("\n")
			default:
				res, err = client.Execute(args[0], req)
			}
			if err != nil {
				return err
			}

			printExecution(out, res)
			if !res.Result.Success {
				return fmt.Errorf("node failed: %s", res.Result.Error.Code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nodeID, "node-id", "", "Node id within the graph")
	cmd.Flags().StringVar(&config, "config", "", "Node config (JSON or @file)")
	cmd.Flags().StringVar(&inputs, "inputs", "", "Resolved inputs (JSON or @file)")
	cmd.Flags().StringVar(&variables, "variables", "", "Graph variables (JSON or @file)")
	cmd.Flags().StringToStringVar(&credentials, "credential", nil, "Credential provider=key (repeatable)")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the execution and return immediately")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream partial output as it arrives")
	cmd.Flags().BoolVar(&local, "local", false, "Execute in-process instead of through the API")

	return cmd
}

func newNodeValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var config string
	var local bool

	cmd := &cobra.Command{
		Use:   "validate TYPE",
		Short: "Validate a node config without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			cfg, err := parseJSONFlag("config", config)
			if err != nil {
				return err
			}

			var res *ValidationResponse
			if local {
				res, err = NewLocalRunner().Validate(args[0], cfg)
			} else {
				res, err = client.Validate(args[0], cfg)
			}
			if err != nil {
				return err
			}

			out.Print(
				[]string{"TYPE", "VALID", "ERRORS"},
				[][]string{{res.NodeType, strconv.FormatBool(res.Valid), strings.Join(res.Errors, "; ")}},
				res,
			)
			if !res.Valid {
				return fmt.Errorf("config is invalid")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&config, "config", "", "Node config (JSON or @file)")
	cmd.Flags().BoolVar(&local, "local", false, "Validate in-process instead of through the API")

	return cmd
}

func printExecution(out *Output, res *ExecutionResponse) {
	if out.IsJSON() {
		out.JSON(res)
		return
	}

	errText := ""
	if res.Result.Error != nil {
		errText = res.Result.Error.Code + ": " + res.Result.Error.Message
	}
	out.Table(
		[]string{"EXECUTION", "TYPE", "STATUS", "DURATION", "ERROR"},
		[][]string{{res.ExecutionID, res.NodeType, res.Status, res.Result.Duration.String(), errText}},
	)

	if len(res.Result.Outputs) > 0 {
		fmt.Fprintln(out.w)
		out.JSON(res.Result.Outputs)
	}
}

// parseJSONFlag разбирает JSON-объект из значения флага.
// "@path" читает JSON из файла, пустое значение даёт nil.
func parseJSONFlag(name, value string) (map[string]any, error) {
	if value == "" {
		return nil, nil
	}

	data := []byte(value)
	if path, ok := strings.CutPrefix(value, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
	}

	var m map[string]any
	if err := xjson.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("--%s: invalid JSON object: %w", name, err)
	}
	return m, nil
}
