// nodeflow CLI — инструмент командной строки для каталога нод
// и их выполнения через HTTP API.
//
// Использование:
//
//	nodeflow [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	catalog      Каталог нод и расширения
//	custom-node  Модерация пользовательских нод
//	executors    Зарегистрированные исполнители
//	node         Выполнение и проверка нод
//	version      Сравнение версий и совместимость
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/nodeflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "nodeflow",
		Short:         "nodeflow CLI — workflow node catalog and execution",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("NODEFLOW_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewCatalogCmd(clientFn, outputFn),
		cli.NewCustomNodeCmd(clientFn, outputFn),
		cli.NewExecutorsCmd(clientFn, outputFn),
		cli.NewNodeCmd(clientFn, outputFn),
		cli.NewVersionCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
