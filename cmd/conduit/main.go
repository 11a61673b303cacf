// Conduit CLI — запуск и проверка pipeline локально, управление runs
// через HTTP API.
//
// Использование:
//
//	conduit [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	run           Выполнить определение из файла
//	validate      Проверить файлы определений
//	transformers  Список transformer'ов
//	skills        Список skill
//	pipeline      Pipeline на сервере
//	enqueue       Запустить pipeline на сервере
//	runs          Управление runs на сервере
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conduit/internal/cli"
	"github.com/shaiso/Conduit/internal/runner"
	"github.com/shaiso/Conduit/internal/skill"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool
	var verbose bool
	var allowNetwork bool
	var allowFilesystem bool

	rootCmd := &cobra.Command{
		Use:           "conduit",
		Short:         "Conduit CLI — declarative step pipelines",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log step execution to stderr")
	flags.BoolVar(&allowNetwork, "allow-network", false, "Allow skills that require network access")
	flags.BoolVar(&allowFilesystem, "allow-filesystem", false, "Allow skills that require filesystem access")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	localFn := func() cli.Local {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		policy := skill.CapabilityPolicy{
			AllowNetwork:    allowNetwork,
			AllowFilesystem: allowFilesystem,
		}
		return cli.Local{
			Builder: runner.DefaultBuilder(policy),
			Logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
		}
	}

	rootCmd.AddCommand(
		cli.NewRunCmd(localFn, outputFn),
		cli.NewValidateCmd(localFn, outputFn),
		cli.NewTransformersCmd(localFn, outputFn),
		cli.NewSkillsCmd(localFn, outputFn),
		cli.NewPipelineCmd(clientFn, outputFn),
		cli.NewEnqueueCmd(clientFn, outputFn),
		cli.NewRunsCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
