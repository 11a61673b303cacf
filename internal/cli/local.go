package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/flow"
	"github.com/shaiso/Conduit/internal/runner"
	"github.com/shaiso/Conduit/internal/steps"
)

// Local — зависимости команд, работающих без API.
type Local struct {
	Builder flow.Builder
	Logger  *slog.Logger
}

// NewRunCmd создаёт команду локального запуска pipeline из файла.
func NewRunCmd(localFn func() Local, outputFn func() *Output) *cobra.Command {
	var input inputFlags
	var async bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a pipeline definition locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			local := localFn()
			out := outputFn()

			value, err := input.value()
			if err != nil {
				return err
			}

			def, err := flow.LoadFile(args[0])
			if err != nil {
				return err
			}
			if async {
				def.Mode = flow.ModeConcurrent
			}

			catalog := flow.NewCatalog()
			if err := catalog.Add(def); err != nil {
				return err
			}

			r := runner.New(runner.Config{
				Catalog: catalog,
				Builder: local.Builder,
				Logger:  local.Logger,
			})

			run := domain.NewRun(def.Name, value)
			execErr := r.Execute(cmd.Context(), run)

			out.Print(
				[]string{"PIPELINE", "STATUS", "DURATION", "OUTPUT", "ERROR"},
				[][]string{{
					run.Pipeline,
					string(run.Status),
					run.Duration().String(),
					formatValue(run.Output),
					run.Error,
				}},
				run,
			)

			if execErr != nil {
				return fmt.Errorf("run %s", run.Status)
			}
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().BoolVar(&async, "async", false, "Execute in concurrent mode regardless of definition")

	return cmd
}

// NewValidateCmd создаёт команду проверки файлов определений.
func NewValidateCmd(localFn func() Local, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate pipeline definition files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			local := localFn()
			out := outputFn()

			type result struct {
				File  string `json:"file"`
				Name  string `json:"name,omitempty"`
				Valid bool   `json:"valid"`
				Error string `json:"error,omitempty"`
			}

			results := make([]result, len(args))
			rows := make([][]string, len(args))
			failed := 0

			for i, path := range args {
				res := result{File: path, Valid: true}

				def, err := flow.LoadFile(path)
				if err == nil {
					res.Name = def.Name
					err = local.Builder.Validate(def)
				}
				if err != nil {
					res.Valid = false
					res.Error = err.Error()
					failed++
				}

				results[i] = res
				rows[i] = []string{res.File, res.Name, strconv.FormatBool(res.Valid), res.Error}
			}

			out.Print([]string{"FILE", "NAME", "VALID", "ERROR"}, rows, results)

			if failed > 0 {
				return fmt.Errorf("%d of %d definitions are invalid", failed, len(args))
			}
			return nil
		},
	}
}

// NewTransformersCmd создаёт команду вывода зарегистрированных transformer'ов.
func NewTransformersCmd(localFn func() Local, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "transformers",
		Short: "List registered transformers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			local := localFn()
			out := outputFn()

			registry := local.Builder.Registry
			if registry == nil {
				registry = steps.Default()
			}

			names := registry.Names()
			rows := make([][]string, len(names))
			for i, name := range names {
				rows[i] = []string{name}
			}

			out.Print([]string{"NAME"}, rows, names)
			return nil
		},
	}
}

// NewSkillsCmd создаёт команду вывода каталога skill.
func NewSkillsCmd(localFn func() Local, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List available skills and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			local := localFn()
			out := outputFn()

			if local.Builder.Skills == nil {
				out.Print([]string{"NAME"}, nil, []any{})
				return nil
			}

			descs := local.Builder.Skills.Descriptors()
			rows := make([][]string, len(descs))
			for i, d := range descs {
				rows[i] = []string{
					d.Name,
					strconv.FormatBool(d.IsAsync),
					strconv.FormatBool(d.Idempotent),
					strconv.FormatBool(d.RequiresNetwork),
					strconv.FormatBool(d.RequiresFilesystem),
					d.Description,
				}
			}

			out.Print([]string{"NAME", "ASYNC", "IDEMPOTENT", "NETWORK", "FILESYSTEM", "DESCRIPTION"}, rows, descs)
			return nil
		},
	}
}

// inputFlags — входное значение pipeline: строка или JSON.
type inputFlags struct {
	raw     string
	rawJSON string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.raw, "input", "", "Input value as a plain string")
	cmd.Flags().StringVar(&f.rawJSON, "input-json", "", "Input value as JSON")
	cmd.MarkFlagsMutuallyExclusive("input", "input-json")
}

func (f *inputFlags) value() (any, error) {
	if f.rawJSON == "" {
		return f.raw, nil
	}
	var v any
	if err := json.Unmarshal([]byte(f.rawJSON), &v); err != nil {
		return nil, fmt.Errorf("invalid --input-json: %w", err)
	}
	return v, nil
}
