package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conduit/internal/scheduler"
)

// NewPipelineCmd создаёт группу команд для просмотра каталога сервера.
func NewPipelineCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Inspect pipelines loaded by the server",
	}

	cmd.AddCommand(
		newPipelineListCmd(clientFn, outputFn),
		newPipelineShowCmd(clientFn, outputFn),
		newPipelineSchedulesCmd(clientFn, outputFn),
	)

	return cmd
}

func newPipelineListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pipelines, err := client.ListPipelines()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "MODE", "STEPS", "CRON", "DESCRIPTION"}
			rows := make([][]string, len(pipelines))
			for i, p := range pipelines {
				rows[i] = []string{p.Name, p.Mode, strconv.Itoa(p.StepCount), cronOf(p), p.Description}
			}

			out.Print(headers, rows, pipelines)
			return nil
		},
	}
}

func newPipelineShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show pipeline steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := client.GetPipeline(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(p.Steps))
			for i, s := range p.Steps {
				rows[i] = []string{strconv.Itoa(i), formatValue(s)}
			}

			out.Print([]string{"#", "STEP"}, rows, p)
			return nil
		},
	}
}

func newPipelineSchedulesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "List scheduled pipelines with their next fire time",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pipelines, err := client.ListPipelines()
			if err != nil {
				return err
			}

			type scheduled struct {
				Name    string `json:"name"`
				Cron    string `json:"cron"`
				NextDue string `json:"next_due,omitempty"`
			}

			now := time.Now()
			var items []scheduled
			var rows [][]string
			for _, p := range pipelines {
				if p.Schedule == nil {
					continue
				}
				item := scheduled{Name: p.Name, Cron: p.Schedule.Cron}
				if next, err := scheduler.CalculateNextDue(p.Schedule.Cron, now); err == nil {
					item.NextDue = next.Format(time.RFC3339)
				}
				items = append(items, item)
				rows = append(rows, []string{item.Name, item.Cron, item.NextDue})
			}

			out.Print([]string{"NAME", "CRON", "NEXT_DUE"}, rows, items)
			return nil
		},
	}
}

func cronOf(p PipelineResponse) string {
	if p.Schedule == nil {
		return ""
	}
	return p.Schedule.Cron
}
