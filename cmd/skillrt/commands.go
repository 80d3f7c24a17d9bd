package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jllopis/skillrt/pkg/runtime"
	"github.com/jllopis/skillrt/pkg/skills"
)

type skillRow struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Category    skills.Category    `json:"category"`
	Enabled     bool               `json:"enabled"`
	Description string             `json:"description,omitempty"`
	Estimated   string             `json:"estimatedDuration,omitempty"`
	Cost        map[string]float64 `json:"cost,omitempty"`
}

// withApp bootstraps the application around fn and releases it afterwards.
func withApp(flags *rootFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context(), flags)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())
		return fn(cmd, a, args)
	}
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var category string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered skills",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			records := a.registry.Records(skills.Filter{
				Category:        skills.Category(category),
				IncludeDisabled: all,
			})
			rows := make([]skillRow, 0, len(records))
			for _, rec := range records {
				row := skillRow{
					ID:          rec.Skill.ID,
					Name:        rec.Skill.Name,
					Category:    rec.Skill.Category,
					Enabled:     rec.Enabled,
					Description: rec.Skill.Description,
					Cost:        rec.Skill.Cost,
				}
				if rec.Skill.EstimatedDuration > 0 {
					row.Estimated = rec.Skill.EstimatedDuration.String()
				}
				rows = append(rows, row)
			}
			out := cmd.OutOrStdout()
			if flags.JSON {
				return printJSON(out, rows)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tENABLED\tDESCRIPTION")
			for _, row := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", row.ID, row.Category, row.Enabled, row.Description)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&category, "category", "", "only list skills of this category")
	cmd.Flags().BoolVar(&all, "all", false, "include disabled skills")
	return cmd
}

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registry statistics",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			stats := a.registry.Stats()
			out := cmd.OutOrStdout()
			if flags.JSON {
				return printJSON(out, stats)
			}
			fmt.Fprintf(out, "total: %d\nenabled: %d\ndisabled: %d\n", stats.Total, stats.Enabled, stats.Disabled)
			for category, n := range stats.ByCategory {
				fmt.Fprintf(out, "  %s: %d\n", category, n)
			}
			return nil
		}),
	}
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var user, locale string
	cmd := &cobra.Command{
		Use:   "run <skill-id> [input]",
		Short: "Run one skill",
		Long: `Run one skill and print its result envelope.

The input is parsed as JSON; anything that is not valid JSON is passed as a
plain string. Use "-" to read the input from stdin.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			var raw string
			if len(args) == 2 {
				raw = args[1]
			}
			input, err := readInput(cmd.InOrStdin(), raw)
			if err != nil {
				return err
			}
			res := a.runtime.Run(cmd.Context(), args[0], input, callContext(user, locale))
			if err := printResult(cmd.OutOrStdout(), res, flags.JSON); err != nil {
				return err
			}
			if !res.Success {
				return NewRunError(res)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&user, "user", "", "user id recorded in the result metadata")
	cmd.Flags().StringVar(&locale, "locale", "", "locale passed to the skill")
	return cmd
}

func newSequenceCmd(flags *rootFlags) *cobra.Command {
	var user, locale string
	var pipe bool
	cmd := &cobra.Command{
		Use:   "sequence <skill-id>=<input>... | --pipe <input> <skill-id>...",
		Short: "Run skills in order, stopping at the first failure",
		Long: `Run several skills in order. Every step shares one run id and the
sequence stops at the first failure.

By default each argument is "<skill-id>=<input>". With --pipe the first
argument is the initial input and each skill receives the previous output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			call := callContext(user, locale)
			var results []*runtime.Result
			if pipe {
				if len(args) < 2 {
					return NewInvalidArgumentError("sequence", "--pipe needs an input and at least one skill id")
				}
				results = a.runtime.RunPipeline(cmd.Context(), args[1:], parseInput(args[0]), call)
			} else {
				steps, err := parseSteps(args)
				if err != nil {
					return err
				}
				results = a.runtime.RunSteps(cmd.Context(), steps, call)
			}

			out := cmd.OutOrStdout()
			if flags.JSON {
				if err := printJSON(out, results); err != nil {
					return err
				}
			} else {
				for i, res := range results {
					fmt.Fprintf(out, "step %d:\n", i+1)
					if err := printResult(out, res, false); err != nil {
						return err
					}
				}
			}
			if n := len(results); n > 0 && !results[n-1].Success {
				return NewRunError(results[n-1])
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&pipe, "pipe", false, "feed each output into the next skill")
	cmd.Flags().StringVar(&user, "user", "", "user id recorded in the result metadata")
	cmd.Flags().StringVar(&locale, "locale", "", "locale passed to every skill")
	return cmd
}

func newEstimateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <skill-id>",
		Short: "Show the planning hints of a skill",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			est, ok := a.runtime.Estimate(args[0])
			if !ok {
				return NewNotFoundError("skill", args[0])
			}
			out := cmd.OutOrStdout()
			if flags.JSON {
				return printJSON(out, map[string]any{
					"durationMs": est.Duration.Milliseconds(),
					"cost":       est.Cost,
				})
			}
			fmt.Fprintf(out, "duration: %s\n", est.Duration)
			for resource, amount := range est.Cost {
				fmt.Fprintf(out, "cost.%s: %g\n", resource, amount)
			}
			return nil
		}),
	}
}

func newAuditCmd(flags *rootFlags) *cobra.Command {
	var filter runtime.AuditFilter
	var prune time.Duration
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded skill runs",
		Long: `List skill runs recorded by the audit store. Only the sqlite driver
keeps records between invocations.`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if a.audit == nil {
				return NewInvalidArgumentError("runtime.audit.driver", "audit is disabled")
			}
			out := cmd.OutOrStdout()
			if prune > 0 {
				pruner, ok := a.audit.(runtime.AuditPruner)
				if !ok {
					return NewInvalidArgumentError("prune", "audit store does not support pruning")
				}
				n, err := pruner.Prune(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pruned %d records\n", n)
				return nil
			}
			events, err := a.audit.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if flags.JSON {
				return printJSON(out, events)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FINISHED\tRUN\tSKILL\tSTATUS\tDURATION\tERROR")
			for _, ev := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\t%s\n",
					ev.FinishedAt.Format(time.RFC3339), ev.RunID, ev.SkillID, ev.Status, ev.DurationMs, ev.Error)
			}
			return tw.Flush()
		}),
	}
	f := cmd.Flags()
	f.StringVar(&filter.SkillID, "skill", "", "filter by skill id")
	f.StringVar(&filter.UserID, "user", "", "filter by user id")
	f.StringVar(&filter.RunID, "run", "", "filter by run id")
	f.StringVar(&filter.Status, "status", "", "filter by status (succeeded, failed)")
	f.IntVar(&filter.Limit, "limit", 50, "keep the most recent N records (0 for all)")
	f.DurationVar(&prune, "prune", 0, "delete records older than this age instead of listing")
	return cmd
}

func callContext(user, locale string) skills.CallContext {
	call := skills.CallContext{
		UserID: user,
		Values: map[string]any{"transport": "cli"},
	}
	if locale != "" {
		call.Values["locale"] = locale
	}
	return call
}

// readInput decodes raw, or stdin when raw is "-". An absent input is nil.
func readInput(stdin io.Reader, raw string) (any, error) {
	if raw == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}
	if raw == "" {
		return nil, nil
	}
	return parseInput(raw), nil
}

// parseInput decodes raw as JSON and falls back to the raw string.
func parseInput(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func parseSteps(args []string) ([]runtime.Step, error) {
	steps := make([]runtime.Step, 0, len(args))
	for _, arg := range args {
		id, raw, ok := strings.Cut(arg, "=")
		if !ok || id == "" {
			return nil, NewInvalidArgumentError(arg, "expected <skill-id>=<input>")
		}
		var input any
		if raw != "" {
			input = parseInput(raw)
		}
		steps = append(steps, runtime.Step{SkillID: id, Input: input})
	}
	return steps, nil
}

func printResult(out io.Writer, res *runtime.Result, asJSON bool) error {
	if asJSON {
		return printJSON(out, res)
	}
	if res.Success {
		data, err := json.Marshal(res.Data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ok (%dms): %s\n", res.DurationMs, data)
	} else {
		fmt.Fprintf(out, "failed (%dms) [%s]: %s\n", res.DurationMs, res.Code, res.Error)
	}
	for _, line := range res.Logs {
		fmt.Fprintf(out, "  %s\n", line)
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
