package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raytheonbbn/parliament-sub002/internal/engine"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/queryir"
)

// QueryOptions holds flags for the query and explain commands.
type QueryOptions struct {
	*RootOptions
	File    string
	Timeout time.Duration
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [pattern]",
		Short: "Run a query",
		Long: `Optimize and run a graph pattern with optional FILTER clauses.

Example:
  kbgraph query 'PREFIX ex: <http://example.org/> ?s ex:age ?a . FILTER(?a > 18)'
  kbgraph query -f adults.rq --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [pattern]",
		Short: "Show how a query would run",
		Long: `Print the query before and after optimization and the evaluation plan of
each graph pattern, without running it.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", `read the query from a file ("-" for stdin)`)
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "cancel the query after this long (0 for no limit)")
}

// parseQueryArgs reads the query from the argument or --file.
func parseQueryArgs(opts *QueryOptions, args []string, cmd *cobra.Command) (queryir.Op, error) {
	var src string
	switch {
	case len(args) == 1 && opts.File != "":
		return nil, NewExitError(ExitCommandError, "give the query as an argument or with --file, not both")
	case len(args) == 1:
		src = args[0]
	case opts.File != "":
		data, err := readSource(opts.File, cmd)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read query", err)
		}
		src = data
	default:
		return nil, NewExitError(ExitCommandError, "no query given")
	}

	q, err := ir.ParseQuery(src)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse query", err)
	}
	return queryir.FromQuery(q), nil
}

func (o *QueryOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmdContext(cmd)
	if o.Timeout > 0 {
		return context.WithTimeout(ctx, o.Timeout)
	}
	return context.WithCancel(ctx)
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	op, err := parseQueryArgs(opts, args, cmd)
	if err != nil {
		return err
	}
	ctx, cancel := opts.context(cmd)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	out := formatter(opts.RootOptions, cmd)
	res, err := s.engine.Query(ctx, op)
	if err != nil {
		code := string(engine.CodeOf(err))
		if outErr := out.Error(code, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "query failed", err)
	}
	return out.Rows(res)
}

// ExplainData is the explain command's payload.
type ExplainData struct {
	Original  string        `json:"original"`
	Optimized string        `json:"optimized"`
	Plans     []PatternPlan `json:"plans"`
}

// PatternPlan is the plan of one graph pattern.
type PatternPlan struct {
	Pattern []string `json:"pattern"`
	Plan    string   `json:"plan"`
}

func (d ExplainData) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original:\n%s\n\nOptimized:\n%s\n", d.Original, d.Optimized)
	for i, p := range d.Plans {
		fmt.Fprintf(&sb, "\nPlan %d:\n%s\n", i+1, p.Plan)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func runExplain(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	op, err := parseQueryArgs(opts, args, cmd)
	if err != nil {
		return err
	}
	ctx, cancel := opts.context(cmd)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ex, err := s.engine.Explain(ctx, op)
	if err != nil {
		return WrapExitError(ExitFailure, "explain failed", err)
	}
	data := ExplainData{
		Original:  queryir.Format(ex.Original),
		Optimized: queryir.Format(ex.Optimized),
		Plans:     make([]PatternPlan, 0, len(ex.Plans)),
	}
	for _, p := range ex.Plans {
		pp := PatternPlan{Plan: p.Plan.String()}
		for _, t := range p.Pattern {
			pp.Pattern = append(pp.Pattern, t.String())
		}
		data.Plans = append(data.Plans, pp)
	}
	return formatter(opts.RootOptions, cmd).Success(data)
}
