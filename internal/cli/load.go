package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Delete bool
}

// LoadResult is the load command's payload.
type LoadResult struct {
	Files   int `json:"files"`
	Parsed  int `json:"parsed"`
	Written int `json:"written"`
}

func (r LoadResult) String() string {
	return fmt.Sprintf("%d statements parsed from %d files, %d written", r.Parsed, r.Files, r.Written)
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <file>...",
		Short: "Add statements to the store",
		Long: `Add ground statements to the store and every configured index.

Files use the pattern syntax without variables; "-" reads stdin.

Example:
  kbgraph load people.ttl
  kbgraph load --delete retractions.ttl`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the statements instead of adding them")

	return cmd
}

func runLoad(opts *LoadOptions, files []string, cmd *cobra.Command) error {
	var triples []ir.Triple
	for _, file := range files {
		src, err := readSource(file, cmd)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read "+file, err)
		}
		parsed, err := ir.ParseTriples(src)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to parse "+file, err)
		}
		triples = append(triples, parsed...)
	}

	ctx := cmdContext(cmd)
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	write := s.engine.Add
	if opts.Delete {
		write = s.engine.Delete
	}
	n, err := write(ctx, triples...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to write statements", err)
	}
	s.logger.Info("statements written", "parsed", len(triples), "written", n, "delete", opts.Delete)

	return formatter(opts.RootOptions, cmd).Success(LoadResult{Files: len(files), Parsed: len(triples), Written: n})
}

// readSource reads a file, or stdin for "-".
func readSource(path string, cmd *cobra.Command) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
