package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raytheonbbn/parliament-sub002/internal/config"
	"github.com/raytheonbbn/parliament-sub002/internal/engine"
	"github.com/raytheonbbn/parliament-sub002/internal/index/numeric"
)

// IndexCreateOptions holds flags for index create.
type IndexCreateOptions struct {
	*RootOptions
	Name      string
	Predicate string
	Backend   string
	Dir       string
	Functions []string
}

// NewIndexCommand creates the index command group.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage numeric indexes",
		Long: `Create, list, drop and rebuild the numeric indexes kept beside the store.

create and drop update the configuration file, so later commands open the
same indexes.`,
	}

	cmd.AddCommand(newIndexCreateCommand(rootOpts))
	cmd.AddCommand(newIndexListCommand(rootOpts))
	cmd.AddCommand(newIndexDropCommand(rootOpts))
	cmd.AddCommand(newIndexRebuildCommand(rootOpts))

	return cmd
}

func newIndexCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an index and fill it from the store",
		Long: `Create a numeric index over one predicate and fill it from the store.

Each --function registers a property function answered by the index, given
as URI,OP where OP is one of < <= > >= =.

Example:
  kbgraph index create --name age --predicate http://example.org/age \
    --function 'http://example.org/ageAbove,>'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "index name (required)")
	cmd.Flags().StringVar(&opts.Predicate, "predicate", "", "indexed predicate URI (required)")
	cmd.Flags().StringVar(&opts.Backend, "backend", numeric.BackendMemory, "storage backend (memory|badger)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "badger directory, relative to the config file")
	cmd.Flags().StringArrayVar(&opts.Functions, "function", nil, "property function as URI,OP (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("predicate")

	return cmd
}

// parseFunction splits URI,OP at the last comma.
func parseFunction(s string) (config.Function, error) {
	i := strings.LastIndex(s, ",")
	if i <= 0 || i == len(s)-1 {
		return config.Function{}, fmt.Errorf("function %q: want URI,OP", s)
	}
	return config.Function{URI: strings.TrimSpace(s[:i]), Op: strings.TrimSpace(s[i+1:])}, nil
}

func runIndexCreate(opts *IndexCreateOptions, cmd *cobra.Command) error {
	idx := config.Index{Name: opts.Name, Predicate: opts.Predicate, Backend: opts.Backend, Dir: opts.Dir}
	for _, arg := range opts.Functions {
		f, err := parseFunction(arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --function", err)
		}
		idx.Functions = append(idx.Functions, f)
	}

	ctx := cmdContext(cmd)
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.cfg.AddIndex(idx); err != nil {
		return WrapExitError(ExitCommandError, "failed to create index", err)
	}
	if err := s.cfg.Check(); err != nil {
		return WrapExitError(ExitCommandError, "invalid index", err)
	}
	if err := s.engine.CreateIndex(ctx, s.cfg.Definition(idx)); err != nil {
		return WrapExitError(ExitFailure, "failed to create index", err)
	}
	if err := s.cfg.Save(opts.Config); err != nil {
		return WrapExitError(ExitCommandError, "failed to save config", err)
	}
	return listIndexes(s, opts.RootOptions, cmd)
}

func newIndexListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List indexes with their sizes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmdContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return listIndexes(s, rootOpts, cmd)
		},
	}
}

func newIndexDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "drop <name>",
		Short:         "Drop an index and delete its storage",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmdContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.cfg.RemoveIndex(args[0]) {
				return NewExitError(ExitCommandError, fmt.Sprintf("index %q is not configured", args[0]))
			}
			if err := s.engine.DropIndex(args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to drop index", err)
			}
			if err := s.cfg.Save(rootOpts.Config); err != nil {
				return WrapExitError(ExitCommandError, "failed to save config", err)
			}
			return listIndexes(s, rootOpts, cmd)
		},
	}
}

func newIndexRebuildCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rebuild",
		Short:         "Clear every index and refill it from the store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			s, err := openSession(ctx, rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.engine.RebuildIndexes(ctx); err != nil {
				return WrapExitError(ExitFailure, "failed to rebuild indexes", err)
			}
			return listIndexes(s, rootOpts, cmd)
		},
	}
}

// IndexList is the payload of the index commands.
type IndexList struct {
	Indexes []IndexRow `json:"indexes"`
}

// IndexRow describes one index.
type IndexRow struct {
	Name      string   `json:"name"`
	Predicate string   `json:"predicate"`
	Backend   string   `json:"backend"`
	Size      int64    `json:"size"`
	Functions []string `json:"functions,omitempty"`
}

func (l IndexList) String() string {
	if len(l.Indexes) == 0 {
		return "No indexes."
	}
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPREDICATE\tBACKEND\tSIZE\tFUNCTIONS")
	for _, r := range l.Indexes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Name, r.Predicate, r.Backend, r.Size, strings.Join(r.Functions, " "))
	}
	_ = tw.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

func listIndexes(s *session, opts *RootOptions, cmd *cobra.Command) error {
	infos, err := s.engine.Indexes()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list indexes", err)
	}
	return formatter(opts, cmd).Success(indexList(s.cfg, infos))
}

// indexList joins the engine's live sizes with the configured
// definitions, in registration order.
func indexList(cfg *config.Config, infos []engine.IndexInfo) IndexList {
	byName := make(map[string]config.Index, len(cfg.Indexes))
	for _, idx := range cfg.Indexes {
		byName[idx.Name] = idx
	}
	list := IndexList{Indexes: make([]IndexRow, 0, len(infos))}
	for _, info := range infos {
		idx := byName[info.Name]
		backend := idx.Backend
		if backend == "" {
			backend = numeric.BackendMemory
		}
		row := IndexRow{Name: info.Name, Predicate: idx.Predicate, Backend: backend, Size: info.Size}
		for _, f := range idx.Functions {
			row.Functions = append(row.Functions, f.URI+" "+f.Op)
		}
		list.Indexes = append(list.Indexes, row)
	}
	return list
}
