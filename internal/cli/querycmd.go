package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkandawire/docket/internal/query"
)

// NewQueryCommand creates "docket query": raw predicate queries against any
// collection.
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	var (
		wheres  []string
		orderBy string
		desc    bool
		limit   int
		offset  int
	)
	cmd := &cobra.Command{
		Use:   "query <collection>",
		Short: "Query a collection with field predicates",
		Long: "Query any collection. Predicates take the form <field>:<op>:<value>\n" +
			"with ops eq, ne, lt, lte, gt, gte, like, in (in takes comma-separated\nvalues).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// A bare --desc reverses against the creation timestamp.
			if desc && orderBy == "" {
				orderBy = "created_at"
			}
			q := query.Query{OrderBy: orderBy, Desc: desc, Limit: limit, Offset: offset}
			for _, w := range wheres {
				pred, err := parsePredicate(w)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --where", err)
				}
				q.Predicates = append(q.Predicates, pred)
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.docs.Query(cmd.Context(), args[0], q)
			if err != nil {
				return err
			}

			out := formatter(cmd, opts)
			if opts.Format == "json" {
				return out.Success(records)
			}
			for _, rec := range records {
				data, err := json.Marshal(rec.Data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out.Writer, "%s\t%s\n", rec.ID, data)
			}
			fmt.Fprintf(out.Writer, "%d records\n", len(records))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&wheres, "where", nil, "predicate <field>:<op>:<value> (repeatable)")
	cmd.Flags().StringVar(&orderBy, "order", "", "order by field (default: creation time, newest first)")
	cmd.Flags().BoolVar(&desc, "desc", false, "descending order")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

// parsePredicate parses "field:op:value". The value keeps any further
// colons intact; "in" splits it on commas.
func parsePredicate(s string) (query.Predicate, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return query.Predicate{}, fmt.Errorf("want <field>:<op>:<value>, got %q", s)
	}
	field, op, value := parts[0], query.Op(parts[1]), parts[2]
	if op == query.OpIn {
		items := strings.Split(value, ",")
		vals := make([]any, len(items))
		for i, item := range items {
			vals[i] = item
		}
		return query.Predicate{Field: field, Op: op, Value: vals}, nil
	}
	return query.Predicate{Field: field, Op: op, Value: value}, nil
}
