package main

import (
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var logFormat, logLevel string
	root := &cobra.Command{
		Use:          "skillswapctl",
		Short:        "Operate skillswap catalogs and servers",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := logger.Init(logger.WithFormat(logFormat)); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newSeedCmd(), newSearchCmd(), newProbeCmd())
	return root
}

// filterFlags are the search filter flags shared by search and probe.
type filterFlags struct {
	query     string
	category  string
	levels    []string
	intent    string
	location  string
	minRating string
	sortBy    string
}

func (f *filterFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.query, "query", "q", "", "free-text search term")
	fs.StringVar(&f.category, "category", "", "skill category")
	fs.StringSliceVar(&f.levels, "level", nil, "skill levels, repeatable or comma separated")
	fs.StringVar(&f.intent, "type", "", "listing intent: all, teaching or learning")
	fs.StringVar(&f.location, "location", "", "member city or country")
	fs.StringVar(&f.minRating, "min-rating", "", "minimum rating")
	fs.StringVar(&f.sortBy, "sort-by", "", "relevance, rating, popularity, recent or name")
}

// values returns the set filters as query parameters.
func (f *filterFlags) values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set(query.FieldQuery, f.query)
	set(query.FieldCategory, f.category)
	set(query.FieldType, f.intent)
	set(query.FieldLocation, f.location)
	set(query.FieldMinRating, f.minRating)
	set(query.FieldSortBy, f.sortBy)
	for _, l := range f.levels {
		v.Add(query.FieldLevel, l)
	}
	return v
}

// rawFilter converts query parameters to a RawFilter the way the HTTP
// search handler does: repeated keys become string slices.
func rawFilter(v url.Values) query.RawFilter {
	raw := make(query.RawFilter, len(v))
	for k, vals := range v {
		if len(vals) == 1 {
			raw[k] = vals[0]
			continue
		}
		raw[k] = append([]string(nil), vals...)
	}
	return raw
}
