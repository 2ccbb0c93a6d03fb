package cli

import (
	"net/url"
	"strconv"

	"corpus-manager/internal/search"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// filterFlags maps command-line filter flags onto search parameter keys.
var filterFlags = []struct {
	flag  string
	key   string
	usage string
}{
	{"name-contains", "name", "File name contains (case-insensitive)"},
	{"ext", "ext", "Exact extension, e.g. .pdf"},
	{"section", "section", "Top-level directory; \"(root)\" for files at the root"},
	{"path", "path", "Path prefix"},
	{"after", "after", "Modified at or after (YYYY-MM-DD or RFC 3339)"},
	{"before", "before", "Modified at or before (YYYY-MM-DD covers the whole day)"},
	{"min-size", "min_size", "Minimum size, e.g. 10KB"},
	{"max-size", "max_size", "Maximum size, e.g. 2MiB"},
}

// addFilterFlags registers the filter flags on cmd.
func addFilterFlags(cmd *cobra.Command) {
	for _, f := range filterFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().Bool("deleted", false, "Include records marked deleted")
}

// addSortFlags registers the ordering flags on cmd.
func addSortFlags(cmd *cobra.Command) {
	cmd.Flags().String("sort", "name", "Sort key: name, date, size or section")
	cmd.Flags().String("dir", "asc", "Sort direction: asc or desc")
}

// addPagingFlags registers ordering and paging flags on cmd.
func addPagingFlags(cmd *cobra.Command) {
	addSortFlags(cmd)
	cmd.Flags().Int("offset", 0, "Records to skip")
	cmd.Flags().Int("limit", search.DefaultLimit, "Page size")
}

// filterValues collects the filter and paging flags that were set.
// It reports whether any filter flag (not paging) was given.
func filterValues(flags *pflag.FlagSet) (url.Values, bool) {
	values := url.Values{}
	filtered := false

	for _, f := range filterFlags {
		if flags.Changed(f.flag) {
			v, _ := flags.GetString(f.flag)
			values.Set(f.key, v)
			filtered = true
		}
	}
	if flags.Changed("deleted") {
		v, _ := flags.GetBool("deleted")
		values.Set("deleted", strconv.FormatBool(v))
		filtered = true
	}

	for _, key := range []string{"sort", "dir", "offset", "limit"} {
		fl := flags.Lookup(key)
		if fl != nil && fl.Changed {
			values.Set(key, fl.Value.String())
		}
	}
	return values, filtered
}
