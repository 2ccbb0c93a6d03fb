package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newTagCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage file tags",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <path> <tag>...",
		Short: "Attach tags to an indexed file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := opts.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			for _, tag := range args[1:] {
				if err := db.AddTagToFile(cmd.Context(), args[0], tag); err != nil {
					return err
				}
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Tagged %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <path> <tag>...",
		Short: "Detach tags from a file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := opts.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			for _, tag := range args[1:] {
				if err := db.RemoveTagFromFile(cmd.Context(), args[0], tag); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d tag(s) from %s\n", len(args)-1, args[0])
			return nil
		},
	})

	var byTag string
	ls := &cobra.Command{
		Use:   "ls [path]",
		Short: "List all tags, the tags of a file, or the files carrying --tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if byTag != "" && len(args) > 0 {
				return errors.New("give either a path or --tag, not both")
			}

			_, db, err := opts.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			switch {
			case byTag != "":
				files, err := db.GetFilesByTag(cmd.Context(), byTag)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(out, f.Path)
				}
			case len(args) == 1:
				tags, err := db.GetFileTags(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintln(out, t)
				}
			default:
				tags, err := db.GetAllTags(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintf(out, "%-24s %d\n", t.Name, t.ItemCount)
				}
			}
			return nil
		},
	}
	ls.Flags().StringVar(&byTag, "tag", "", "List the files carrying this tag")
	cmd.AddCommand(ls)

	return cmd
}
