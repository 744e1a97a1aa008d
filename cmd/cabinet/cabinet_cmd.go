// File: cmd/cabinet/cabinet_cmd.go
package main

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cabinet/internal/flags"
	"cabinet/internal/provider/registry"
	"cabinet/internal/service"
	"cabinet/pkg/formatter"
	"cabinet/pkg/storage"
)

type cabinetFlags struct {
	recursive    bool
	onExisting   string
	concurrency  int
	force        bool
	deleteSource bool
}

func newCabinetCmds() []*cobra.Command {
	var lsFlags, putFlags, mvFlags, rmFlags, migrateFlags cabinetFlags

	lsCmd := &cobra.Command{
		Use:   "ls [cabinet] [prefix]",
		Short: "List items in a cabinet",
		Long: `Lists the direct children of a prefix: files plus one entry per sub-directory.
Use --recursive to list every file below the prefix instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			prefix := optionalArg(args, 1)
			items, err := app.CabinetService.ListItems(cmd.Context(), args[0], prefix, lsFlags.recursive)
			if err != nil {
				return fmt.Errorf("error listing cabinet '%s': %w", args[0], err)
			}

			if app.Output == formatter.OutputYAML {
				out, err := app.CabinetFormatter.ItemsYAML(items)
				return printYAML(cmd.OutOrStdout(), out, err)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No items found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.CabinetFormatter.FormatItemList(items))
			return nil
		},
	}
	lsCmd.Flags().BoolVarP(&lsFlags.recursive, flags.Recursive, flags.RecursiveShort, false, "List every file below the prefix")

	statCmd := &cobra.Command{
		Use:   "stat [cabinet] [key]",
		Short: "Describe a single item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			item, err := app.CabinetService.DescribeItem(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("error describing '%s' in cabinet '%s': %w", args[1], args[0], err)
			}

			if app.Output == formatter.OutputYAML {
				out, err := app.CabinetFormatter.ItemYAML(item)
				return printYAML(cmd.OutOrStdout(), out, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.CabinetFormatter.FormatItemDetails(args[0], item))
			return nil
		},
	}

	existsCmd := &cobra.Command{
		Use:   "exists [cabinet] [key]",
		Short: "Report whether a file exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			exists, err := app.CabinetService.Exists(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("error checking '%s' in cabinet '%s': %w", args[1], args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), exists)
			return nil
		},
	}

	putCmd := &cobra.Command{
		Use:   "put [cabinet] [destination] [source...]",
		Short: "Upload local files into a cabinet",
		Long: `Uploads local files. With a single source the destination is the item key.
With several sources the destination is a key prefix and each file is stored
under its base name. --on-existing picks what happens when an item already
exists: overwrite, skip or throw.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			policy, err := storage.ParseHandleExisting(putFlags.onExisting)
			if err != nil {
				return err
			}

			cabinet, destination, sources := args[0], args[1], args[2:]
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			ui := startProgress(app.Progress, cancel)
			var results []storage.SaveResult
			if len(sources) == 1 {
				var result storage.SaveResult
				result, err = app.CabinetService.Upload(ctx, cabinet, destination, sources[0], policy, ui.Sink())
				results = []storage.SaveResult{result}
			} else {
				results, err = app.CabinetService.SaveBatch(ctx, cabinet, batchRequests(destination, sources), policy, putFlags.concurrency, ui.Sink())
			}
			ui.Stop()

			if err != nil && len(results) == 0 {
				return err
			}
			if perr := printSaveResults(cmd.OutOrStdout(), app, results); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
			return batchError(results)
		},
	}
	putCmd.Flags().StringVar(&putFlags.onExisting, flags.OnExisting, storage.Overwrite.String(), "What to do when an item exists (overwrite, skip, throw)")
	putCmd.Flags().IntVarP(&putFlags.concurrency, flags.Concurrency, flags.ConcurrencyShort, service.DefaultConcurrency, "Parallel uploads for several sources")

	getCmd := &cobra.Command{
		Use:   "get [cabinet] [key] [local-path]",
		Short: "Download an item to a local file",
		Long:  `Downloads an item. The local path defaults to the key's base name in the current directory.`,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			dest := optionalArg(args, 2)
			if dest == "" {
				dest = path.Base(args[1])
			}

			n, err := app.CabinetService.Download(cmd.Context(), args[0], args[1], dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded '%s' to %s (%s).\n", args[1], dest, storage.FormatBytes(n))
			return nil
		},
	}

	mvCmd := &cobra.Command{
		Use:   "mv [cabinet] [source-key] [destination-key]",
		Short: "Move an item within a cabinet",
		Long:  `Moves an item. The destination is always overwritten; skip and throw are rejected.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			policy, err := storage.ParseHandleExisting(mvFlags.onExisting)
			if err != nil {
				return err
			}

			result, err := app.CabinetService.Move(cmd.Context(), args[0], args[1], args[2], policy)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("move failed: %s", result.ErrorMessage())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved '%s' to '%s'.\n", args[1], args[2])
			return nil
		},
	}
	mvCmd.Flags().StringVar(&mvFlags.onExisting, flags.OnExisting, storage.Overwrite.String(), "What to do when the destination exists (only overwrite is supported)")

	rmCmd := &cobra.Command{
		Use:   "rm [cabinet] [key]",
		Short: "Delete an item",
		Long:  `Deletes an item. Deleting a missing item succeeds. You are asked to type the key unless --force is given.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			cabinet, key := args[0], args[1]
			if !rmFlags.force {
				confirmed, err := app.Prompter.Confirm(
					fmt.Sprintf("This permanently deletes '%s' from cabinet '%s'.", key, cabinet), key)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled.")
					return nil
				}
			}

			result, err := app.CabinetService.Delete(cmd.Context(), cabinet, key)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("delete failed: %s", result.ErrorMessage())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted '%s' from cabinet '%s'.\n", key, cabinet)
			return nil
		},
	}
	rmCmd.Flags().BoolVarP(&rmFlags.force, flags.Force, flags.ForceShort, false, "Delete without asking for confirmation")

	migrateCmd := &cobra.Command{
		Use:   "migrate [from-cabinet] [to-cabinet] [prefix]",
		Short: "Copy every file below a prefix into another cabinet",
		Long: `Copies each file below the prefix to the same key in the destination cabinet.
With --delete-source the source item is removed only after its copy succeeded.
Items left alone by --on-existing=skip keep their source.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			policy, err := storage.ParseHandleExisting(migrateFlags.onExisting)
			if err != nil {
				return err
			}

			results, err := app.CabinetService.Migrate(cmd.Context(), args[0], args[1], optionalArg(args, 2), policy, migrateFlags.deleteSource, migrateFlags.concurrency)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate.")
				return nil
			}

			if app.Output == formatter.OutputYAML {
				out, err := app.CabinetFormatter.MoveResultsYAML(results)
				if err := printYAML(cmd.OutOrStdout(), out, err); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), app.CabinetFormatter.FormatMoveResults(results))
			}
			return batchError(results)
		},
	}
	migrateCmd.Flags().StringVar(&migrateFlags.onExisting, flags.OnExisting, storage.Skip.String(), "What to do when a destination item exists (overwrite, skip, throw)")
	migrateCmd.Flags().BoolVar(&migrateFlags.deleteSource, flags.DeleteSource, false, "Remove each source item after it was copied")
	migrateCmd.Flags().IntVarP(&migrateFlags.concurrency, flags.Concurrency, flags.ConcurrencyShort, service.DefaultConcurrency, "Parallel transfers")

	usageCmd := &cobra.Command{
		Use:   "usage [cabinet] [prefix]",
		Short: "Report the bytes stored in a cabinet",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			prefix := optionalArg(args, 1)
			total, err := app.CabinetService.Usage(cmd.Context(), args[0], prefix)
			if err != nil {
				return fmt.Errorf("error computing usage of cabinet '%s': %w", args[0], err)
			}

			if app.Output == formatter.OutputYAML {
				out, err := app.CabinetFormatter.UsageYAML(args[0], prefix, total)
				return printYAML(cmd.OutOrStdout(), out, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.CabinetFormatter.FormatUsage(args[0], prefix, total))
			return nil
		},
	}

	cabinetsCmd := &cobra.Command{
		Use:   "cabinets",
		Short: "List configured cabinets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cabinetApp(cmd)
			if err != nil {
				return err
			}

			statuses := app.CabinetFactory.Cabinets()
			if len(statuses) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No cabinets configured. Use 'cabinet config set cabinets.<name>.type <type>'. Supported types: %s\n",
					strings.Join(registry.GetSupportedProviders(), ", "))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.CabinetFormatter.FormatCabinetList(statuses))
			return nil
		},
	}

	return []*cobra.Command{lsCmd, statCmd, existsCmd, putCmd, getCmd, mvCmd, rmCmd, migrateCmd, usageCmd, cabinetsCmd}
}

func cabinetApp(cmd *cobra.Command) (*appContainer, error) {
	app, err := appFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := app.requireConfig(); err != nil {
		return nil, err
	}
	return app, nil
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// Places each source under prefix by its base name
func batchRequests(prefix string, sources []string) []service.SaveRequest {
	requests := make([]service.SaveRequest, 0, len(sources))
	for _, src := range sources {
		requests = append(requests, service.SaveRequest{
			Key:        path.Join(prefix, filepath.Base(src)),
			SourcePath: src,
		})
	}
	return requests
}

func printSaveResults(w io.Writer, app *appContainer, results []storage.SaveResult) error {
	if app.Output == formatter.OutputYAML {
		out, err := app.CabinetFormatter.SaveResultsYAML(results)
		return printYAML(w, out, err)
	}
	fmt.Fprintln(w, app.CabinetFormatter.FormatSaveResults(results))
	return nil
}

func printYAML(w io.Writer, out string, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprint(w, out)
	return nil
}

func batchError[R interface{ Succeeded() bool }](results []R) error {
	if storage.AllSucceeded(results) {
		return nil
	}
	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	return fmt.Errorf("%d of %d items failed", failed, len(results))
}
