package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"blobvault/internal/delivery/server/bootstrap"
	"blobvault/internal/shared/logging"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.RunServer(cmd.Context(), a.cfg)
		},
	}
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the metadata index table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootstrap.Migrate(cmd.Context(), a.cfg, logging.NewComponentLogger("Migrate")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s ready\n", a.cfg.Database.Table)
			return nil
		},
	}
}

func newPutCommand(a *app) *cobra.Command {
	var (
		name     string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "put <path>...",
		Short: "Store files and print their file ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name applies to a single path, got %d", len(args))
			}
			container, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}

			results := make([]putResult, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(parallel, 1))
			for i, path := range args {
				g.Go(func() error {
					payload, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					stored := name
					if stored == "" {
						stored = filepath.Base(path)
					}
					ingested, err := container.Coordinator.Ingest(ctx, stored, int64(len(payload)), payload)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					results[i] = putResult{Handle: ingested.Handle.OID, FileID: ingested.FileID}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			if len(results) == 1 {
				return writeJSON(cmd.OutOrStdout(), results[0])
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "stored file name (default: base name of path)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "files ingested concurrently")
	return cmd
}

type putResult struct {
	Handle uint32 `json:"handle"`
	FileID string `json:"fileId"`
}

func newGetCommand(a *app) *cobra.Command {
	var (
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "get <fileId>",
		Short: "Write a stored file to stdout or a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			file, err := container.Coordinator.Retrieve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				out := cmd.OutOrStdout()
				if isTerminal(out) && !force {
					return fmt.Errorf("refusing to write %d bytes to a terminal; use -o or --force", len(file.Data))
				}
				_, err = out.Write(file.Data)
				return err
			}
			if info, statErr := os.Stat(output); statErr == nil && info.IsDir() {
				output = filepath.Join(output, filepath.Base(file.FileName))
			}
			if err := os.WriteFile(output, file.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), success(fmt.Sprintf("wrote %d bytes to %s", len(file.Data), output)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or directory (default: stdout)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "write to stdout even when it is a terminal")
	return cmd
}

func newRmCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <fileId>",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && interactive(cmd) {
				prompt := promptui.Prompt{
					Label:     fmt.Sprintf("Delete %s", args[0]),
					IsConfirm: true,
				}
				if _, err := prompt.Run(); err != nil {
					if errors.Is(err, promptui.ErrAbort) {
						fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
						return nil
					}
					return err
				}
			}
			container, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.Coordinator.Purge(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Large Object deleted successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

type statOutput struct {
	FileID    string    `yaml:"fileId"`
	FileName  string    `yaml:"fileName"`
	FileSize  int64     `yaml:"fileSize"`
	Handle    uint32    `yaml:"handle"`
	CreatedAt time.Time `yaml:"createdAt"`
}

func newStatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <fileId>",
		Short: "Show the index entry of a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := container.Coordinator.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), statOutput{
				FileID:    entry.FileID,
				FileName:  entry.FileName,
				FileSize:  entry.FileSize,
				Handle:    entry.BlobOID,
				CreatedAt: entry.CreatedAt,
			})
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Print the effective configuration (passwords omitted)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipValidation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeYAML(cmd.OutOrStdout(), a.cfg.Redacted())
		},
	}
}

func newLogsCommand(a *app) *cobra.Command {
	var maxEntries int
	cmd := &cobra.Command{
		Use:         "logs <logId>",
		Short:       "Print the service and latency log lines of one request",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipValidation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle := logging.FetchLogBundle(args[0], logging.LogFetchOptions{MaxEntries: maxEntries})
			return writeJSON(cmd.OutOrStdout(), bundle)
		},
	}
	cmd.Flags().IntVar(&maxEntries, "max", 200, "maximum lines per log file")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
