package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmills/repovec/internal/config"
	"github.com/dmills/repovec/internal/logging"
	"github.com/dmills/repovec/internal/mcp"
	"github.com/dmills/repovec/internal/pipeline"
	"github.com/dmills/repovec/internal/store"
	"github.com/dmills/repovec/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig string

	flagAccessToken  string
	flagIncludeDirs  []string
	flagIncludeFiles []string
	flagExcludeDirs  []string
	flagExcludeFiles []string
)

func main() {
	root := &cobra.Command{
		Use:           "repovec",
		Short:         "Repository indexing and semantic retrieval",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")

	root.AddCommand(serveCmd(), indexCmd(), queryCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. Logs go to stderr so
// stdout stays free for MCP protocol traffic and command output.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			srv, err := mcp.NewServer(cfg, log)
			if err != nil {
				return err
			}
			log.Info("MCP server ready, listening on stdio",
				zap.String("version", version),
				zap.String("build_mode", store.BuildMode),
				zap.String("sqlite_driver", store.DriverName))
			return srv.Serve(cmd.Context())
		},
	}
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <repository>",
		Short: "Index a local path or remote git URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			svc, err := pipeline.New(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			result, err := svc.Prepare(cmd.Context(), pipeline.PrepareRequest{
				RepoPathOrURL: args[0],
				AccessToken:   flagAccessToken,
				Filters: types.FilterRules{
					IncludeDirs:  flagIncludeDirs,
					IncludeFiles: flagIncludeFiles,
					ExcludeDirs:  flagExcludeDirs,
					ExcludeFiles: flagExcludeFiles,
				},
			})
			if err != nil {
				return err
			}

			fmt.Printf("Indexed %s: %d documents (%d embedded, %d unchanged, %d skipped) in %s\n",
				result.Identity, result.Documents,
				result.Stats.Embedded, result.Stats.UnchangedFiles, result.Stats.Skipped,
				result.Stats.Duration.Round(1e6))
			return nil
		},
	}
	cmd.Flags().StringVar(&flagAccessToken, "token", "", "access token for private remote repositories")
	cmd.Flags().StringSliceVar(&flagIncludeDirs, "include-dir", nil, "restrict indexing to these directories")
	cmd.Flags().StringSliceVar(&flagIncludeFiles, "include-file", nil, "restrict indexing to these file globs")
	cmd.Flags().StringSliceVar(&flagExcludeDirs, "exclude-dir", nil, "additional directories to exclude")
	cmd.Flags().StringSliceVar(&flagExcludeFiles, "exclude-file", nil, "additional file globs to exclude")
	return cmd
}

func queryCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "query <repository> <text>",
		Short: "Index a repository if needed, then run a retrieval query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if topK > 0 {
				cfg.Retrieval.TopK = topK
			}

			svc, err := pipeline.New(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if _, err := svc.Prepare(cmd.Context(), pipeline.PrepareRequest{
				RepoPathOrURL: args[0],
				AccessToken:   flagAccessToken,
			}); err != nil {
				return err
			}

			result, err := svc.Query(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			if result.Empty() {
				fmt.Println("No matches.")
				return nil
			}
			for _, m := range result.Matches {
				fmt.Printf("%2d. %.4f  %s", m.Rank, m.Score, m.Document.Meta.FilePath)
				if m.Document.Meta.IsChunked {
					fmt.Printf(" (chunk %d)", m.Document.Meta.ChunkIndex)
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagAccessToken, "token", "", "access token for private remote repositories")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of results to return")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("repovec %s\n", version)
			fmt.Printf("Build Time: %s\n", buildTime)
			fmt.Printf("Build Mode: %s\n", store.BuildMode)
			fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		},
	}
}
