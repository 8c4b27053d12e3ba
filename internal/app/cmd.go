package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version はビルド時に-ldflagsで埋め込む。
var Version = "dev"

// NewRootCommand はサブコマンドを登録したルートコマンドを返す。
// ログはlogWに出力する。サブコマンドを省略した場合はserveとして起動する。
func NewRootCommand(logW io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pushmyself",
		Short: "pushmyself - local-first daily tracker",
		Long: `pushmyself keeps daily todos, thoughts and reports in a local mirror
and reconciles them with the network store whenever it is reachable.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(logW)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runServe(cfg)
		},
	}

	rootCmd.AddCommand(
		newServeCmd(logW),
		newMigrateCmd(logW),
		newSyncCmd(logW),
		newHealthcheckCmd(),
	)
	return rootCmd
}

func newServeCmd(logW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the notification scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(logW)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runServe(cfg)
		},
	}
}

func newMigrateCmd(logW io.Writer) *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending network store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if down < 0 {
				return fmt.Errorf("--down must not be negative: %d", down)
			}
			cfg, err := Init(logW)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(cmd.Context(), cfg, down, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")
	return cmd
}

func newSyncCmd(logW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push every locally stored day to the network store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(logW)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runSync(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
func newHealthcheckCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check the local /health endpoint (for container health checks)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				baseURL = healthcheckBaseURL()
			}
			return runHealthcheck(baseURL)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "base URL of the server (default http://localhost:$SERVER_PORT)")
	return cmd
}

// Run はargsでルートコマンドを実行する。argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := NewRootCommand(w)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// Execute はos.Argsでアプリケーションを実行し、失敗時は終了コード1で終了する。
func Execute() {
	if err := Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
