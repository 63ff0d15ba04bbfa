package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/dbscope/internal/config"
	"github.com/saltyorg/dbscope/internal/database"
	"github.com/saltyorg/dbscope/internal/logging"
	"github.com/saltyorg/dbscope/internal/web"
	"github.com/saltyorg/dbscope/internal/web/handlers"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootOptions holds CLI flags
type rootOptions struct {
	envFile     string
	verbosity   int
	port        int
	bind        string
	allowSubnet string
}

// application is the context every database-backed command runs in
type application struct {
	cfg *config.Config
	db  *database.DB
}

func (a *application) Close() {
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "dbscope",
		Short:        "dbscope - request-scoped database web service",
		Long:         `dbscope serves HTTP requests with one lazily opened database connection per request and manages the database schema.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         opts.withApp(serve(opts)),
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file to load before reading configuration (ignored if missing)")
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	rootCmd.Flags().IntVarP(&opts.port, "port", "p", 0, "HTTP server port (overrides SERVER_PORT)")
	rootCmd.Flags().StringVarP(&opts.bind, "bind", "b", "", "IP address to bind to (overrides SERVER_BIND)")
	rootCmd.Flags().StringVarP(&opts.allowSubnet, "allow-subnet", "a", "", "CIDR subnet allowed to connect (overrides SERVER_ALLOW_SUBNET)")

	rootCmd.AddCommand(newInitDBCommand(opts), newVersionCommand())

	return rootCmd
}

// withApp wraps fn so it runs inside an initialized application:
// configuration loaded, logging applied and the database opened.
func (o *rootOptions) withApp(fn func(cmd *cobra.Command, app *application) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(o.envFile)
		if err != nil {
			return err
		}

		if o.port != 0 {
			cfg.Server.Port = o.port
		}
		if o.bind != "" {
			cfg.Server.Bind = o.bind
		}
		if o.allowSubnet != "" {
			cfg.Server.AllowSubnet = o.allowSubnet
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logging.Apply(cfg.Log, o.verbosity)

		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		app := &application{cfg: cfg, db: db}
		defer app.Close()

		return fn(cmd, app)
	}
}

func serve(opts *rootOptions) func(*cobra.Command, *application) error {
	return func(cmd *cobra.Command, app *application) error {
		srv := app.cfg.Server

		var allowedNet *net.IPNet
		if srv.AllowSubnet != "" {
			_, parsedNet, err := net.ParseCIDR(srv.AllowSubnet)
			if err != nil {
				return fmt.Errorf("invalid allow-subnet CIDR: %s", srv.AllowSubnet)
			}
			allowedNet = parsedNet
		}

		// Warn if binding to all interfaces without an allow list
		if (srv.Bind == "" || srv.Bind == "0.0.0.0" || srv.Bind == "::") && allowedNet == nil {
			log.Warn().Msg("Server is accessible from all interfaces without subnet restrictions. Consider using --bind or --allow-subnet for security.")
		}

		log.Info().
			Str("version", version).
			Int("port", srv.Port).
			Str("bind", srv.Bind).
			Str("allow_subnet", srv.AllowSubnet).
			Str("driver", app.db.Driver()).
			Str("database", app.db.Name()).
			Int("verbosity", opts.verbosity).
			Msg("Starting dbscope")

		server := web.NewServer(app.db, srv, allowedNet, handlers.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		log.Info().Msg("dbscope stopped")
		return nil
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dbscope %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
