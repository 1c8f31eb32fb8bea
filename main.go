package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"petprint/api"
	"petprint/logger"
	"petprint/pdf"
	"petprint/printer"
)

const (
	// DefaultMaxFileSize is the default maximum size of a selectable PDF (100MB)
	DefaultMaxFileSize = 100 * 1024 * 1024

	// DefaultHost keeps the server on the local machine unless told otherwise
	DefaultHost = "127.0.0.1"

	// DefaultPort is the default server port
	DefaultPort = "8080"

	// ServerReadTimeout is the HTTP server read timeout
	ServerReadTimeout = 15 * time.Second

	// ServerWriteTimeout is the HTTP server write timeout; builds of large
	// selections run inside the request
	ServerWriteTimeout = 5 * time.Minute

	// ServerIdleTimeout is the HTTP server idle timeout
	ServerIdleTimeout = 60 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful shutdown
	GracefulShutdownTimeout = 10 * time.Second
)

var log = logger.WithNamespace("main")

func main() {
	cmd := &cli.Command{
		Name:  "petprint",
		Usage: "Print or combine selected pages of the PDFs in a folder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "panic, fatal, error, warn, info, debug or trace",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "temp-dir",
				Usage:   "directory for merged documents (default: system temp dir)",
				Sources: cli.EnvVars("TEMP_DIR"),
			},
			&cli.StringFlag{
				Name:    "paper",
				Usage:   "paper size of duplex padding pages (A3, A4, A5, Letter, Legal)",
				Value:   pdf.DefaultPaperSize,
				Sources: cli.EnvVars("PAPER_SIZE"),
			},
			&cli.StringFlag{
				Name:    "printer",
				Usage:   "print queue (default: system default, else first printer)",
				Sources: cli.EnvVars("PRINTER"),
			},
			&cli.DurationFlag{
				Name:    "print-timeout",
				Usage:   "timeout for printer and viewer commands",
				Value:   printer.DefaultCLITimeout,
				Sources: cli.EnvVars("PRINT_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "log instead of printing or opening documents",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, logger.Setup(cmd.String("log-level"), os.Stderr)
		},
		Commands: []*cli.Command{
			serveCommand(),
			listCommand(),
			printCommand(),
			saveCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web interface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Usage:   "listen address; anything but loopback requires --root-dir",
				Value:   DefaultHost,
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "port",
				Value:   DefaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "root-dir",
				Usage:   "only allow listing directories below this one",
				Sources: cli.EnvVars("ROOT_DIR"),
			},
			&cli.Int64Flag{
				Name:    "max-file-size",
				Usage:   "largest selectable PDF in bytes",
				Value:   DefaultMaxFileSize,
				Sources: cli.EnvVars("MAX_FILE_SIZE"),
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	config := &api.Config{
		Host:        cmd.String("host"),
		Port:        cmd.String("port"),
		MaxFileSize: cmd.Int64("max-file-size"),
		TempDir:     cmd.String("temp-dir"),
		RootDir:     cmd.String("root-dir"),
		Paper:       cmd.String("paper"),
	}

	if err := checkExposure(config); err != nil {
		return err
	}

	engine, err := pdf.NewPdfcpuEngine(config.Paper)
	if err != nil {
		return err
	}
	prn, viewer := newPrinter(cmd)

	if !logger.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api.SetupRoutes(r, &api.Service{
		Config:  config,
		Engine:  engine,
		Printer: prn,
		Viewer:  viewer,
	})

	// Create HTTP server with timeout settings
	srv := &http.Server{
		Addr:         net.JoinHostPort(config.Host, config.Port),
		Handler:      r,
		ReadTimeout:  ServerReadTimeout,
		WriteTimeout: ServerWriteTimeout,
		IdleTimeout:  ServerIdleTimeout,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", srv.Addr)
		log.Infof("Max file size: %d bytes", config.MaxFileSize)
		if config.RootDir != "" {
			log.Infof("Root directory: %s", config.RootDir)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}

// checkExposure refuses to serve the whole filesystem beyond the local
// machine: a non-loopback listen address needs a root directory.
func checkExposure(config *api.Config) error {
	if config.RootDir != "" || isLoopback(config.Host) {
		return nil
	}
	host := config.Host
	if host == "" {
		host = "all interfaces"
	}
	return fmt.Errorf("--root-dir is required when listening on %s", host)
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// requestLogger logs one line per request through logrus.
func requestLogger() gin.HandlerFunc {
	httpLog := logger.WithNamespace("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		httpLog.WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start)).
			Debugf("%s %s", c.Request.Method, c.Request.URL.Path)
	}
}

func newPrinter(cmd *cli.Command) (printer.Printer, printer.Viewer) {
	return printer.New(printer.Config{
		Queue:   cmd.String("printer"),
		DryRun:  cmd.Bool("dry-run"),
		Timeout: cmd.Duration("print-timeout"),
	})
}
