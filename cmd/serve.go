package cmd

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nvtrung/certprobe-cli/internal/api"
	"github.com/nvtrung/certprobe-cli/internal/probe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the certificate inspection engine as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")
		probeCfg := resolveProbeConfig(cmd.Flags())

		// Initialize structured logger
		apiLogger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() {
			if err := apiLogger.Sync(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
			}
		}()

		probes := &probeAPIService{
			prober: probeCfg.NewProber(),
			runner: probeCfg.NewRunner(),
		}
		jobManager := api.NewJobManager()

		server := api.NewServer(api.Config{
			Probes:      probes,
			Health:      &healthAPIService{resultsDir: resultsDir},
			Jobs:        &jobAPIService{manager: jobManager, probes: probes},
			AuthToken:   authToken,
			Logger:      apiLogger,
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
		})

		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		// Start server in a goroutine
		go func() {
			fmt.Printf("%s API server listening on %s (concurrency: %d)\n", colorInfo("→"), addr, probeCfg.Concurrency)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		// Channel to listen for interrupt signals
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Block until we receive a signal or an error
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "API rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "API rate limit burst size")
	registerProbeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

// probeAPIService runs synchronous batch probes for the API server.
type probeAPIService struct {
	prober *probe.Prober
	runner *probe.Runner
}

func (s *probeAPIService) ProbeHosts(ctx context.Context, hosts []string) ([]probe.Result, error) {
	return s.runner.ProbeAll(ctx, s.prober, buildRequests(hosts), nil), nil
}

type healthAPIService struct {
	resultsDir string
}

func (s *healthAPIService) Check(ctx context.Context) error {
	if s.resultsDir == "" {
		return fmt.Errorf("results directory not configured")
	}
	return nil
}

// Ready verifies the system root CA pool loads, since chain verification
// depends on it.
func (s *healthAPIService) Ready(ctx context.Context) error {
	if _, err := x509.SystemCertPool(); err != nil {
		return fmt.Errorf("system root CA pool unavailable: %w", err)
	}
	return nil
}

// jobAPIService executes batch probes asynchronously via the job manager.
type jobAPIService struct {
	manager *api.JobManager
	probes  api.ProbeService
}

func (s *jobAPIService) StartJob(ctx context.Context, req api.JobRequest) (*api.Job, error) {
	jobType := strings.ToLower(strings.TrimSpace(req.Type))
	if jobType == "" {
		jobType = "probe"
	}
	if jobType != "probe" {
		return nil, fmt.Errorf("unsupported job type %s", req.Type)
	}
	if len(req.Hosts) == 0 {
		return nil, fmt.Errorf("hosts required")
	}
	job := s.manager.CreateJob(jobType, req.Hosts)
	go s.execute(job.ID, req.Hosts)
	return job, nil
}

func (s *jobAPIService) execute(jobID string, hosts []string) {
	now := time.Now()
	s.manager.UpdateJob(jobID, func(j *api.Job) {
		j.Status = "running"
		j.StartedAt = &now
	})
	// Set reasonable timeout for job execution (90 seconds)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	results, err := s.probes.ProbeHosts(ctx, hosts)
	finished := time.Now()
	if err != nil {
		s.manager.UpdateJob(jobID, func(j *api.Job) {
			j.Status = "error"
			j.Error = err.Error()
			j.FinishedAt = &finished
		})
		return
	}
	s.manager.UpdateJob(jobID, func(j *api.Job) {
		j.Status = "done"
		j.Results = results
		j.FinishedAt = &finished
	})
}

func (s *jobAPIService) GetJob(ctx context.Context, id string) (*api.Job, error) {
	job := s.manager.GetJob(id)
	if job == nil {
		return nil, fmt.Errorf("job not found")
	}
	return job, nil
}

func (s *jobAPIService) ListJobs(ctx context.Context, limit int) ([]api.Job, error) {
	return s.manager.ListJobs(limit), nil
}

func (s *jobAPIService) Subscribe() (chan api.Job, func()) {
	return s.manager.Subscribe()
}
