package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database/postgres"
	"github.com/kozaktomas/facevote/internal/election"
	"github.com/kozaktomas/facevote/internal/faceengine"
	"github.com/kozaktomas/facevote/internal/facematch"
	"github.com/kozaktomas/facevote/internal/ledger"
	"github.com/kozaktomas/facevote/internal/session"
	"github.com/kozaktomas/facevote/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the voting backend server",
	Long: `Start the facevote HTTP server.
The server exposes the bot-facing API, the public capture page endpoints
and a WebSocket channel that pushes verification results to open capture
pages.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	encodingRepo := postgres.NewEncodingRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	voteRepo := postgres.NewVoteRepository(pool)
	voterRepo := postgres.NewVoterRepository(pool)
	adminRepo := postgres.NewAdminRepository(pool)
	electionRepo := postgres.NewElectionRepository(pool)
	candidateRepo := postgres.NewCandidateRepository(pool)
	reportRepo := postgres.NewReportRepository(pool)

	engine := faceengine.NewClient(cfg.FaceEngine.URL)
	verifier := facematch.NewVerifier(engine, encodingRepo, cfg.Verify.Threshold)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Building in-memory index of enrolled voter faces...\n")
	if err := verifier.Reload(ctx); err != nil {
		// The store fallback still answers match queries.
		fmt.Printf("Warning: failed to build face index: %v\n", err)
	} else {
		fmt.Printf("Face index ready with %d enrolled voters\n", verifier.IndexSize())
	}

	orchestrator := session.NewOrchestrator(sessionRepo, cfg.Verify.SessionTTL)
	orchestrator.StartSweeper(ctx, time.Minute)

	voteLedger := ledger.New(voteRepo, electionRepo, candidateRepo, voterRepo, cfg.Web.ReceiptLength)
	electionSvc := election.NewService(electionRepo, candidateRepo, voteRepo)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, web.Services{
		Sessions:  orchestrator,
		Verifier:  verifier,
		Ledger:    voteLedger,
		Elections: electionSvc,
		Voters:    voterRepo,
		Admins:    adminRepo,
		Reports:   reportRepo,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facevote server on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
