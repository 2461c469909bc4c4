package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhrivnak/ssvirt-console/pkg/api"
	"github.com/mhrivnak/ssvirt-console/pkg/api/handlers"
	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/client"
	"github.com/mhrivnak/ssvirt-console/pkg/config"
	"github.com/mhrivnak/ssvirt-console/pkg/database"
	"github.com/mhrivnak/ssvirt-console/pkg/database/models"
	"github.com/mhrivnak/ssvirt-console/pkg/database/repositories"
	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection with retry; the gateway tolerates the
	// database starting after it
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	db, err := database.NewConnectionWithRetry(ctx, cfg, database.RetryConfigFromConfig(cfg))
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run database migrations
	if err := db.AutoMigrate(); err != nil {
		db.Close()
		log.Fatalf("Failed to migrate database: %v", err)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewConsoleUserRepository(db.DB)
	prefRepo := repositories.NewPreferenceRepository(db.DB)
	auditRepo := repositories.NewAuditRepository(db.DB)

	// Upstream CloudAPI client; unused for authentication in dev mode
	var cloudAPI *client.Client
	if !cfg.Dev.Enabled {
		cloudAPI, err = client.New(cfg.CloudAPI.BaseURL, cfg.CloudAPI.Timeout, cfg.CloudAPI.Insecure)
		if err != nil {
			log.Fatalf("Failed to create CloudAPI client: %v", err)
		}
	} else {
		log.Println("Dev mode enabled: authenticating against local console users")
		if err := seedDevUsers(userRepo); err != nil {
			log.Fatalf("Failed to seed dev users: %v", err)
		}
	}

	// Initialize authentication services
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	registry := auth.NewRegistry()

	var upstream auth.CloudAPI
	var resources handlers.ResourceAPI
	if cloudAPI != nil {
		upstream = cloudAPI
		resources = cloudAPI
	}
	authSvc := auth.NewService(cfg, upstream, userRepo, prefRepo, auditRepo, jwtManager, registry)

	// Initialize API server
	server, err := api.NewServer(cfg, db, authSvc, jwtManager, registry, resources, auditRepo)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	// Give the server 30 seconds to finish current requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// seedDevUsers creates one fixture account per role class, plus a multi-role
// account for exercising the role switcher. Idempotent.
func seedDevUsers(repo *repositories.ConsoleUserRepository) error {
	fixtures := []struct {
		username string
		password string
		fullName string
		roles    []string
	}{
		{"sysadmin", "sysadmin", "System Administrator", []string{session.RoleSystemAdmin}},
		{"orgadmin", "orgadmin", "Organization Administrator", []string{session.RoleOrgAdmin}},
		{"vappuser", "vappuser", "vApp User", []string{session.RoleVAppUser}},
		{"operator", "operator", "Multi-Role Operator", []string{session.RoleOrgAdmin, session.RoleVAppUser}},
	}

	for _, f := range fixtures {
		user := &models.ConsoleUser{
			Username: f.username,
			FullName: f.fullName,
			OrgID:    "urn:vcloud:org:00000000-0000-0000-0000-000000000001",
			OrgName:  "Provider",
			Enabled:  true,
		}
		user.SetRoleNames(f.roles)
		if err := user.SetPassword(f.password); err != nil {
			return err
		}
		if err := repo.EnsureUser(user); err != nil {
			return err
		}
	}
	return nil
}
