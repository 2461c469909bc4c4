package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/ssvirt-console/pkg/api/handlers"
	"github.com/mhrivnak/ssvirt-console/pkg/auth"
	"github.com/mhrivnak/ssvirt-console/pkg/config"
	"github.com/mhrivnak/ssvirt-console/pkg/database"
	"github.com/mhrivnak/ssvirt-console/pkg/database/repositories"
	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
	"github.com/mhrivnak/ssvirt-console/pkg/routes"
)

// Server is the console gateway's HTTP server.
type Server struct {
	config     *config.Config
	db         *database.DB
	authSvc    *auth.Service
	jwtManager *auth.JWTManager
	registry   *auth.Registry
	resources  handlers.ResourceAPI
	auditRepo  *repositories.AuditRepository
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a new console gateway server. It validates the route
// registry up front: a table referencing an undefined capability is a
// programming error the process must not start with.
func NewServer(cfg *config.Config, db *database.DB, authSvc *auth.Service, jwtManager *auth.JWTManager, registry *auth.Registry, resources handlers.ResourceAPI, auditRepo *repositories.AuditRepository) (*Server, error) {
	if err := routes.ValidateRegistry(routes.Registry()); err != nil {
		return nil, fmt.Errorf("invalid route registry: %w", err)
	}

	server := &Server{
		config:     cfg,
		db:         db,
		authSvc:    authSvc,
		jwtManager: jwtManager,
		registry:   registry,
		resources:  resources,
		auditRepo:  auditRepo,
	}

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = gin.New()

	// Global middleware
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.errorHandlerMiddleware())

	// Health endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readinessHandler)

	sessionHandlers := handlers.NewSessionHandlers(s.authSvc)
	roleHandlers := handlers.NewRoleHandlers(s.authSvc, s.registry)
	navHandlers := handlers.NewNavigationHandlers(s.registry)
	authorizeHandlers := handlers.NewAuthorizeHandlers(s.authSvc, s.registry)
	resourceHandlers := handlers.NewResourceHandlers(s.resources, s.registry)
	auditHandlers := handlers.NewAuditHandlers(s.auditRepo)

	api := s.router.Group("/api")
	{
		// Login requires Basic credentials, not a console token
		api.POST("/sessions", sessionHandlers.CreateSession)

		protected := api.Group("/")
		protected.Use(auth.JWTMiddleware(s.jwtManager, s.registry))
		{
			protected.GET("/session", sessionHandlers.GetCurrentSession)
			protected.DELETE("/sessions/:sessionId", sessionHandlers.DeleteSession)

			protected.GET("/session/roles", roleHandlers.GetRoles)
			protected.PUT("/session/active-role", roleHandlers.SwitchRole)

			protected.GET("/navigation", navHandlers.GetNavigation)
			protected.GET("/routes", authorizeHandlers.ListRoutes)
			protected.GET("/routes/authorize", authorizeHandlers.AuthorizeRoute)

			console := protected.Group("/console")
			{
				console.GET("/organizations",
					auth.RequireCapability(s.registry, rbac.CapManageOrganizations),
					resourceHandlers.ListOrganizations)
				console.GET("/vdcs",
					auth.RequireCapability(s.registry, rbac.CapManageOrganizations),
					resourceHandlers.ListVDCs)
			}

			protected.GET("/audit",
				auth.RequireCapability(s.registry, rbac.CapManageSystem),
				auditHandlers.ListAuditEvents)
		}
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	address := fmt.Sprintf(":%d", s.config.API.Port)
	log.Printf("Starting console gateway on %s", address)

	s.httpServer = &http.Server{
		Addr:         address,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.config.API.TLSCert != "" && s.config.API.TLSKey != "" {
		if _, err := os.Stat(s.config.API.TLSCert); err != nil {
			return fmt.Errorf("TLS certificate file error: %w", err)
		}
		if _, err := os.Stat(s.config.API.TLSKey); err != nil {
			return fmt.Errorf("TLS key file error: %w", err)
		}

		log.Println("Starting HTTPS server")
		if err := s.httpServer.ListenAndServeTLS(s.config.API.TLSCert, s.config.API.TLSKey); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Println("Shutting down console gateway...")
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// readinessHandler reports whether the gateway can serve traffic, which
// requires a working database connection for audit and preferences.
func (s *Server) readinessHandler(c *gin.Context) {
	sqlDB, err := s.db.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
