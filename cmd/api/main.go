package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/legal"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Tax Audit & Credit Recovery API
// @version         1.0
// @description     Simulates Brazilian tax regimes over fiscal history and identifies credit recovery opportunities.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	if err := database.SeedDefaultRules(db); err != nil {
		log.Fatalf("Failed to seed default tax rules: %v", err)
	}
	if err := database.SeedAdminUser(db); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	fiscalRepo := repository.NewFiscalRecordRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)
	decisionRepo := repository.NewDecisionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo, middleware.GetJWTSecret())
	taxService := service.NewTaxService(taxRuleRepo, auditRepo)
	oracleTimeout := oracleTimeoutFromEnv()
	analysisService := service.NewAnalysisService(
		companyRepo, fiscalRepo, taxRuleRepo, decisionRepo, auditRepo,
		txManager, buildOracle(oracleTimeout), wsHub,
		service.AnalysisConfig{
			Materiality:   materialityFromEnv(),
			OracleTimeout: oracleTimeout,
		},
	)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	taxHandler := handler.NewTaxHandler(taxService)
	analysisHandler := handler.NewAnalysisHandler(analysisService)
	auditHandler := handler.NewAuditHandler(auditRepo)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	taxHandler.RegisterRoutes(router.Group(""))
	analysisHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildOracle wires the external legal citation service when configured.
// Without LEGAL_ORACLE_URL the engine runs in deterministic-only mode.
func buildOracle(timeout time.Duration) legal.Oracle {
	baseURL := os.Getenv("LEGAL_ORACLE_URL")
	if baseURL == "" {
		log.Println("LEGAL_ORACLE_URL not set, running with deterministic citations only")
		return legal.NoopOracle{}
	}
	return legal.NewHTTPOracle(baseURL, timeout)
}

// materialityFromEnv reads the minimum opportunity amount worth reporting.
func materialityFromEnv() decimal.Decimal {
	raw := os.Getenv("ANALYSIS_MATERIALITY")
	if raw == "" {
		return decimal.RequireFromString("100.00")
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		log.Printf("Invalid ANALYSIS_MATERIALITY %q, using default 100.00", raw)
		return decimal.RequireFromString("100.00")
	}
	return value
}

func oracleTimeoutFromEnv() time.Duration {
	raw := os.Getenv("LEGAL_ORACLE_TIMEOUT")
	if raw == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid LEGAL_ORACLE_TIMEOUT %q, using default 5s", raw)
		return 5 * time.Second
	}
	return d
}
