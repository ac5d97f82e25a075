package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/rs/cors"
)

var (
	db      *sql.DB
	dbMutex sync.Mutex
)

// initDB initializes the database connection
func initDB() error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if db != nil {
		return nil // Already initialized
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	var err error
	db, err = sql.Open("postgres", databaseURL)
	if err != nil {
		return err
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		return err
	}

	return nil
}

type runRow struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	ProductsProcessed int        `json:"products_processed"`
	VariantsProcessed int        `json:"variants_processed"`
	ProductsSkipped   int        `json:"products_skipped"`
	ErrorsCount       int        `json:"errors_count"`
	DurationSeconds   int        `json:"duration_seconds"`
	LastSyncTime      *time.Time `json:"last_sync_time"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Handler is the read-only dashboard entry point for serverless deployment.
// Sync passes run in the worker; this surface only reports on them.
func Handler(w http.ResponseWriter, r *http.Request) {
	// Initialize database connection
	if err := initDB(); err != nil {
		http.Error(w, fmt.Sprintf("Database initialization failed: %v", err), http.StatusInternalServerError)
		return
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health check endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "PIM sync dashboard API is running",
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/runs", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
			if limit <= 0 || limit > 100 {
				limit = 20
			}

			rows, err := db.Query(`
				SELECT id, status, products_processed, variants_processed,
				       products_skipped, errors_count, duration_seconds,
				       last_sync_time, created_at
				FROM sync_runs
				ORDER BY created_at DESC
				LIMIT $1`, limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
				return
			}
			defer rows.Close()

			runs := []runRow{}
			for rows.Next() {
				var run runRow
				if err := rows.Scan(&run.ID, &run.Status, &run.ProductsProcessed,
					&run.VariantsProcessed, &run.ProductsSkipped, &run.ErrorsCount,
					&run.DurationSeconds, &run.LastSyncTime, &run.CreatedAt); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read runs"})
					return
				}
				runs = append(runs, run)
			}
			c.JSON(http.StatusOK, gin.H{"data": runs})
		})

		v1.GET("/runs/:id/errors", func(c *gin.Context) {
			rows, err := db.Query(`
				SELECT source_product_id, error_type, error_message, created_at
				FROM sync_entity_errors
				WHERE sync_run_id = $1
				ORDER BY created_at`, c.Param("id"))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch errors"})
				return
			}
			defer rows.Close()

			errors := []gin.H{}
			for rows.Next() {
				var productID, errorType, message string
				var createdAt time.Time
				if err := rows.Scan(&productID, &errorType, &message, &createdAt); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read errors"})
					return
				}
				errors = append(errors, gin.H{
					"source_product_id": productID,
					"error_type":        errorType,
					"error_message":     message,
					"created_at":        createdAt,
				})
			}
			c.JSON(http.StatusOK, gin.H{"data": errors})
		})

		v1.GET("/stats", func(c *gin.Context) {
			var activeMappings int
			if err := db.QueryRow(
				`SELECT COUNT(*) FROM product_mappings WHERE is_active = true`,
			).Scan(&activeMappings); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
				return
			}

			var lastCompleted *time.Time
			_ = db.QueryRow(
				`SELECT last_sync_time FROM sync_runs WHERE status = 'completed' ORDER BY created_at DESC LIMIT 1`,
			).Scan(&lastCompleted)

			c.JSON(http.StatusOK, gin.H{
				"data": gin.H{
					"active_mappings":    activeMappings,
					"last_completed_run": lastCompleted,
				},
			})
		})
	}

	// CORS for the dashboard frontend
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Authorization"},
	})

	// Serve the request
	corsHandler.Handler(router).ServeHTTP(w, r)
}
