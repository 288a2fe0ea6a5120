package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gateattend/internal/attendance"
	"gateattend/internal/auth"
	"gateattend/internal/config"
	"gateattend/internal/httpmiddleware"
	"gateattend/internal/metrics"
	"gateattend/internal/qrid"
	"gateattend/internal/queue"
	"gateattend/internal/schedule"
	"gateattend/internal/session"
	"gateattend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "gateattend:scans")
	}

	resolver, err := schedule.NewResolver(cfg.Timezone, schedule.Hours{
		MorningStart:   cfg.MorningStartHour,
		AfternoonStart: cfg.AfternoonStartHour,
		Close:          cfg.CloseHour,
	})
	if err != nil {
		return err
	}

	validator := qrid.NewValidator(qrid.Shape{
		YearDigits: cfg.IDYearDigits,
		SeqDigits:  cfg.IDSeqDigits,
		Separator:  cfg.IDSeparator,
		MinYear:    cfg.IDMinYear,
	}, nil)

	engine := session.NewEngine(cfg.DedupWindow)
	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(validator, resolver, engine, repo, schedule.SystemClock{})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	scanHandler := func(allowExplicit bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			var req struct {
				QRPayload    string `json:"qr_payload" binding:"required"`
				GateLocation string `json:"gate_location" binding:"required"`
				Mode         string `json:"mode"`
				Slot         string `json:"slot"`
				Intent       string `json:"intent"`
				Notes        string `json:"notes"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
				return
			}

			scan := attendance.ScanRequest{
				Raw:          req.QRPayload,
				GateLocation: req.GateLocation,
				Notes:        req.Notes,
			}

			mode := session.ModeIntent
			if req.Mode != "" {
				var err error
				if mode, err = session.ParseMode(req.Mode); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
					return
				}
			}
			if mode == session.ModeExplicit && !allowExplicit {
				c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "explicit slot selection requires an operator token"})
				return
			}
			scan.Mode = mode

			switch mode {
			case session.ModeExplicit:
				slot, err := session.ParseSlot(req.Slot)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
					return
				}
				scan.Slot = slot
			case session.ModeIntent:
				if req.Intent == "" {
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "intent is required"})
					return
				}
				intent, err := session.ParseIntent(req.Intent)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
					return
				}
				scan.Intent = intent
			}

			result, rej, err := svc.Scan(c.Request.Context(), scan)
			if err != nil {
				log.Printf("scan pipeline failed: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
				return
			}
			if rej != nil {
				metrics.Rejected(string(rej.Reason))
				c.JSON(statusFor(rej.Reason), gin.H{
					"success":     false,
					"reason_code": rej.Reason,
					"message":     rej.Message,
				})
				return
			}

			metrics.Accepted(result.Record.SlotName)
			if err := q.Publish(c.Request.Context(), queue.Message{Type: "scan", Body: []byte(result.Record.ID)}); err != nil {
				log.Printf("queue publish failed: %v", err)
			}

			c.JSON(http.StatusOK, gin.H{
				"success":       true,
				"student_id":    result.Record.StudentID,
				"student_name":  result.StudentName,
				"slot":          result.Record.SlotName,
				"occurred_at":   result.Record.OccurredAt,
				"gate_location": result.Record.GateLocation,
			})
		}
	}

	// Public gate scanner: intent mode only.
	r.POST("/v1/scans", httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware(), scanHandler(false))

	r.POST("/v1/operator/login", func(c *gin.Context) {
		var req struct {
			OperatorID  string `json:"operator_id" binding:"required"`
			OperatorKey string `json:"operator_key" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.OperatorKey != cfg.OperatorKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad operator key"})
			return
		}

		tokens, err := auth.Issue(req.OperatorID, "operator", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		_ = repo.SaveRefreshToken(c.Request.Context(), req.OperatorID, tokens.RefreshToken, tokens.RefreshExp)

		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	opGroup := r.Group("/v1/operator", auth.OperatorAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	// Operator scan station: may pick the slot explicitly.
	opGroup.POST("/scans", scanHandler(true))

	opGroup.POST("/students", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			Name      string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := svc.RegisterStudent(c.Request.Context(), req.StudentID, req.Name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"student_id": id, "name": req.Name})
	})

	opGroup.GET("/students", func(c *gin.Context) {
		students, err := repo.ListStudents(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": students})
	})

	opGroup.GET("/records", func(c *gin.Context) {
		studentID := c.Query("student_id")
		var day *time.Time
		if v := c.Query("day"); v != "" {
			parsed, err := time.ParseInLocation("2006-01-02", v, resolver.Location())
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
				return
			}
			day = &parsed
		}
		limit, offset := 50, 0
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		if v := c.Query("offset"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				offset = parsed
			}
		}
		records, err := repo.ListRecords(c.Request.Context(), studentID, day, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// statusFor maps rejection reasons to HTTP statuses. CONFLICT renders
// like a duplicate, not a server error.
func statusFor(reason session.Reason) int {
	switch reason {
	case session.ReasonInvalidQR:
		return http.StatusBadRequest
	case session.ReasonStudentNotFound:
		return http.StatusNotFound
	case session.ReasonOutsideHours, session.ReasonMissingPrecondition:
		return http.StatusUnprocessableEntity
	case session.ReasonAlreadyRecorded, session.ReasonConflict:
		return http.StatusConflict
	case session.ReasonRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusBadRequest
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
