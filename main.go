package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Prabhav200511/QuickQRTicket/config"
	"github.com/Prabhav200511/QuickQRTicket/controllers"
	"github.com/Prabhav200511/QuickQRTicket/database"
	"github.com/Prabhav200511/QuickQRTicket/ledger"
	"github.com/Prabhav200511/QuickQRTicket/lib/logger/sl"
	"github.com/Prabhav200511/QuickQRTicket/routes"
	"github.com/Prabhav200511/QuickQRTicket/utils"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", sl.Err(err))
		os.Exit(1)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		log.Error("failed to migrate database", sl.Err(err))
		os.Exit(1)
	}

	ldgr := ledger.New(db, log)
	secret := []byte(cfg.JWTSecret)

	auth := &controllers.AuthController{
		DB:     db,
		Secret: secret,
		Mailer: utils.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom),
		Log:    log,
	}
	events := &controllers.EventController{DB: db, Ledger: ldgr, Log: log}
	tickets := &controllers.TicketController{Ledger: ldgr}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	routes.SetupRoutes(router, secret, auth, events, tickets)

	// Background sweep of ended events. The listing path purges too, so the
	// observable contract does not depend on this goroutine.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if err := ldgr.PurgeExpired(context.Background()); err != nil {
				log.Error("background sweep failed", sl.Err(err))
			}
		}
	}()

	log.Info("server running", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("server stopped", sl.Err(err))
		os.Exit(1)
	}
}
