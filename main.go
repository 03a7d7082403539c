package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"flipmail/config"
	"flipmail/handlers"
	"flipmail/handlers/api"
	"flipmail/handlers/web"
	"flipmail/inbox"
	"flipmail/storage"
	"flipmail/utils"

	"github.com/gofiber/fiber/v2/middleware/session"
)

func main() {
	configPath := "config.toml"
	if p := os.Getenv("FLIPMAIL_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	utils.Log.SetLevel(utils.ParseLogLevel(cfg.Log.Level))
	utils.Log.Info("Initializing flipmail...")

	if err := utils.InitI18n("locales"); err != nil {
		utils.Log.Error("Failed to initialize i18n: %v", err)
	}

	db, err := storage.InitDB(cfg.Storage.DataDir)
	if err != nil {
		utils.Log.Error("Failed to open status database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	status := inbox.NewStatusStore(storage.NewStatusStorage(db, cfg.Storage.StatusKey))

	gateway := api.NewClient(cfg.Gateway)
	defer gateway.Close()

	readers := inbox.NewRegistry(gateway, status, cfg.Server.Pages, cfg.Server.SessionExpiration)
	defer readers.Close()

	sessions := session.New(session.Config{
		Expiration:     cfg.Server.SessionExpiration,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	app := handlers.NewApp(handlers.Deps{
		Config:    cfg,
		Views:     web.NewEngine("./templates", cfg.Log.Level == "debug"),
		Sessions:  sessions,
		Readers:   readers,
		AssetsDir: "./assets",
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		utils.Log.Info("Shutting down...")
		if err := app.Shutdown(); err != nil {
			utils.Log.Error("Error during shutdown: %v", err)
		}
	}()

	utils.Log.Info("Starting server on port %d...", cfg.Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}
