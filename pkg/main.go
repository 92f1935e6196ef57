package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkg "git.solsynth.dev/hypernet/crosspost/pkg/internal"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/cache"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/database"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/http"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString("  ____                                    _\n / ___|_ __ ___  ___ ___ _ __   ___  ___| |_\n| |   | '__/ _ \\/ __/ __| '_ \\ / _ \\/ __| __|\n| |___| | | (_) \\__ \\__ \\ |_) | (_) \\__ \\ |_\n \\____|_|  \\___/|___/___/ .__/ \\___/|___/\\__|\n                        |_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Hypernet.Crosspost"), pkg.AppVersion)
	fmt.Printf("The forum cross-posting service in Hypernet\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Wire the cross-posting engine
	host := services.NewHost(database.C)
	engine, err := crosspost.New(
		crosspost.WithHost(host, host, host),
		crosspost.WithMetaStore(host),
		crosspost.WithNotifications(host, services.LogMailer{}),
		crosspost.WithQueue(host),
		crosspost.WithBackfillBuffer(viper.GetInt("crosspost.backfill_buffer")),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when setting up cross-posting engine.")
	}

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.Start()

	// Fan-out worker
	ctx, cancel := context.WithCancel(context.Background())
	interval := viper.GetDuration("crosspost.worker_interval")
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go engine.NewWorker(viper.GetInt("crosspost.batch_size")).Run(ctx, interval)

	// Server
	go http.NewServer(engine).Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	quartz.Stop()
}
