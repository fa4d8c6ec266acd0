package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"google.golang.org/api/option"

	"schedule-sync-bot/internal/autosend"
	"schedule-sync-bot/internal/calsync"
	"schedule-sync-bot/internal/config"
	"schedule-sync-bot/internal/gcal"
	"schedule-sync-bot/internal/handlers"
	"schedule-sync-bot/internal/lessons"
	"schedule-sync-bot/internal/lib/logger/handlers/slogpretty"
	"schedule-sync-bot/internal/lib/logger/sl"
	"schedule-sync-bot/internal/lock"
	"schedule-sync-bot/internal/messages"
	"schedule-sync-bot/internal/schedule"
	"schedule-sync-bot/internal/scheduler"
	"schedule-sync-bot/internal/sheets"
	"schedule-sync-bot/internal/storage"
	"schedule-sync-bot/internal/utils"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	log.Info("starting schedule bot", slog.String("env", cfg.Env), slog.String("sheet_source", cfg.Sheet.Source))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	utils.Must(err)

	db, err := storage.New(cfg.DBPath)
	utils.Must(err)

	src, err := sheetSource(ctx, cfg)
	utils.Must(err)

	extractor := lessons.New(lessons.Options{
		SpecialKeywords:  cfg.Lessons.SpecialSubjects,
		RemoteKeywords:   cfg.Lessons.RemoteKeywords,
		SpecialRoomLabel: cfg.Lessons.SpecialRoomLabel,
	})
	loader := schedule.NewLoader(log.With(slog.String("component", "schedule")), src, extractor, cfg.Sheet.CacheTTL)
	clock := clockwork.NewRealClock()

	var calOpts []option.ClientOption
	if cfg.Calendar.Endpoint != "" {
		calOpts = append(calOpts, option.WithEndpoint(cfg.Calendar.Endpoint))
	}
	oauth := gcal.NewOAuth(cfg.Calendar.ClientID, cfg.Calendar.ClientSecret,
		cfg.Calendar.TokenURL, cfg.Calendar.RevokeURL, nil)
	engine := calsync.New(log.With(slog.String("component", "calsync")),
		gcal.NewClient(calOpts...), oauth, db, loader, clock, cfg.Timezone, cfg.Calendar.SkipSubjects)

	notifier := autosend.New(log.With(slog.String("component", "autosend")),
		db, messages.NewTelegram(bot), loader, clock, cfg.Timezone)

	schedCfg := scheduler.Config{
		Every:   cfg.Scheduler.Tick,
		Backoff: cfg.Scheduler.Backoff,
		Clock:   clock,
	}
	var locker *lock.RedisLock
	if cfg.RedisAddr != "" {
		locker, err = lock.NewRedisLock(cfg.RedisAddr, cfg.Scheduler.LockTTL)
		if err != nil {
			log.Error("failed to init redis lock", sl.Err(err))
			os.Exit(1)
		}
		schedCfg.Locker = locker
	}

	sched, err := scheduler.New(log.With(slog.String("component", "scheduler")), schedCfg, notifier, engine)
	utils.Must(err)
	sched.Start()

	var auth handlers.AuthLinker
	if cfg.Calendar.ClientID != "" {
		auth = oauth
	}
	h := handlers.NewHandler(log.With(slog.String("component", "handlers")),
		bot, db, loader, engine, auth, clock, cfg.Timezone)

	log.Info("bot authorized", slog.String("username", bot.Self.UserName))
	h.Listen(ctx)

	log.Info("shutting down")
	if err := sched.Stop(); err != nil {
		log.Error("scheduler shutdown failed", sl.Err(err))
	}
	if locker != nil {
		if err := locker.Close(); err != nil {
			log.Error("failed to close locker", sl.Err(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("failed to close storage", sl.Err(err))
	}
	log.Info("stopped")
}

func sheetSource(ctx context.Context, cfg *config.Config) (schedule.Source, error) {
	if cfg.Sheet.Source == "xlsx" {
		return sheets.NewXLSX(cfg.Sheet.XLSXURL(), http.DefaultClient), nil
	}
	c, err := sheets.NewClient(ctx, cfg.Sheet.SpreadsheetID, cfg.Sheet.GID,
		option.WithCredentialsFile(cfg.Sheet.Credentials))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
