package main

import (
	"context"
	"net/http"
	"time"

	"claimlease/internal/config"
	"claimlease/internal/confirm"
	"claimlease/internal/display"
	"claimlease/internal/leasing"
	"claimlease/internal/ledger"
	"claimlease/internal/logging"
	"claimlease/internal/presence"
	"claimlease/internal/registry"
	"claimlease/internal/reminder"
	"claimlease/internal/store"
	httptransport "claimlease/internal/transport/http"

	"github.com/rs/zerolog/log"
)

func main() {
	appCfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(appCfg.Log)
	cfg := appCfg.Server

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	book := leasing.NewBook(st)
	if err := book.Load(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("load leases failed")
	}
	evictions := leasing.NewEvictions(st, book, cfg.NoticePeriod())
	if err := evictions.Load(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("load eviction notices failed")
	}

	reg := registry.New(st)
	led := ledger.New(st, cfg.CurrencyName)
	tracker := presence.NewTracker()
	disp := display.NewLogProjector()

	sched := reminder.New(book, tracker, reminder.LogNotifier{})
	sched.Run(context.Background(), cfg.ReminderTick())

	wf := confirm.NewWorkflow(reg, led, tracker, disp, book, evictions, cfg.ConfirmTTL())
	wf.StartJanitor(context.Background(), time.Minute)

	r := httptransport.NewRouter(httptransport.Deps{
		Store:     st,
		Config:    cfg,
		Book:      book,
		Evictions: evictions,
		Scheduler: sched,
		Workflow:  wf,
		Registry:  reg,
		Ledger:    led,
		Presence:  tracker,
		Display:   disp,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
