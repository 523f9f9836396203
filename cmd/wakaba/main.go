package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hoshino-robotics/wakaba/internal/config"
	"github.com/hoshino-robotics/wakaba/internal/executor"
	"github.com/hoshino-robotics/wakaba/internal/httpapi"
	"github.com/hoshino-robotics/wakaba/internal/llm"
	"github.com/hoshino-robotics/wakaba/internal/observability"
	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
	"github.com/hoshino-robotics/wakaba/internal/protocol"
	"github.com/hoshino-robotics/wakaba/internal/session"
	"github.com/hoshino-robotics/wakaba/internal/store"
	"github.com/hoshino-robotics/wakaba/internal/stt"
	"github.com/hoshino-robotics/wakaba/internal/tts"
)

func main() {
	// Best-effort: a missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	reviewStore, err := store.New(ctx, store.Config{
		Backend:     cfg.StoreBackend,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer reviewStore.Close()

	chatProvider, streamer, err := llm.New(llm.Config{
		Provider:       cfg.LLMProvider,
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.ChatModel,
		InnerTaskModel: cfg.InnerTaskModel,
	})
	if err != nil {
		log.Fatalf("llm provider init failed: %v", err)
	}
	log.Printf("llm provider ready (streaming=%v)", streamer != nil)

	transcriber, err := stt.New(stt.Config{
		Provider: cfg.STTProvider,
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.STTModel,
	})
	if err != nil {
		log.Fatalf("stt provider init failed: %v", err)
	}

	synthesizer, err := tts.New(tts.Config{
		Provider: cfg.TTSProvider,
		APIKey:   cfg.ElevenLabsAPIKey,
		VoiceID:  cfg.TTSVoiceID,
		ModelID:  cfg.TTSModelID,
	})
	if err != nil {
		log.Fatalf("tts provider init failed: %v", err)
	}

	sessions := session.NewManager(cfg.StaffSessionTTL)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.StaffSessions.Set(float64(sessions.ActiveCount()))
	})

	hub := httpapi.NewHub(cfg.SSEKeepAliveInterval)
	hub.SetClientListener(func(surface string, count int) {
		metrics.SSEClients.WithLabelValues(surface).Set(float64(count))
	})

	sendKiosk := func(cmd protocol.Command) {
		metrics.KioskCommands.WithLabelValues(string(cmd.Type)).Inc()
		hub.PublishCommand(cmd)
	}

	// The pending-memory writer needs the current personal name, which lives
	// in the runtime snapshot; the runtime is built right after the executor.
	var runtime *executor.Runtime
	personalName := func() string {
		if runtime == nil {
			return ""
		}
		return runtime.Snapshot().PersonalName
	}

	exec := executor.New(chatProvider, chatProvider, transcriber, sendKiosk, nowMS, executor.Options{
		Streamer:      streamer,
		SummaryWriter: summaryWriter{st: reviewStore},
		PendingWriter: pendingWriter(reviewStore, personalName),
		Observer:      metrics,
		OnStreamError: metrics.ObserveStreamError,
	})
	runtime = executor.NewRuntime(orchestrator.Config{
		ConsentTimeoutMS:    cfg.ConsentTimeout.Milliseconds(),
		InactivityTimeoutMS: cfg.InactivityTimeout.Milliseconds(),
	}, exec)

	api := httpapi.New(cfg, runtime, exec, sessions, reviewStore, synthesizer, metrics, hub)
	runtime.SetStateListener(func(st orchestrator.State) {
		metrics.OrchestratorEvents.WithLabelValues("drain").Inc()
		api.OnState(st)
	})

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)
	go runTicker(runCtx, runtime, cfg.TickInterval)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func nowMS() int64 { return time.Now().UnixMilli() }

// runTicker drives the reducer's consent deadline and inactivity summary.
func runTicker(ctx context.Context, runtime *executor.Runtime, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runtime.Enqueue(orchestrator.Event{Type: orchestrator.EventTick}, nowMS())
		}
	}
}

// summaryWriter adapts the review store to the executor's summary sink.
type summaryWriter struct {
	st store.Store
}

func (w summaryWriter) WritePendingSessionSummary(ctx context.Context, sum orchestrator.SessionSummary) error {
	_, err := w.st.CreatePendingSessionSummary(ctx, store.PendingSessionSummary{
		Title:      sum.Title,
		Summary:    sum.Summary,
		Topics:     sum.Topics,
		StaffNotes: sum.StaffNotes,
	})
	return err
}

func pendingWriter(st store.Store, personalName func() string) executor.PendingMemoryWriter {
	return func(ctx context.Context, c orchestrator.MemoryCandidate) error {
		_, err := st.CreatePendingMemory(ctx, store.PendingMemory{
			Kind:         string(c.Kind),
			Value:        c.Value,
			SourceQuote:  c.SourceQuote,
			PersonalName: personalName(),
		})
		return err
	}
}
