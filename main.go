// go_dictation is the captions and translation backend for the dictation app.
//
// Serves POST /api/captions, GET /api/get-captions, POST /api/translate and
// POST /api/text-to-speech over HTTP, and optionally captions and translation
// as MCP tools when MCP_PORT is set.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_dictation/internal/apiserver"
	"github.com/anatolykoptev/go_dictation/internal/engine"
	"github.com/anatolykoptev/go_dictation/internal/engine/sources"
	"github.com/anatolykoptev/go_dictation/internal/toolserver"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("dotenv load failed", slog.Any("error", err))
	}

	engine.Init(engine.ConfigFromEnv())

	captions, err := sources.NewCaptionFetcherFromConfig(engine.Cfg)
	if err != nil {
		slog.Error("caption fetcher init failed", slog.Any("error", err))
		os.Exit(1)
	}
	translator := sources.NewTranslatorFromConfig(engine.Cfg)
	speech := sources.NewSynthesizerFromConfig(engine.Cfg)

	slog.Info("starting go_dictation",
		slog.String("port", engine.Cfg.Port),
		slog.Bool("youtube_api", engine.Cfg.YouTubeAPIKey != ""),
		slog.Bool("transcript_proxy", engine.Cfg.TranscriptHTTPProxy != "" || engine.Cfg.TranscriptHTTPSProxy != ""),
		slog.Bool("translate_api", engine.Cfg.TranslateAPIKey != ""),
		slog.Bool("tts_api", engine.Cfg.SpeechAPIKey != ""),
		slog.Any("languages", engine.Cfg.Languages()),
	)

	if engine.Cfg.MCPPort != "" {
		go runMCP(captions, translator)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := apiserver.New(captions, translator, speech).HTTPServer(":" + engine.Cfg.Port)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", slog.Any("error", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func runMCP(captions toolserver.CaptionFetcher, translator toolserver.Translator) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_dictation",
		Version: version,
	}, nil)

	toolserver.RegisterTools(server, captions, translator)
	slog.Info("mcp tools registered", slog.Int("count", 2), slog.String("port", engine.Cfg.MCPPort))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_dictation",
		Version:      version,
		Port:         engine.Cfg.MCPPort,
		WriteTimeout: 60 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("mcp server failed", slog.Any("error", err))
	}
}
