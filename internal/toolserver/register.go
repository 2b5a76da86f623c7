// Package toolserver exposes caption fetching and translation as MCP tools.
package toolserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_dictation/internal/engine"
	"github.com/anatolykoptev/go_dictation/internal/engine/sources"
	"github.com/anatolykoptev/go_dictation/internal/toolutil"
)

// CaptionFetcher returns normalized caption sentences for a video.
type CaptionFetcher interface {
	Fetch(ctx context.Context, videoID string) ([]engine.NormalizedSentence, error)
}

// Translator translates text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error)
}

type GetCaptionsInput struct {
	VideoID string `json:"video_id" jsonschema:"YouTube video id or URL (e.g. dQw4w9WgXcQ)"`
}

type TranslateTextInput struct {
	Text           string `json:"text" jsonschema:"Text to translate"`
	TargetLanguage string `json:"target_language,omitempty" jsonschema:"Target language code (default: vi)"`
	SourceLanguage string `json:"source_language,omitempty" jsonschema:"Source language code (default: auto-detect)"`
}

// RegisterTools registers get_captions and translate_text on the given MCP server.
func RegisterTools(server *mcp.Server, captions CaptionFetcher, translator Translator) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_captions",
		Description: "Fetch the captions of a YouTube video as timed sentences (text, start, end, duration, HH:MM:SS timestamp). English tracks are preferred, then Vietnamese. Failures are reported in the error field with an empty sentence list.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, getCaptionsHandler(captions))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "translate_text",
		Description: "Translate text with Google Cloud Translation. Target language defaults to Vietnamese (vi); source language is auto-detected unless given.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, translateTextHandler(translator))
}

func getCaptionsHandler(captions CaptionFetcher) func(context.Context, *mcp.CallToolRequest, GetCaptionsInput) (*mcp.CallToolResult, toolutil.CaptionsResponse, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetCaptionsInput) (*mcp.CallToolResult, toolutil.CaptionsResponse, error) {
		videoID := sources.NormalizeVideoID(input.VideoID)
		if videoID == "" {
			return nil, toolutil.CaptionsResponse{}, fmt.Errorf("video_id is required")
		}
		sentences, err := captions.Fetch(ctx, videoID)
		if err != nil {
			slog.Warn("get_captions error", slog.String("id", videoID), slog.Any("error", err))
		}
		return nil, toolutil.CaptionsEnvelope(sentences, err), nil
	}
}

func translateTextHandler(translator Translator) func(context.Context, *mcp.CallToolRequest, TranslateTextInput) (*mcp.CallToolResult, toolutil.TranslateResponse, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TranslateTextInput) (*mcp.CallToolResult, toolutil.TranslateResponse, error) {
		if strings.TrimSpace(input.Text) == "" {
			return nil, toolutil.TranslateResponse{}, nil
		}
		out, err := translator.Translate(ctx, input.Text, toolutil.NormTargetLang(input.TargetLanguage), input.SourceLanguage)
		if err != nil {
			slog.Warn("translate_text error", slog.Any("error", err))
			if engine.IsTranslationServiceError(err) {
				return nil, toolutil.TranslateResponse{}, fmt.Errorf("translation failed: %w", err)
			}
			return nil, toolutil.TranslateResponse{}, fmt.Errorf("unexpected error while translating text")
		}
		return nil, toolutil.TranslateResponse{Translation: out}, nil
	}
}
