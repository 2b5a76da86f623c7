package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_dictation/internal/engine"
)

// Google Cloud Translation v2 client.

const translateService = "Google Translation API"

type translateResp struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translator forwards text to the translation API.
type Translator struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter // nil = unlimited
}

// NewTranslator creates a translator. rps <= 0 disables rate limiting.
func NewTranslator(apiKey, endpoint string, client *http.Client, rps float64) *Translator {
	t := &Translator{apiKey: apiKey, endpoint: endpoint, client: client}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return t
}

// NewTranslatorFromConfig builds a translator from engine configuration.
func NewTranslatorFromConfig(c *engine.Config) *Translator {
	client := c.TranslateClient
	if client == nil {
		client = engine.NewHTTPClient(c.TranslateTimeout)
	}
	return NewTranslator(c.TranslateAPIKey, c.TranslateAPIURL, client, c.TranslateRPS)
}

// Translate returns text translated into targetLang. Empty input returns ""
// without calling the API. sourceLang may be empty for auto-detection.
// Missing credentials, upstream rejections and empty results are reported as
// *engine.TranslationServiceError.
func (t *Translator) Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	engine.IncrTranslateCalls()

	out, err := t.translate(ctx, text, targetLang, sourceLang)
	if err != nil {
		engine.IncrTranslateErrors()
		return "", err
	}
	return out, nil
}

func (t *Translator) translate(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	if t.apiKey == "" {
		return "", &engine.TranslationServiceError{Err: &engine.ConfigError{
			Setting: "GOOGLE_TRANSLATE_API_KEY",
			Message: "Google Translation API key is not configured. Set GOOGLE_TRANSLATE_API_KEY in the backend environment.",
		}}
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("translate rate limit: %w", err)
		}
	}

	target, err := withAPIKey(t.endpoint, t.apiKey)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("q", text)
	form.Set("target", targetLang)
	form.Set("format", "text")
	if sourceLang != "" {
		form.Set("source", sourceLang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", engine.UserAgentBot)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &engine.NetworkError{Op: "translate", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return "", &engine.NetworkError{Op: "read translate response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &engine.TranslationServiceError{Err: &engine.UpstreamHTTPError{
			Service:    translateService,
			StatusCode: resp.StatusCode,
			Body:       engine.Snippet(body, 512),
		}}
	}

	var payload translateResp
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if payload.Error != nil {
		msg := payload.Error.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return "", &engine.TranslationServiceError{Err: &engine.UpstreamAPIError{Service: translateService, Message: msg}}
	}
	if len(payload.Data.Translations) == 0 {
		return "", &engine.TranslationServiceError{Err: &engine.NotFoundError{What: "translation"}}
	}
	return engine.UnescapeEntities(payload.Data.Translations[0].TranslatedText), nil
}

// withAPIKey adds the key query parameter to a Google API endpoint,
// keeping any query the endpoint already carries.
func withAPIKey(endpoint, apiKey string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
