package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports a missing credential or setting.
type ConfigError struct {
	Setting string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Setting + " is not configured"
}

// UpstreamHTTPError is a non-2xx response from an external API.
type UpstreamHTTPError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("%s responded with %d: %s", e.Service, e.StatusCode, e.Body)
}

// UpstreamAPIError is a 2xx response that carries an API-level error payload.
type UpstreamAPIError struct {
	Service string
	Message string
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Service, e.Message)
}

// NoCuesError means a caption track produced no usable text.
type NoCuesError struct {
	TrackID string
}

func (e *NoCuesError) Error() string {
	return fmt.Sprintf("caption track %q has no text cues", e.TrackID)
}

// NotFoundError means no candidate track or translation was available.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

// NetworkError is a transport-level failure talking to an external API.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TranslationServiceError wraps translator failures the caller can act on:
// missing credential, upstream rejection, or an empty result.
type TranslationServiceError struct {
	Err error
}

func (e *TranslationServiceError) Error() string {
	return e.Err.Error()
}

func (e *TranslationServiceError) Unwrap() error { return e.Err }

// SourceFailure records why one caption source could not serve a video.
type SourceFailure struct {
	Source string
	Err    error
}

// CaptionFetchError is returned when every caption source failed.
type CaptionFetchError struct {
	VideoID  string
	Failures []SourceFailure
}

func (e *CaptionFetchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Source+": "+f.Err.Error())
	}
	if len(parts) == 0 {
		return fmt.Sprintf("cannot fetch captions for video %s: no caption sources configured", e.VideoID)
	}
	return fmt.Sprintf("cannot fetch captions for video %s: %s", e.VideoID, strings.Join(parts, "; "))
}

// Unwrap exposes the last source failure, which is the one that ended the attempt.
func (e *CaptionFetchError) Unwrap() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1].Err
}

// TextTooLongError rejects input longer than an upstream API accepts.
type TextTooLongError struct {
	Length int
	Max    int
}

func (e *TextTooLongError) Error() string {
	return fmt.Sprintf("Text is too long. Maximum length is approximately %d characters. Your text has %d characters.", e.Max, e.Length)
}

// IsUpstreamError reports whether err came from an external API answering
// with a rejection or an empty result, as opposed to a local or transport failure.
func IsUpstreamError(err error) bool {
	var he *UpstreamHTTPError
	var ae *UpstreamAPIError
	var nf *NotFoundError
	return errors.As(err, &he) || errors.As(err, &ae) || errors.As(err, &nf)
}

// IsTranslationServiceError reports whether err is a user-actionable translator failure.
func IsTranslationServiceError(err error) bool {
	var tse *TranslationServiceError
	var ce *ConfigError
	return errors.As(err, &tse) || errors.As(err, &ce)
}
