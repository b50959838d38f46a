// Package speech defines the text-to-speech collaborator used to render
// narration phrases to audio, plus a client for the Google Translate voice
// endpoint.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Synthesizer converts text to encoded audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface
type SynthesizerFunc func(ctx context.Context, text, lang string) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	return f(ctx, text, lang)
}

// ErrTransient marks failures worth retrying (rate limits, server errors, network)
var ErrTransient = errors.New("transient synthesis failure")

// MaxTextLength is the longest text, in runes, the endpoint accepts in one request
const MaxTextLength = 200

// DefaultBaseURL is the endpoint queried by GoogleTranslate
const DefaultBaseURL = "https://translate.google.com/translate_tts"

// GoogleTranslate synthesizes MP3 audio through the Google Translate voice endpoint
type GoogleTranslate struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// Option configures a GoogleTranslate client
type Option func(*GoogleTranslate)

// WithBaseURL overrides the endpoint URL
func WithBaseURL(u string) Option {
	return func(g *GoogleTranslate) { g.baseURL = u }
}

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(c *http.Client) Option {
	return func(g *GoogleTranslate) { g.client = c }
}

// NewGoogleTranslate creates a client with a 30 second request timeout
func NewGoogleTranslate(opts ...Option) *GoogleTranslate {
	g := &GoogleTranslate{
		baseURL:   DefaultBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "Scene-Narrator/1.0",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ParseLanguage validates a BCP 47 language code such as "en" or "pt-BR"
func ParseLanguage(lang string) (language.Tag, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language code %q: %w", lang, err)
	}
	return tag, nil
}

// Synthesize returns the MP3 bytes for text spoken in lang
func (g *GoogleTranslate) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}
	if n := utf8.RuneCountInString(text); n > MaxTextLength {
		return nil, fmt.Errorf("text is %d characters, limit is %d", n, MaxTextLength)
	}
	tag, err := ParseLanguage(lang)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", tag.String())
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("tts endpoint returned HTTP %d: %s", resp.StatusCode, body)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return nil, err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio: %v", ErrTransient, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts endpoint returned no audio")
	}
	return audio, nil
}
