// Package gtts implements dispatcher.SpeechBackend against the public Google
// Translate text-to-speech endpoint. Long text is split into chunks the
// endpoint accepts and the returned MP3 segments are concatenated.
package gtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultBaseURL is the translate_tts endpoint.
	DefaultBaseURL = "https://translate.google.com/translate_tts"
	// MaxChunkRunes is the longest text accepted by one request.
	MaxChunkRunes = 100

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	normalSpeed      = "1"
	slowSpeed        = "0.24"

	// maxChunkAudioBytes bounds the MP3 returned for one chunk.
	maxChunkAudioBytes = 4 << 20
)

// Config holds TTS client configuration
type Config struct {
	BaseURL   string
	UserAgent string
}

// Client is safe for concurrent use.
type Client struct {
	config *Config
	client *http.Client
}

// New creates a TTS client. A nil httpClient uses a client without timeout;
// the request context bounds the call.
func New(config *Config, httpClient *http.Client) *Client {
	if config == nil {
		config = &Config{}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{config: config, client: httpClient}
}

// Synthesize returns MP3 audio for text spoken in lang.
func (c *Client) Synthesize(ctx context.Context, text, lang string, slow bool) ([]byte, error) {
	chunks := Split(text, MaxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to speak")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		part, err := c.fetch(ctx, chunk, lang, slow, i, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio.Write(part)
	}
	return audio.Bytes(), nil
}

func (c *Client) fetch(ctx context.Context, chunk, lang string, slow bool, idx, total int) ([]byte, error) {
	speed := normalSpeed
	if slow {
		speed = slowSpeed
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", lang)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))
	q.Set("client", "tw-ob")
	q.Set("ttsspeed", speed)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChunkAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxChunkAudioBytes {
		return nil, fmt.Errorf("tts response exceeds %d bytes", maxChunkAudioBytes)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts request failed with status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty audio response")
	}
	return body, nil
}

// clauseEnds are the marks after which a chunk prefers to break.
const clauseEnds = ".!?;:,…"

// Split breaks text into chunks of at most limit runes. Chunks end after
// clause punctuation when possible, otherwise at whitespace, and words longer
// than limit are cut. Whitespace-only text yields no chunks.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxChunkRunes
	}

	p := &packer{limit: limit}
	for _, clause := range clauses(text) {
		words := strings.Fields(clause)
		if len(words) == 0 {
			continue
		}
		joined := strings.Join(words, " ")
		if n := utf8.RuneCountInString(joined); n <= limit {
			p.add(joined, n)
			continue
		}
		p.flush()
		for _, word := range words {
			p.addWord(word)
		}
	}
	p.flush()
	return p.chunks
}

// clauses cuts text after every clause mark that is followed by whitespace
// or ends the text, and after every newline. "3.5" stays whole.
func clauses(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	offset := 0
	for i, r := range runes {
		offset += utf8.RuneLen(r)
		boundary := r == '\n'
		if !boundary && strings.ContainsRune(clauseEnds, r) {
			boundary = i == len(runes)-1 || unicode.IsSpace(runes[i+1])
		}
		if boundary {
			out = append(out, text[start:offset])
			start = offset
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

type packer struct {
	limit  int
	chunks []string
	cur    strings.Builder
	n      int
}

// add appends s, of n runes, starting a new chunk when it does not fit.
func (p *packer) add(s string, n int) {
	if p.n > 0 && p.n+1+n > p.limit {
		p.flush()
	}
	if p.n > 0 {
		p.cur.WriteByte(' ')
		p.n++
	}
	p.cur.WriteString(s)
	p.n += n
}

func (p *packer) addWord(word string) {
	runes := []rune(word)
	for len(runes) > p.limit {
		p.flush()
		p.chunks = append(p.chunks, string(runes[:p.limit]))
		runes = runes[p.limit:]
	}
	if len(runes) > 0 {
		p.add(string(runes), len(runes))
	}
}

func (p *packer) flush() {
	if p.n > 0 {
		p.chunks = append(p.chunks, p.cur.String())
		p.cur.Reset()
		p.n = 0
	}
}
