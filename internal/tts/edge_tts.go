package tts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Edge read-aloud service constants
const (
	edgeTrustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	edgeEndpoint           = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	edgeOrigin             = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	edgeGECVersion         = "1-130.0.2849.68"
	edgeOutputFormat       = "audio-24khz-48kbitrate-mono-mp3"

	// DefaultEdgeVoice is the neural voice used when none is set.
	DefaultEdgeVoice = "ja-JP-NanamiNeural"

	// Seconds between 1601-01-01 and 1970-01-01.
	windowsEpochOffset = 11644473600
)

// EdgeProvider implements TTS with the Microsoft Edge read-aloud websocket.
// It needs no API key and accepts SSML prosody for rate, pitch and volume.
type EdgeProvider struct {
	dialer *websocket.Dialer
	logger zerolog.Logger
	config *EdgeConfig
	now    func() time.Time
}

// EdgeConfig holds Edge TTS configuration
type EdgeConfig struct {
	Endpoint     string        `json:"endpoint"`
	DefaultVoice string        `json:"default_voice"`
	Timeout      time.Duration `json:"timeout"` // 0 means no timeout
}

// DefaultEdgeConfig returns sensible defaults
func DefaultEdgeConfig() *EdgeConfig {
	return &EdgeConfig{
		Endpoint:     edgeEndpoint,
		DefaultVoice: DefaultEdgeVoice,
	}
}

// NewEdgeProvider creates a new Edge TTS provider
func NewEdgeProvider(logger zerolog.Logger, config *EdgeConfig) *EdgeProvider {
	if config == nil {
		config = DefaultEdgeConfig()
	}
	if config.Endpoint == "" {
		config.Endpoint = edgeEndpoint
	}
	if config.DefaultVoice == "" {
		config.DefaultVoice = DefaultEdgeVoice
	}

	return &EdgeProvider{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 15 * time.Second,
		},
		logger: logger.With().Str("provider", "edge-tts").Logger(),
		config: config,
		now:    time.Now,
	}
}

// Name returns the provider identifier
func (p *EdgeProvider) Name() string {
	return "edge"
}

// Health reports the provider as available; the service has no probe
// endpoint and failures surface from Synthesize.
func (p *EdgeProvider) Health(ctx context.Context) error {
	return nil
}

// Synthesize streams MP3 audio for the request over one websocket session.
func (p *EdgeProvider) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	voice := req.Voice
	if voice.Voice == "" {
		voice.Voice = p.config.DefaultVoice
	}

	conn, _, err := p.dialer.DialContext(ctx, p.connectURL(), p.headers())
	if err != nil {
		return nil, fmt.Errorf("connect edge tts: %w", err)
	}
	defer conn.Close()

	// Unblock reads when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	ts := p.timestamp()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfigMessage(ts))); err != nil {
		return nil, p.wrapErr(ctx, "send speech config", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMessage(ts, voice, req.Text))); err != nil {
		return nil, p.wrapErr(ctx, "send ssml", err)
	}

	p.logger.Debug().
		Str("voice", voice.Voice).
		Int("textLen", len(req.Text)).
		Msg("Sending TTS request to Edge")

	var audio bytes.Buffer
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return nil, p.wrapErr(ctx, "read audio", err)
		}
		if kind == websocket.TextMessage {
			if bytes.Contains(data, []byte("Path:turn.end")) {
				break
			}
			continue
		}
		chunk, err := audioPayload(data)
		if err != nil {
			return nil, err
		}
		audio.Write(chunk)
	}

	if audio.Len() == 0 {
		return nil, ErrEmptyAudio
	}

	processingTime := time.Since(startTime)
	p.logger.Info().
		Str("voice", voice.Voice).
		Int("audioBytes", audio.Len()).
		Dur("processingTime", processingTime).
		Msg("Edge TTS synthesis complete")

	return &SynthesizeResponse{
		Audio:          audio.Bytes(),
		Format:         "mp3",
		ProcessingTime: processingTime,
		Voice:          voice.Voice,
		Provider:       p.Name(),
	}, nil
}

func (p *EdgeProvider) wrapErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (p *EdgeProvider) connectURL() string {
	q := url.Values{}
	q.Set("TrustedClientToken", edgeTrustedClientToken)
	q.Set("ConnectionId", strings.ReplaceAll(uuid.NewString(), "-", ""))
	q.Set("Sec-MS-GEC", secMSGEC(p.now()))
	q.Set("Sec-MS-GEC-Version", edgeGECVersion)
	return p.config.Endpoint + "?" + q.Encode()
}

func (p *EdgeProvider) headers() http.Header {
	h := http.Header{}
	h.Set("Origin", edgeOrigin)
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "no-cache")
	h.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0")
	return h
}

func (p *EdgeProvider) timestamp() string {
	return p.now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

// secMSGEC derives the anti-abuse token: SHA-256 over the Windows file time,
// rounded down to five minutes, followed by the client token.
func secMSGEC(t time.Time) string {
	secs := t.Unix() + windowsEpochOffset
	secs -= secs % 300
	ticks := secs * 10_000_000
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%s", ticks, edgeTrustedClientToken)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func speechConfigMessage(ts string) string {
	return "X-Timestamp:" + ts + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + edgeOutputFormat + `"}}}}` + "\r\n"
}

func ssmlMessage(ts string, voice VoiceParams, text string) string {
	return "X-RequestId:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + ts + "Z\r\n" +
		"Path:ssml\r\n\r\n" +
		buildSSML(voice, text)
}

// buildSSML renders the speak document. Empty prosody values are neutral.
func buildSSML(voice VoiceParams, text string) string {
	var escaped strings.Builder
	xml.EscapeText(&escaped, []byte(text))

	return fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>"+
			"<voice name='%s'><prosody pitch='%s' rate='%s' volume='%s'>%s</prosody></voice></speak>",
		expandVoiceName(voice.Voice),
		orDefault(voice.Pitch, "+0Hz"),
		orDefault(voice.Rate, "+0%"),
		orDefault(voice.Volume, "+0%"),
		escaped.String(),
	)
}

// expandVoiceName turns ja-JP-NanamiNeural into the long service name.
// Names already in long form pass through.
func expandVoiceName(short string) string {
	if !isEdgeVoice(short) {
		return short
	}
	i := strings.LastIndex(short, "-")
	return fmt.Sprintf("Microsoft Server Speech Text to Speech Voice (%s, %s)", short[:i], short[i+1:])
}

func isEdgeVoice(name string) bool {
	return strings.HasSuffix(name, "Neural") && strings.Count(name, "-") >= 2 && !strings.Contains(name, " ")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var errMalformedFrame = errors.New("malformed edge audio frame")

// audioPayload strips the header from a binary frame. The frame starts with
// a big-endian uint16 header length; non-audio frames yield nil.
func audioPayload(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, errMalformedFrame
	}
	n := int(binary.BigEndian.Uint16(frame[:2]))
	if len(frame) < 2+n {
		return nil, errMalformedFrame
	}
	if !bytes.Contains(frame[2:2+n], []byte("Path:audio")) {
		return nil, nil
	}
	return frame[2+n:], nil
}
