// Package chatbot routes inbound WhatsApp messages through the reply
// pipeline: transcription, pause check, human handoff, keyword rules, LLM
// fallback, placeholder substitution, and optional voice synthesis.
//
// The dispatcher is single-threaded per phone (a mailbox goroutine per
// conversation keeps message order) and parallel across phones. External
// capabilities are injected; a nil capability degrades its branch instead
// of failing the pipeline. External failures are never retried here: they
// are logged, bug-reported, and replaced by fallback text.
package chatbot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/gateway"
	"github.com/oaddad/nucleo-backend/internal/llm"
	"github.com/oaddad/nucleo-backend/internal/phone"
	"github.com/oaddad/nucleo-backend/internal/repo"
	"github.com/oaddad/nucleo-backend/internal/speech"
	"github.com/oaddad/nucleo-backend/internal/substitute"
)

// DefaultPauseMinutes applies when the settings table names no duration.
const DefaultPauseMinutes = 15

// Fallback texts for degraded branches.
const (
	apologyText = "Desculpe, não consegui entender seu áudio. Pode escrever sua mensagem? 🙏"
	llmFallback = "Desculpe, estou com dificuldade para responder agora. Pode tentar de novo em instantes?"

	defaultHandoffMessage = "Entendi! Já chamei um atendente para falar com você, só um momento. 🙋"
	defaultPauseMessage   = "Nosso atendente assumiu a conversa. O assistente virtual volta em [TEMPO] minutos."
)

// Side-effect labels reported in replies.
const (
	EffectTranscribed   = "transcribed"
	EffectSkippedPaused = "skipped: paused"
	EffectHandoff       = "handoff"
	EffectKeywordRule   = "keyword_rule"
	EffectLLM           = "llm"
	EffectAudioReply    = "audio_reply"
)

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, media []byte, ext string) (string, error)
}

// Synthesizer converts text to MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Completer produces a chat completion for a transcript.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Inbound is one received message.
type Inbound struct {
	Phone    string
	Body     string
	PushName string
	// Media is an optional audio payload; MediaExt is its extension
	// without a dot ("ogg", "mp3"). Empty media means a text message.
	Media    []byte
	MediaExt string
	// WantAudio asks for a synthesized voice reply.
	WantAudio bool
}

// Reply is the pipeline output. Empty Text with no audio means no reply
// was produced (paused conversations).
type Reply struct {
	Text        string
	Audio       []byte
	AudioMime   string
	SideEffects []string
}

// Dispatcher orchestrates the reply pipeline. Construct with New; set the
// capability fields before the first dispatch.
type Dispatcher struct {
	DB    *gorm.DB
	State *State

	// Sender delivers replies for asynchronously dispatched messages. Nil
	// means replies are only returned to the caller.
	Sender      gateway.Sender
	Transcriber Transcriber
	Transcoder  speech.Transcoder
	Synthesizer Synthesizer
	Completer   Completer
	// Spoken renders text for voice replies.
	Spoken *speech.Spoken

	resolver *substitute.Resolver

	mu        sync.Mutex
	mailboxes map[string]chan Inbound
	stopped   bool
	wg        sync.WaitGroup
}

// New constructs a Dispatcher with fresh state and a time-seeded spoken
// transform.
func New(db *gorm.DB, state *State) *Dispatcher {
	if state == nil {
		state = NewState()
	}
	return &Dispatcher{
		DB:        db,
		State:     state,
		Spoken:    speech.NewSpoken(time.Now().UnixNano()),
		resolver:  substitute.NewResolver(db),
		mailboxes: make(map[string]chan Inbound),
	}
}

// phoneKey is the canonical per-conversation key: normalized digits when
// the phone parses, raw digits otherwise.
func phoneKey(raw string) string {
	if n, err := phone.Normalize(raw); err == nil {
		return n
	}
	return phone.Digits(raw)
}

// Dispatch queues the message on its conversation mailbox, creating the
// mailbox goroutine on first contact. Replies go out through Sender.
func (d *Dispatcher) Dispatch(in Inbound) {
	key := phoneKey(in.Phone)

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	box, ok := d.mailboxes[key]
	if !ok {
		box = make(chan Inbound, 32)
		d.mailboxes[key] = box
		d.wg.Add(1)
		go d.consume(box)
	}
	d.mu.Unlock()

	select {
	case box <- in:
	default:
		log.Warn().Str("phone", key).Msg("conversation mailbox full, message dropped")
	}
}

// Stop closes all mailboxes and waits for in-flight dispatches.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, box := range d.mailboxes {
		close(box)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// consume drains one conversation mailbox in order.
func (d *Dispatcher) consume(box chan Inbound) {
	defer d.wg.Done()
	for in := range box {
		reply := d.ProcessInbound(context.Background(), in)
		d.deliver(in, reply)
	}
}

// deliver pushes a produced reply through the gateway, audio preferred.
func (d *Dispatcher) deliver(in Inbound, reply *Reply) {
	if d.Sender == nil || reply == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch {
	case len(reply.Audio) > 0:
		err = d.Sender.SendAudio(ctx, in.Phone, reply.Audio, reply.AudioMime)
	case reply.Text != "":
		err = d.Sender.SendText(ctx, in.Phone, reply.Text)
	default:
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("phone", phoneKey(in.Phone)).Msg("reply delivery failed")
	}
}

// ProcessInbound runs the full pipeline for one message and returns the
// reply. It never returns an error: every failure degrades to a fallback.
func (d *Dispatcher) ProcessInbound(ctx context.Context, in Inbound) *Reply {
	key := phoneKey(in.Phone)
	body := strings.TrimSpace(in.Body)
	var effects []string

	if len(in.Media) > 0 {
		text, err := d.transcribe(ctx, in)
		if err != nil {
			d.reportBug(ctx, "transcription", "speech/transcribe", key, err)
			log.Warn().Err(err).Str("phone", key).Msg("transcription failed")
			return &Reply{Text: apologyText, SideEffects: []string{"transcription_failed"}}
		}
		body = strings.TrimSpace(text)
		effects = append(effects, EffectTranscribed)
	}

	if d.State.Paused(key) {
		return &Reply{SideEffects: append(effects, EffectSkippedPaused)}
	}

	folded := fold(body)

	if wantsHuman(folded) {
		d.State.AddWaiting(WaitingSlot{Phone: key, PushName: in.PushName, Message: body})
		msg, err := repo.GetSetting(ctx, d.DB, domain.SettingHandoffMessage)
		if err != nil || msg == "" {
			msg = defaultHandoffMessage
		}
		return d.finish(ctx, in, key, msg, append(effects, EffectHandoff))
	}

	if rules, err := repo.ListActiveKeywordRules(ctx, d.DB); err == nil {
		for _, rule := range rules {
			if ruleMatches(rule, folded) {
				return d.finish(ctx, in, key, rule.Response, append(effects, EffectKeywordRule))
			}
		}
	} else {
		log.Warn().Err(err).Msg("keyword rules unavailable, falling through to llm")
	}

	reply := llmFallback
	if d.Completer != nil {
		messages := make([]llm.Message, 0, maxTranscriptMessages+2)
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: buildSystemPrompt(ctx, d.DB)})
		messages = append(messages, d.State.Transcript(key)...)
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: body})

		out, err := d.Completer.Complete(ctx, messages)
		if err != nil {
			d.reportBug(ctx, "llm", "llm/completions", key, err)
			log.Warn().Err(err).Str("phone", key).Msg("completion failed")
		} else {
			reply = out
			d.State.AppendExchange(key, body, out)
		}
	}
	return d.finish(ctx, in, key, reply, append(effects, EffectLLM))
}

// PauseBot installs an operator pause for the phone and returns the pause
// notice to send to the customer, with [TEMPO] resolved to the duration.
// minutes <= 0 falls back to the configured default.
func (d *Dispatcher) PauseBot(ctx context.Context, phoneRaw string, minutes int) string {
	if minutes <= 0 {
		minutes = DefaultPauseMinutes
		if v, err := repo.GetSetting(ctx, d.DB, domain.SettingBotPauseMinutes); err == nil && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				minutes = n
			}
		}
	}
	key := phoneKey(phoneRaw)
	d.State.Pause(key, time.Duration(minutes)*time.Minute)

	notice, err := repo.GetSetting(ctx, d.DB, domain.SettingPauseMessage)
	if err != nil || notice == "" {
		notice = defaultPauseMessage
	}
	vals := d.resolver.Values(ctx, phoneRaw)
	vals[substitute.KeyPauseMinutes] = strconv.Itoa(minutes)
	return substitute.Apply(notice, vals)
}

// ResumeBot clears the phone's pause.
func (d *Dispatcher) ResumeBot(phoneRaw string) {
	d.State.Resume(phoneKey(phoneRaw))
}

// finish substitutes placeholders and, when asked, attaches a voice
// rendition. Synthesis failure falls back to text-only.
func (d *Dispatcher) finish(ctx context.Context, in Inbound, key, raw string, effects []string) *Reply {
	text := substitute.Apply(raw, d.resolver.Values(ctx, in.Phone))
	reply := &Reply{Text: text, SideEffects: effects}

	if !in.WantAudio || d.Synthesizer == nil {
		return reply
	}
	spoken := text
	if d.Spoken != nil {
		spoken = d.Spoken.Render(text)
	}
	audio, err := d.Synthesizer.Synthesize(ctx, spoken, d.voice(ctx))
	if err != nil {
		d.reportBug(ctx, "synthesis", "speech/synthesize", key, err)
		log.Warn().Err(err).Str("phone", key).Msg("synthesis failed, replying text-only")
		return reply
	}
	reply.Audio = audio
	reply.AudioMime = "audio/mpeg"
	reply.SideEffects = append(reply.SideEffects, EffectAudioReply)
	return reply
}

// transcribe decodes the inbound audio, transcoding non-MP3 payloads
// first.
func (d *Dispatcher) transcribe(ctx context.Context, in Inbound) (string, error) {
	if d.Transcriber == nil {
		return "", fmt.Errorf("no transcriber configured")
	}
	media, ext := in.Media, strings.ToLower(in.MediaExt)
	if ext == "" {
		ext = "ogg"
	}
	if ext != "mp3" && d.Transcoder != nil {
		mp3, err := d.Transcoder.ToMP3(ctx, media, ext)
		if err != nil {
			return "", err
		}
		media, ext = mp3, "mp3"
	}
	return d.Transcriber.Transcribe(ctx, media, ext)
}

// voice picks the synthesis voice from settings, defaulting to the speech
// package default.
func (d *Dispatcher) voice(ctx context.Context) string {
	v, err := repo.GetSetting(ctx, d.DB, domain.SettingDefaultVoice)
	if err != nil || !speech.ValidVoice(v) {
		return speech.DefaultVoice
	}
	return v
}

// reportBug persists an external-failure diagnostic record. Best-effort.
func (d *Dispatcher) reportBug(ctx context.Context, kind, endpoint, user string, cause error) {
	r := &domain.BugReport{
		Kind:     kind,
		Message:  cause.Error(),
		Endpoint: endpoint,
		User:     user,
		Stack:    string(debug.Stack()),
	}
	if err := repo.AppendBugReport(ctx, d.DB, r); err != nil {
		log.Error().Err(err).Msg("bug report write failed")
	}
}
