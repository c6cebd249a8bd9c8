package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_mail/internal/datauri"
	"github.com/Vovarama1992/voice_mail/internal/error_notificator"
	"github.com/Vovarama1992/voice_mail/internal/metrics"
	"github.com/Vovarama1992/voice_mail/internal/ports"
)

// diagnose turns a provider error into a hint for the operator alert.
func diagnose(err error) string {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "Request cancelled by caller."
	case status == http.StatusUnauthorized:
		return "Invalid API key."
	case status == http.StatusNotFound:
		return "Model not found."
	case status == http.StatusTooManyRequests:
		return "Rate limit or quota exceeded."
	case status == http.StatusBadRequest:
		return "Malformed request."
	case status >= 500:
		return "Provider internal error."
	}
	return "Unclassified error: " + err.Error()
}

type base struct {
	stt      ports.SpeechToText
	llm      Completer
	notifier error_notificator.Notificator
	log      *zap.Logger
	m        *metrics.Metrics
}

func newBase(stt ports.SpeechToText, llm Completer, notifier error_notificator.Notificator, log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{
		stt:      stt,
		llm:      llm,
		notifier: notifier,
		log:      log,
		m:        metrics.Get(),
	}
}

func (b *base) notify(ctx context.Context, source string, err error) {
	if b.notifier == nil || errors.Is(err, context.Canceled) {
		return
	}
	// alerts must not be cut short by the request that failed
	go b.notifier.Notify(context.WithoutCancel(ctx), source, err, diagnose(err))
}

func (b *base) speechToText(ctx context.Context, uri string) (string, error) {
	mime, data, err := datauri.Decode(uri)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := b.stt.SpeechToText(ctx, data, mime)
	b.m.ServiceCalls.WithLabelValues("stt", metrics.Result(err)).Inc()
	if err != nil {
		b.notify(ctx, "stt", err)
		return "", err
	}

	b.log.Debug("speech to text",
		zap.Duration("took", time.Since(start)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// ---------------- transcription ----------------

var cleanupPrompts = map[ports.DictationContext]string{
	ports.ContextTo: `You clean up a spoken email address.
Replace spoken "at" with "@" and spoken "dot" with ".", remove all spaces,
lowercase everything. Reply with the bare address only, no quotes, no
commentary. If several addresses are spoken, separate them with ", ".`,

	ports.ContextSubject: `You turn a dictated phrase into an email subject line.
Keep the speaker's wording, fix obvious recognition errors, drop filler
words. One line, no trailing period, no quotes. Reply with the subject only.`,

	ports.ContextBody: `You clean up a dictated email body.
Add punctuation and capitalization, fix obvious recognition errors, split
into paragraphs where the speaker changes topic. Do not add greetings,
signatures or content that was not spoken. Reply with the text only.`,
}

type TranscriptionService struct {
	base
}

func NewTranscriptionService(
	stt ports.SpeechToText,
	llm Completer,
	notifier error_notificator.Notificator,
	log *zap.Logger,
) *TranscriptionService {
	return &TranscriptionService{base: newBase(stt, llm, notifier, log)}
}

func (s *TranscriptionService) Transcribe(ctx context.Context, req ports.TranscriptionRequest) (string, error) {
	if req.Audio == "" && strings.TrimSpace(req.Transcript) == "" {
		return "", ports.ErrEmptyRequest
	}
	if req.Context == "" {
		req.Context = ports.ContextBody
	}
	if !req.Context.Valid() {
		return "", fmt.Errorf("%w: %q", ports.ErrInvalidContext, req.Context)
	}

	raw := strings.TrimSpace(req.Transcript)
	if req.Audio != "" {
		text, err := s.speechToText(ctx, req.Audio)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ports.ErrTranscriptionFailed, err)
		}
		raw = text
	}
	if raw == "" {
		// nothing intelligible, the caller re-prompts
		return "", nil
	}

	cleaned, err := s.llm.Complete(ctx, cleanupPrompts[req.Context], raw, false)
	s.m.ServiceCalls.WithLabelValues("cleanup", metrics.Result(err)).Inc()
	if err != nil {
		s.notify(ctx, "cleanup", err)
		return "", fmt.Errorf("%w: %w", ports.ErrTranscriptionFailed, err)
	}

	cleaned = strings.TrimSpace(strings.Trim(strings.TrimSpace(cleaned), `"`))
	if cleaned == "" {
		cleaned = raw
	}

	s.log.Info("transcribed",
		zap.String("context", string(req.Context)),
		zap.Int("raw_chars", len(raw)),
		zap.Int("chars", len(cleaned)),
	)
	return cleaned, nil
}

// ---------------- classification ----------------

var commandHints = map[string]string{
	ports.CmdNavigateInbox:    "open the inbox",
	ports.CmdNavigateSent:     "open sent mail",
	ports.CmdNavigateDrafts:   "open drafts",
	ports.CmdNavigateArchive:  "open the archive",
	ports.CmdNavigateTrash:    "open trash",
	ports.CmdNavigateCompose:  "start writing a new email",
	ports.CmdNavigateContacts: "open contacts",
	ports.CmdNavigateSettings: "open settings",
	ports.CmdSearchEmails:     `search emails; put the search words in "query"`,
	ports.CmdReadEmail:        `read an email aloud by its position; "emailId" is the 1-based position`,
	ports.CmdOpenEmail:        `open an email by its position; "emailId" is the 1-based position`,
	ports.CmdArchive:          `archive the current email, or the one at "emailId"`,
	ports.CmdDelete:           `delete the current email, or the one at "emailId"`,
	ports.CmdReply:            "reply to the current email",
	ports.CmdForward:          "forward the current email",
	ports.CmdReadAloud:        "read the current page or email aloud",
	ports.CmdStopReading:      "stop reading aloud",
	ports.CmdNextPage:         "go to the next page of the list",
	ports.CmdPreviousPage:     "go to the previous page of the list",
	ports.CmdFilter:           `filter the list by a category; put it in "category"`,
	ports.CmdAddContact:       `add a contact; put the spoken name in "name"`,
	ports.CmdEmailContact:     `write an email to a contact; put the name in "name"`,
	ports.CmdDeleteContact:    `delete a contact; put the name in "name"`,
	ports.CmdGoBack:           "go back to the previous screen",
	ports.CmdUnknown:          "anything else",
}

func classificationPrompt() string {
	var b strings.Builder
	b.WriteString("You map a spoken command for a voice-controlled email client to JSON.\n")
	b.WriteString("Reply with one JSON object: ")
	b.WriteString(`{"command": string, "emailId": number?, "name": string?, "query": string?, "category": string?}`)
	b.WriteString("\nUse the current path to resolve references like \"this email\" or \"the second one\".\n")
	b.WriteString("The command must be one of:\n")
	for _, c := range ports.Commands {
		fmt.Fprintf(&b, "- %s: %s\n", c, commandHints[c])
	}
	return b.String()
}

var classifySystem = classificationPrompt()

type ClassificationService struct {
	base
}

func NewClassificationService(
	stt ports.SpeechToText,
	llm Completer,
	notifier error_notificator.Notificator,
	log *zap.Logger,
) *ClassificationService {
	return &ClassificationService{base: newBase(stt, llm, notifier, log)}
}

func (s *ClassificationService) Classify(ctx context.Context, req ports.ClassificationRequest) (ports.Command, error) {
	if req.Audio == "" {
		return ports.Command{}, ports.ErrEmptyRequest
	}

	transcript, err := s.speechToText(ctx, req.Audio)
	if err != nil {
		return ports.Command{}, fmt.Errorf("%w: %w", ports.ErrClassificationFailed, err)
	}
	if transcript == "" {
		return ports.Command{Command: ports.CmdUnknown}, nil
	}

	return s.ClassifyText(ctx, transcript, req.Path)
}

// ClassifyText classifies an already transcribed utterance.
func (s *ClassificationService) ClassifyText(ctx context.Context, transcript, path string) (ports.Command, error) {
	user := fmt.Sprintf("Current path: %s\nUtterance: %s", path, transcript)

	reply, err := s.llm.Complete(ctx, classifySystem, user, true)
	s.m.ServiceCalls.WithLabelValues("classify", metrics.Result(err)).Inc()
	if err != nil {
		s.notify(ctx, "classify", err)
		return ports.Command{}, fmt.Errorf("%w: %w", ports.ErrClassificationFailed, err)
	}

	var cmd ports.Command
	if err := json.Unmarshal([]byte(reply), &cmd); err != nil {
		s.log.Warn("classifier returned invalid json", zap.String("reply", reply), zap.Error(err))
		return ports.Command{}, fmt.Errorf("%w: decode reply: %w", ports.ErrClassificationFailed, err)
	}

	if !ports.KnownCommand(cmd.Command) {
		s.log.Info("classifier returned unknown command", zap.String("command", cmd.Command))
		cmd = ports.Command{Command: ports.CmdUnknown}
	}
	cmd.Transcript = transcript

	s.log.Info("classified",
		zap.String("path", path),
		zap.String("command", cmd.Command),
	)
	return cmd, nil
}
