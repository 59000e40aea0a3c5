package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/display"
	"github.com/jmylchreest/poptrans/internal/model"
	"github.com/jmylchreest/poptrans/internal/translate"
)

// TextTranslator is the translation service client.
type TextTranslator interface {
	Translate(ctx context.Context, req translate.Request) (string, error)
}

// HistoryRecorder stores finished translations.
type HistoryRecorder interface {
	Append(e *model.Entry) error
	Prune(max int) (int, error)
}

// Translator adapts the translate client to the popup controller using the
// current API key and language pair, and records the results the controller
// accepts.
type Translator struct {
	mu         sync.RWMutex
	client     TextTranslator
	history    HistoryRecorder
	apiKey     string
	sourceLang string
	targetLang string
	record     bool
	maxEntries int
	logger     *slog.Logger
}

var _ display.Translator = (*Translator)(nil)

// NewTranslator creates a translator configured from cfg. history may be nil.
func NewTranslator(client TextTranslator, history HistoryRecorder, cfg *config.Config, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Translator{
		client:  client,
		history: history,
		logger:  logger,
	}
	t.Configure(cfg)
	return t
}

// Configure applies the API and history settings from cfg.
func (t *Translator) Configure(cfg *config.Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiKey = cfg.APIKey
	t.sourceLang = cfg.SourceLang
	t.targetLang = cfg.TargetLang
	t.record = cfg.History.Enabled
	t.maxEntries = cfg.History.MaxEntries
}

// Translate implements display.Translator. Failures are returned as a
// failed result so the popup can show them when errors are enabled.
func (t *Translator) Translate(ctx context.Context, text string) (model.Result, error) {
	t.mu.RLock()
	req := translate.Request{
		APIKey:     t.apiKey,
		Text:       text,
		SourceLang: t.sourceLang,
		TargetLang: t.targetLang,
	}
	t.mu.RUnlock()

	var res model.Result
	out, err := t.client.Translate(ctx, req)
	switch {
	case err != nil:
		res = model.Failed(err)
	case strings.TrimSpace(out) == "":
		res = model.Result{Error: "translation service returned no text"}
	default:
		res = model.Result{Success: true, Text: out}
	}
	return res, nil
}

// Record appends a finished translation to the history and prunes it to the
// configured size. It is wired to the controller's result hook so that
// superseded and dismissed requests are never recorded.
func (t *Translator) Record(text string, res model.Result) {
	t.mu.RLock()
	record, maxEntries := t.record, t.maxEntries
	src, tgt := t.sourceLang, t.targetLang
	t.mu.RUnlock()
	if !record || t.history == nil {
		return
	}

	entry, err := model.NewEntry(text, res, src, tgt)
	if err != nil {
		t.logger.Warn("failed to create history entry", "error", err)
		return
	}
	if err := t.history.Append(entry); err != nil {
		t.logger.Warn("failed to record translation", "error", err)
		return
	}
	if maxEntries > 0 {
		if _, err := t.history.Prune(maxEntries); err != nil {
			t.logger.Warn("failed to prune history", "error", err)
		}
	}
}
