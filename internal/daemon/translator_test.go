package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/display"
	"github.com/jmylchreest/poptrans/internal/model"
	"github.com/jmylchreest/poptrans/internal/translate"
)

type fakeClient struct {
	req  translate.Request
	text string
	err  error
}

func (c *fakeClient) Translate(_ context.Context, req translate.Request) (string, error) {
	c.req = req
	return c.text, c.err
}

type fakeHistory struct {
	entries []*model.Entry
	pruned  []int
	err     error
}

func (h *fakeHistory) Append(e *model.Entry) error {
	if h.err != nil {
		return h.err
	}
	h.entries = append(h.entries, e)
	return nil
}

func (h *fakeHistory) Prune(max int) (int, error) {
	h.pruned = append(h.pruned, max)
	return 0, nil
}

func translatorConfig() *config.Config {
	cfg := config.Default()
	cfg.APIKey = "key"
	cfg.TargetLang = "DE"
	cfg.History.MaxEntries = 10
	return cfg
}

func TestTranslator_Success(t *testing.T) {
	client := &fakeClient{text: "Hallo"}
	hist := &fakeHistory{}
	tr := NewTranslator(client, hist, translatorConfig(), nil)

	res, err := tr.Translate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, model.Result{Success: true, Text: "Hallo"}, res)

	assert.Equal(t, translate.Request{APIKey: "key", Text: "hello", SourceLang: "EN", TargetLang: "DE"}, client.req)
	assert.Empty(t, hist.entries, "recording waits for the controller to accept the result")

	tr.Record("hello", res)
	require.Len(t, hist.entries, 1)
	entry := hist.entries[0]
	assert.Equal(t, "hello", entry.SourceText)
	assert.Equal(t, "Hallo", entry.ResultText)
	assert.Equal(t, "DE", entry.TargetLang)
	assert.True(t, entry.Success)
	assert.Equal(t, []int{10}, hist.pruned)
}

func TestTranslator_Failures(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeClient
		wantErr string
	}{
		{"service error", &fakeClient{err: &translate.APIError{Code: 401}}, "translation service returned code 401"},
		{"no key", &fakeClient{err: translate.ErrNoAPIKey}, "API key is not configured"},
		{"blank text", &fakeClient{text: "  "}, "translation service returned no text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := &fakeHistory{}
			tr := NewTranslator(tt.client, hist, translatorConfig(), nil)

			res, err := tr.Translate(context.Background(), "hello")
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantErr, res.Error)

			tr.Record("hello", res)
			require.Len(t, hist.entries, 1)
			assert.False(t, hist.entries[0].Success)
			assert.Equal(t, tt.wantErr, hist.entries[0].Error)
		})
	}
}

func TestTranslator_HistoryDisabled(t *testing.T) {
	cfg := translatorConfig()
	cfg.History.Enabled = false
	hist := &fakeHistory{}
	tr := NewTranslator(&fakeClient{text: "Hallo"}, hist, cfg, nil)

	tr.Record("hello", model.Result{Success: true, Text: "Hallo"})
	assert.Empty(t, hist.entries)

	// No store at all
	tr = NewTranslator(&fakeClient{text: "Hallo"}, nil, translatorConfig(), nil)
	assert.NotPanics(t, func() { tr.Record("hello", model.Result{Success: true, Text: "Hallo"}) })
}

func TestTranslator_HistoryErrorSkipsPrune(t *testing.T) {
	hist := &fakeHistory{err: errors.New("locked")}
	tr := NewTranslator(&fakeClient{text: "Hallo"}, hist, translatorConfig(), nil)

	tr.Record("hello", model.Result{Success: true, Text: "Hallo"})
	assert.Empty(t, hist.entries)
	assert.Empty(t, hist.pruned)
}

// gatedClient blocks each call until the test replies to it.
type gatedClient struct {
	calls chan gatedCall
}

type gatedCall struct {
	text  string
	reply chan string
}

func (g *gatedClient) Translate(ctx context.Context, req translate.Request) (string, error) {
	c := gatedCall{text: req.Text, reply: make(chan string, 1)}
	g.calls <- c
	select {
	case out := <-c.reply:
		return out, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type nullSurface struct{}

func (nullSurface) Render(model.ViewState, model.Settings, bool) {}
func (nullSurface) SetCopied(bool)                               {}
func (nullSurface) Resize(int, int)                              {}
func (nullSurface) Move(int, int)                                {}
func (nullSurface) Show()                                        {}
func (nullSurface) Focus()                                       {}
func (nullSurface) Hide()                                        {}

func TestTranslator_RecordsOnlyAcceptedResults(t *testing.T) {
	client := &gatedClient{calls: make(chan gatedCall, 4)}
	hist := &fakeHistory{}
	tr := NewTranslator(client, hist, translatorConfig(), nil)

	// Posted functions run inline, one at a time.
	var mu sync.Mutex
	posted := 0
	dispatcher := display.DispatchFunc(func(f func()) {
		mu.Lock()
		defer mu.Unlock()
		posted++
		f()
	})
	handled := func() int {
		mu.Lock()
		defer mu.Unlock()
		return posted
	}
	recorded := func() []*model.Entry {
		mu.Lock()
		defer mu.Unlock()
		return append([]*model.Entry(nil), hist.entries...)
	}
	next := func(text string) gatedCall {
		select {
		case c := <-client.calls:
			require.Equal(t, text, c.text)
			return c
		case <-time.After(5 * time.Second):
			t.Fatalf("no translation started for %q", text)
			return gatedCall{}
		}
	}

	ctrl, err := display.NewController(display.Options{
		Translator: tr,
		Surface:    nullSurface{},
		Dispatcher: dispatcher,
		Settings:   model.DefaultSettings(),
		OnResult:   tr.Record,
	})
	require.NoError(t, err)
	t.Cleanup(ctrl.Stop)

	// Two triggers resolving out of order record only the newer one
	ctrl.Trigger("one", model.AnchorAt(100, 100))
	first := next("one")
	ctrl.Trigger("two", model.AnchorAt(200, 200))
	second := next("two")

	second.reply <- "zwei"
	require.Eventually(t, func() bool { return handled() == 3 }, 5*time.Second, time.Millisecond)
	first.reply <- "eins"
	require.Eventually(t, func() bool { return handled() == 4 }, 5*time.Second, time.Millisecond)

	entries := recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, "two", entries[0].SourceText)
	assert.Equal(t, "zwei", entries[0].ResultText)

	// A request dismissed with Escape is not recorded either
	ctrl.Trigger("three", model.AnchorAt(300, 300))
	third := next("three")
	ctrl.Escape()
	third.reply <- "drei"
	require.Eventually(t, func() bool { return handled() == 7 }, 5*time.Second, time.Millisecond)
	assert.Len(t, recorded(), 1)
}

func TestTranslator_Configure(t *testing.T) {
	client := &fakeClient{text: "Bonjour"}
	tr := NewTranslator(client, nil, translatorConfig(), nil)

	cfg := translatorConfig()
	cfg.APIKey = "new-key"
	cfg.TargetLang = "FR"
	tr.Configure(cfg)

	_, err := tr.Translate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "new-key", client.req.APIKey)
	assert.Equal(t, "FR", client.req.TargetLang)
}
