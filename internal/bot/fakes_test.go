// ABOUTME: Fakes for bot handler tests
// ABOUTME: Records platform sends and scripts model, GIF and download results
package bot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/harper/marcusbot/internal/llm"
	"github.com/harper/marcusbot/internal/models"
	"github.com/harper/marcusbot/internal/retry"
)

type sent struct {
	ChannelID string
	Content   string
	File      string
	Data      []byte
}

type fakePlatform struct {
	mu      sync.Mutex
	sent    []sent
	dms     map[string][]string
	guilds  []models.Guild
	sendErr []error
}

func (f *fakePlatform) nextErr() error {
	if len(f.sendErr) == 0 {
		return nil
	}
	err := f.sendErr[0]
	f.sendErr = f.sendErr[1:]
	return err
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr(); err != nil {
		return err
	}
	f.sent = append(f.sent, sent{ChannelID: channelID, Content: content})
	return nil
}

func (f *fakePlatform) SendFile(_ context.Context, channelID, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr(); err != nil {
		return err
	}
	f.sent = append(f.sent, sent{ChannelID: channelID, File: name, Data: data})
	return nil
}

func (f *fakePlatform) DirectMessage(_ context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr(); err != nil {
		return err
	}
	if f.dms == nil {
		f.dms = make(map[string][]string)
	}
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

func (f *fakePlatform) Guilds() []models.Guild { return f.guilds }

func (f *fakePlatform) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type fakeChat struct {
	prompts []string
	resp    *models.Response
	err     error
}

func (f *fakeChat) Send(_ context.Context, text string) (*models.Response, error) {
	f.prompts = append(f.prompts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeGenerator struct {
	prompts []string
	images  [][]byte
	cfgs    []llm.GenerateConfig
	resp    *models.Response
	err     error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string, image []byte, cfg llm.GenerateConfig) (*models.Response, error) {
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, image)
	f.cfgs = append(f.cfgs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeGIFs struct {
	terms       []string
	urls        []string
	searchErr   error
	downloaded  []string
	data        []byte
	downloadErr error
}

func (f *fakeGIFs) Search(_ context.Context, term string) ([]string, error) {
	f.terms = append(f.terms, term)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.urls, nil
}

func (f *fakeGIFs) Download(_ context.Context, url string) ([]byte, error) {
	f.downloaded = append(f.downloaded, url)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.data, nil
}

type fakeDownloader struct {
	calls int
	data  []byte
	err   error
}

func (f *fakeDownloader) Bytes(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type sleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleeps) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type harness struct {
	platform *fakePlatform
	waits    *sleeps
	logs     *bytes.Buffer
	deps     Deps
}

// newHarness returns deps whose random rolls never fire and whose picks
// always choose the first element.
func newHarness() *harness {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	waits := &sleeps{}

	exec := retry.NewExecutor(logger)
	exec.Sleep = waits.sleep
	guard := retry.NewSendGuard(logger)
	guard.Sleep = waits.sleep

	platform := &fakePlatform{}
	return &harness{
		platform: platform,
		waits:    waits,
		logs:     logs,
		deps: Deps{
			Platform: platform,
			Executor: exec,
			Guard:    guard,
			Logger:   logger,
			Roll:     func() float64 { return 1 },
			Pick:     func(int) int { return 0 },
		},
	}
}

var errUnavailable = retry.FromStatus(503, 0, errors.New("HTTP 503"))
