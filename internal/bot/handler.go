// ABOUTME: Message, member-join and ready handling for the chat bot
// ABOUTME: Every outbound call goes through the backoff executor or the send guard
package bot

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harper/marcusbot/internal/config"
	"github.com/harper/marcusbot/internal/llm"
	"github.com/harper/marcusbot/internal/models"
	"github.com/harper/marcusbot/internal/retry"
	"github.com/harper/marcusbot/internal/text"
	"github.com/harper/marcusbot/internal/util"
)

const (
	// MaxMessageLength is the platform's per-message character limit
	MaxMessageLength = 2000

	GeneratedImageName = "generated-image.png"
	GIFName            = "tenor.gif"
)

// Platform is the outbound side of the chat platform
type Platform interface {
	SendMessage(ctx context.Context, channelID, content string) error
	SendFile(ctx context.Context, channelID, name string, data []byte) error
	DirectMessage(ctx context.Context, userID, content string) error
	Guilds() []models.Guild
}

// Chatter continues the shared conversation
type Chatter interface {
	Send(ctx context.Context, text string) (*models.Response, error)
}

// Generator produces stateless text and image content
type Generator interface {
	GenerateContent(ctx context.Context, prompt string, image []byte, cfg llm.GenerateConfig) (*models.Response, error)
}

// GIFSource searches for and downloads GIFs
type GIFSource interface {
	Search(ctx context.Context, term string) ([]string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Downloader fetches message attachments
type Downloader interface {
	Bytes(ctx context.Context, url string) ([]byte, error)
}

// Policies names the retry policy of each outbound operation
type Policies struct {
	Download  retry.Policy
	Generate  retry.Policy
	Chat      retry.Policy
	GIFSearch retry.Policy
}

// DefaultPolicies returns the per-operation policies. retryPermanent is
// applied to all of them.
func DefaultPolicies(retryPermanent bool) Policies {
	p := Policies{
		Download: retry.Policy{
			Name:         "Image download",
			MaxRetries:   3,
			InitialDelay: 5 * time.Second,
			MaxDelay:     30 * time.Second,
		},
		Generate:  retry.DefaultPolicy("Gemini image generation"),
		Chat:      retry.DefaultPolicy("Gemini chat"),
		GIFSearch: retry.DefaultPolicy("Tenor API"),
	}
	p.Download.RetryPermanent = retryPermanent
	p.Generate.RetryPermanent = retryPermanent
	p.Chat.RetryPermanent = retryPermanent
	p.GIFSearch.RetryPermanent = retryPermanent
	return p
}

// Deps wires a Handler. Chat, Generator, GIFs, Downloader and Console are
// optional; a nil value disables the feature.
type Deps struct {
	Platform   Platform
	Chat       Chatter
	Generator  Generator
	GIFs       GIFSource
	Downloader Downloader
	Console    *Console

	Persona          *config.Persona
	GuildName        string
	ConsoleChannelID string

	Executor *retry.Executor
	Guard    *retry.SendGuard
	Policies Policies
	Logger   *slog.Logger

	// Roll returns a value in [0,1) and Pick an index in [0,n); both are
	// replaced in tests.
	Roll func() float64
	Pick func(n int) int
}

// Handler reacts to chat-platform events
type Handler struct {
	platform   Platform
	chat       Chatter
	generator  Generator
	gifs       GIFSource
	downloader Downloader
	console    *Console

	persona          *config.Persona
	corrector        *text.Corrector
	guildName        string
	consoleChannelID string

	exec     *retry.Executor
	guard    *retry.SendGuard
	policies Policies
	logger   *slog.Logger

	roll func() float64
	pick func(n int) int
}

// New creates a Handler, filling unset dependencies with defaults
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Persona == nil {
		d.Persona = config.DefaultPersona()
	}
	if d.Executor == nil {
		d.Executor = retry.NewExecutor(d.Logger)
	}
	if d.Guard == nil {
		d.Guard = retry.NewSendGuard(d.Logger)
	}
	if d.Policies == (Policies{}) {
		d.Policies = DefaultPolicies(true)
	}
	if d.Roll == nil {
		d.Roll = rand.Float64
	}
	if d.Pick == nil {
		d.Pick = rand.IntN
	}

	return &Handler{
		platform:         d.Platform,
		chat:             d.Chat,
		generator:        d.Generator,
		gifs:             d.GIFs,
		downloader:       d.Downloader,
		console:          d.Console,
		persona:          d.Persona,
		corrector:        text.NewCorrector(d.Persona.ImageKeywords),
		guildName:        d.GuildName,
		consoleChannelID: d.ConsoleChannelID,
		exec:             d.Executor,
		guard:            d.Guard,
		policies:         d.Policies,
		logger:           d.Logger,
		roll:             d.Roll,
		pick:             d.Pick,
	}
}

// HandleMessage runs every reaction that applies to msg
func (h *Handler) HandleMessage(ctx context.Context, msg models.Message) {
	if msg.FromSelf {
		return
	}
	p := h.persona
	log := h.logger.With(
		"request_id", uuid.NewString(),
		"channel_id", msg.ChannelID,
		"author", msg.Author,
	)

	if h.roll() < p.BaseballChance {
		_ = h.send(ctx, log, msg.ChannelID, p.BaseballLine)
	}

	if h.roll() < p.GIFChance {
		h.sendGIF(ctx, log, msg)
	}

	if msg.Content == p.ConsoleTrigger {
		h.relayConsole(ctx, log, msg.ChannelID)
	}

	if quotes := p.Quotes[msg.Content]; len(quotes) > 0 {
		_ = h.send(ctx, log, msg.ChannelID, quotes[h.pick(len(quotes))])
	}

	if h.wantsAI(msg) {
		h.respond(ctx, log, msg)
	}
}

// HandleMemberJoin welcomes a new member by direct message
func (h *Handler) HandleMemberJoin(ctx context.Context, m models.Member) {
	log := h.logger.With("user_id", m.UserID, "member", m.Name)
	_, err := retry.Send(ctx, h.guard, "welcome message", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.platform.DirectMessage(ctx, m.UserID, h.persona.WelcomeFor(m.Name))
	})
	if err != nil {
		log.Error("failed to send welcome message", "error", err)
		return
	}
	log.Info("welcomed new member")
}

// HandleReady reports the configured guild and its members
func (h *Handler) HandleReady(_ context.Context) {
	guilds := h.platform.Guilds()
	for _, g := range guilds {
		if g.Name != h.guildName {
			continue
		}
		names := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			names = append(names, m.Name)
		}
		h.logger.Info("connected to guild",
			"guild", g.Name,
			"guild_id", g.ID,
			"members", strings.Join(names, ", "),
		)
		return
	}

	available := make([]string, 0, len(guilds))
	for _, g := range guilds {
		available = append(available, g.Name)
	}
	h.logger.Warn("configured guild not found",
		"guild", h.guildName,
		"available", strings.Join(available, ", "),
	)
}

func (h *Handler) respond(ctx context.Context, log *slog.Logger, msg models.Message) {
	if h.chat == nil && h.generator == nil {
		log.Debug("AI responses disabled, ignoring trigger")
		return
	}
	p := h.persona
	tokens := h.corrector.Correct(msg.Content)
	image := h.downloadAttachment(ctx, log, msg)

	var (
		resp *models.Response
		err  error
	)
	if text.ContainsAny(tokens, p.ImageKeywords) && h.generator != nil {
		cfg := llm.GenerateConfig{
			Modalities:  []llm.Modality{llm.ModalityText, llm.ModalityImage},
			Temperature: p.Temperature,
		}
		resp, err = retry.Do(ctx, h.exec, h.policies.Generate, func(ctx context.Context) (*models.Response, error) {
			return h.generator.GenerateContent(ctx, p.ImageInstruction+msg.Content, image, cfg)
		})
		if err != nil {
			_ = h.send(ctx, log, msg.ChannelID, p.ImageApology)
			return
		}
	} else {
		if h.chat == nil {
			log.Debug("chat disabled, ignoring trigger")
			return
		}
		resp, err = retry.Do(ctx, h.exec, h.policies.Chat, func(ctx context.Context) (*models.Response, error) {
			return h.chat.Send(ctx, p.ChatInstruction+msg.Content)
		})
		if err != nil {
			_ = h.send(ctx, log, msg.ChannelID, p.ChatApology)
			return
		}
	}

	out := util.Truncate(ParseOutput(p.Prefixes, msg.Content, resp, p.MissingText), MaxMessageLength)
	if strings.TrimSpace(out) != "" {
		if err := h.send(ctx, log, msg.ChannelID, out); err != nil {
			log.Warn("response not delivered; try again in 20-40 minutes")
		}
	}

	for _, part := range resp.Parts {
		switch {
		case part.Image != nil:
			_ = h.sendFile(ctx, log, msg.ChannelID, GeneratedImageName, part.Image.Data)
		case part.Text != "":
			log.Info("model response", "text", part.Text)
		}
	}
}

func (h *Handler) downloadAttachment(ctx context.Context, log *slog.Logger, msg models.Message) []byte {
	if len(msg.AttachmentURLs) == 0 || h.downloader == nil {
		return nil
	}
	url := msg.AttachmentURLs[0]
	data, err := retry.Do(ctx, h.exec, h.policies.Download, func(ctx context.Context) ([]byte, error) {
		return h.downloader.Bytes(ctx, url)
	})
	if err != nil {
		log.Warn("attachment download failed, continuing without image", "url", url, "error", err)
		return nil
	}
	return data
}

func (h *Handler) sendGIF(ctx context.Context, log *slog.Logger, msg models.Message) {
	if h.gifs == nil {
		return
	}
	nouns, err := text.Nouns(msg.Content)
	if err != nil {
		log.Warn("could not tag message for GIF search", "error", err)
		return
	}
	if len(nouns) == 0 {
		log.Debug("no nouns to search GIFs for")
		return
	}
	term := nouns[h.pick(len(nouns))]

	urls, err := retry.Do(ctx, h.exec, h.policies.GIFSearch, func(ctx context.Context) ([]string, error) {
		return h.gifs.Search(ctx, term)
	})
	if err != nil {
		log.Warn("failed to fetch GIFs from Tenor API", "term", term, "error", err)
		return
	}
	if len(urls) == 0 {
		log.Info("no GIFs found from Tenor API", "term", term)
		return
	}

	data, err := h.gifs.Download(ctx, urls[h.pick(len(urls))])
	if err != nil {
		log.Warn("GIF download failed", "term", term, "error", err)
		_ = h.send(ctx, log, msg.ChannelID, h.persona.DownloadFailed)
		return
	}
	_ = h.sendFile(ctx, log, msg.ChannelID, GIFName, data)
}

func (h *Handler) relayConsole(ctx context.Context, log *slog.Logger, channelID string) {
	if h.console == nil {
		log.Debug("console relay disabled")
		return
	}
	target := h.consoleChannelID
	if target == "" {
		target = channelID
	}
	log.Info("console relay started", "target_channel", target)
	err := h.console.Relay(ctx, h.persona.ConsoleExit, func(ctx context.Context, line string) error {
		return h.send(ctx, log, target, line)
	})
	if err != nil {
		log.Warn("console relay ended", "error", err)
		return
	}
	log.Info("console relay finished")
}

// wantsAI reports whether msg should be answered by the model: a prefix
// appears anywhere, the bot is mentioned, or it replies to a message
// without pinging everyone.
func (h *Handler) wantsAI(msg models.Message) bool {
	for _, prefix := range h.persona.Prefixes {
		if strings.Contains(msg.Content, prefix) {
			return true
		}
	}
	return msg.MentionsBot || (msg.IsReply && !msg.MentionEveryone)
}

func (h *Handler) send(ctx context.Context, log *slog.Logger, channelID, content string) error {
	_, err := retry.Send(ctx, h.guard, "send message", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.platform.SendMessage(ctx, channelID, content)
	})
	if err != nil {
		log.Error("failed to send message", "error", err)
	}
	return err
}

func (h *Handler) sendFile(ctx context.Context, log *slog.Logger, channelID, name string, data []byte) error {
	_, err := retry.Send(ctx, h.guard, "send file", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.platform.SendFile(ctx, channelID, name, data)
	})
	if err != nil {
		log.Error("failed to send file", "name", name, "error", err)
	}
	return err
}
