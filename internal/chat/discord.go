// ABOUTME: Discord adapter over discordgo: gateway lifecycle, sends and event conversion
// ABOUTME: Auto-reconnect is disabled so the connection supervisor owns reconnection
package chat

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/harper/marcusbot/internal/models"
)

// Intents requested from the gateway: guild and DM messages with content,
// plus members for the welcome DM and the ready report.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildMessages |
	discordgo.IntentDirectMessages |
	discordgo.IntentMessageContent

// Handlers receive converted platform events. Each call runs on its own goroutine.
type Handlers struct {
	OnMessage    func(ctx context.Context, msg models.Message)
	OnMemberJoin func(ctx context.Context, member models.Member)
}

// Discord is the chat-platform client
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger

	mu     sync.Mutex
	closed chan error
}

// NewDiscord creates a client for a bot token. timeout bounds each REST request.
func NewDiscord(token string, timeout time.Duration, logger *slog.Logger) (*Discord, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.ShouldReconnectOnError = false
	s.ShouldRetryOnRateLimit = false
	// Handlers run inline; ours hand off to goroutines, so a Close() emits
	// its disconnect event before returning.
	s.SyncEvents = true
	if timeout > 0 {
		s.Client = &http.Client{Timeout: timeout}
	}

	d := &Discord{session: s, logger: logger}
	s.AddHandler(d.onDisconnect)
	s.AddHandler(d.onResumed)
	s.AddHandler(d.onRateLimit)
	return d, nil
}

// Bind registers message and member handlers; ctx is passed to every call.
func (d *Discord) Bind(ctx context.Context, h Handlers) {
	if h.OnMessage != nil {
		d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			if m.Message == nil {
				return
			}
			msg := toMessage(d.BotUserID(), m.Message)
			go h.OnMessage(ctx, msg)
		})
	}
	if h.OnMemberJoin != nil {
		d.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
			if m.Member == nil || m.User == nil {
				return
			}
			go h.OnMemberJoin(ctx, toMember(m.Member))
		})
	}
}

// Open performs the gateway handshake. It returns once the session is
// ready or the handshake failed.
func (d *Discord) Open(ctx context.Context) error {
	closed := make(chan error, 1)
	d.mu.Lock()
	d.closed = closed
	d.mu.Unlock()

	errc := make(chan error, 1)
	go func() { errc <- d.session.Open() }()

	select {
	case err := <-errc:
		if err != nil {
			d.detach()
			return Classify(fmt.Errorf("opening gateway: %w", err))
		}
		return nil
	case <-ctx.Done():
		// Wait for the handshake goroutine so Close does not race it
		<-errc
		_ = d.Close()
		return ctx.Err()
	}
}

// Close tears down the gateway connection without signalling Closed.
func (d *Discord) Close() error {
	d.detach()
	return d.session.Close()
}

// Closed delivers ErrConnectionClosed when an open session drops.
func (d *Discord) Closed() <-chan error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Discord) detach() {
	d.mu.Lock()
	d.closed = nil
	d.mu.Unlock()
}

func (d *Discord) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	// The channel stays attached until Close so a late Closed() call still
	// sees the buffered signal.
	d.mu.Lock()
	ch := d.closed
	d.mu.Unlock()

	if ch == nil {
		return
	}
	d.logger.Warn("discord gateway disconnected")
	select {
	case ch <- ErrConnectionClosed:
	default:
	}
}

func (d *Discord) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	d.logger.Info("discord session resumed", "guilds", len(d.Guilds()))
}

func (d *Discord) onRateLimit(_ *discordgo.Session, rl *discordgo.RateLimit) {
	if rl.TooManyRequests != nil {
		d.logger.Warn("discord rate limit", "url", rl.URL, "retry_after", rl.RetryAfter)
	}
}

// SendMessage posts content to a channel
func (d *Discord) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return Classify(err)
}

// SendFile uploads data as a named file to a channel
func (d *Discord) SendFile(ctx context.Context, channelID, name string, data []byte) error {
	_, err := d.session.ChannelFileSend(channelID, name, bytes.NewReader(data), discordgo.WithContext(ctx))
	return Classify(err)
}

// DirectMessage opens (or reuses) a DM channel with userID and posts content
func (d *Discord) DirectMessage(ctx context.Context, userID, content string) error {
	ch, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return Classify(fmt.Errorf("creating DM channel: %w", err))
	}
	return d.SendMessage(ctx, ch.ID, content)
}

// BotUserID returns the bot's user ID once the session is ready
func (d *Discord) BotUserID() string {
	d.session.State.RLock()
	defer d.session.State.RUnlock()
	if d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

// BotUserName returns the bot's username once the session is ready
func (d *Discord) BotUserName() string {
	d.session.State.RLock()
	defer d.session.State.RUnlock()
	if d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.Username
}

// Guilds snapshots the guilds (and cached members) the bot belongs to
func (d *Discord) Guilds() []models.Guild {
	d.session.State.RLock()
	defer d.session.State.RUnlock()

	guilds := make([]models.Guild, 0, len(d.session.State.Guilds))
	for _, g := range d.session.State.Guilds {
		guild := models.Guild{ID: g.ID, Name: g.Name}
		for _, m := range g.Members {
			if m.User != nil {
				guild.Members = append(guild.Members, toMember(m))
			}
		}
		guilds = append(guilds, guild)
	}
	return guilds
}

func toMessage(botID string, m *discordgo.Message) models.Message {
	msg := models.Message{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		GuildID:         m.GuildID,
		Content:         m.Content,
		MentionEveryone: m.MentionEveryone,
		IsReply:         m.MessageReference != nil,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.Author = m.Author.Username
		msg.FromSelf = botID != "" && m.Author.ID == botID
	}
	for _, u := range m.Mentions {
		if u != nil && botID != "" && u.ID == botID {
			msg.MentionsBot = true
		}
	}
	if msg.MentionsBot {
		msg.Content = strings.TrimSpace(strings.NewReplacer(
			"<@"+botID+">", "",
			"<@!"+botID+">", "",
		).Replace(msg.Content))
	}
	for _, a := range m.Attachments {
		if a != nil && a.URL != "" {
			msg.AttachmentURLs = append(msg.AttachmentURLs, a.URL)
		}
	}
	return msg
}

func toMember(m *discordgo.Member) models.Member {
	name := m.User.Username
	if m.User.GlobalName != "" {
		name = m.User.GlobalName
	}
	return models.Member{UserID: m.User.ID, Name: name}
}
