// ABOUTME: Platform-neutral chat message, member and guild types
// ABOUTME: Chat adapters convert platform events into these before handling
package models

// Message is an incoming chat message
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	AuthorID  string
	Author    string
	Content   string

	// FromSelf is set when the bot authored the message.
	FromSelf bool
	// MentionsBot reports whether the bot user is mentioned.
	MentionsBot bool
	// MentionEveryone reports an @everyone / @here mention.
	MentionEveryone bool
	// IsReply is set when the message references another message.
	IsReply bool

	AttachmentURLs []string
}

// Member is a guild member
type Member struct {
	UserID string
	Name   string
}

// Guild is a snapshot of a guild the bot belongs to
type Guild struct {
	ID      string
	Name    string
	Members []Member
}
