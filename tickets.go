package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklog/ulid/v2"
)

// --- Ticket Categories ---

// TicketCategory is the closed set of ticket types users can open.
type TicketCategory string

const (
	CategoryCharacterConcept    TicketCategory = "character_concept"
	CategoryCharacterCreation   TicketCategory = "character_creation"
	CategoryCharacterSubmission TicketCategory = "character_submission"
)

var categoryLabels = map[TicketCategory]string{
	CategoryCharacterConcept:    "Character Concept",
	CategoryCharacterCreation:   "Character Creation",
	CategoryCharacterSubmission: "Character Submission",
}

// Label returns the human-readable category name. Unrecognized values display
// verbatim as a fallback.
func (c TicketCategory) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// categoryOption describes one entry of the ticket type select menu.
type categoryOption struct {
	Category    TicketCategory
	Description string
	Emoji       string
}

// categoryOptions is the fixed menu presented by /ticket, in display order.
var categoryOptions = []categoryOption{
	{CategoryCharacterConcept, "Discuss your character concept idea", "💡"},
	{CategoryCharacterCreation, "Get help creating your character", "✨"},
	{CategoryCharacterSubmission, "Submit your completed character", "📋"},
}

// --- Platform Client ---

// platformClient is the slice of the chat platform the ticket lifecycle needs.
// Implemented by discordPlatform over the live gateway session and by a fake
// in tests.
type platformClient interface {
	// SupportRole fetches the configured support role.
	SupportRole(guildID, roleID string) (*discordgo.Role, error)
	// EnsureCategory returns the channel category to nest ticket channels
	// under, creating a "Tickets" category when the configured one is absent.
	EnsureCategory(guildID, categoryID string) (string, error)
	CreateTextChannel(guildID, name, parentID string, overwrites []*discordgo.PermissionOverwrite) (string, error)
	CreateVoiceChannel(guildID, name, parentID string, overwrites []*discordgo.PermissionOverwrite) (string, error)
	// DeleteChannel deletes a channel; a channel that is already gone is not
	// an error.
	DeleteChannel(channelID string) error
	SendEmbed(channelID, content string, embed *discordgo.MessageEmbed) error
}

// --- Errors ---

var (
	errTicketExists     = errors.New("user already has an active ticket")
	errNotTicketChannel = errors.New("not a ticket channel")
	errNotPermitted     = errors.New("not permitted to close this ticket")
	errAlreadyClosing   = errors.New("ticket is already being closed")
)

// --- Ticket Manager ---

// TicketManager drives the ticket lifecycle: provisioning the private channel
// pair on creation and the delayed teardown on closure. It is the only owner
// of the registry.
type TicketManager struct {
	cfg      *Config
	platform platformClient
	registry *TicketRegistry

	mu       sync.Mutex
	creating map[string]bool        // owners with a creation flow in flight
	closing  map[string]*time.Timer // owners with a deletion pending, keyed for future cancel

	closeDelay time.Duration
	botUserID  string

	// afterFunc schedules the delayed deletion; tests swap it for a captured
	// fake so the 5-second delay runs on a simulated clock.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func newTicketManager(cfg *Config, platform platformClient, registry *TicketRegistry) *TicketManager {
	return &TicketManager{
		cfg:        cfg,
		platform:   platform,
		registry:   registry,
		creating:   make(map[string]bool),
		closing:    make(map[string]*time.Timer),
		closeDelay: cfg.closeDelayOrDefault(),
		afterFunc:  time.AfterFunc,
	}
}

// setBotUser records the bot's own user ID once the gateway session is ready.
// The bot principal appears in every channel's permission overwrites.
func (m *TicketManager) setBotUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.botUserID = userID
}

func (m *TicketManager) botUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.botUserID
}

// ActiveTickets reports how many tickets are currently open.
func (m *TicketManager) ActiveTickets() int {
	return m.registry.Len()
}

// --- Creation Flow ---

// CreateTicket provisions a private text+voice channel pair for the user and
// records the ticket. Returns errTicketExists without touching the platform
// when the user already has an active ticket or a creation in flight; the
// in-flight set keeps the guard and the insert atomic per user even though
// the flow suspends on platform calls in between.
//
// Channels already created when a later step fails are not rolled back; the
// ticket ID in the error log is the operator's handle for manual cleanup.
func (m *TicketManager) CreateTicket(userID, username, userTag string, category TicketCategory) (TicketRecord, error) {
	m.mu.Lock()
	if m.registry.Has(userID) || m.creating[userID] {
		m.mu.Unlock()
		return TicketRecord{}, errTicketExists
	}
	m.creating[userID] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.creating, userID)
		m.mu.Unlock()
	}()

	ticketID := ulid.Make().String()

	role, err := m.platform.SupportRole(m.cfg.GuildID, m.cfg.SupportRoleID)
	if err != nil {
		metricTicketFailures.WithLabelValues("support_role").Inc()
		return TicketRecord{}, fmt.Errorf("resolve support role: %w", err)
	}

	parentID, err := m.platform.EnsureCategory(m.cfg.GuildID, m.cfg.TicketCategoryID)
	if err != nil {
		metricTicketFailures.WithLabelValues("category").Inc()
		return TicketRecord{}, fmt.Errorf("ensure ticket category: %w", err)
	}

	textID, err := m.platform.CreateTextChannel(m.cfg.GuildID, ticketChannelName(username), parentID,
		textChannelOverwrites(m.cfg.GuildID, m.botUser(), userID, role.ID))
	if err != nil {
		metricTicketFailures.WithLabelValues("text_channel").Inc()
		return TicketRecord{}, fmt.Errorf("create text channel: %w", err)
	}

	voiceID, err := m.platform.CreateVoiceChannel(m.cfg.GuildID, voiceChannelName(username), parentID,
		voiceChannelOverwrites(m.cfg.GuildID, m.botUser(), userID, role.ID))
	if err != nil {
		metricTicketFailures.WithLabelValues("voice_channel").Inc()
		logError("voice channel creation failed, text channel left behind",
			"ticket", ticketID, "textChannel", textID, "error", err)
		return TicketRecord{}, fmt.Errorf("create voice channel: %w", err)
	}

	rec := TicketRecord{
		ID:             ticketID,
		OwnerID:        userID,
		TextChannelID:  textID,
		VoiceChannelID: voiceID,
		Category:       category,
	}
	m.registry.Put(userID, rec)
	metricTicketsCreated.WithLabelValues(string(category)).Inc()
	metricTicketsActive.Set(float64(m.registry.Len()))

	logInfo("ticket created", "ticket", ticketID, "owner", userID,
		"category", string(category), "textChannel", textID, "voiceChannel", voiceID)

	content := fmt.Sprintf("<@%s> <@&%s>", userID, role.ID)
	if err := m.platform.SendEmbed(textID, content, welcomeEmbed(rec, userTag)); err != nil {
		// The ticket is live at this point; the welcome message is cosmetic
		// but the requester still gets the generic failure reply.
		metricTicketFailures.WithLabelValues("welcome_message").Inc()
		return TicketRecord{}, fmt.Errorf("send welcome message: %w", err)
	}

	return rec, nil
}

func ticketChannelName(username string) string {
	return "ticket-" + username
}

func voiceChannelName(username string) string {
	return "🎤 " + username
}

// welcomeEmbed builds the message posted into a freshly created ticket channel.
func welcomeEmbed(rec TicketRecord, userTag string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎫 Ticket Created",
		Description: fmt.Sprintf("Welcome <@%s>! Your ticket has been created.", rec.OwnerID),
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket Type", Value: rec.Category.Label(), Inline: true},
			{Name: "Created By", Value: userTag, Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Ticket %s · use /close to close this ticket", rec.ID)},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- Permission Overwrites ---

const (
	textAllowBits  = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory
	voiceAllowBits = discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak
)

// textChannelOverwrites hides the channel from the guild and grants access to
// the bot, the requesting user, and the support role. The guild ID doubles as
// the @everyone role ID.
func textChannelOverwrites(guildID, botID, userID, supportRoleID string) []*discordgo.PermissionOverwrite {
	return []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: botID, Type: discordgo.PermissionOverwriteTypeMember, Allow: textAllowBits | discordgo.PermissionManageChannels},
		{ID: userID, Type: discordgo.PermissionOverwriteTypeMember, Allow: textAllowBits},
		{ID: supportRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: textAllowBits},
	}
}

func voiceChannelOverwrites(guildID, botID, userID, supportRoleID string) []*discordgo.PermissionOverwrite {
	return []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: botID, Type: discordgo.PermissionOverwriteTypeMember, Allow: voiceAllowBits | discordgo.PermissionManageChannels},
		{ID: userID, Type: discordgo.PermissionOverwriteTypeMember, Allow: voiceAllowBits},
		{ID: supportRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: voiceAllowBits},
	}
}

// --- Closure Flow ---

// CloseTicket validates a close request issued from channelID and, when
// permitted, schedules deletion of the ticket's channels after the close
// delay. Returns the delay so the caller can word the acknowledgement.
//
// A second close request during the pending window is rejected with
// errAlreadyClosing; the pending timer map is the CLOSING guard and keeps the
// timer reachable for a future reopen/cancel feature.
func (m *TicketManager) CloseTicket(channelID, requesterID string, requesterRoles []string) (time.Duration, error) {
	ownerID, ok := m.registry.FindByTextChannel(channelID)
	if !ok {
		return 0, errNotTicketChannel
	}

	if requesterID != ownerID && !hasRole(requesterRoles, m.cfg.SupportRoleID) {
		return 0, errNotPermitted
	}

	rec, ok := m.registry.Get(ownerID)
	if !ok {
		return 0, errNotTicketChannel
	}

	m.mu.Lock()
	if m.closing[ownerID] != nil {
		m.mu.Unlock()
		return 0, errAlreadyClosing
	}
	m.closing[ownerID] = m.afterFunc(m.closeDelay, func() {
		m.finishClose(ownerID, rec)
	})
	m.mu.Unlock()

	logInfo("ticket closing", "ticket", rec.ID, "owner", ownerID,
		"requester", requesterID, "delay", m.closeDelay.String())
	return m.closeDelay, nil
}

// finishClose runs when the close delay fires: voice channel first, then text,
// then the registry entry. The record is removed regardless of deletion
// outcome so a failed deletion can never leave the owner permanently unable
// to open another ticket. Errors are logged only; the acknowledgement already
// went out before the delay.
func (m *TicketManager) finishClose(ownerID string, rec TicketRecord) {
	if err := m.platform.DeleteChannel(rec.VoiceChannelID); err != nil {
		logError("delete voice channel failed", "ticket", rec.ID, "channel", rec.VoiceChannelID, "error", err)
	}
	if err := m.platform.DeleteChannel(rec.TextChannelID); err != nil {
		logError("delete text channel failed", "ticket", rec.ID, "channel", rec.TextChannelID, "error", err)
	}

	m.registry.RemoveByOwner(ownerID)
	m.mu.Lock()
	delete(m.closing, ownerID)
	m.mu.Unlock()

	metricTicketsClosed.Inc()
	metricTicketsActive.Set(float64(m.registry.Len()))
	logInfo("ticket closed", "ticket", rec.ID, "owner", ownerID)
}

func hasRole(roles []string, roleID string) bool {
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}
