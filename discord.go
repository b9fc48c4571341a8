package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// --- Constants ---

const selectTicketType = "ticket_type"

// User-facing replies. Kept in one place so tests and handlers agree.
const (
	msgWrongChannel   = "❌ This command can only be used in the ticket channel."
	msgPickType       = "🎫 Please select the type of ticket you want to create:"
	msgCreating       = "⏳ Creating your ticket..."
	msgAlreadyOpen    = "❌ You already have an active ticket!"
	msgCreateFailed   = "❌ There was an error creating your ticket. Please try again later."
	msgNotTicket      = "❌ This command can only be used in ticket channels."
	msgNoPermission   = "❌ You do not have permission to close this ticket."
	msgAlreadyClosing = "❌ This ticket is already being closed."
	msgCloseFailed    = "❌ There was an error closing your ticket. Please try again later."
)

// --- Ticket Bot ---

// TicketBot owns the gateway session and routes interactions to the manager.
// It is thin by design: every reply string and platform call sequence that
// matters lives in the manager, where it is testable.
type TicketBot struct {
	cfg     *Config
	mgr     *TicketManager
	session *discordgo.Session
}

func newTicketBot(cfg *Config, registry *TicketRegistry) (*TicketBot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &TicketBot{
		cfg:     cfg,
		mgr:     newTicketManager(cfg, &discordPlatform{s: session}, registry),
		session: session,
	}
	session.AddHandler(b.handleReady)
	session.AddHandler(b.handleInteraction)
	return b, nil
}

// Run opens the gateway connection. Command registration happens in the
// ready handler once the session identity is known.
func (b *TicketBot) Run() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (b *TicketBot) Stop() {
	if err := b.session.Close(); err != nil {
		logWarn("gateway close failed", "error", err)
	}
}

func (b *TicketBot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.mgr.setBotUser(r.User.ID)
	logInfo("bot logged in", "user", r.User.String(), "id", r.User.ID)

	if err := b.registerCommands(); err != nil {
		// Commands registered on a previous run keep working; log and serve.
		logError("slash command registration failed", "error", err)
		return
	}
	logInfo("slash commands registered", "guild", b.cfg.GuildID)
}

// registerCommands bulk-overwrites the guild's command set with /ticket and
// /close.
func (b *TicketBot) registerCommands() error {
	_, err := b.session.ApplicationCommandBulkOverwrite(b.cfg.AppID, b.cfg.GuildID, slashCommands())
	return err
}

func slashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "ticket", Description: "Create a new ticket"},
		{Name: "close", Description: "Close the current ticket"},
	}
}

// --- Interaction Dispatch ---

func (b *TicketBot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "ticket":
			b.handleTicketCommand(i)
		case "close":
			b.handleCloseCommand(i)
		}
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == selectTicketType {
			b.handleTicketSelect(i)
		}
	}
}

// handleTicketCommand offers the category select menu, ephemeral to the
// requester, but only inside the designated ticket channel.
func (b *TicketBot) handleTicketCommand(i *discordgo.InteractionCreate) {
	if i.ChannelID != b.cfg.TicketChannelID {
		b.respondEphemeral(i, msgWrongChannel)
		return
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msgPickType,
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{ticketSelectMenu()}},
			},
		},
	})
	if err != nil {
		logError("ticket menu reply failed", "user", interactionUser(i).ID, "error", err)
	}
}

func ticketSelectMenu() discordgo.SelectMenu {
	options := make([]discordgo.SelectMenuOption, 0, len(categoryOptions))
	for _, opt := range categoryOptions {
		options = append(options, discordgo.SelectMenuOption{
			Label:       opt.Category.Label(),
			Value:       string(opt.Category),
			Description: opt.Description,
			Emoji:       &discordgo.ComponentEmoji{Name: opt.Emoji},
		})
	}
	return discordgo.SelectMenu{
		CustomID:    selectTicketType,
		Placeholder: "Select a ticket type",
		Options:     options,
	}
}

// handleTicketSelect runs the creation flow for the submitted category.
func (b *TicketBot) handleTicketSelect(i *discordgo.InteractionCreate) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}
	category := TicketCategory(values[0])
	user := interactionUser(i)

	// Clear the menu and acknowledge before the platform calls; creation can
	// take several round trips and the interaction token times out fast.
	b.respondUpdate(i, msgCreating)

	rec, err := b.mgr.CreateTicket(user.ID, user.Username, user.String(), category)
	switch {
	case errors.Is(err, errTicketExists):
		b.followupEphemeral(i, msgAlreadyOpen)
	case err != nil:
		logError("ticket creation failed", "user", user.ID, "category", string(category), "error", err)
		b.followupEphemeral(i, msgCreateFailed)
	default:
		b.followupEphemeral(i, fmt.Sprintf("✅ Your ticket has been created! Check <#%s>", rec.TextChannelID))
	}
}

// handleCloseCommand runs the closure flow from the channel the command was
// issued in.
func (b *TicketBot) handleCloseCommand(i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	delay, err := b.mgr.CloseTicket(i.ChannelID, user.ID, memberRoles(i))
	switch {
	case errors.Is(err, errNotTicketChannel):
		b.respondEphemeral(i, msgNotTicket)
	case errors.Is(err, errNotPermitted):
		b.respondEphemeral(i, msgNoPermission)
	case errors.Is(err, errAlreadyClosing):
		b.respondEphemeral(i, msgAlreadyClosing)
	case err != nil:
		logError("ticket close failed", "user", user.ID, "channel", i.ChannelID, "error", err)
		b.respondEphemeral(i, msgCloseFailed)
	default:
		// Non-ephemeral: everyone in the channel sees the countdown.
		b.respond(i, closeAckMessage(delay))
	}
}

func closeAckMessage(delay time.Duration) string {
	return fmt.Sprintf("🔒 Closing ticket in %d seconds...", int(delay.Seconds()))
}

// --- Interaction Reply Helpers ---

func (b *TicketBot) respond(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		logError("interaction reply failed", "error", err)
	}
}

func (b *TicketBot) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logError("interaction reply failed", "error", err)
	}
}

// respondUpdate edits the originating (ephemeral) message in place, dropping
// its components.
func (b *TicketBot) respondUpdate(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		logError("interaction update failed", "error", err)
	}
}

func (b *TicketBot) followupEphemeral(i *discordgo.InteractionCreate, content string) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		logError("interaction followup failed", "error", err)
	}
}

// interactionUser returns the invoking user for both guild (member) and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// memberRoles returns the requester's guild role IDs, empty outside guilds.
func memberRoles(i *discordgo.InteractionCreate) []string {
	if i.Member == nil {
		return nil
	}
	return i.Member.Roles
}

// --- Platform Adapter ---

// discordPlatform implements platformClient over a live gateway session.
type discordPlatform struct {
	s *discordgo.Session
}

func (p *discordPlatform) SupportRole(guildID, roleID string) (*discordgo.Role, error) {
	roles, err := p.s.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch guild roles: %w", err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("role %s not found in guild %s", roleID, guildID)
}

func (p *discordPlatform) EnsureCategory(guildID, categoryID string) (string, error) {
	if categoryID != "" {
		if ch, err := p.s.Channel(categoryID); err == nil && ch.Type == discordgo.ChannelTypeGuildCategory {
			return ch.ID, nil
		}
	}
	ch, err := p.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: "Tickets",
		Type: discordgo.ChannelTypeGuildCategory,
	})
	if err != nil {
		return "", fmt.Errorf("create ticket category: %w", err)
	}
	logInfo("ticket category created", "channel", ch.ID)
	return ch.ID, nil
}

func (p *discordPlatform) CreateTextChannel(guildID, name, parentID string, overwrites []*discordgo.PermissionOverwrite) (string, error) {
	ch, err := p.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             parentID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (p *discordPlatform) CreateVoiceChannel(guildID, name, parentID string, overwrites []*discordgo.PermissionOverwrite) (string, error) {
	ch, err := p.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		ParentID:             parentID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (p *discordPlatform) DeleteChannel(channelID string) error {
	_, err := p.s.ChannelDelete(channelID)
	if err != nil && isUnknownChannel(err) {
		return nil
	}
	return err
}

func (p *discordPlatform) SendEmbed(channelID, content string, embed *discordgo.MessageEmbed) error {
	_, err := p.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
	return err
}

// isUnknownChannel reports whether err is Discord's "Unknown Channel" API
// error, i.e. the channel was already deleted out from under us.
func isUnknownChannel(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel
}
