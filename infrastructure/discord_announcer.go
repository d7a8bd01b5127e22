package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"roundbets/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Discord embed colors
const (
	ColorPrimary = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
)

type channelMessenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAnnouncer posts round lifecycle events to a Discord channel
type DiscordAnnouncer struct {
	session   channelMessenger
	channelID string
}

// NewDiscordSession opens a bot session for posting announcements
func NewDiscordSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return dg, nil
}

// NewDiscordAnnouncer creates an announcer for the channel
func NewDiscordAnnouncer(session channelMessenger, channelID string) *DiscordAnnouncer {
	return &DiscordAnnouncer{session: session, channelID: channelID}
}

// Publish announces round events. Other events are ignored.
func (a *DiscordAnnouncer) Publish(ctx context.Context, event events.Event) error {
	embed := buildAnnouncementEmbed(event)
	if embed == nil {
		return nil
	}

	if _, err := a.session.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send Discord announcement: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"channelId": a.channelID,
	}).Debug("Posted Discord announcement")
	return nil
}

func buildAnnouncementEmbed(event events.Event) *discordgo.MessageEmbed {
	switch e := event.(type) {
	case events.RoundCreatedEvent:
		return &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("🎲 New round: %s", e.Title),
			Description: fmt.Sprintf("**A:** %s\n**B:** %s", e.OptionA, e.OptionB),
			Color:       ColorPrimary,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Bets are open"},
		}
	case events.RoundLockChangedEvent:
		if e.Locked {
			return &discordgo.MessageEmbed{
				Title: fmt.Sprintf("🔒 Betting locked: %s", e.Title),
				Color: ColorWarning,
			}
		}
		return &discordgo.MessageEmbed{
			Title: fmt.Sprintf("🔓 Betting reopened: %s", e.Title),
			Color: ColorPrimary,
		}
	case events.RoundSettledEvent:
		var b strings.Builder
		fmt.Fprintf(&b, "Winner: **%s** (%s)\n", e.WinnerLabel, e.Winner)
		fmt.Fprintf(&b, "Pool: **%s credits**", FormatCredits(e.TotalPool))
		if e.NoWinners {
			b.WriteString("\nNobody picked the winner. No payouts.")
		}
		return &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("🏁 Round settled: %s", e.Title),
			Description: b.String(),
			Color:       ColorSuccess,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Winning bets", Value: fmt.Sprintf("%d", e.WinnerCount), Inline: true},
				{Name: "Losing bets", Value: fmt.Sprintf("%d", e.LoserCount), Inline: true},
			},
		}
	default:
		return nil
	}
}

// FormatCredits formats an amount with thousand separators
func FormatCredits(amount int64) string {
	str := fmt.Sprintf("%d", amount)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}

	n := len(str)
	if n <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}
