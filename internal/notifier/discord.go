package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/reservation-api/internal/daterange"
	"github.com/gdg-garage/reservation-api/internal/models"
)

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

// NewDiscordSession creates a bot session for token. Only the REST API is
// used, so the gateway is never opened.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return session, nil
}

func (n *DiscordNotifier) NotifyBooking(ctx context.Context, event Event) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, discordMessage(event), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func discordMessage(event Event) string {
	b := event.Booking

	title := "🛎️ **Booking Update**"
	switch event.Type {
	case BookingCreated:
		title = "🎉 **New Booking**"
	case BookingCancelled:
		title = "❌ **Booking Cancelled**"
	}

	unit := event.UnitName
	if unit == "" {
		unit = b.Target().String()
	} else {
		unit = fmt.Sprintf("%s (%s)", unit, strings.ToLower(string(b.BookingType)))
	}

	var sb strings.Builder
	sb.WriteString(title)
	fmt.Fprintf(&sb, "\n**Reference:** %s", b.Reference)
	if event.UserName != "" {
		fmt.Fprintf(&sb, "\n**Guest:** %s", event.UserName)
	}
	if event.HotelName != "" {
		fmt.Fprintf(&sb, "\n**Hotel:** %s", event.HotelName)
	}
	fmt.Fprintf(&sb, "\n**Unit:** %s", unit)
	fmt.Fprintf(&sb, "\n**Dates:** %s - %s", b.CheckIn.Format(daterange.Layout), b.CheckOut.Format(daterange.Layout))
	fmt.Fprintf(&sb, "\n**Guests:** %d", b.NumberOfGuests)
	fmt.Fprintf(&sb, "\n**Status:** %s", b.Status)
	if b.PaymentStatus != models.PaymentPending {
		fmt.Fprintf(&sb, "\n**Payment:** %s", b.PaymentStatus)
	}
	return sb.String()
}
