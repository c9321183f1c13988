package room

import (
	"context"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
)

// MembershipSource resolves the member ids a room's events are addressed to.
type MembershipSource interface {
	Members(ctx context.Context, chatID string) ([]string, error)
}

// ErrorSurface receives the room's query outcomes, room details first and
// history second. It renders; the room only reports.
type ErrorSurface interface {
	Report(states []chat.ErrorState)
}

type ScrollHost interface {
	// ScrollToBottom is called after a live message or alert is appended.
	ScrollToBottom()
	// RestoreAnchor is called after an older page was prepended with the id of
	// the message that was on top before the insert.
	RestoreAnchor(messageID string)
}

type Navigator interface {
	Navigate(path string)
}

// AlertClearer drops the unread counter of a chat once it is opened.
type AlertClearer interface {
	ClearAlert(chatID string)
}

type nopSurface struct{}

func (nopSurface) Report([]chat.ErrorState) {}

type nopScroll struct{}

func (nopScroll) ScrollToBottom()      {}
func (nopScroll) RestoreAnchor(string) {}

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}

type nopAlerts struct{}

func (nopAlerts) ClearAlert(string) {}
