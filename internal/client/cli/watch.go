package cli

import (
	"context"
	"fmt"

	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/common"
)

// Watch subscribes to the live event streams and prints incoming events until
// the user presses Enter. Listeners are torn down on exit so repeated watches
// do not stack.
func (a *App) Watch(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return nil
	}
	a.social.Connect(ctx)
	a.community.Connect(ctx)

	printEvent := func(ev models.Event) {
		fmt.Printf("event: %s\n", ev.Name)
	}

	unsubs := []func(){
		a.social.On(common.EventMessageNew, printEvent),
		a.social.On(common.EventConversationUpdated, printEvent),
		a.social.On(common.EventTyping, printEvent),
		a.community.On(common.EventGymJoinRequest, printEvent),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	fmt.Println("Watching live events (press Enter to stop)")
	_, _ = a.reader.ReadString('\n')
	return nil
}

// Open joins the realtime channel for one conversation; joining another
// conversation later leaves this one first.
func (a *App) Open(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		fmt.Println("Usage: open <conversation-id>")
		return nil
	}
	a.social.JoinChannel(ctx, conversationID)
	if a.social.ActiveChannel() != conversationID {
		fmt.Println("Could not join channel (not connected?)")
		return nil
	}
	fmt.Printf("Joined %s\n", conversationID)
	return nil
}

// Send emits an optimistic message into the open conversation. Delivery is
// best-effort; the server-confirmed copy arrives back as a message:new event.
func (a *App) Send(ctx context.Context, body string) error {
	conversationID := a.social.ActiveChannel()
	if conversationID == "" {
		fmt.Println("Open a conversation first (open <conversation-id>)")
		return nil
	}
	if body == "" {
		fmt.Println("Usage: send <text>")
		return nil
	}
	msg := models.NewPendingMessage(conversationID, a.sessions.Current().UserID, body)
	a.social.Emit(ctx, common.EventMessageSend, msg)
	fmt.Printf("Sent (local id %s)\n", msg.LocalID)
	return nil
}
