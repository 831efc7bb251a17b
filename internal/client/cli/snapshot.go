package cli

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Sync force-refreshes the snapshot from the backend, bypassing the cache.
func (a *App) Sync(ctx context.Context) error {
	snap, err := a.bootstrap.Refresh(ctx, a.loadOptions())
	if err != nil {
		log.Printf("Refresh failed: %s", err.Error())
		return err
	}
	fmt.Printf("Synced: %d posts, %d conversations, %d unread\n",
		len(snap.Feed.Posts), len(snap.Messages.Conversations), snap.UnreadTotal())
	return nil
}

// Feed prints the cached feed, loading a snapshot first if none is held.
func (a *App) Feed(ctx context.Context) error {
	snap, err := a.bootstrap.Load(ctx, a.loadOptions(), false, false)
	if err != nil {
		log.Printf("Load failed: %s", err.Error())
		return err
	}
	if len(snap.Feed.Posts) == 0 {
		fmt.Println("Feed is empty")
		return nil
	}
	for _, p := range snap.Feed.Posts {
		fmt.Printf("[%s] %s  (%d likes)\n", p.CreatedAt.Local().Format(time.DateTime), p.Body, p.LikeCount)
	}
	return nil
}

// Inbox prints the cached conversation list.
func (a *App) Inbox(ctx context.Context) error {
	snap, err := a.bootstrap.Load(ctx, a.loadOptions(), false, false)
	if err != nil {
		log.Printf("Load failed: %s", err.Error())
		return err
	}
	if len(snap.Messages.Conversations) == 0 {
		fmt.Println("No conversations")
		return nil
	}
	for _, c := range snap.Messages.Conversations {
		title := c.Title
		if title == "" {
			title = c.ID
		}
		last := ""
		if c.LastMessage != nil {
			last = c.LastMessage.Body
			if c.LastMessage.Pending {
				last += " (sending...)"
			}
		}
		fmt.Printf("%-24s %3d unread  %s\n", title, c.UnreadCount, last)
	}
	return nil
}
