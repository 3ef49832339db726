package app

import (
	"context"
	"strings"

	kit "codewatch/internal/transport"
	"codewatch/internal/watch"
)

// chatTransport adapts the platform adapter to the watch pipeline's
// delivery surface. Telegram addresses direct users by their user id as
// the chat id, so group and direct sends share one path.
type chatTransport struct {
	adapter kit.Adapter
}

func (t *chatTransport) SendToGroup(ctx context.Context, chatID int64, art watch.Artifact) error {
	return t.send(ctx, chatID, art)
}

func (t *chatTransport) SendToDirect(ctx context.Context, userID int64, art watch.Artifact) error {
	return t.send(ctx, userID, art)
}

func (t *chatTransport) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := t.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, nil)
	return err
}

func (t *chatTransport) send(ctx context.Context, chatID int64, art watch.Artifact) error {
	to := kit.ChatTarget{ChatID: chatID}
	if strings.HasPrefix(art.MIME, "image/") {
		_, err := t.adapter.SendPhoto(ctx, to, art.Data, "")
		return err
	}
	opt := &kit.SendOptions{DisablePreview: true}
	if art.MIME == "text/html" {
		opt.ParseMode = "HTML"
	}
	_, err := t.adapter.SendText(ctx, to, string(art.Data), opt)
	return err
}
