// Package telegram adapts the Bot API to the transport surface the flows
// consume and feeds incoming updates into the dispatcher.
package telegram

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"intakebot/internal/bot"
	"intakebot/internal/flow"
	"intakebot/internal/report"
)

// Client wraps the Bot API connection. It implements flow.Transport and the
// notifier's document sender.
type Client struct {
	api     *tgbotapi.BotAPI
	infoURL string
}

// NewClient authenticates against the Bot API.
func NewClient(token, infoURL string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to bot api: %w", err)
	}
	log.Printf("telegram: authorized as @%s", api.Self.UserName)
	return &Client{api: api, infoURL: infoURL}, nil
}

// SendText delivers a text message with the requested keyboard.
func (c *Client) SendText(_ context.Context, chatID int64, text string, menu flow.Menu) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup := c.markupFor(menu); markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// SendImage delivers a photo by URL with the requested keyboard.
func (c *Client) SendImage(_ context.Context, chatID int64, imageRef string, menu flow.Menu) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(imageRef))
	if markup := c.markupFor(menu); markup != nil {
		photo.ReplyMarkup = markup
	}
	if _, err := c.api.Send(photo); err != nil {
		return fmt.Errorf("send photo to %d: %w", chatID, err)
	}
	return nil
}

// SendFile delivers a rendered document with a caption.
func (c *Client) SendFile(_ context.Context, chatID int64, f report.File, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: f.Filename, Bytes: f.Data})
	doc.Caption = caption
	if _, err := c.api.Send(doc); err != nil {
		return fmt.Errorf("send document to %d: %w", chatID, err)
	}
	return nil
}

// Poll long-polls for updates and dispatches them until the context ends.
// Each update runs on the chat's dispatcher worker, so a chat's updates are
// handled strictly in order.
func (c *Client) Poll(ctx context.Context, d *bot.Dispatcher, r *bot.Router) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := c.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			c.dispatch(ctx, d, r, upd)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, d *bot.Dispatcher, r *bot.Router, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		cb := upd.CallbackQuery
		if cb.Message == nil || cb.From == nil {
			return
		}
		chatID := cb.Message.Chat.ID
		userID := cb.From.ID
		handle := cb.From.UserName
		data := cb.Data
		callbackID := cb.ID
		d.Dispatch(chatID, func() {
			if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
				log.Printf("telegram: ack callback: %v", err)
			}
			r.HandleCallback(ctx, chatID, userID, handle, data)
		})

	case upd.Message != nil && upd.Message.Chat.IsPrivate():
		msg := upd.Message
		chatID := msg.Chat.ID
		var userID int64
		var handle string
		if msg.From != nil {
			userID = msg.From.ID
			handle = msg.From.UserName
		}
		text := msg.Text
		d.Dispatch(chatID, func() {
			r.HandleMessage(ctx, chatID, userID, handle, text)
		})
	}
}
