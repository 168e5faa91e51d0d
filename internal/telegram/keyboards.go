package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"intakebot/internal/bot"
	"intakebot/internal/flow"
)

// markupFor maps the flow's abstract menu choice onto a concrete keyboard.
// Returns nil when the message carries no keyboard change.
func (c *Client) markupFor(menu flow.Menu) interface{} {
	switch menu {
	case flow.MenuStart:
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📝 Start the survey", bot.CallbackStartSurvey),
			),
		)
	case flow.MenuBeginCases:
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🚀 Begin the cases", bot.CallbackStartCases),
			),
		)
	case flow.MenuCancel:
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(flow.CancelLabel),
			),
		)
		kb.ResizeKeyboard = true
		return kb
	case flow.MenuRemove:
		return tgbotapi.NewRemoveKeyboard(true)
	case flow.MenuInfo:
		if c.infoURL == "" {
			return nil
		}
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("ℹ️ About the position", c.infoURL),
			),
		)
	default:
		return nil
	}
}
