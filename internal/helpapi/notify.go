package helpapi

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"hhfoundation/internal/telegram"
)

func EscapeMarkdownV2(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	for _, char := range specialChars {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// SendTelegramMessage posts to one of the operator chats. Chat routing:
// "ops" for reconciler and override events, "signup" for registrations,
// anything else goes to the default chat.
func SendTelegramMessage(msg string, chat string) error {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return errors.New("TELEGRAM_TOKEN is not set")
	}
	chatId := ""
	switch chat {
	case "ops":
		chatId = os.Getenv("OPS_CHAT_ID")
	case "signup":
		chatId = os.Getenv("SIGNUP_CHAT_ID")
	}
	if chatId == "" {
		chatId = os.Getenv("DEFAULT_CHAT_ID")
	}
	if chatId == "" {
		return errors.New("CHAT_ID is not set")
	}
	chatIdInt, err := strconv.Atoi(chatId)
	if err != nil {
		return err
	}
	id := int64(chatIdInt)
	bot, err := telegram.NewBot(token)
	if err != nil {
		return err
	}
	return bot.SendMarkdown(id, msg)
}
