package helpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, "plain text", EscapeMarkdownV2("plain text"))
	assert.Equal(t, `HLP\-A1\.B2\!`, EscapeMarkdownV2("HLP-A1.B2!"))
	assert.Equal(t, `\*bold\* \_em\_ \[link\]\(x\)`, EscapeMarkdownV2("*bold* _em_ [link](x)"))
}

func TestSendTelegramMessageRequiresConfig(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	require.Error(t, SendTelegramMessage("hi", "ops"))

	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("OPS_CHAT_ID", "")
	t.Setenv("DEFAULT_CHAT_ID", "")
	require.Error(t, SendTelegramMessage("hi", "ops"))
}
