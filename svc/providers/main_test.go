package providers_test

import (
	"time"

	"github.com/dmitrymomot/coldcall/pkg/webhook"
	"github.com/dmitrymomot/coldcall/svc/providers"
)

var fastRetry = providers.WithBackoff(webhook.FixedBackoff{Interval: time.Millisecond})

func telephonyConfig(baseURL string) providers.TelephonyConfig {
	return providers.TelephonyConfig{
		AccountSID:  "AC123",
		AuthToken:   "auth-token",
		FromNumber:  "+15550001111",
		BaseURL:     baseURL,
		AnswerURL:   "https://conversation.example.com/voice",
		CallbackURL: "https://dialer.example.com/webhooks/telephony/status",
		Timeout:     5 * time.Second,
	}
}

func conversationConfig(url string) providers.ConversationConfig {
	return providers.ConversationConfig{
		URL:         url,
		Secret:      "conv-secret",
		CallbackURL: "https://dialer.example.com/webhooks/conversation",
		Timeout:     5 * time.Second,
		MaxAge:      time.Minute,
	}
}
