// Package callbacks decodes inline-button callback data produced by telebot's Btn encoding.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse returns the unique key and payload of cb.
// Telebot fills Unique/Data itself when a "\f<unique>" endpoint is registered;
// a generic OnCallback handler receives the raw "\f<unique>|<payload>" form instead.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// Payload returns the payload of the callback in c.
func Payload(c tele.Context) string {
	_, payload := Parse(c.Callback())
	return payload
}
