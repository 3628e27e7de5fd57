// Package state keeps per-chat dialogue sessions for multi-step Telegram conversations.
// A Manager is created once and injected into every engine that drives a dialogue.
package state
