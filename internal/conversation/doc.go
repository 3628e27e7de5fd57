// Package conversation drives the chat dialogues of the referral program.
//
// UserEngine serves referrers (registration, account, payment method, withdrawals) and
// AdminEngine serves the single admin (referral entry, status review, payouts). Both keep
// their per-chat progress in a state.Manager and dispatch steps through a state.Table, so
// every dialogue state has exactly one handler. Service routes an inbound message to the
// engine that owns the chat's current state.
//
// Step outcomes:
//   - a *domain.ValidationError re-prompts and keeps the dialogue open;
//   - an abort closes the dialogue with a message to the chat;
//   - any other error is logged, closes the dialogue and answers with a generic failure.
package conversation
