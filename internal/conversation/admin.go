package conversation

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/format"
	"github.com/m3rciful/refbot/internal/domain"
)

// AdminEngine drives the referral and payout dialogues of the admin.
type AdminEngine struct {
	dialog
}

// NewAdminEngine wires the admin dialogues.
func NewAdminEngine(deps Deps) *AdminEngine {
	e := &AdminEngine{dialog: newDialog(deps, "admin", logger.Referrals, adminMenu)}
	e.steps[StateAwaitingReferralCode] = e.stepReferralCode
	e.steps[StateAwaitingCustomerName] = e.stepCustomerName
	e.steps[StateAwaitingCustomerPhone] = e.stepCustomerPhone
	e.steps[StateAwaitingReferralID] = e.stepReferralID
	e.steps[StateAwaitingNewStatus] = e.stepNewStatus
	e.steps[StateAwaitingRewardAmount] = e.stepRewardAmount
	e.steps[StateAwaitingWithdrawalID] = e.stepWithdrawalID
	e.steps[StateAwaitingPayoutScreenshot] = e.stepPayoutScreenshot
	return e
}

// Menu greets the admin with the admin keyboard.
func (e *AdminEngine) Menu(r Request) error {
	return e.reply(r, welcomeAdmin(r.Sender.FirstName), e.menu())
}

// NewReferral opens the referral entry dialogue.
func (e *AdminEngine) NewReferral(r Request) error {
	if ok, err := e.begin(r, StateAwaitingReferralCode); !ok {
		return err
	}
	return e.reply(r, "Please enter the new customer's referral code:", cancelKeyboard())
}

func (e *AdminEngine) stepReferralCode(r Request) error {
	code, err := textAnswer(r, "referral_code")
	if err != nil {
		return err
	}
	code = strings.ToUpper(code)
	referrer, err := e.deps.Store.UserByReferralCode(r.ctx(), code)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Invalid("referral_code",
			"⚠️ Invalid referral code. Please check the code and try again, or press "+LabelCancel+".")
	}
	if err != nil {
		return err
	}

	sessions := e.deps.Sessions
	sessions.SetTemp(r.ChatID, keyReferrerID, referrer.ID)
	sessions.SetTemp(r.ChatID, keyReferrerChatID, referrer.TelegramID)
	sessions.SetTemp(r.ChatID, keyReferrerName, referrer.FirstName)
	return e.advance(r, StateAwaitingCustomerName, fmt.Sprintf(
		"✅ Referral code accepted for user: *%s*.\n\nEnter the new customer's name (optional, type '%s' to omit).",
		format.MD(referrer.FirstName), SkipWord), cancelKeyboard())
}

func (e *AdminEngine) stepCustomerName(r Request) error {
	name, err := textAnswer(r, "customer_name")
	if err != nil {
		return err
	}
	if !isSkip(name) {
		e.deps.Sessions.SetTemp(r.ChatID, keyCustomerName, name)
	}
	return e.advance(r, StateAwaitingCustomerPhone, fmt.Sprintf(
		"Enter the customer's phone number (optional, type '%s' to omit).", SkipWord), cancelKeyboard())
}

func (e *AdminEngine) stepCustomerPhone(r Request) error {
	phone, err := textAnswer(r, "customer_phone")
	if err != nil {
		return err
	}
	if isSkip(phone) {
		phone = ""
	}
	sessions := e.deps.Sessions
	referrerID, okID := sessions.GetTempInt64(r.ChatID, keyReferrerID)
	referrerChat, okChat := sessions.GetTempInt64(r.ChatID, keyReferrerChatID)
	if !okID || !okChat {
		return errors.New("referral session is incomplete")
	}
	referrerName, _ := sessions.GetTempString(r.ChatID, keyReferrerName)
	customer, _ := sessions.GetTempString(r.ChatID, keyCustomerName)

	ref := domain.Referral{ReferrerID: referrerID, CustomerName: strPtr(customer), CustomerPhone: strPtr(phone)}
	ctx := r.ctx()
	if err := e.deps.Store.CreateReferral(ctx, &ref); err != nil {
		return err
	}
	e.event(r, slog.LevelInfo, "referral.created",
		slog.Int64("referral_id", ref.ID),
		slog.Int64("target", referrerChat),
	)

	customerText, phoneText := orNA(ref.CustomerName), orNA(ref.CustomerPhone)
	e.complete(r, referralCreatedAdmin(format.MD(referrerName), customerText, phoneText))
	e.deps.Notify.User(ctx, referrerChat, e.deps.Settings.referralCreatedReferrer(customerText))
	return nil
}

// ViewReferrals lists every referral, newest first.
func (e *AdminEngine) ViewReferrals(r Request) error {
	refs, err := e.deps.Store.ListReferrals(r.ctx(), domain.AllReferrals)
	if err != nil {
		return e.failure(r, "view_referrals", err)
	}
	if len(refs) == 0 {
		return e.reply(r, "There are currently no referrals in the system.", e.menu())
	}
	entries := make([]string, 0, len(refs))
	for _, ref := range refs {
		entries = append(entries, referralEntry(ref))
	}
	return e.sendPages(r, "📋 *All Referrals*", entries, "", e.menu())
}

// ViewUsers lists every registered user, newest first.
func (e *AdminEngine) ViewUsers(r Request) error {
	users, err := e.deps.Store.ListUsers(r.ctx())
	if err != nil {
		return e.failure(r, "view_users", err)
	}
	if len(users) == 0 {
		return e.reply(r, "There are no users registered in the system.", e.menu())
	}
	entries := make([]string, 0, len(users))
	for _, u := range users {
		entries = append(entries, e.deps.Settings.userEntry(u))
	}
	return e.sendPages(r, fmt.Sprintf("👥 *All Registered Users* (%d)", len(users)), entries, "", e.menu())
}

// UpdateStatus lists Pending referrals oldest first and asks which one to review.
func (e *AdminEngine) UpdateStatus(r Request) error {
	if busy, err := e.busy(r); busy {
		return err
	}
	refs, err := e.deps.Store.ListReferrals(r.ctx(), domain.PendingReferrals)
	if err != nil {
		return e.failure(r, "update_status", err)
	}
	if len(refs) == 0 {
		return e.reply(r, "There are no pending referrals to update.", e.menu())
	}
	if ok, err := e.begin(r, StateAwaitingReferralID); !ok {
		return err
	}
	entries := make([]string, 0, len(refs))
	for _, ref := range refs {
		entries = append(entries, referralEntry(ref))
	}
	return e.sendPages(r, "📝 *Pending Referrals*", entries,
		"Please reply with the ID of the referral you want to update.", cancelKeyboard())
}

func (e *AdminEngine) stepReferralID(r Request) error {
	id, err := parseID(r, "referral_id")
	if err != nil {
		return err
	}
	ref, err := e.deps.Store.ReferralByID(r.ctx(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return abort("❌ No referral found with ID *%d*.", id)
	}
	if err != nil {
		return err
	}
	if ref.Status != domain.ReferralPending {
		return abort("This referral (ID: %d) has already been processed. Its status is '%s'.", id, ref.Status)
	}
	e.deps.Sessions.SetTemp(r.ChatID, keyReferralID, id)
	return e.advance(r, StateAwaitingNewStatus, fmt.Sprintf(
		"You selected referral ID *%d* (customer: %s, referrer: %s).\n\nWhich status do you want to set?",
		id, orNA(ref.CustomerName), format.MD(ref.ReferrerName)), statusKeyboard())
}

func (e *AdminEngine) stepNewStatus(r Request) error {
	status, ok := domain.ParseReferralStatus(r.Text)
	if !ok {
		return domain.Invalid("status", "Invalid status. Please choose Done, Rejected or Pending from the keyboard.")
	}
	id, ok := e.deps.Sessions.GetTempInt64(r.ChatID, keyReferralID)
	if !ok {
		return errors.New("status session is incomplete")
	}

	switch status {
	case domain.ReferralDone:
		return e.advance(r, StateAwaitingRewardAmount,
			"Please enter the reward amount (e.g., 50) for this referral.", cancelKeyboard())
	case domain.ReferralRejected:
		return e.reject(r, id)
	default:
		return e.keepPending(r, id)
	}
}

func (e *AdminEngine) reject(r Request, id int64) error {
	ctx := r.ctx()
	err := e.deps.Store.UpdateReferralStatus(ctx, id, domain.ReferralPending, domain.ReferralRejected)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return abort("❌ No referral found with ID *%d*.", id)
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return abort("Referral %d has already been processed.", id)
	case err != nil:
		return err
	}
	ref, err := e.deps.Store.ReferralByID(ctx, id)
	if err != nil {
		return err
	}
	e.event(r, slog.LevelInfo, "referral.rejected", slog.Int64("referral_id", id))
	e.complete(r, fmt.Sprintf("✅ Success! Referral ID %d is now '%s'.", id, domain.ReferralRejected))
	e.deps.Notify.User(ctx, ref.ReferrerTelegramID, e.deps.Settings.referralRejectedReferrer(orNA(ref.CustomerName)))
	return nil
}

// keepPending answers a request to set the status the referral already has.
func (e *AdminEngine) keepPending(r Request, id int64) error {
	ref, err := e.deps.Store.ReferralByID(r.ctx(), id)
	if err != nil {
		return err
	}
	if ref.Status != domain.ReferralPending {
		return abort("Referral %d has already been processed. Its status is '%s'.", id, ref.Status)
	}
	e.event(r, slog.LevelInfo, "referral.unchanged", slog.Int64("referral_id", id))
	e.complete(r, fmt.Sprintf("Referral %d is already set to '%s'.", id, domain.ReferralPending))
	return nil
}

func (e *AdminEngine) stepRewardAmount(r Request) error {
	reward, err := parseAmount(r, "reward", "❌ Invalid amount. Please enter a valid number greater than zero.")
	if err != nil {
		return err
	}
	id, ok := e.deps.Sessions.GetTempInt64(r.ChatID, keyReferralID)
	if !ok {
		return errors.New("reward session is incomplete")
	}

	ctx := r.ctx()
	ref, err := e.deps.Store.CompleteReferral(ctx, id, reward)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return abort("❌ No referral found with ID *%d*.", id)
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return abort("Referral %d has already been processed.", id)
	case err != nil:
		return err
	}

	cfg := e.deps.Settings
	e.event(r, slog.LevelInfo, "referral.completed",
		slog.Int64("referral_id", id),
		slog.Int64("amount", reward),
		slog.Int64("target", ref.ReferrerTelegramID),
	)
	e.complete(r, fmt.Sprintf("✅ Success! Referral ID %d is now '%s'.\nUser *%s* has been credited with *%s*.",
		id, domain.ReferralDone, format.MD(ref.ReferrerName), cfg.money(reward)))
	e.deps.Notify.User(ctx, ref.ReferrerTelegramID, cfg.referralDoneReferrer(orNA(ref.CustomerName), reward))
	return nil
}

// Payout lists pending withdrawal requests oldest first and asks which one was paid.
func (e *AdminEngine) Payout(r Request) error {
	if busy, err := e.busy(r); busy {
		return err
	}
	requests, err := e.deps.Store.ListPendingWithdrawals(r.ctx())
	if err != nil {
		return e.failure(r, "payout", err)
	}
	if len(requests) == 0 {
		return e.reply(r, "There are no pending payout requests.", e.menu())
	}
	if ok, err := e.begin(r, StateAwaitingWithdrawalID); !ok {
		return err
	}
	entries := make([]string, 0, len(requests))
	for _, p := range requests {
		entries = append(entries, e.deps.Settings.payoutEntry(p))
	}
	return e.sendPages(r, "💸 *Pending Payout Requests*", entries,
		"Please reply with the ID of the request you have paid.", cancelKeyboard())
}

func (e *AdminEngine) stepWithdrawalID(r Request) error {
	id, err := parseID(r, "withdrawal_id")
	if err != nil {
		return err
	}
	p, err := e.deps.Store.WithdrawalByID(r.ctx(), id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && p.Status != domain.WithdrawalPending) {
		return abort("❌ No pending request found with ID *%d*.", id)
	}
	if err != nil {
		return err
	}
	sessions := e.deps.Sessions
	sessions.SetTemp(r.ChatID, keyWithdrawalID, id)
	sessions.SetTemp(r.ChatID, keyRequesterChatID, p.TelegramID)
	sessions.SetTemp(r.ChatID, keyRequesterName, p.FirstName)
	sessions.SetTemp(r.ChatID, keyAmount, p.Amount)
	return e.advance(r, StateAwaitingPayoutScreenshot, fmt.Sprintf(
		"✅ Request ID %d is valid (%s to %s). Please upload the payment screenshot now.",
		id, e.deps.Settings.money(p.Amount), format.MD(p.FirstName)), cancelKeyboard())
}

func (e *AdminEngine) stepPayoutScreenshot(r Request) error {
	if r.PhotoID == "" {
		return domain.Invalid("proof", "Please upload an image file as proof.")
	}
	sessions := e.deps.Sessions
	id, okID := sessions.GetTempInt64(r.ChatID, keyWithdrawalID)
	requester, okChat := sessions.GetTempInt64(r.ChatID, keyRequesterChatID)
	amount, okAmount := sessions.GetTempInt64(r.ChatID, keyAmount)
	if !okID || !okChat || !okAmount {
		return errors.New("payout session is incomplete")
	}
	name, _ := sessions.GetTempString(r.ChatID, keyRequesterName)

	ctx := r.ctx()
	w, err := e.deps.Store.MarkWithdrawalPaid(ctx, id, r.PhotoID, e.deps.Now())
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyProcessed):
		return abort("❌ No pending request found with ID *%d*.", id)
	case err != nil:
		return err
	}

	logger.LogEvent(logger.WithFlow(ctx, e.flow), logger.Payouts, slog.LevelInfo, "withdrawal.paid",
		slog.Int64("withdrawal_id", id),
		slog.Int64("amount", amount),
		slog.Int64("target", requester),
	)
	cfg := e.deps.Settings
	e.complete(r, fmt.Sprintf("✅ Success! Payout ID %d is marked as '%s' (%s).",
		id, w.Status, paidAt(format.Deref(w.ProcessedAt, e.deps.Now()))))
	e.deps.Notify.UserPhoto(ctx, requester, r.PhotoID, cfg.payoutUserCaption(amount))
	e.deps.Notify.GroupPhoto(ctx, r.PhotoID, cfg.payoutGroupCaption(name, amount))
	return nil
}

// Cancel closes an open admin dialogue and shows the admin menu. Without a dialogue it does nothing.
func (e *AdminEngine) Cancel(r Request) error {
	if !e.deps.Sessions.Clear(r.ChatID) {
		return nil
	}
	e.event(r, slog.LevelInfo, "dialog.cancel")
	return e.reply(r, msgAdminCancelled, e.menu())
}

// Continue feeds r to the step of the open dialogue.
func (e *AdminEngine) Continue(r Request) error {
	return e.continueDialog(r)
}
