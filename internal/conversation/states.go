package conversation

import "github.com/m3rciful/refbot/core/telegram/state"

// User dialogue states.
const (
	StatePaymentMethodChoice state.State = "payment_method_choice"
	StateAccountName         state.State = "account_name"
	StatePaymentNumber       state.State = "payment_number"
	StateWithdrawalAmount    state.State = "withdrawal_amount"
)

// Admin dialogue states.
const (
	StateAwaitingReferralCode     state.State = "awaiting_referral_code"
	StateAwaitingCustomerName     state.State = "awaiting_customer_name"
	StateAwaitingCustomerPhone    state.State = "awaiting_customer_phone"
	StateAwaitingReferralID       state.State = "awaiting_referral_id_for_update"
	StateAwaitingNewStatus        state.State = "awaiting_new_status"
	StateAwaitingRewardAmount     state.State = "awaiting_reward_amount"
	StateAwaitingWithdrawalID     state.State = "awaiting_withdrawal_id_for_payout"
	StateAwaitingPayoutScreenshot state.State = "awaiting_payout_screenshot"
)

// UserStates lists every state of the user dialogues.
func UserStates() []state.State {
	return []state.State{StatePaymentMethodChoice, StateAccountName, StatePaymentNumber, StateWithdrawalAmount}
}

// AdminStates lists every state of the admin dialogues.
func AdminStates() []state.State {
	return []state.State{
		StateAwaitingReferralCode, StateAwaitingCustomerName, StateAwaitingCustomerPhone,
		StateAwaitingReferralID, StateAwaitingNewStatus, StateAwaitingRewardAmount,
		StateAwaitingWithdrawalID, StateAwaitingPayoutScreenshot,
	}
}

// Session data keys.
const (
	keyUserID          = "user_id"
	keyMethod          = "method"
	keyAccountName     = "account_name"
	keyReferrerID      = "referrer_id"
	keyReferrerChatID  = "referrer_chat_id"
	keyReferrerName    = "referrer_name"
	keyCustomerName    = "customer_name"
	keyReferralID      = "referral_id"
	keyWithdrawalID    = "withdrawal_id"
	keyRequesterChatID = "requester_chat_id"
	keyRequesterName   = "requester_name"
	keyAmount          = "amount"
)
