package conversation

import (
	"github.com/m3rciful/refbot/core/telegram/keyboard"
	"github.com/m3rciful/refbot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// Reply keyboard labels. The app registers them as command aliases.
const (
	LabelMyAccount  = "👤 My Account"
	LabelUpdate     = "🔄 Update"
	LabelHowItWorks = "❓ How it Works"
	LabelWithdraw   = "💵 Withdraw"

	LabelNewReferral   = "➕ Start New Referral"
	LabelViewReferrals = "📋 View All Referrals"
	LabelUpdateStatus  = "🔄 Update Status"
	LabelPayout        = "💸 Payout"
	LabelViewUsers     = "👥 View All Users"

	LabelCancel = "✖️ Cancel"
)

// Inline callback keys.
const (
	CallbackAddPaymentMethod = "add_payment_method"
	CallbackPaymentMethod    = "pay_method"
	CallbackCancel           = "cancel"
)

// SkipWord omits an optional answer.
const SkipWord = "skip"

func userMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{LabelMyAccount, LabelUpdate},
		[]string{LabelHowItWorks, LabelWithdraw},
	)
}

func adminMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{LabelNewReferral},
		[]string{LabelViewReferrals, LabelUpdateStatus},
		[]string{LabelPayout, LabelViewUsers},
	)
}

func cancelKeyboard() *tele.ReplyMarkup {
	return keyboard.OneTimeButtons([]string{LabelCancel})
}

func statusKeyboard() *tele.ReplyMarkup {
	return keyboard.OneTimeButtons(
		[]string{string(domain.ReferralDone), string(domain.ReferralRejected)},
		[]string{string(domain.ReferralPending)},
		[]string{LabelCancel},
	)
}

func accountKeyboard(hasMethod bool) *tele.ReplyMarkup {
	label := "💳 Add Payment Method"
	if hasMethod {
		label = "💳 Change Payment Method"
	}
	return keyboard.InlineButtons(keyboard.InlineBtn{Text: label, Unique: CallbackAddPaymentMethod})
}

func paymentMethodKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "Telebirr (TE)", Unique: CallbackPaymentMethod, Data: "TE"},
			{Text: "CBE (CB)", Unique: CallbackPaymentMethod, Data: "CB"},
		},
		[]keyboard.InlineBtn{{Text: LabelCancel, Unique: CallbackCancel}},
	)
}
