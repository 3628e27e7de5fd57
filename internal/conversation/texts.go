package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/refbot/core/telegram/format"
	"github.com/m3rciful/refbot/internal/domain"
)

const (
	msgGenericFailure   = "❌ Something went wrong. Please try again later."
	msgNotRegistered    = "You are not registered yet. Send /start to join the referral program."
	msgConversationOpen = "You are in the middle of another action. Finish it or press " + LabelCancel + " first."
	msgButtonExpired    = "This button is no longer active."
	msgUserCancelled    = "Action cancelled."
	msgAdminCancelled   = "Operation cancelled."
	msgNotANumber       = "That's not a valid number. Please send only the numeric ID."
	msgSendText         = "Please answer with a text message."
	msgUnknown          = "I didn't understand that. Please use the menu buttons below."
)

const dateLayout = "02/01/2006"

func orNA(p *string) string {
	if v := format.Deref(p, ""); strings.TrimSpace(v) != "" {
		return format.MD(v)
	}
	return "N/A"
}

func handle(username *string) string {
	if v := format.Deref(username, ""); v != "" {
		return "@" + format.MD(v)
	}
	return "N/A"
}

func (s Settings) money(amount int64) string {
	return fmt.Sprintf("%d %s", amount, s.Currency)
}

func welcomeNew(u domain.User) string {
	return fmt.Sprintf("🎉 Welcome, %s!\n\nYou are now part of the referral program.\n\n"+
		"Your unique referral code is:\n\n`%s`\n\nShare this code with your friends!",
		format.MD(u.FirstName), u.ReferralCode)
}

func welcomeBack(u domain.User) string {
	return fmt.Sprintf("👋 Welcome back, %s!\n\nYour referral code is: `%s`", format.MD(u.FirstName), u.ReferralCode)
}

func welcomeAdmin(firstName string) string {
	return fmt.Sprintf("Welcome back, Admin %s!", format.MD(firstName))
}

func (s Settings) accountSummary(u domain.User, st domain.ReferralStats) string {
	method := "Not set"
	if u.HasPaymentMethod() {
		method = fmt.Sprintf("%s (%s, %s)", format.MD(*u.PaymentMethod),
			format.MD(*u.PaymentAccountName), format.MD(*u.PaymentAccountNumber))
	}
	return fmt.Sprintf("👤 *My Account Summary*\n\n"+
		"Referral Code: `%s`\n"+
		"Balance: *%s*\n"+
		"Payment Method: %s\n"+
		"Total Referrals: %d (%d completed, %d pending, %d rejected)",
		u.ReferralCode, s.money(u.Balance), method, st.Total, st.Done, st.Pending, st.Rejected)
}

func (s Settings) howItWorks() string {
	var b strings.Builder
	b.WriteString("💡 *How Referral Works*\n\n")
	b.WriteString("1. Share your unique referral code with a friend.\n")
	b.WriteString("2. When they contact us, make sure they mention your code.\n")
	b.WriteString("3. Once the work is completed, a reward is added to your balance.\n")
	fmt.Fprintf(&b, "4. Withdraw to Telebirr or CBE once your balance reaches %s.", s.money(s.MinWithdrawal))
	if s.SupportContact != "" {
		fmt.Fprintf(&b, "\n\nQuestions? Contact %s.", format.MD(s.SupportContact))
	}
	return b.String()
}

func choosePaymentMethodPrompt() string {
	return "Choose your payment method.\nReply *TE* for Telebirr or *CB* for CBE, or tap a button below."
}

func (s Settings) withdrawPrompt(balance int64) string {
	return fmt.Sprintf("Your balance is *%s*.\nEnter the amount to withdraw (minimum %s):",
		s.money(balance), s.money(s.MinWithdrawal))
}

func (s Settings) belowMinimum(balance int64) string {
	return fmt.Sprintf("Your balance is *%s*. The minimum withdrawal is *%s*.",
		s.money(balance), s.money(s.MinWithdrawal))
}

func (s Settings) withdrawalSubmitted(w domain.WithdrawalRequest) string {
	return fmt.Sprintf("✅ Your withdrawal request of *%s* has been submitted (ID %d).\n"+
		"You will receive a confirmation once it is paid.", s.money(w.Amount), w.ID)
}

func (s Settings) withdrawalAdminNotice(u domain.User, w domain.WithdrawalRequest) string {
	return fmt.Sprintf("💵 *New Withdrawal Request*\n\n"+
		"*ID:* %d\n*User:* %s\n*Username:* %s\n*Amount:* %s\n*Payment:* %s, %s, %s",
		w.ID, format.MD(u.DisplayName()), handle(u.Username), s.money(w.Amount),
		orNA(u.PaymentMethod), orNA(u.PaymentAccountName), orNA(u.PaymentAccountNumber))
}

func (s Settings) withdrawalGroupNotice(u domain.User, w domain.WithdrawalRequest) string {
	return fmt.Sprintf("💵 *%s* requested a withdrawal of *%s*.", format.MD(u.FirstName), s.money(w.Amount))
}

func referralEntry(e domain.ReferralEntry) string {
	return fmt.Sprintf("*ID: %d* | `%s`\n*Referrer:* %s\n*New Customer:* %s\n*Date:* %s",
		e.ID, e.Status, format.MD(e.ReferrerName), orNA(e.CustomerName), e.CreatedAt.Format(dateLayout))
}

func (s Settings) userEntry(u domain.User) string {
	return fmt.Sprintf("*Name:* %s\n*Username:* %s\n*Referral Code:* `%s`\n*Balance:* %s\n*Joined:* %s",
		format.MD(u.DisplayName()), handle(u.Username), u.ReferralCode, s.money(u.Balance),
		u.CreatedAt.Format(dateLayout))
}

func (s Settings) payoutEntry(p domain.PayoutEntry) string {
	return fmt.Sprintf("*ID: %d* | *%s*\n*User:* %s\n*Username:* %s\n"+
		"*Payment Method:* %s\n*Account Name:* %s\n*Account Number:* %s\n*Requested On:* %s",
		p.ID, s.money(p.Amount), format.MD(p.FirstName), handle(p.Username),
		orNA(p.PaymentMethod), orNA(p.PaymentAccountName), orNA(p.PaymentAccountNumber),
		p.RequestedAt.Format(dateLayout))
}

func referralCreatedAdmin(referrer, customer, phone string) string {
	return fmt.Sprintf("✅ *New Referral Created Successfully*\n\n"+
		"*Referrer:* %s\n*New Customer Name:* %s\n*New Customer Phone:* %s\n\n"+
		"The status has been set to '%s'.", referrer, customer, phone, domain.ReferralPending)
}

func (s Settings) referralCreatedReferrer(customer string) string {
	text := fmt.Sprintf("🎉 *A new customer was registered with your code!*\n\n"+
		"*Customer:* %s\n*Status:* %s\n\nYou will be rewarded once the work is completed.",
		customer, domain.ReferralPending)
	if s.SupportContact != "" {
		text += fmt.Sprintf("\n\nQuestions? Contact %s.", format.MD(s.SupportContact))
	}
	return text
}

func (s Settings) referralDoneReferrer(customer string, reward int64) string {
	return fmt.Sprintf("🎉 Your referral for *%s* has been completed!\n\n"+
		"*%s* has been added to your balance. You can withdraw it from your account.",
		customer, s.money(reward))
}

func (s Settings) referralRejectedReferrer(customer string) string {
	text := fmt.Sprintf("❌ Your referral for *%s* has been rejected.", customer)
	if s.SupportContact != "" {
		text += fmt.Sprintf("\n\nIf you have any questions, contact %s.", format.MD(s.SupportContact))
	}
	return text
}

func (s Settings) payoutUserCaption(amount int64) string {
	return fmt.Sprintf("🎉 Your payment of *%s* has been sent!\nCheck your account balance.", s.money(amount))
}

func (s Settings) payoutGroupCaption(name string, amount int64) string {
	return fmt.Sprintf("💸 *Payout sent!*\n\n*%s* sent to *%s*.", s.money(amount), format.MD(name))
}

func paidAt(t time.Time) string {
	return t.Format(dateLayout + " 15:04")
}
