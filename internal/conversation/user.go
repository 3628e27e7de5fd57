package conversation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/format"
	"github.com/m3rciful/refbot/internal/domain"
)

// registerAttempts bounds code regeneration when an insert loses a uniqueness race.
const registerAttempts = 3

// UserEngine drives the referrer dialogues.
type UserEngine struct {
	dialog
}

// NewUserEngine wires the user dialogues.
func NewUserEngine(deps Deps) *UserEngine {
	e := &UserEngine{dialog: newDialog(deps, "user", logger.Users, userMenu)}
	e.steps[StatePaymentMethodChoice] = e.stepPaymentMethod
	e.steps[StateAccountName] = e.stepAccountName
	e.steps[StatePaymentNumber] = e.stepPaymentNumber
	e.steps[StateWithdrawalAmount] = e.stepWithdrawalAmount
	return e
}

// Start registers a first-time user or greets a returning one. The admin gets the admin menu.
func (e *UserEngine) Start(r Request) error {
	if r.Sender.ID == e.deps.Settings.AdminID {
		return e.reply(r, welcomeAdmin(r.Sender.FirstName), adminMenu())
	}

	ctx := r.ctx()
	u, err := e.deps.Store.UserByTelegramID(ctx, r.Sender.ID)
	switch {
	case err == nil:
		e.event(r, slog.LevelInfo, "user.returning", slog.String("referral_code", u.ReferralCode))
		return e.reply(r, welcomeBack(u), e.menu())
	case !errors.Is(err, domain.ErrNotFound):
		return e.failure(r, "start", err)
	}

	u, err = e.register(r)
	if errors.Is(err, domain.ErrAlreadyRegistered) {
		// A concurrent /start from the same user won the insert.
		if u, err = e.deps.Store.UserByTelegramID(ctx, r.Sender.ID); err == nil {
			return e.reply(r, welcomeBack(u), e.menu())
		}
	}
	if err != nil {
		return e.failure(r, "register", err)
	}
	e.event(r, slog.LevelInfo, "user.registered", slog.String("referral_code", u.ReferralCode))
	return e.reply(r, welcomeNew(u), e.menu())
}

func (e *UserEngine) register(r Request) (domain.User, error) {
	ctx := r.ctx()
	var lastErr error
	for attempt := 1; attempt <= registerAttempts; attempt++ {
		code, err := e.deps.Codes.Generate(ctx, r.Sender.FirstName, r.Sender.LastName)
		if err != nil {
			return domain.User{}, err
		}
		u := domain.User{
			TelegramID:   r.Sender.ID,
			FirstName:    r.Sender.FirstName,
			LastName:     strPtr(r.Sender.LastName),
			Username:     strPtr(r.Sender.Username),
			ReferralCode: code,
		}
		err = e.deps.Store.CreateUser(ctx, &u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) {
			return domain.User{}, err
		}
		lastErr = err
		e.event(r, slog.LevelWarn, "user.code_collision", slog.String("referral_code", code), slog.Int("attempts", attempt))
	}
	return domain.User{}, fmt.Errorf("register after %d attempts: %w", registerAttempts, lastErr)
}

// registered loads the sender's account, answering unknown users with a hint.
func (e *UserEngine) registered(r Request, op string) (domain.User, bool, error) {
	u, err := e.deps.Store.UserByTelegramID(r.ctx(), r.Sender.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, e.reply(r, msgNotRegistered, nil)
	}
	if err != nil {
		return domain.User{}, false, e.failure(r, op, err)
	}
	return u, true, nil
}

// Account shows the code, balance, payment method and referral counts.
func (e *UserEngine) Account(r Request) error {
	u, ok, err := e.registered(r, "account")
	if !ok {
		return err
	}
	return e.showAccount(r, u)
}

func (e *UserEngine) showAccount(r Request, u domain.User) error {
	stats, err := e.deps.Store.ReferralStats(r.ctx(), u.ID)
	if err != nil {
		return e.failure(r, "account", err)
	}
	return e.reply(r, e.deps.Settings.accountSummary(u, stats), accountKeyboard(u.HasPaymentMethod()))
}

// HowItWorks explains the program.
func (e *UserEngine) HowItWorks(r Request) error {
	return e.reply(r, e.deps.Settings.howItWorks(), e.menu())
}

// Update refreshes the stored name and username from Telegram, then shows the account.
func (e *UserEngine) Update(r Request) error {
	u, err := e.deps.Store.UpdateProfile(r.ctx(), r.Sender.ID, r.Sender.FirstName,
		strPtr(r.Sender.LastName), strPtr(r.Sender.Username))
	if errors.Is(err, domain.ErrNotFound) {
		return e.reply(r, msgNotRegistered, nil)
	}
	if err != nil {
		return e.failure(r, "update", err)
	}
	e.event(r, slog.LevelInfo, "user.updated")
	if err := e.reply(r, "🔄 Your account information has been updated.", e.menu()); err != nil {
		return err
	}
	return e.showAccount(r, u)
}

// AddPaymentMethod opens the payment method dialogue.
func (e *UserEngine) AddPaymentMethod(r Request) error {
	u, ok, err := e.registered(r, "add_payment_method")
	if !ok {
		return err
	}
	if ok, err := e.begin(r, StatePaymentMethodChoice); !ok {
		return err
	}
	e.deps.Sessions.SetTemp(r.ChatID, keyUserID, u.ID)
	return e.reply(r, choosePaymentMethodPrompt(), paymentMethodKeyboard())
}

// ChoosePaymentMethod handles the inline method buttons; r.Text carries the method code.
func (e *UserEngine) ChoosePaymentMethod(r Request) error {
	if e.deps.Sessions.GetState(r.ChatID) != StatePaymentMethodChoice {
		return e.reply(r, msgButtonExpired, nil)
	}
	return e.conclude(r, StatePaymentMethodChoice, e.stepPaymentMethod(r))
}

func (e *UserEngine) stepPaymentMethod(r Request) error {
	method, ok := domain.PaymentMethodByCode(r.Text)
	if !ok {
		return domain.Invalid("payment_method", "Please reply with *TE* for Telebirr or *CB* for CBE.")
	}
	e.deps.Sessions.SetTemp(r.ChatID, keyMethod, string(method))
	return e.advance(r, StateAccountName,
		fmt.Sprintf("%s selected. Enter the account holder's full name:", method), cancelKeyboard())
}

func (e *UserEngine) stepAccountName(r Request) error {
	name, err := textAnswer(r, "account_name")
	if err != nil {
		return err
	}
	e.deps.Sessions.SetTemp(r.ChatID, keyAccountName, name)
	return e.advance(r, StatePaymentNumber, "Enter the account or phone number:", cancelKeyboard())
}

func (e *UserEngine) stepPaymentNumber(r Request) error {
	number, err := textAnswer(r, "account_number")
	if err != nil {
		return err
	}
	userID, okID := e.deps.Sessions.GetTempInt64(r.ChatID, keyUserID)
	method, okMethod := e.deps.Sessions.GetTempString(r.ChatID, keyMethod)
	name, okName := e.deps.Sessions.GetTempString(r.ChatID, keyAccountName)
	if !okID || !okMethod || !okName {
		return errors.New("payment method session is incomplete")
	}

	profile := domain.PaymentProfile{Method: domain.PaymentMethod(method), AccountName: name, AccountNumber: number}
	if err := e.deps.Store.SetPaymentProfile(r.ctx(), userID, profile); err != nil {
		return err
	}
	e.event(r, slog.LevelInfo, "user.payment_method", slog.String("method", method))
	e.complete(r, fmt.Sprintf("✅ Payment method saved: *%s* (%s, %s).",
		method, format.MD(name), format.MD(number)))
	return nil
}

// Withdraw checks the preconditions and opens the amount dialogue.
func (e *UserEngine) Withdraw(r Request) error {
	u, ok, err := e.registered(r, "withdraw")
	if !ok {
		return err
	}
	if !u.HasPaymentMethod() {
		return e.reply(r, "Please add a payment method before requesting a withdrawal.", accountKeyboard(false))
	}
	cfg := e.deps.Settings
	if u.Balance < cfg.MinWithdrawal {
		e.event(r, slog.LevelInfo, "withdraw.below_minimum", slog.Int64("balance", u.Balance))
		return e.reply(r, cfg.belowMinimum(u.Balance), e.menu())
	}
	if ok, err := e.begin(r, StateWithdrawalAmount); !ok {
		return err
	}
	e.deps.Sessions.SetTemp(r.ChatID, keyUserID, u.ID)
	return e.reply(r, cfg.withdrawPrompt(u.Balance), cancelKeyboard())
}

func (e *UserEngine) stepWithdrawalAmount(r Request) error {
	cfg := e.deps.Settings
	amount, err := parseAmount(r, "amount", "Please enter the amount as a whole number, for example 150.")
	if err != nil {
		return err
	}
	if amount < cfg.MinWithdrawal {
		return domain.Invalid("amount", fmt.Sprintf("The minimum withdrawal is *%s*.", cfg.money(cfg.MinWithdrawal)))
	}
	userID, ok := e.deps.Sessions.GetTempInt64(r.ChatID, keyUserID)
	if !ok {
		return errors.New("withdrawal session is incomplete")
	}

	ctx := r.ctx()
	u, err := e.deps.Store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if amount > u.Balance {
		return domain.Invalid("amount", fmt.Sprintf("You can withdraw at most *%s*.", cfg.money(u.Balance)))
	}

	w, err := e.deps.Store.CreateWithdrawal(ctx, userID, amount)
	if errors.Is(err, domain.ErrInsufficientBalance) {
		return abort("Your balance changed and no longer covers %s. Please try again.", cfg.money(amount))
	}
	if err != nil {
		return err
	}

	logger.LogEvent(logger.WithFlow(ctx, e.flow), logger.Payouts, slog.LevelInfo, "withdrawal.requested",
		slog.Int64("withdrawal_id", w.ID),
		slog.Int64("amount", w.Amount),
		slog.Int64("balance", u.Balance-w.Amount),
	)
	e.complete(r, cfg.withdrawalSubmitted(w))
	e.deps.Notify.Admin(ctx, cfg.withdrawalAdminNotice(u, w))
	e.deps.Notify.Group(ctx, cfg.withdrawalGroupNotice(u, w))
	return nil
}

// Cancel closes an open user dialogue and shows the account. Without a dialogue it does nothing.
func (e *UserEngine) Cancel(r Request) error {
	if !e.deps.Sessions.Clear(r.ChatID) {
		return nil
	}
	e.event(r, slog.LevelInfo, "dialog.cancel")
	if err := e.reply(r, msgUserCancelled, e.menu()); err != nil {
		return err
	}
	return e.Account(r)
}

// Continue feeds r to the step of the open dialogue.
func (e *UserEngine) Continue(r Request) error {
	return e.continueDialog(r)
}
