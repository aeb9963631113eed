package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/pkg/db/models"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

const helpText = `Commands:
/pending - payments awaiting confirmation
/check <payment-id> - payment and build status
/confirm <payment-id> - confirm payment, start the build
/reject <payment-id> - reject payment
/retry <generate-id> - re-dispatch a failed build
/problems - confirmed payments with stuck builds`

// HandleUpdate dispatches a single telegram update. Messages from any chat
// other than the configured operator chat are dropped.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	msg := update.Message
	if msg.Chat == nil || msg.Chat.ID != b.chatID {
		if b.logg != nil {
			b.logg.Warn(ctx, fmt.Sprintf("ignoring command from unauthorized chat %d", chatIDOf(msg)))
		}
		return
	}

	var reply string
	switch msg.Command() {
	case "pending":
		reply = b.handlePending(ctx)
	case "check":
		reply = b.handleCheck(ctx, msg.CommandArguments())
	case "confirm":
		reply = b.handleConfirm(ctx, msg.CommandArguments())
	case "reject":
		reply = b.handleReject(ctx, msg.CommandArguments())
	case "retry":
		reply = b.handleRetry(ctx, msg.CommandArguments())
	case "problems":
		reply = b.handleProblems(ctx)
	case "start", "help":
		reply = helpText
	default:
		reply = "Unknown command. Send /help for the list."
	}

	b.reply(ctx, reply)
}

func chatIDOf(msg *tgbotapi.Message) int64 {
	if msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}

func (b *Bot) reply(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil && b.logg != nil {
		b.logg.Error(ctx, "failed to send bot reply", err)
	}
}

func (b *Bot) handlePending(ctx context.Context) string {
	status := enums.PaymentStatusPending
	payments, err := b.ledger.ListPayments(ctx, &status)
	if err != nil {
		return errorText(err)
	}
	if len(payments) == 0 {
		return "No pending payments."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d pending payment(s):\n", len(payments))
	for _, p := range payments {
		fmt.Fprintf(&sb, "• %s - %s, created %s\n", p.ID, p.Amount.StringFixed(2), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return sb.String()
}

func (b *Bot) handleCheck(ctx context.Context, arg string) string {
	id, err := parseID(arg)
	if err != nil {
		return err.Error()
	}
	detail, err := b.ledger.GetPaymentDetail(ctx, id)
	if err != nil {
		return errorText(err)
	}
	return formatDetail(detail.Payment, detail.Generate)
}

func (b *Bot) handleConfirm(ctx context.Context, arg string) string {
	id, err := parseID(arg)
	if err != nil {
		return err.Error()
	}
	payment, err := b.ledger.ConfirmPayment(ctx, b.operatorID, id)
	if err != nil {
		return errorText(err)
	}
	return fmt.Sprintf("Payment %s confirmed, build dispatched.", payment.ID)
}

func (b *Bot) handleReject(ctx context.Context, arg string) string {
	id, err := parseID(arg)
	if err != nil {
		return err.Error()
	}
	payment, err := b.ledger.RejectPayment(ctx, b.operatorID, id)
	if err != nil {
		return errorText(err)
	}
	return fmt.Sprintf("Payment %s rejected.", payment.ID)
}

func (b *Bot) handleRetry(ctx context.Context, arg string) string {
	id, err := parseID(arg)
	if err != nil {
		return err.Error()
	}
	generate, err := b.ledger.RetryBuild(ctx, b.operatorID, id)
	if err != nil {
		return errorText(err)
	}
	return fmt.Sprintf("Build for %s re-dispatched.", generate.ID)
}

func (b *Bot) handleProblems(ctx context.Context) string {
	generates, err := b.ledger.ListProblemGenerates(ctx)
	if err != nil {
		return errorText(err)
	}
	if len(generates) == 0 {
		return "No stuck builds."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d stuck build(s):\n", len(generates))
	for _, g := range generates {
		fmt.Fprintf(&sb, "• %s - %s (%s)", g.ID, g.AppName, g.Status)
		if g.ErrorMessage != nil {
			fmt.Fprintf(&sb, ": %s", *g.ErrorMessage)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func parseID(arg string) (uuid.UUID, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return uuid.Nil, fmt.Errorf("Usage: provide an id, e.g. /check <id>")
	}
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%q is not a valid id.", arg)
	}
	return id, nil
}

func formatDetail(payment *models.Payment, generate *models.Generate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Payment %s: %s, amount %s\n", payment.ID, payment.Status, payment.Amount.StringFixed(2))
	fmt.Fprintf(&sb, "Generate %s: %s (%s)\n", generate.ID, generate.Status, generate.AppName)
	if generate.ErrorMessage != nil {
		fmt.Fprintf(&sb, "Last error: %s\n", *generate.ErrorMessage)
	}
	if generate.APKKey != nil {
		sb.WriteString("Artifact is ready for download.\n")
	}
	return sb.String()
}

func errorText(err error) string {
	if appErr := pkgerrors.As(err); appErr != nil {
		return appErr.Message()
	}
	return "Something went wrong, check the service logs."
}
