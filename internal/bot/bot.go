// Package bot runs the telegram operator console. Every command delegates to
// the ledger service; the bot holds no business rules of its own.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers operator commands from a single allow-listed chat.
type Bot struct {
	api        sender
	ledger     ledger.Service
	logg       *logger.Logger
	chatID     int64
	operatorID uuid.UUID
}

// Params packages the bot dependencies. OperatorID is the admin user recorded
// as the confirming principal on payments resolved through the bot.
type Params struct {
	API        sender
	Ledger     ledger.Service
	Logger     *logger.Logger
	Config     config.BotConfig
	OperatorID uuid.UUID
}

// New wires the bot.
func New(params Params) (*Bot, error) {
	if params.API == nil {
		return nil, fmt.Errorf("telegram api required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Config.OperatorChatID == 0 {
		return nil, fmt.Errorf("operator chat id required")
	}
	if params.OperatorID == uuid.Nil {
		return nil, fmt.Errorf("operator user id required")
	}
	return &Bot{
		api:        params.API,
		ledger:     params.Ledger,
		logg:       params.Logger,
		chatID:     params.Config.OperatorChatID,
		operatorID: params.OperatorID,
	}, nil
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}
