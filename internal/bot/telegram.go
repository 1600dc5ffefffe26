package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"optionscout/internal/domain"
	"optionscout/internal/provider"
)

const commandTimeout = 45 * time.Second

// Opportunities is what the bot commands read from.
type Opportunities interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
	TopOpportunities(ctx context.Context, symbols []string, contractType domain.ContractType, maxDTE, limit, minScore int) ([]domain.Opportunity, error)
}

var newTeleBot = tele.NewBot

type Bot struct {
	bot       *tele.Bot
	opps      Opportunities
	watchlist []string
	minScore  int
	log       *zap.Logger
}

type Options struct {
	Token     string
	Watchlist []string
	MinScore  int
	// Offline skips the getMe handshake; used by tests.
	Offline bool
}

// New builds the bot and registers its commands. It returns nil without error when no
// token is configured.
func New(opts Options, opps Opportunities, log *zap.Logger) (*Bot, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("telegram")
	if opts.Token == "" {
		log.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}

	tb, err := newTeleBot(tele.Settings{
		Token:   opts.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Offline: opts.Offline,
		OnError: func(err error, c tele.Context) {
			log.Warn("telegram handler error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b := &Bot{bot: tb, opps: opps, watchlist: opts.Watchlist, minScore: opts.MinScore, log: log}
	tb.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	tb.Handle("/quote", func(c tele.Context) error {
		return c.Send(b.quoteReply(context.Background(), c.Args()))
	})
	tb.Handle("/top", func(c tele.Context) error {
		return c.Send(b.topReply(context.Background(), c.Args()))
	})
	return b, nil
}

// Sender exposes the bot's send side for alert notifications.
func (b *Bot) Sender() Sender {
	return b.bot
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	go b.bot.Start()
	b.log.Info("Telegram bot started")
	<-ctx.Done()
	b.bot.Stop()
	b.log.Info("Telegram bot stopped")
}

func (b *Bot) quoteReply(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: /quote AAPL"
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	symbol := strings.ToUpper(args[0])
	q, err := b.opps.GetQuote(ctx, symbol)
	if err != nil {
		return errorReply(symbol, err)
	}
	return fmt.Sprintf(
		"%s\nPrice: $%.2f\nChange: %+.2f (%+.2f%%)\nPrev close: $%.2f",
		q.Symbol, q.Price, q.Change, q.ChangePercent, q.PrevClose,
	)
}

// topReply answers /top [put|call] [SYM ...].
func (b *Bot) topReply(ctx context.Context, args []string) string {
	contractType := domain.ContractPut
	if len(args) > 0 {
		if t, err := domain.ParseContractType(args[0]); err == nil {
			contractType = t
			args = args[1:]
		}
	}
	symbols := b.watchlist
	if len(args) > 0 {
		symbols = make([]string, 0, len(args))
		for _, a := range args {
			symbols = append(symbols, strings.ToUpper(a))
		}
	}
	if len(symbols) == 0 {
		return "Usage: /top [put|call] AAPL MSFT"
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	opps, err := b.opps.TopOpportunities(ctx, symbols, contractType, 0, 5, b.minScore)
	if err != nil && len(opps) == 0 {
		return errorReply(strings.Join(symbols, ","), err)
	}
	if len(opps) == 0 {
		return fmt.Sprintf("No %s opportunities scoring %d+ right now.", contractType.Strategy(), b.minScore)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top %s opportunities\n", contractType.Strategy())
	for i, opp := range opps {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, summarize(opp)))
	}
	if err != nil {
		sb.WriteString("(partial results: provider unavailable)")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func summarize(opp domain.Opportunity) string {
	c := opp.Contract
	return fmt.Sprintf("%s %s $%.2f %s | ROI %.2f%% | PoP %.0f%% | score %d (%s)",
		c.Underlying, c.Type, c.Strike, c.Expiration.Format("Jan 02"),
		c.ROI, c.PoP, opp.Score.Overall, opp.Score.Recommendation,
	)
}

func errorReply(subject string, err error) string {
	if coe, ok := provider.IsCircuitOpen(err); ok {
		return fmt.Sprintf("Market data is paused, try again in %s.", coe.RetryAfter.Round(time.Second))
	}
	if errors.Is(err, provider.ErrQuoteUnavailable) {
		return fmt.Sprintf("No quote available for %s.", subject)
	}
	return fmt.Sprintf("Error fetching %s: %v", subject, err)
}
