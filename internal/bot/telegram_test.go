package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v3"

	"optionscout/internal/domain"
	"optionscout/internal/provider"
)

type stubOpportunities struct {
	quote *domain.Quote
	opps  []domain.Opportunity
	err   error

	gotSymbols []string
	gotType    domain.ContractType
}

func (s *stubOpportunities) GetQuote(_ context.Context, _ string) (*domain.Quote, error) {
	return s.quote, s.err
}

func (s *stubOpportunities) TopOpportunities(_ context.Context, symbols []string, contractType domain.ContractType, _, _, _ int) ([]domain.Opportunity, error) {
	s.gotSymbols, s.gotType = symbols, contractType
	return s.opps, s.err
}

func newTestBot(opps Opportunities) *Bot {
	return &Bot{opps: opps, watchlist: []string{"SPY", "QQQ"}, minScore: 70}
}

func sampleOpportunity() domain.Opportunity {
	return domain.Opportunity{
		Contract: domain.OptionContract{
			Underlying: "AAPL",
			Type:       domain.ContractPut,
			Strike:     180,
			Expiration: time.Date(2025, 4, 17, 0, 0, 0, 0, time.UTC),
			ROI:        2.15,
			PoP:        72,
		},
		Score: domain.OpportunityScore{Overall: 86, Recommendation: domain.RecommendStrongBuy},
	}
}

func TestNewSkipsWithoutToken(t *testing.T) {
	b, err := New(Options{}, nil, nil)
	if err != nil || b != nil {
		t.Fatalf("expected nil bot without token, got %v %v", b, err)
	}
}

func TestNewOffline(t *testing.T) {
	b, err := New(Options{Token: "123:abc", Offline: true}, &stubOpportunities{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b == nil || b.Sender() == nil {
		t.Fatal("expected bot with sender")
	}
}

func TestNewPropagatesError(t *testing.T) {
	orig := newTeleBot
	defer func() { newTeleBot = orig }()
	newTeleBot = func(tele.Settings) (*tele.Bot, error) { return nil, errors.New("unauthorized") }

	if _, err := New(Options{Token: "bad"}, nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestQuoteReply(t *testing.T) {
	b := newTestBot(&stubOpportunities{quote: &domain.Quote{Symbol: "AAPL", Price: 190.5, Change: 1.5, ChangePercent: 0.79, PrevClose: 189}})

	if got := b.quoteReply(context.Background(), nil); !strings.HasPrefix(got, "Usage") {
		t.Fatalf("expected usage, got %q", got)
	}
	got := b.quoteReply(context.Background(), []string{"aapl"})
	if !strings.Contains(got, "Price: $190.50") || !strings.Contains(got, "+0.79%") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestQuoteReplyErrors(t *testing.T) {
	b := newTestBot(&stubOpportunities{err: &provider.CircuitOpenError{RetryAfter: 2 * time.Minute}})
	if got := b.quoteReply(context.Background(), []string{"AAPL"}); !strings.Contains(got, "paused") {
		t.Fatalf("unexpected reply: %q", got)
	}

	b = newTestBot(&stubOpportunities{err: provider.ErrQuoteUnavailable})
	if got := b.quoteReply(context.Background(), []string{"ZZZZ"}); got != "No quote available for ZZZZ." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestTopReplyDefaultsToWatchlist(t *testing.T) {
	stub := &stubOpportunities{opps: []domain.Opportunity{sampleOpportunity()}}
	b := newTestBot(stub)

	got := b.topReply(context.Background(), nil)
	if stub.gotType != domain.ContractPut || len(stub.gotSymbols) != 2 {
		t.Fatalf("unexpected scan args: %+v", stub)
	}
	if !strings.Contains(got, "1. AAPL put $180.00 Apr 17 | ROI 2.15% | PoP 72% | score 86 (Strong Buy)") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestTopReplyParsesArgs(t *testing.T) {
	stub := &stubOpportunities{}
	b := newTestBot(stub)

	got := b.topReply(context.Background(), []string{"call", "msft", "nvda"})
	if stub.gotType != domain.ContractCall {
		t.Fatalf("expected call, got %s", stub.gotType)
	}
	if strings.Join(stub.gotSymbols, ",") != "MSFT,NVDA" {
		t.Fatalf("unexpected symbols: %v", stub.gotSymbols)
	}
	if !strings.HasPrefix(got, "No covered_call opportunities") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestTopReplyPartial(t *testing.T) {
	stub := &stubOpportunities{
		opps: []domain.Opportunity{sampleOpportunity()},
		err:  &provider.CircuitOpenError{RetryAfter: time.Minute},
	}
	got := newTestBot(stub).topReply(context.Background(), nil)
	if !strings.HasSuffix(got, "(partial results: provider unavailable)") {
		t.Fatalf("unexpected reply: %q", got)
	}
}
