package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"optionscout/internal/domain"
	"optionscout/internal/provider"
	"optionscout/internal/scoring"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

type mockMarket struct {
	quotes     map[string]*domain.Quote
	chains     map[string][]domain.OptionContract
	errs       map[string]error
	quoteCalls int
	chainCalls []string
}

func (m *mockMarket) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	m.quoteCalls++
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	q, ok := m.quotes[symbol]
	if !ok {
		return nil, provider.ErrQuoteUnavailable
	}
	return q, nil
}

func (m *mockMarket) GetOptionChain(_ context.Context, underlying string, _ domain.ContractType, _ int) ([]domain.OptionContract, error) {
	m.chainCalls = append(m.chainCalls, underlying)
	if err := m.errs[underlying]; err != nil {
		return nil, err
	}
	return m.chains[underlying], nil
}

type staticStatus domain.QueueStatus

func (s staticStatus) Status() domain.QueueStatus { return domain.QueueStatus(s) }

func ptr[T any](v T) *T { return &v }

func contract(underlying string, strike, roi float64, volume, oi int64) domain.OptionContract {
	return domain.OptionContract{
		Ticker:        "O:" + underlying,
		Underlying:    underlying,
		Type:          domain.ContractPut,
		Strategy:      domain.StrategyCashSecuredPut,
		Strike:        strike,
		DTE:           30,
		Bid:           1.98,
		Ask:           2.00,
		Premium:       1.99,
		Volume:        volume,
		OpenInterest:  oi,
		ROI:           roi,
		ROIAnnualized: roi * 12,
		Distance:      5,
		PoP:           70,
		Greeks: domain.Greeks{
			Delta: ptr(-0.28),
			Theta: ptr(-0.05),
			IV:    ptr(0.42),
		},
		IVRank: ptr(65.0),
	}
}

func newTestService(market MarketData, kv *fakeRedis) *OpportunityService {
	return NewOpportunityService(testTracer, market, scoring.NewEngine(), kv, staticStatus{Pending: 2}, nil, 45)
}

func TestGetQuoteCachesResult(t *testing.T) {
	market := &mockMarket{quotes: map[string]*domain.Quote{"AAPL": {Symbol: "AAPL", Price: 190.5}}}
	kv := newFakeRedis()
	svc := newTestService(market, kv)

	q, err := svc.GetQuote(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, 190.5, q.Price)
	assert.Equal(t, quoteCacheTTL, kv.ttls["quote:AAPL"])

	q, err = svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 1, market.quoteCalls, "second call should hit the cache")
}

func TestGetQuoteRejectsEmptySymbol(t *testing.T) {
	svc := newTestService(&mockMarket{}, newFakeRedis())
	_, err := svc.GetQuote(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetQuoteCacheErrorFallsBackToProvider(t *testing.T) {
	market := &mockMarket{quotes: map[string]*domain.Quote{"MSFT": {Symbol: "MSFT", Price: 410}}}
	kv := newFakeRedis()
	kv.getErr = errors.New("connection refused")
	svc := newTestService(market, kv)

	q, err := svc.GetQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 410.0, q.Price)
	assert.Equal(t, 1, market.quoteCalls)
}

func TestGetQuoteWithoutCache(t *testing.T) {
	market := &mockMarket{quotes: map[string]*domain.Quote{"MSFT": {Symbol: "MSFT", Price: 410}}}
	svc := NewOpportunityService(testTracer, market, scoring.NewEngine(), nil, nil, nil, 0)

	_, err := svc.GetQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	_, err = svc.GetQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 2, market.quoteCalls)
	assert.Equal(t, domain.QueueStatus{}, svc.QueueStatus())
}

func TestGetOptionChainUsesDefaultDTEInCacheKey(t *testing.T) {
	market := &mockMarket{chains: map[string][]domain.OptionContract{
		"AAPL": {contract("AAPL", 180, 2, 500, 2000)},
	}}
	kv := newFakeRedis()
	svc := newTestService(market, kv)

	chain, err := svc.GetOptionChain(context.Background(), "aapl", domain.ContractPut, 0)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, chainCacheTTL, kv.ttls["chain:AAPL:put:45"])

	_, err = svc.GetOptionChain(context.Background(), "AAPL", domain.ContractPut, 45)
	require.NoError(t, err)
	assert.Len(t, market.chainCalls, 1)
}

func TestGetOpportunitiesOrdersByScore(t *testing.T) {
	market := &mockMarket{chains: map[string][]domain.OptionContract{
		"AAPL": {
			contract("AAPL", 180, 0.5, 5, 10),
			contract("AAPL", 175, 2, 500, 2000),
		},
	}}
	svc := newTestService(market, newFakeRedis())

	opps, err := svc.GetOpportunities(context.Background(), "AAPL", domain.ContractPut, 30, scoring.Context{})
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, 175.0, opps[0].Contract.Strike)
	assert.GreaterOrEqual(t, opps[0].Score.Overall, opps[1].Score.Overall)
}

func TestGetOpportunitiesAppliesScoringContext(t *testing.T) {
	c := contract("AAPL", 175, 2, 500, 2000)
	market := &mockMarket{chains: map[string][]domain.OptionContract{"AAPL": {c}}}
	svc := newTestService(market, newFakeRedis())

	days, rank := 3, 80.0
	sc := scoring.Context{DaysToEarnings: &days, IVRank: &rank}
	opps, err := svc.GetOpportunities(context.Background(), "AAPL", domain.ContractPut, 30, sc)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	engine := scoring.NewEngine()
	assert.Equal(t, engine.ScoreWith(opps[0].Contract, sc), opps[0].Score)
	assert.Equal(t, domain.RiskLow, engine.Score(opps[0].Contract).Risk)
	assert.Equal(t, domain.RiskHigh, opps[0].Score.Risk)
}

func TestTopOpportunitiesSkipsFailingSymbols(t *testing.T) {
	market := &mockMarket{
		chains: map[string][]domain.OptionContract{
			"AAPL": {contract("AAPL", 175, 2, 500, 2000)},
			"MSFT": {contract("MSFT", 400, 2.5, 800, 3000), contract("MSFT", 390, 0.1, 0, 0)},
		},
		errs: map[string]error{"TSLA": &provider.HTTPError{Status: 404}},
	}
	svc := newTestService(market, newFakeRedis())

	top, err := svc.TopOpportunities(context.Background(), []string{"AAPL", "TSLA", "MSFT"}, domain.ContractPut, 30, 10, 50)
	require.NoError(t, err)
	require.Len(t, top, 2)
	for _, opp := range top {
		assert.GreaterOrEqual(t, opp.Score.Overall, 50)
	}
	assert.Equal(t, []string{"AAPL", "TSLA", "MSFT"}, market.chainCalls)
}

func TestTopOpportunitiesStopsOnOpenCircuit(t *testing.T) {
	openErr := &provider.CircuitOpenError{RetryAfter: time.Minute}
	market := &mockMarket{
		chains: map[string][]domain.OptionContract{
			"AAPL": {contract("AAPL", 175, 2, 500, 2000)},
			"MSFT": {contract("MSFT", 400, 2.5, 800, 3000)},
		},
		errs: map[string]error{"TSLA": openErr},
	}
	svc := newTestService(market, newFakeRedis())

	top, err := svc.TopOpportunities(context.Background(), []string{"AAPL", "TSLA", "MSFT"}, domain.ContractPut, 30, 10, 0)
	var coe *provider.CircuitOpenError
	require.ErrorAs(t, err, &coe)
	assert.Len(t, top, 1, "results collected before the breaker opened are kept")
	assert.Equal(t, []string{"AAPL", "TSLA"}, market.chainCalls)
}

func TestTopOpportunitiesAppliesLimit(t *testing.T) {
	market := &mockMarket{chains: map[string][]domain.OptionContract{
		"AAPL": {
			contract("AAPL", 175, 2, 500, 2000),
			contract("AAPL", 170, 1.8, 400, 1500),
			contract("AAPL", 165, 1.6, 300, 1000),
		},
	}}
	svc := newTestService(market, newFakeRedis())

	top, err := svc.TopOpportunities(context.Background(), []string{"AAPL"}, domain.ContractPut, 30, 2, 0)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestMatchCriteriaFiltersChain(t *testing.T) {
	market := &mockMarket{chains: map[string][]domain.OptionContract{
		"AAPL": {
			contract("AAPL", 175, 2, 500, 2000),
			contract("AAPL", 170, 0.8, 400, 1500),
		},
	}}
	svc := newTestService(market, newFakeRedis())

	matched, err := svc.MatchCriteria(context.Background(), domain.AlertCriteria{MinROI: ptr(1.5)}, "AAPL", domain.ContractPut, 30)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, 175.0, matched[0].Contract.Strike)
}

func TestQueueStatusDelegates(t *testing.T) {
	svc := newTestService(&mockMarket{}, newFakeRedis())
	assert.Equal(t, 2, svc.QueueStatus().Pending)
}
