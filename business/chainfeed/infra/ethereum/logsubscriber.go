package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	gethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-bot/internal/eventbus"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/ratelimit"
)

// LogSubscriberConfig configures a LogSubscriber.
type LogSubscriberConfig struct {
	WSURL          string
	HTTPURL        string
	PollInterval   time.Duration // HTTP fallback: how often to poll for new logs
	ReconnectDelay time.Duration
	RateLimitRPM   int // throttles the HTTP poll fallback only; WS push is event-driven
}

// DefaultLogSubscriberConfig returns sane defaults, matching
// business/blockchain/infra/ethereum.DefaultSubscriberConfig's cadence.
func DefaultLogSubscriberConfig(wsURL, httpURL string) LogSubscriberConfig {
	return LogSubscriberConfig{
		WSURL:          wsURL,
		HTTPURL:        httpURL,
		PollInterval:   12 * time.Second,
		ReconnectDelay: 5 * time.Second,
	}
}

// LogSubscriber watches the configured pool addresses for Sync/Swap/
// Mint/Burn events and publishes decoded updates to an eventbus.Bus
// (spec.md §4.3/§6). WS-primary with HTTP-poll fallback, grounded on
// business/blockchain/infra/ethereum.Subscriber's reconnect/fallback shape
// — same two-client/circuit-breaker structure, generalized from block
// headers to filtered logs.
type LogSubscriber struct {
	cfg    LogSubscriberConfig
	pools  []common.Address
	bus    *eventbus.Bus
	log    logger.LoggerInterface

	wsClient   *ethclient.Client
	httpClient *ethclient.Client
	clientMu   sync.RWMutex

	usingHTTP  atomic.Bool
	lastPolled atomic.Uint64

	done    chan struct{}
	closed  atomic.Bool
	closeMu sync.Mutex

	cb      *circuitbreaker.CircuitBreaker[[]types.Log]
	limiter *ratelimit.Limiter
}

// NewLogSubscriber builds a LogSubscriber over the given pool address set.
func NewLogSubscriber(cfg LogSubscriberConfig, pools []common.Address, bus *eventbus.Bus, log logger.LoggerInterface) *LogSubscriber {
	cbCfg := circuitbreaker.DefaultConfig("chainfeed-log-subscriber")
	var limiter *ratelimit.Limiter
	if cfg.RateLimitRPM > 0 {
		limiter = ratelimit.New(cfg.RateLimitRPM)
	}
	return &LogSubscriber{
		cfg:     cfg,
		pools:   pools,
		bus:     bus,
		log:     log,
		done:    make(chan struct{}),
		cb:      circuitbreaker.New[[]types.Log](cbCfg),
		limiter: limiter,
	}
}

var topics = []common.Hash{
	eventbus.TopicV2Sync,
	eventbus.TopicV2Swap,
	eventbus.TopicV3Swap,
	eventbus.TopicV3Mint,
	eventbus.TopicV3Burn,
}

// Start connects (WS first, HTTP fallback) and runs the subscription/poll
// loop until ctx is canceled or Close is called.
func (s *LogSubscriber) Start(ctx context.Context) error {
	if s.closed.Load() {
		return errors.New("log subscriber is closed")
	}

	if err := s.connectWS(ctx); err != nil {
		s.log.Warn(ctx, "chainfeed log subscriber: ws connect failed, trying http", "error", err)
		if err := s.connectHTTP(ctx); err != nil {
			return apperror.New(apperror.CodeEthereumConnectionFailed, apperror.WithCause(err),
				apperror.WithContext("log subscriber: ws and http both failed"))
		}
		s.usingHTTP.Store(true)
		go s.runHTTPPoller(ctx)
		return nil
	}

	go s.runWSSubscription(ctx)
	return nil
}

func (s *LogSubscriber) connectWS(ctx context.Context) error {
	if s.cfg.WSURL == "" {
		return errors.New("ws url not configured")
	}
	client, err := ethclient.DialContext(ctx, s.cfg.WSURL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}
	s.clientMu.Lock()
	s.wsClient = client
	s.clientMu.Unlock()
	return nil
}

func (s *LogSubscriber) connectHTTP(ctx context.Context) error {
	if s.cfg.HTTPURL == "" {
		return errors.New("http url not configured")
	}
	client, err := ethclient.DialContext(ctx, s.cfg.HTTPURL)
	if err != nil {
		return fmt.Errorf("dial http: %w", err)
	}
	s.clientMu.Lock()
	s.httpClient = client
	s.clientMu.Unlock()
	return nil
}

func (s *LogSubscriber) filterQuery() gethereum.FilterQuery {
	return gethereum.FilterQuery{
		Addresses: s.pools,
		Topics:    [][]common.Hash{topics},
	}
}

func (s *LogSubscriber) runWSSubscription(ctx context.Context) {
	s.clientMu.RLock()
	client := s.wsClient
	s.clientMu.RUnlock()
	if client == nil {
		s.handleWSDisconnect(ctx)
		return
	}

	logsCh := make(chan types.Log, 256)
	sub, err := client.SubscribeFilterLogs(ctx, s.filterQuery(), logsCh)
	if err != nil {
		s.log.Error(ctx, "chainfeed log subscriber: subscribe failed", "error", err)
		s.handleWSDisconnect(ctx)
		return
	}

	s.log.Info(ctx, "chainfeed log subscriber: subscribed via ws")

	for {
		select {
		case <-s.done:
			sub.Unsubscribe()
			return
		case <-ctx.Done():
			sub.Unsubscribe()
			return
		case err := <-sub.Err():
			if err != nil {
				s.log.Error(ctx, "chainfeed log subscriber: subscription error", "error", err)
			}
			sub.Unsubscribe()
			s.handleWSDisconnect(ctx)
			return
		case l := <-logsCh:
			s.decodeAndPublish(ctx, l)
		}
	}
}

func (s *LogSubscriber) handleWSDisconnect(ctx context.Context) {
	if s.closed.Load() {
		return
	}
	time.Sleep(s.cfg.ReconnectDelay)
	if s.closed.Load() {
		return
	}

	if err := s.connectWS(ctx); err != nil {
		s.log.Warn(ctx, "chainfeed log subscriber: ws reconnect failed, switching to http", "error", err)
		s.clientMu.RLock()
		haveHTTP := s.httpClient != nil
		s.clientMu.RUnlock()
		if !haveHTTP {
			if err := s.connectHTTP(ctx); err != nil {
				s.log.Error(ctx, "chainfeed log subscriber: http fallback failed", "error", err)
				return
			}
		}
		s.usingHTTP.Store(true)
		go s.runHTTPPoller(ctx)
		return
	}

	s.usingHTTP.Store(false)
	go s.runWSSubscription(ctx)
}

func (s *LogSubscriber) runHTTPPoller(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.log.Info(ctx, "chainfeed log subscriber: starting http poll fallback", "interval", s.cfg.PollInterval)

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollLogs(ctx)
		}
	}
}

func (s *LogSubscriber) pollLogs(ctx context.Context) {
	s.clientMu.RLock()
	client := s.httpClient
	s.clientMu.RUnlock()
	if client == nil {
		return
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
	}

	latest, err := client.BlockNumber(ctx)
	if err != nil {
		s.log.Error(ctx, "chainfeed log subscriber: block number fetch failed", "error", err)
		return
	}

	from := s.lastPolled.Load()
	if from == 0 {
		from = latest
	}
	if latest <= from {
		return
	}

	query := s.filterQuery()
	query.FromBlock = new(big.Int).SetUint64(from + 1)
	query.ToBlock = new(big.Int).SetUint64(latest)

	logs, err := s.cb.Execute(func() ([]types.Log, error) {
		return client.FilterLogs(ctx, query)
	})
	if err != nil {
		s.log.Error(ctx, "chainfeed log subscriber: filter logs failed", "error", err)
		return
	}

	for _, l := range logs {
		s.decodeAndPublish(ctx, l)
	}
	s.lastPolled.Store(latest)
}

func (s *LogSubscriber) decodeAndPublish(ctx context.Context, l types.Log) {
	if len(l.Topics) == 0 || l.Removed {
		return
	}

	var update eventbus.Update
	var err error

	switch l.Topics[0] {
	case eventbus.TopicV2Sync:
		update.Sync, err = eventbus.DecodeSync(&l)
	case eventbus.TopicV2Swap:
		update.SwapV2, err = eventbus.DecodeSwapV2(&l)
	case eventbus.TopicV3Swap:
		update.SwapV3, err = eventbus.DecodeSwapV3(&l)
	case eventbus.TopicV3Mint:
		update.MintBurnV3, err = eventbus.DecodeMintBurnV3(&l, false)
	case eventbus.TopicV3Burn:
		update.MintBurnV3, err = eventbus.DecodeMintBurnV3(&l, true)
	default:
		return
	}

	if err != nil {
		s.log.Warn(ctx, "chainfeed log subscriber: decode failed", "pool", l.Address.Hex(), "error", err)
		return
	}

	s.bus.Publish(ctx, update)
}

// Close stops both the WS subscription and HTTP poller.
func (s *LogSubscriber) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed.Load() {
		return nil
	}
	s.closed.Store(true)
	close(s.done)

	s.clientMu.Lock()
	if s.wsClient != nil {
		s.wsClient.Close()
		s.wsClient = nil
	}
	if s.httpClient != nil {
		s.httpClient.Close()
		s.httpClient = nil
	}
	s.clientMu.Unlock()
	return nil
}
