package service

import (
	"errors"
	"time"

	"certalert/internal/entity"
)

type settings struct {
	clock         Clock
	location      *time.Location
	batchLimit    uint64
	concurrency   int
	itemTimeout   time.Duration
	claimTTL      time.Duration
	defaultSender string
	tx            TxManager
	locker        Locker
}

func defaultSettings() settings {
	return settings{
		clock:         time.Now,
		location:      time.UTC,
		batchLimit:    _defaultBatchLimit,
		concurrency:   _defaultConcurrency,
		itemTimeout:   _defaultItemTimeout,
		claimTTL:      _defaultClaimTTL,
		defaultSender: _defaultSender,
		tx:            noTx{},
	}
}

type Option func(*settings)

func WithClock(clock Clock) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the zone in which "today" is computed.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithBatchLimit(limit uint64) Option {
	return func(s *settings) {
		if limit > 0 && limit <= _maxBatchLimit {
			s.batchLimit = limit
		}
	}
}

func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithItemTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.itemTimeout = d
		}
	}
}

func WithClaimTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.claimTTL = d
		}
	}
}

func WithDefaultSender(addr string) Option {
	return func(s *settings) {
		if addr != "" {
			s.defaultSender = addr
		}
	}
}

func WithTxManager(tx TxManager) Option {
	return func(s *settings) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithLocker(l Locker) Option {
	return func(s *settings) {
		s.locker = l
	}
}

func (s settings) validate() error {
	if s.batchLimit == 0 {
		return errors.New("invalid batch limit: must be > 0")
	}
	if s.concurrency <= 0 {
		return errors.New("invalid concurrency: must be > 0")
	}
	if s.itemTimeout <= 0 {
		return errors.New("invalid item timeout: must be > 0")
	}
	if s.claimTTL <= 0 {
		return errors.New("invalid claim ttl: must be > 0")
	}
	if s.defaultSender == "" {
		return errors.New("invalid default sender: must be non-empty")
	}
	return nil
}

func (s settings) today() time.Time {
	return s.todayAt(s.clock())
}

func (s settings) todayAt(t time.Time) time.Time {
	return entity.Day(t, s.location)
}
