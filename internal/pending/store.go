package pending

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const (
	// DefaultTTL is how long a staged intent stays confirmable.
	DefaultTTL = 5 * time.Minute

	// DefaultSweepInterval is how often expired entries are removed.
	DefaultSweepInterval = 10 * time.Second

	// maxCodeAttempts bounds re-draws when a code is already live for the
	// same origin.
	maxCodeAttempts = 32
)

// Config holds dependencies for the store.
type Config struct {
	Clock       clock.Clock
	TTL         time.Duration
	SweepTicker ticker.Ticker
	Codes       CodeGenerator
	Logger      LogWriter
}

// expiryItem orders entries by expiry in the sweep queue.
type expiryItem struct {
	id        string
	expiresAt time.Time
}

func (e *expiryItem) Less(other queue.PriorityQueueItem) bool {
	return e.expiresAt.Before(other.(*expiryItem).expiresAt)
}

// Store is the in-memory pending transaction store. One mutex guards every
// mutation, so a confirm and an expiry can never both consume an entry.
type Store struct {
	clock  clock.Clock
	ttl    time.Duration
	codes  CodeGenerator
	logger LogWriter
	ticker ticker.Ticker

	mu       sync.Mutex
	entries  map[string]*PendingTransaction
	byOrigin map[string]map[string]string // origin -> code -> id
	expiry   queue.PriorityQueue

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	wg        sync.WaitGroup
}

// NewStore creates a store. Nil fields in cfg get defaults.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}

	s := &Store{
		clock:    cfg.Clock,
		ttl:      cfg.TTL,
		codes:    cfg.Codes,
		logger:   cfg.Logger,
		ticker:   cfg.SweepTicker,
		entries:  make(map[string]*PendingTransaction),
		byOrigin: make(map[string]map[string]string),
		quit:     make(chan struct{}),
	}
	if s.clock == nil {
		s.clock = clock.NewDefaultClock()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.codes == nil {
		s.codes = RandomCodes{}
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.ticker == nil {
		s.ticker = ticker.New(DefaultSweepInterval)
	}
	return s
}

// TTL returns the confirmation window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stages payload for origin and returns its id and code.
func (s *Store) Create(origin string, payload Payload) (Ticket, error) {
	if origin == "" {
		return Ticket{}, custodyerr.Wrap(custodyerr.ErrInvalidInput, "origin is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.byOrigin[origin]

	var code string
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return Ticket{}, custodyerr.Wrap(custodyerr.ErrGeneral, "no free confirmation code")
		}
		c, err := s.codes.NewCode()
		if err != nil {
			return Ticket{}, custodyerr.WithCause(custodyerr.ErrGeneral, err)
		}
		if _, taken := live[c]; !taken {
			code = c
			break
		}
	}

	now := s.clock.Now()
	tx := &PendingTransaction{
		ID:        uuid.NewString(),
		Origin:    origin,
		Code:      code,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Status:    StatusPending,
	}

	s.entries[tx.ID] = tx
	if live == nil {
		live = make(map[string]string)
		s.byOrigin[origin] = live
	}
	live[code] = tx.ID
	s.expiry.Push(&expiryItem{id: tx.ID, expiresAt: tx.ExpiresAt})

	s.logger.Debug("pending %s staged, expires %s", tx.ID, tx.ExpiresAt.Format(time.RFC3339))

	return Ticket{ID: tx.ID, Code: code, ExpiresAt: tx.ExpiresAt}, nil
}

// Confirm consumes the live entry matching (origin, code). Unknown,
// consumed and expired entries all fail with ErrNoMatchingTransaction.
func (s *Store) Confirm(origin, code string) (*PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byOrigin[origin][code]
	if !ok {
		return nil, custodyerr.ErrNoMatchingTransaction
	}
	tx := s.entries[id]
	if tx == nil || tx.Status != StatusPending {
		return nil, custodyerr.ErrNoMatchingTransaction
	}

	if !s.clock.Now().Before(tx.ExpiresAt) {
		tx.Status = StatusExpired
		s.remove(tx)
		return nil, custodyerr.ErrNoMatchingTransaction
	}

	tx.Status = StatusConfirmed
	s.remove(tx)
	s.logger.Debug("pending %s confirmed", tx.ID)

	out := *tx
	return &out, nil
}

// Sweep removes every entry whose expiry has passed and returns how many
// pending entries it expired.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	expired := 0

	for !s.expiry.Empty() {
		top, _ := s.expiry.Top().(*expiryItem)
		if top.expiresAt.After(now) {
			break
		}
		s.expiry.Pop()

		// consumed entries are already gone
		tx, ok := s.entries[top.id]
		if !ok || tx.Status != StatusPending {
			continue
		}
		tx.Status = StatusExpired
		s.remove(tx)
		expired++
	}

	if expired > 0 {
		s.logger.Debug("swept %d expired pending transactions", expired)
	}
	return expired
}

// remove drops tx from both indexes. Callers hold s.mu.
func (s *Store) remove(tx *PendingTransaction) {
	delete(s.entries, tx.ID)
	if live, ok := s.byOrigin[tx.Origin]; ok {
		delete(live, tx.Code)
		if len(live) == 0 {
			delete(s.byOrigin, tx.Origin)
		}
	}
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start launches the sweeper.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		s.ticker.Resume()
		s.wg.Add(1)
		go s.sweeper()
	})
}

// Stop halts the sweeper and waits for it to exit.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
}

// sweeper owns the ticker once started, so only this goroutine stops it.
func (s *Store) sweeper() {
	defer s.wg.Done()
	defer s.ticker.Stop()

	for {
		select {
		case <-s.ticker.Ticks():
			s.Sweep()
		case <-s.quit:
			return
		}
	}
}
