package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// State 表示熔断器状态
type State int

const (
	StateClosed   State = iota // 正常放行
	StateOpen                  // 直接拒绝
	StateHalfOpen              // 试探性放行一个请求
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Config 熔断器配置
type Config struct {
	// FailureThreshold 连续失败多少次后打开
	FailureThreshold int
	// Cooldown 打开后多久进入半开
	Cooldown time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// CircuitBreaker guards calls to a flaky dependency. In half-open state a
// single trial call is let through; its result closes or re-opens the breaker.
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute 执行函数，带熔断保护
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
	if err != nil {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
		return err
	}
	cb.state = StateClosed
	cb.failures = 0
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.probing = true
		return true
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

// State 获取当前状态
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
