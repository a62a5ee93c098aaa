// Package waiter 轮询一个观测值直到它等于期望值
//
// 用于测试和运维脚本中等待异步写入收敛，例如 "等 worker 把计数写到 5"。
package waiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultInterval = 50 * time.Millisecond
	DefaultTimeout  = 20 * time.Second
)

var ErrConvergenceTimeout = errors.New("value did not converge before deadline")

// Query 是一次观测；返回 nil 表示 "没有值" (无行或 NULL)
type Query[T comparable] interface {
	Fetch(ctx context.Context) (*T, error)
	String() string
}

type funcQuery[T comparable] struct {
	desc string
	fn   func(ctx context.Context) (*T, error)
}

func (q funcQuery[T]) Fetch(ctx context.Context) (*T, error) { return q.fn(ctx) }
func (q funcQuery[T]) String() string                        { return q.desc }

// Func 把任意函数包装成 Query
func Func[T comparable](desc string, fn func(ctx context.Context) (*T, error)) Query[T] {
	return funcQuery[T]{desc: desc, fn: fn}
}

// TimeoutError 携带最后一次观测值，方便定位没有收敛的原因
type TimeoutError struct {
	Query    string
	Expected any
	Last     any
	Polls    int
	Elapsed  time.Duration

	// Cause 是结束等待的 ctx 错误：超时为 context.DeadlineExceeded，外部取消为 context.Canceled
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: expected %s, last observed %s after %d polls in %s (query: %s)",
		ErrConvergenceTimeout, display(e.Expected), display(e.Last), e.Polls, e.Elapsed.Round(time.Millisecond), e.Query)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrConvergenceTimeout }

func (e *TimeoutError) Unwrap() error { return e.Cause }

func display(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

type options struct {
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

type Option func(*options)

// WithInterval 设置轮询间隔
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithTimeout 设置等待上限
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Unbounded 取消等待上限，只受 ctx 控制
// 仅用于交互式调试 (例如挂着调试器单步时)
func Unbounded() Option {
	return func(o *options) { o.timeout = 0 }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WaitUntil 反复执行 q，直到结果等于 expected
//
// expected 为 nil 表示等待 "没有值"。Query 报错会立即返回，不重试。
// 超过等待上限或 ctx 被取消时都返回 *TimeoutError，Cause 区分两者。
func WaitUntil[T comparable](ctx context.Context, q Query[T], expected *T, opts ...Option) error {
	o := options{interval: DefaultInterval, timeout: DefaultTimeout, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	waitCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	var last *T
	polls := 0
	timedOut := func() error {
		return &TimeoutError{
			Query:    q.String(),
			Expected: deref(expected),
			Last:     deref(last),
			Polls:    polls,
			Elapsed:  time.Since(start),
			Cause:    waitCtx.Err(),
		}
	}

	for {
		v, err := q.Fetch(waitCtx)
		polls++
		if err != nil {
			if waitCtx.Err() != nil {
				return timedOut()
			}
			return fmt.Errorf("convergence query failed: %w", err)
		}
		last = v

		if equal(v, expected) {
			o.log.Debug("value converged",
				slog.String("query", q.String()),
				slog.Int("polls", polls),
				slog.Duration("elapsed", time.Since(start)),
			)
			return nil
		}

		select {
		case <-waitCtx.Done():
			return timedOut()
		case <-ticker.C:
		}
	}
}

func equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
