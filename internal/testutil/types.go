// Package testutil provides fixtures and assertions shared by registry tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Logger is a test interface key.
type Logger interface {
	Log(msg string)
	Messages() []string
}

// TestLogger records logged messages.
type TestLogger struct {
	mu       sync.Mutex
	Name     string
	messages []string
}

func NewTestLogger() *TestLogger {
	return &TestLogger{Name: "test"}
}

func (l *TestLogger) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *TestLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

// Database is a test interface key.
type Database interface {
	Query(q string) string
}

// TestDatabase depends on a Logger.
type TestDatabase struct {
	Logger Logger
	Name   string
}

func (d *TestDatabase) Query(q string) string {
	if d.Logger != nil {
		d.Logger.Log("query: " + q)
	}
	return fmt.Sprintf("%s: %s", d.Name, q)
}

// UserStore is a test interface key typically registered as Scoped.
type UserStore interface {
	Find(id string) string
}

// TestUserStore depends on a Database.
type TestUserStore struct {
	DB    Database
	Scope string
}

func (s *TestUserStore) Find(id string) string {
	return s.DB.Query("user " + id)
}

// Circular dependency test keys.
type (
	ServiceA interface{ A() }
	ServiceB interface{ B() }
	ServiceC interface{ C() }
)

type TestServiceA struct{}

func (TestServiceA) A() {}

type TestServiceB struct{}

func (TestServiceB) B() {}

type TestServiceC struct{}

func (TestServiceC) C() {}

// DisposalRecorder records the order in which services are closed.
type DisposalRecorder struct {
	mu     sync.Mutex
	closed []string
}

func (r *DisposalRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, name)
}

// Closed returns the names of closed services in close order.
func (r *DisposalRecorder) Closed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

// DisposableService implements Close() error.
type DisposableService struct {
	Name     string
	Err      error
	Recorder *DisposalRecorder
	closed   atomic.Bool
}

func (s *DisposableService) Close() error {
	s.closed.Store(true)
	if s.Recorder != nil {
		s.Recorder.record(s.Name)
	}
	return s.Err
}

// IsClosed reports whether Close was called.
func (s *DisposableService) IsClosed() bool {
	return s.closed.Load()
}

// ContextDisposableService implements Close(context.Context) error.
type ContextDisposableService struct {
	Name     string
	Recorder *DisposalRecorder
	Ctx      context.Context
}

func (s *ContextDisposableService) Close(ctx context.Context) error {
	s.Ctx = ctx
	if s.Recorder != nil {
		s.Recorder.record(s.Name)
	}
	return ctx.Err()
}

// ErrConstruction is returned by failing factories.
var ErrConstruction = errors.New("construction failed")
