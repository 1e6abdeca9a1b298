// Package eventbus decouples the security and chat domains from the
// transports that react to them. Topics are plain strings; payloads are
// the typed event structs below.
package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Topics published by the guard and assistant domains.
const (
	TopicSessionWarning = "guard.session.warning"
	TopicSessionTimeout = "guard.session.timeout"
	TopicLoginLockout   = "guard.login.lockout"
	TopicLoginFailure   = "guard.login.failure"
	TopicChatMessage    = "assistant.chat.message"
)

// SessionEvent accompanies the session warning and timeout topics.
type SessionEvent struct {
	UserID    uint
	SessionID string
}

// LoginEvent accompanies the login failure and lockout topics.
type LoginEvent struct {
	Identifier string
	Attempts   int
}

var (
	instance evbus.Bus
	asyncBus *AsyncEventBus
	once     sync.Once
)

func setup() {
	instance = New()
	asyncBus = NewAsyncEventBus(10)
	asyncBus.Start()
}

// Get returns the process-wide synchronous bus.
func Get() evbus.Bus {
	once.Do(setup)
	return instance
}

// GetAsync returns the process-wide asynchronous bus.
func GetAsync() *AsyncEventBus {
	once.Do(setup)
	return asyncBus
}

// New creates an independent synchronous bus, mainly for tests.
func New() evbus.Bus {
	return evbus.New()
}

// Publish delivers an event synchronously to all subscribers.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// PublishAsync queues an event for delivery off the caller's goroutine.
func PublishAsync(topic string, args ...interface{}) {
	GetAsync().PublishAsync(topic, args...)
}

// Subscribe registers a handler on the synchronous bus.
func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}

// SubscribeBackground registers a handler on the background bus, where
// PublishAsync events are delivered from the worker pool.
func SubscribeBackground(topic string, fn interface{}) error {
	return GetAsync().Subscribe(topic, fn)
}

// Shutdown drains the async workers.
func Shutdown() {
	if asyncBus != nil {
		asyncBus.Stop()
	}
}
