// Package timers provides the countdown and polling primitives payment
// drivers schedule their sessions with. Every timer is returned as a
// cancellable Handle that the owning driver must stop on teardown.
package timers

import (
	"sync"
	"time"
)

// Handle is a cancellable timer. Stop is idempotent and safe to call from
// any goroutine, including the timer's own callback.
type Handle struct {
	done chan struct{}
	once sync.Once
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Stop cancels the timer. No new callback fires after Stop returns; a
// callback already executing runs to completion, which is why drivers
// re-check their own state inside every callback.
func (h *Handle) Stop() {
	h.once.Do(func() { close(h.done) })
}

// Stopped reports whether the timer has been cancelled or has finished.
func (h *Handle) Stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// NewCountdown ticks every interval with the remaining time and fires
// onExpire exactly once when the window elapses. The handle stops itself
// after expiry.
func NewCountdown(window, interval time.Duration, onTick func(remaining time.Duration), onExpire func()) *Handle {
	h := newHandle()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		remaining := window
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				remaining -= interval
				if remaining <= 0 {
					select {
					case <-h.done:
						return
					default:
					}
					h.Stop()
					if onExpire != nil {
						onExpire()
					}
					return
				}
				select {
				case <-h.done:
					return
				default:
				}
				if onTick != nil {
					onTick(remaining)
				}
			}
		}
	}()
	return h
}

// After fires fn once after d unless the handle is stopped first.
func After(d time.Duration, fn func()) *Handle {
	h := newHandle()
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-h.done:
		case <-timer.C:
			select {
			case <-h.done:
				return
			default:
			}
			h.Stop()
			fn()
		}
	}()
	return h
}

// NewPoller invokes fn every interval until fn reports done or the handle
// is stopped.
func NewPoller(interval time.Duration, fn func() (done bool)) *Handle {
	h := newHandle()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				select {
				case <-h.done:
					return
				default:
				}
				if fn() {
					h.Stop()
					return
				}
			}
		}
	}()
	return h
}
