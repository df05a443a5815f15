package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Loop funnels signals from any goroutine into a single activation
// goroutine. Signals are activated one at a time in the order they
// were posted.
type Loop struct {
	Interval  time.Duration
	Activator Activator

	runners []Runnable

	signals signalList
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

type signalList struct {
	head *signalItem
	tail *signalItem
	size int
}

type signalItem struct {
	sig  Signal
	next *signalItem
}

func (l *signalList) append(item *signalItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
	l.size++
}

func (l *signalList) pop() *signalItem {
	item := l.head
	if item == nil {
		return nil
	}
	if l.head = item.next; l.head == nil {
		l.tail = nil
	}
	item.next = nil
	l.size--
	return item
}

// DefaultInterval is the default tick interval of a Loop.
const DefaultInterval = 100 * time.Millisecond

// NewLoop creates a Loop.
func NewLoop(activator Activator) *Loop {
	return &Loop{
		Interval:  DefaultInterval,
		Activator: activator,
		wakeUpCh:  make(chan struct{}, 1),
	}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddRunnable adds Runnable implementions started along with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Post implements SignalPoster.
func (l *Loop) Post(sig Signal) {
	l.lock.Lock()
	l.signals.append(&signalItem{sig: sig})
	l.lock.Unlock()
	l.TriggerNext()
}

// Pending returns the number of signals not yet activated.
func (l *Loop) Pending() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.signals.size
}

// TriggerNext wakes up the loop to process pending signals.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}

	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.lock.Lock()
			l.signals.append(&signalItem{sig: TickSignal{}})
			l.lock.Unlock()
			l.drain(ctx)
		case <-l.wakeUpCh:
			l.drain(ctx)
		}
	}
}

func (l *Loop) drain(ctx context.Context) {
	for ctx.Err() == nil {
		l.lock.Lock()
		item := l.signals.pop()
		l.lock.Unlock()
		if item == nil {
			return
		}
		if a := l.Activator; a != nil {
			glog.V(4).Infof("activate %s", item.sig.SignalName())
			a.Activate(ctx, item.sig)
		}
	}
}
