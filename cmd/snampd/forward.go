package main

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/snamp-platform/snamp-go/pkg/subscription"
)

// forwarder is a gateway that turns notifications of a namespace into
// outbound messages.
type forwarder interface {
	Forward(namespace string, categories ...string) (*subscription.Subscription, error)
}

// forwarding keeps a forwarder subscribed to a set of namespaces. A fixed
// list is used as is; an empty one follows the configured resources.
type forwarding struct {
	gateway string
	fw      forwarder
	fixed   []string
	logger  *slog.Logger

	mu   sync.Mutex
	subs map[string]*subscription.Subscription
}

func newForwarding(gateway string, fw forwarder, fixed []string, logger *slog.Logger) *forwarding {
	return &forwarding{
		gateway: gateway,
		fw:      fw,
		fixed:   slices.Clone(fixed),
		logger:  logger,
		subs:    make(map[string]*subscription.Subscription),
	}
}

// sync subscribes to wanted namespaces that are not yet subscribed and
// drops subscriptions of namespaces no longer wanted.
func (f *forwarding) sync(resources []string) {
	want := resources
	if len(f.fixed) > 0 {
		want = f.fixed
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ns, sub := range f.subs {
		if !slices.Contains(want, ns) {
			sub.Unsubscribe()
			delete(f.subs, ns)
		}
	}
	for _, ns := range want {
		if _, ok := f.subs[ns]; ok {
			continue
		}
		sub, err := f.fw.Forward(ns)
		if err != nil {
			f.logger.Error("forward subscription failed", "gateway", f.gateway, "namespace", ns, "error", err)
			continue
		}
		f.subs[ns] = sub
	}
}

// namespaces returns the subscribed namespaces, sorted.
func (f *forwarding) namespaces() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.subs))
	for ns := range f.subs {
		out = append(out, ns)
	}
	slices.Sort(out)
	return out
}

func (f *forwarding) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ns, sub := range f.subs {
		sub.Unsubscribe()
		delete(f.subs, ns)
	}
}
