package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// ProviderType is the connector type name of the mDNS provider.
const ProviderType = "mdns"

// Defaults.
const (
	DefaultTTL           = 120 * time.Second
	DefaultBrowseTimeout = 3 * time.Second
	DefaultPort          = 8080
)

// Options understood by the mDNS provider.
const (
	// OptionBrowseTimeout bounds how long the provider listens for answers.
	OptionBrowseTimeout = "browseTimeout"

	// OptionInterface restricts browsing to one network interface.
	OptionInterface = "interface"
)

// ErrEndpointNotFound is returned when no endpoint answered a browse.
var ErrEndpointNotFound = errors.New("endpoint not found")

// announcer is the part of *zeroconf.Server the advertiser uses.
type announcer interface {
	SetText(txt []string)
	Shutdown()
}

// registerFunc and browseFunc are replaced in tests.
var (
	registerFunc = func(instance, service, domain string, port int, txt []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (announcer, error) {
		return zeroconf.Register(instance, service, domain, port, txt, ifaces, opts...)
	}
	browseFunc = func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
		return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
	}
)

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	Logger *slog.Logger
}

// Advertiser announces gateways and MDA endpoints over mDNS.
type Advertiser struct {
	config AdvertiserConfig
	logger *slog.Logger

	mu      sync.Mutex
	servers map[string]announcer // keyed by service type and instance
}

// NewAdvertiser creates an advertiser that has not announced anything yet.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Advertiser{
		config:  config,
		logger:  logger,
		servers: make(map[string]announcer),
	}
}

// interfaces returns the configured interface, or nil for all.
func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		a.logger.Warn("mdns interface not found, using all", "interface", a.config.Interface, "error", err)
		return nil
	}
	return []net.Interface{*iface}
}

func serverKey(service, instance string) string {
	return service + "/" + instance
}

// AdvertiseGateway announces a gateway. An existing announcement with the
// same name is replaced.
func (a *Advertiser) AdvertiseGateway(info *GatewayInfo) error {
	return a.advertise(ServiceTypeGateway, info.Name, int(info.Port), EncodeGatewayTXT(info))
}

// UpdateGateway replaces the TXT records of an announced gateway.
func (a *Advertiser) UpdateGateway(info *GatewayInfo) error {
	return a.update(ServiceTypeGateway, info.Name, EncodeGatewayTXT(info))
}

// AdvertiseEndpoint announces an MDA endpoint and its features.
func (a *Advertiser) AdvertiseEndpoint(name string, port uint16, features []model.FeatureConfiguration) error {
	return a.advertise(ServiceTypeEndpoint, name, int(port), EncodeEndpointTXT(features))
}

// UpdateEndpoint replaces the feature records of an announced endpoint.
func (a *Advertiser) UpdateEndpoint(name string, features []model.FeatureConfiguration) error {
	return a.update(ServiceTypeEndpoint, name, EncodeEndpointTXT(features))
}

func (a *Advertiser) advertise(service, instance string, port int, txt TXTRecordMap) error {
	if err := ValidateInstanceName(instance); err != nil {
		return err
	}
	if err := ValidateTXT(txt); err != nil {
		return err
	}
	if port == 0 {
		port = DefaultPort
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := serverKey(service, instance)
	if server, exists := a.servers[key]; exists {
		server.Shutdown()
		delete(a.servers, key)
	}

	opts := []zeroconf.ServerOption{zeroconf.TTL(uint32(a.config.TTL.Seconds()))}
	server, err := registerFunc(instance, service, Domain, port, TXTRecordsToStrings(txt), a.interfaces(), opts...)
	if err != nil {
		return fmt.Errorf("failed to register %s service %s: %w", service, instance, err)
	}
	a.servers[key] = server
	a.logger.Info("mdns service announced", "service", service, "instance", instance, "port", port)
	return nil
}

func (a *Advertiser) update(service, instance string, txt TXTRecordMap) error {
	if err := ValidateTXT(txt); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[serverKey(service, instance)]
	if !exists {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, service, instance)
	}
	server.SetText(TXTRecordsToStrings(txt))
	return nil
}

// Stop withdraws one announcement.
func (a *Advertiser) Stop(service, instance string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := serverKey(service, instance)
	server, exists := a.servers[key]
	if !exists {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, service, instance)
	}
	server.Shutdown()
	delete(a.servers, key)
	return nil
}

// Len returns the number of active announcements.
func (a *Advertiser) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.servers)
}

// StopAll withdraws every announcement.
func (a *Advertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, server := range a.servers {
		server.Shutdown()
		delete(a.servers, key)
	}
}

// Close withdraws every announcement.
func (a *Advertiser) Close() error {
	a.StopAll()
	return nil
}

// Endpoint is an MDA endpoint found by browsing.
type Endpoint struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string
	TXT       TXTRecordMap
}

// BrowseEndpoints collects the MDA endpoints that answer within the
// context's lifetime. Addresses from several interfaces are merged per
// instance.
func BrowseEndpoints(ctx context.Context, opts ...zeroconf.ClientOption) ([]*Endpoint, error) {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	errCh := make(chan error, 1)
	go func() {
		errCh <- browseFunc(ctx, ServiceTypeEndpoint, Domain, entries, removed, opts...)
	}()

	found := make(map[string]*Endpoint)
	var order []string
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			ep := entryToEndpoint(entry)
			if existing, ok := found[ep.Instance]; ok {
				existing.Addresses = mergeAddresses(existing.Addresses, ep.Addresses)
				continue
			}
			found[ep.Instance] = ep
			order = append(order, ep.Instance)

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, ok := found[entry.Instance]; ok {
				existing.Addresses = removeAddresses(existing.Addresses, entry)
			}

		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("browse %s: %w", ServiceTypeEndpoint, err)
			}
			out := make([]*Endpoint, 0, len(order))
			for _, name := range order {
				out = append(out, found[name])
			}
			return out, nil
		}
	}
}

func entryToEndpoint(entry *zeroconf.ServiceEntry) *Endpoint {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return &Endpoint{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      uint16(entry.Port),
		Addresses: addrs,
		TXT:       StringsToTXTRecords(entry.Text),
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the addresses of a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// MDNSProvider discovers the features an MDA endpoint announces. The
// connection string names the endpoint instance.
type MDNSProvider struct {
	instance string
	timeout  time.Duration
	opts     []zeroconf.ClientOption

	once     sync.Once
	endpoint *Endpoint
	err      error
}

// OpenMDNS is the ProviderFactory of the mDNS provider.
func OpenMDNS(_ context.Context, connectionString string, opts model.Options) (Provider, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("%w: empty endpoint instance", model.ErrInvalidDescriptor)
	}
	p := &MDNSProvider{
		instance: connectionString,
		timeout:  opts.Duration(OptionBrowseTimeout, DefaultBrowseTimeout),
	}
	if name := opts.String(OptionInterface, ""); name != "" {
		if iface, err := net.InterfaceByName(name); err == nil {
			p.opts = append(p.opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return p, nil
}

// lookup browses once per provider session.
func (p *MDNSProvider) lookup(ctx context.Context) (*Endpoint, error) {
	p.once.Do(func() {
		bctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		eps, err := BrowseEndpoints(bctx, p.opts...)
		if err != nil {
			p.err = err
			return
		}
		for _, ep := range eps {
			if ep.Instance == p.instance {
				p.endpoint = ep
				return
			}
		}
		p.err = fmt.Errorf("%w: %s", ErrEndpointNotFound, p.instance)
	})
	return p.endpoint, p.err
}

// Discover returns the features announced by the endpoint.
func (p *MDNSProvider) Discover(ctx context.Context, feature model.FeatureType) ([]model.FeatureConfiguration, error) {
	ep, err := p.lookup(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeEndpointTXT(ep.TXT, feature)
}

// Close releases nothing; browsing ends with each lookup.
func (p *MDNSProvider) Close() error { return nil }
