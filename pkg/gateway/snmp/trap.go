package snmp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
)

// DefaultEnterprise roots the varbinds of forwarded notifications
// (NET-SNMP-MIB::netSnmpPlaypen).
const DefaultEnterprise = ".1.3.6.1.4.1.8072.9999"

// Trap varbind OIDs.
var (
	oidSysUpTime = MustParseOID("1.3.6.1.2.1.1.3.0")
	oidTrapOID   = MustParseOID("1.3.6.1.6.3.1.1.4.1.0")
)

// Varbind arcs under <enterprise>.1.
const (
	arcMessage  = 1
	arcResource = 2
	arcCategory = 3
	arcSeverity = 4
	arcSequence = 5
	arcUserData = 6
)

// TrapTarget is one trap receiver.
type TrapTarget struct {
	Address   string
	Port      uint16
	Community string
}

func (t TrapTarget) String() string {
	return t.Address + ":" + strconv.Itoa(int(t.Port))
}

// TrapConfig configures a TrapForwarder.
type TrapConfig struct {
	Targets    []TrapTarget
	Enterprise string
	Timeout    time.Duration
	Retries    int

	// Epoch is the origin of sysUpTime. Defaults to the forwarder's
	// creation time.
	Epoch time.Time

	// Logger receives operational logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

type trapSender interface {
	SendTrap(trap gosnmp.SnmpTrap) (*gosnmp.SnmpPacket, error)
}

// dialFunc opens an SNMPv2c session to a trap receiver.
var dialFunc = func(t TrapTarget, timeout time.Duration, retries int) (trapSender, io.Closer, error) {
	g := &gosnmp.GoSNMP{
		Target:    t.Address,
		Port:      t.Port,
		Community: t.Community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   retries,
		MaxOids:   gosnmp.MaxOids,
	}
	if err := g.Connect(); err != nil {
		return nil, nil, err
	}
	return g, g.Conn, nil
}

type receiver struct {
	target TrapTarget
	sender trapSender
	conn   io.Closer
}

// TrapForwarder sends notifications as SNMPv2c traps.
type TrapForwarder struct {
	reg        *registry.Registry
	session    *subscription.Session
	mapper     Mapper
	enterprise OID
	receivers  []receiver
	logger     *slog.Logger

	mu     sync.Mutex
	sent   uint64
	failed uint64
}

// NewTrapForwarder dials every target and opens a dispatcher session for
// the forwarder's subscriptions.
func NewTrapForwarder(reg *registry.Registry, d *subscription.Dispatcher, cfg TrapConfig) (*TrapForwarder, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Enterprise == "" {
		cfg.Enterprise = DefaultEnterprise
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Epoch.IsZero() {
		cfg.Epoch = time.Now()
	}
	enterprise, err := ParseOID(cfg.Enterprise)
	if err != nil {
		return nil, err
	}

	f := &TrapForwarder{
		reg:        reg,
		mapper:     NewMapper(cfg.Epoch),
		enterprise: enterprise,
		logger:     cfg.Logger,
	}
	for _, t := range cfg.Targets {
		if t.Port == 0 {
			t.Port = 162
		}
		if t.Community == "" {
			t.Community = "public"
		}
		s, c, err := dialFunc(t, cfg.Timeout, cfg.Retries)
		if err != nil {
			f.closeReceivers()
			return nil, fmt.Errorf("trap target %s: %w", t, err)
		}
		f.receivers = append(f.receivers, receiver{target: t, sender: s, conn: c})
	}

	session, err := d.OpenSession("snmp-traps")
	if err != nil {
		f.closeReceivers()
		return nil, err
	}
	f.session = session
	return f, nil
}

// Forward subscribes the forwarder to notifications of namespace. No
// categories means all.
func (f *TrapForwarder) Forward(namespace string, categories ...string) (*subscription.Subscription, error) {
	return f.session.Subscribe(namespace, categories, f, subscription.WithName("snmp-trap "+namespace))
}

// HandleNotification sends n to every receiver.
func (f *TrapForwarder) HandleNotification(_ context.Context, n model.Notification) error {
	trap := f.Trap(n)
	var errs []error
	for _, r := range f.receivers {
		if _, err := r.sender.SendTrap(trap); err != nil {
			errs = append(errs, fmt.Errorf("trap to %s: %w", r.target, err))
		}
	}

	f.mu.Lock()
	if len(errs) > 0 {
		f.failed++
	} else {
		f.sent++
	}
	f.mu.Unlock()
	return errors.Join(errs...)
}

// Stats returns the number of notifications sent to every receiver and
// the number with at least one failed send.
func (f *TrapForwarder) Stats() (sent, failed uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent, f.failed
}

// trapOID returns the notification OID from the category's "oid" option,
// or <enterprise>.0.
func (f *TrapForwarder) trapOID(n model.Notification) OID {
	if res, ok := f.reg.Resource(n.Resource); ok {
		if b, ok := res.Notifications.Binding(n.Category); ok {
			if raw, ok := b.Descriptor().Options[model.OptionOID]; ok {
				oid, err := ParseOID(raw)
				if err == nil {
					return oid
				}
				f.logger.Warn("invalid notification OID", "resource", n.Resource, "category", n.Category, "error", err)
			}
		}
	}
	return f.enterprise.Append(0)
}

// Trap builds the SNMPv2c trap of n.
func (f *TrapForwarder) Trap(n model.Notification) gosnmp.SnmpTrap {
	base := f.enterprise.Append(1)
	vars := []gosnmp.SnmpPDU{
		{Name: oidSysUpTime.String(), Type: gosnmp.TimeTicks, Value: f.mapper.ticks(n.Timestamp)},
		{Name: oidTrapOID.String(), Type: gosnmp.ObjectIdentifier, Value: f.trapOID(n).String()},
		{Name: base.Append(arcMessage).String(), Type: gosnmp.OctetString, Value: []byte(n.Message)},
		{Name: base.Append(arcResource).String(), Type: gosnmp.OctetString, Value: []byte(n.Resource)},
		{Name: base.Append(arcCategory).String(), Type: gosnmp.OctetString, Value: []byte(n.Category)},
		{Name: base.Append(arcSeverity).String(), Type: gosnmp.Integer, Value: n.Severity.Code()},
		{Name: base.Append(arcSequence).String(), Type: gosnmp.Counter64, Value: n.Sequence},
	}
	if n.UserData != nil {
		pdu, err := f.mapper.PDU(base.Append(arcUserData), n.UserData, nil)
		if err != nil {
			f.logger.Debug("trap user data dropped", "resource", n.Resource, "category", n.Category, "error", err)
		} else {
			vars = append(vars, pdu)
		}
	}
	return gosnmp.SnmpTrap{Variables: vars}
}

func (f *TrapForwarder) closeReceivers() {
	for _, r := range f.receivers {
		if r.conn != nil {
			_ = r.conn.Close()
		}
	}
	f.receivers = nil
}

// Close ends all subscriptions and closes the receiver sessions.
func (f *TrapForwarder) Close() error {
	if f.session != nil {
		f.session.Close()
	}
	f.closeReceivers()
	return nil
}
