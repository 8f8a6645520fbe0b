package snmp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// DefaultAccessTimeout bounds reads and writes made for SNMP requests.
const DefaultAccessTimeout = 5 * time.Second

// AgentConfig configures an Agent.
type AgentConfig struct {
	// Epoch is the origin of TimeTicks values. Defaults to the agent's
	// creation time.
	Epoch time.Time

	// AccessTimeout bounds attribute reads and writes.
	AccessTimeout time.Duration

	// Logger receives operational logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Binding is one row of the OID table.
type Binding struct {
	OID       string
	Namespace string
	Attribute string
	Type      string
	Tabular   bool
}

type entry struct {
	oid       OID
	namespace string
	id        string
	typ       types.Type
	access    model.Access
	table     *types.TabularType
}

// Agent serves attribute values by OID.
type Agent struct {
	reg     *registry.Registry
	mapper  Mapper
	timeout time.Duration
	logger  *slog.Logger

	// Sorted by OID.
	table atomic.Pointer[[]entry]
}

// NewAgent creates an agent over reg. The OID table is rebuilt whenever a
// resource is attached or detached.
func NewAgent(reg *registry.Registry, cfg AgentConfig) *Agent {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Epoch.IsZero() {
		cfg.Epoch = time.Now()
	}
	if cfg.AccessTimeout == 0 {
		cfg.AccessTimeout = DefaultAccessTimeout
	}
	a := &Agent{
		reg:     reg,
		mapper:  NewMapper(cfg.Epoch),
		timeout: cfg.AccessTimeout,
		logger:  cfg.Logger,
	}
	a.Refresh()
	reg.OnChange(func(string, bool) { a.Refresh() })
	return a
}

// Mapper returns the agent's SMI mapper.
func (a *Agent) Mapper() Mapper { return a.mapper }

// Refresh rebuilds the OID table from the attribute descriptors of every
// attached resource and returns its size. When two attributes claim the
// same OID the first in namespace order wins.
func (a *Agent) Refresh() int {
	var table []entry
	seen := make(map[string]string)
	for _, ns := range a.reg.Namespaces() {
		res, ok := a.reg.Resource(ns)
		if !ok {
			continue
		}
		for _, b := range res.Attributes.Bindings() {
			d := b.Descriptor()
			raw, ok := d.Options[model.OptionOID]
			if !ok {
				continue
			}
			oid, err := ParseOID(raw)
			if err != nil {
				a.logger.Warn("skipping attribute with invalid OID", "resource", ns, "attribute", d.ID, "error", err)
				continue
			}
			key := oid.String()
			if owner, dup := seen[key]; dup {
				a.logger.Warn("duplicate OID", "oid", key, "attribute", ns+"/"+d.ID, "owner", owner)
				continue
			}
			seen[key] = ns + "/" + d.ID

			e := entry{oid: oid, namespace: ns, id: d.ID, typ: d.Type, access: d.Access}
			if tt, ok := d.Type.(*types.TabularType); ok {
				e.table = tt
			}
			table = append(table, e)
		}
	}
	slices.SortFunc(table, func(x, y entry) int { return x.oid.Compare(y.oid) })
	a.table.Store(&table)
	return len(table)
}

func (a *Agent) entries() []entry {
	if p := a.table.Load(); p != nil {
		return *p
	}
	return nil
}

// Bindings returns the OID table.
func (a *Agent) Bindings() []Binding {
	entries := a.entries()
	out := make([]Binding, len(entries))
	for i, e := range entries {
		out[i] = Binding{
			OID:       e.oid.String(),
			Namespace: e.namespace,
			Attribute: e.id,
			Type:      e.typ.String(),
			Tabular:   e.table != nil,
		}
	}
	return out
}

// lookup finds the entry owning instance and the instance suffix.
func (a *Agent) lookup(instance OID) (entry, OID, bool) {
	for _, e := range a.entries() {
		if instance.HasPrefix(e.oid) {
			return e, instance[len(e.oid):], true
		}
	}
	return entry{}, nil, false
}

func noSuch(name string, asn gosnmp.Asn1BER) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: asn}
}

// Get returns the varbind of one instance. Unknown instances and failed
// reads yield a noSuchObject or noSuchInstance varbind together with the
// error.
func (a *Agent) Get(ctx context.Context, oid string) (gosnmp.SnmpPDU, error) {
	inst, err := ParseOID(oid)
	if err != nil {
		return noSuch(oid, gosnmp.NoSuchObject), err
	}
	name := inst.String()
	e, suffix, ok := a.lookup(inst)
	if !ok {
		return noSuch(name, gosnmp.NoSuchObject), fmt.Errorf("%w: OID %s", model.ErrNotFound, name)
	}

	v, err := a.reg.Read(ctx, e.namespace, e.id, a.timeout)
	if err != nil {
		return noSuch(name, gosnmp.NoSuchObject), err
	}

	for _, pdu := range a.instances(e, v) {
		if pdu.Name == name {
			return pdu, nil
		}
	}
	return noSuch(name, gosnmp.NoSuchInstance), fmt.Errorf("%w: instance %s of %s", model.ErrNotFound, suffix, e.oid)
}

// Walk returns every instance under root in OID order. Attributes that
// cannot be read are skipped and their errors joined.
func (a *Agent) Walk(ctx context.Context, root string) ([]gosnmp.SnmpPDU, error) {
	base, err := ParseOID(root)
	if err != nil {
		return nil, err
	}
	var (
		out  []gosnmp.SnmpPDU
		errs []error
	)
	for _, e := range a.entries() {
		if !e.oid.HasPrefix(base) && !base.HasPrefix(e.oid) {
			continue
		}
		v, err := a.reg.Read(ctx, e.namespace, e.id, a.timeout)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, pdu := range a.instances(e, v) {
			if MustParseOID(pdu.Name).HasPrefix(base) {
				out = append(out, pdu)
			}
		}
	}
	return out, errors.Join(errs...)
}

// GetNext returns the first instance after oid, or an endOfMibView varbind.
func (a *Agent) GetNext(ctx context.Context, oid string) (gosnmp.SnmpPDU, error) {
	after, err := ParseOID(oid)
	if err != nil {
		return noSuch(oid, gosnmp.EndOfMibView), err
	}
	var errs []error
	for _, e := range a.entries() {
		if e.oid.Compare(after) <= 0 && !after.HasPrefix(e.oid) {
			continue
		}
		v, err := a.reg.Read(ctx, e.namespace, e.id, a.timeout)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, pdu := range a.instances(e, v) {
			if MustParseOID(pdu.Name).Compare(after) > 0 {
				return pdu, nil
			}
		}
	}
	return noSuch(after.String(), gosnmp.EndOfMibView), errors.Join(errs...)
}

// instances expands a value to its varbinds in OID order. Tables are
// walked column by column.
func (a *Agent) instances(e entry, v types.Value) []gosnmp.SnmpPDU {
	if e.table == nil {
		pdu, err := a.mapper.PDU(e.oid.Append(0), v.Raw, e.typ)
		if err != nil {
			a.logger.Debug("SMI placeholder", "oid", pdu.Name, "error", err)
		}
		return []gosnmp.SnmpPDU{pdu}
	}

	data, ok := v.Raw.(*types.TabularData)
	if !ok || data == nil {
		return nil
	}
	fields := e.table.Row().Fields()
	out := make([]gosnmp.SnmpPDU, 0, len(fields)*data.Len())
	for c, f := range fields {
		for r := 0; r < data.Len(); r++ {
			pdu, err := a.mapper.PDU(e.oid.Append(1, uint32(c+1), uint32(r+1)), data.Row(r).Get(f.Name), f.Type)
			if err != nil {
				a.logger.Debug("SMI placeholder", "oid", pdu.Name, "error", err)
			}
			out = append(out, pdu)
		}
	}
	return out
}

// Set writes a scalar instance. Table cells are read-only.
func (a *Agent) Set(ctx context.Context, pdu gosnmp.SnmpPDU) error {
	inst, err := ParseOID(pdu.Name)
	if err != nil {
		return err
	}
	e, suffix, ok := a.lookup(inst)
	if !ok {
		return fmt.Errorf("%w: OID %s", model.ErrNotFound, inst)
	}
	if e.table != nil {
		return fmt.Errorf("%w: table cell %s", model.ErrNotWritable, inst)
	}
	if !e.access.CanWrite() {
		return fmt.Errorf("%w: %s/%s", model.ErrNotWritable, e.namespace, e.id)
	}
	if !slices.Equal(suffix, OID{0}) {
		return fmt.Errorf("%w: instance %s of %s", model.ErrNotFound, suffix, e.oid)
	}

	v, err := a.mapper.FromSMI(pdu.Type, pdu.Value, e.typ)
	if err != nil {
		return fmt.Errorf("set %s: %w", inst, err)
	}
	written, err := a.reg.Write(ctx, e.namespace, e.id, a.timeout, types.NewValue(v, e.typ))
	if err != nil {
		return err
	}
	if !written {
		return fmt.Errorf("%w: set %s", model.ErrTimeout, inst)
	}
	return nil
}
