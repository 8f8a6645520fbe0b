package discovery

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

type fakeServer struct {
	mu       sync.Mutex
	instance string
	service  string
	port     int
	txt      []string
	shutdown bool
}

func (s *fakeServer) SetText(txt []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txt = txt
}

func (s *fakeServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}

func (s *fakeServer) text() TXTRecordMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StringsToTXTRecords(s.txt)
}

func (s *fakeServer) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func stubRegister(t *testing.T) *[]*fakeServer {
	t.Helper()
	var servers []*fakeServer
	orig := registerFunc
	registerFunc = func(instance, service, _ string, port int, txt []string, _ []net.Interface, _ ...zeroconf.ServerOption) (announcer, error) {
		s := &fakeServer{instance: instance, service: service, port: port, txt: txt}
		servers = append(servers, s)
		return s, nil
	}
	t.Cleanup(func() { registerFunc = orig })
	return &servers
}

func stubBrowse(t *testing.T, entries ...*zeroconf.ServiceEntry) {
	t.Helper()
	orig := browseFunc
	browseFunc = func(ctx context.Context, _, _ string, out, _ chan *zeroconf.ServiceEntry, _ ...zeroconf.ClientOption) error {
		for _, e := range entries {
			select {
			case out <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		<-ctx.Done()
		return ctx.Err()
	}
	t.Cleanup(func() { browseFunc = orig })
}

func endpointEntry(instance string, ip string, txt TXTRecordMap) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{}
	e.Instance = instance
	e.HostName = instance + ".local."
	e.Port = 9000
	e.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	e.Text = TXTRecordsToStrings(txt)
	return e
}

func TestAdvertiseGateway(t *testing.T) {
	servers := stubRegister(t)
	adv := NewAdvertiser(AdvertiserConfig{})
	defer adv.StopAll()

	info := &GatewayInfo{Name: "snamp-http", Kind: "http", Version: "1.2.0", Path: "/", Port: 8080, Resources: []string{"web", "db"}}
	require.NoError(t, adv.AdvertiseGateway(info))
	require.Len(t, *servers, 1)

	s := (*servers)[0]
	assert.Equal(t, ServiceTypeGateway, s.service)
	assert.Equal(t, 8080, s.port)
	got, err := DecodeGatewayTXT(s.text())
	require.NoError(t, err)
	assert.Equal(t, "http", got.Kind)
	assert.Equal(t, []string{"db", "web"}, got.Resources)

	info.Resources = []string{"web"}
	require.NoError(t, adv.UpdateGateway(info))
	assert.Equal(t, "web", s.text()[TXTKeyResources])

	// Re-announcing replaces the previous server.
	require.NoError(t, adv.AdvertiseGateway(info))
	assert.True(t, s.isShutdown())
	assert.Equal(t, 1, adv.Len())

	require.NoError(t, adv.Stop(ServiceTypeGateway, "snamp-http"))
	assert.ErrorIs(t, adv.Stop(ServiceTypeGateway, "snamp-http"), model.ErrNotFound)
	assert.Equal(t, 0, adv.Len())
}

func TestAdvertiseValidation(t *testing.T) {
	stubRegister(t)
	adv := NewAdvertiser(AdvertiserConfig{})

	assert.ErrorIs(t, adv.AdvertiseGateway(&GatewayInfo{Kind: "http"}), ErrInstanceNameTooLong)
	long := make([]byte, MaxTXTRecordLen)
	assert.ErrorIs(t, adv.AdvertiseGateway(&GatewayInfo{Name: "x", Kind: string(long)}), ErrRecordTooLong)
	assert.ErrorIs(t, adv.UpdateGateway(&GatewayInfo{Name: "x", Kind: "http"}), model.ErrNotFound)
}

func TestEndpointTXTRoundTrip(t *testing.T) {
	features := []model.FeatureConfiguration{
		model.AttributeFeature(model.AttributeDescriptor{Name: "load", Type: types.Float64, Access: model.AccessReadOnly}),
		model.AttributeFeature(model.AttributeDescriptor{Name: "ports", Type: types.NewArray(types.Int32), Access: model.AccessReadWrite}),
		model.NotificationFeature(model.NotificationDescriptor{Category: "alarms", Severity: model.SeverityCritical}),
	}
	txt := EncodeEndpointTXT(features)
	txt["owner"] = "ops"

	attrs, err := DecodeEndpointTXT(txt, model.FeatureAttribute)
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "load", attrs[0].Attribute.ID)
	assert.Equal(t, types.Float64, attrs[0].Attribute.Type)
	assert.Equal(t, model.AccessReadOnly, attrs[0].Attribute.Access)
	assert.Equal(t, "array(int32)", attrs[1].Attribute.Type.String())

	notifs, err := DecodeEndpointTXT(txt, model.FeatureNotification)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, model.SeverityCritical, notifs[0].Notification.Severity)

	_, err = DecodeEndpointTXT(TXTRecordMap{"a.bad": "nosuchtype|ro"}, model.FeatureAttribute)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestBrowseEndpointsMergesAddresses(t *testing.T) {
	stubBrowse(t,
		endpointEntry("mda-1", "10.0.0.1", nil),
		endpointEntry("mda-1", "10.0.0.2", nil),
		endpointEntry("mda-2", "10.0.0.3", nil),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	eps, err := BrowseEndpoints(ctx)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "mda-1", eps[0].Instance)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, eps[0].Addresses)
	assert.Equal(t, uint16(9000), eps[1].Port)
}

func TestMDNSProviderThroughService(t *testing.T) {
	txt := EncodeEndpointTXT([]model.FeatureConfiguration{
		model.AttributeFeature(model.AttributeDescriptor{Name: "temp", Type: types.Float32, Access: model.AccessReadOnly}),
		model.NotificationFeature(model.NotificationDescriptor{Category: "overheat", Severity: model.SeverityWarning}),
	})
	stubBrowse(t, endpointEntry("other", "10.0.0.9", nil), endpointEntry("sensor", "10.0.0.5", txt))

	s := NewService(nil, nil)
	require.NoError(t, s.Register(ProviderType, OpenMDNS))

	opts := model.Options{OptionBrowseTimeout: "30ms"}
	res := s.DiscoverBatch(context.Background(), ProviderType, "sensor", opts, model.FeatureAttribute, model.FeatureNotification)
	require.NoError(t, res.Err)
	attrs := res.Get(model.FeatureAttribute)
	require.Len(t, attrs, 1)
	assert.Equal(t, "temp", attrs[0].Name())
	notifs := res.Get(model.FeatureNotification)
	require.Len(t, notifs, 1)
	assert.Equal(t, "overheat", notifs[0].Name())

	missing := s.DiscoverBatch(context.Background(), ProviderType, "absent", opts, model.FeatureAttribute)
	assert.ErrorIs(t, missing.Err, ErrEndpointNotFound)
	assert.Empty(t, missing.Get(model.FeatureAttribute))
}

func TestTXTRecordStrings(t *testing.T) {
	txt := StringsToTXTRecords([]string{"b=2", "a=1", "flag", "", "c=x=y"})
	assert.Equal(t, TXTRecordMap{"a": "1", "b": "2", "flag": "", "c": "x=y"}, txt)
	assert.Equal(t, []string{"a=1", "b=2", "c=x=y", "flag="}, TXTRecordsToStrings(txt))
}
