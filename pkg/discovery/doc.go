// Package discovery lists the features a resource offers and announces
// SNAMP services on the local network.
//
// # Feature discovery
//
// A Service holds one ProviderFactory per connector type. Discover and
// DiscoverBatch open a provider for a connection string, ask it for
// attributes or notification categories, and always close it again.
// Provider failures never escape: a failed feature yields an empty list, and
// DiscoverBatch reports the first failure once in Result.Err. Every
// FeatureConfiguration handed out is a deep copy, so callers may modify the
// descriptors before connecting them.
//
// Connectors that implement connector.Discoverer are exposed through
// FromConnectors. The "mdns" provider browses endpoints announced on the
// network instead of opening a connector.
//
// # Announcement (_snamp._tcp, _snamp-mda._tcp)
//
// Gateways advertise themselves under _snamp._tcp. Instance name is the
// gateway name; TXT records include: gw (gateway kind), ver (version),
// path (base path) and res (comma separated resource names).
//
// Monitoring data acceptors (MDA endpoints) advertise under _snamp-mda._tcp.
// Every attribute is one TXT record "a.<name>=<type>|<access>" and every
// notification category one record "n.<category>=<severity>".
package discovery
