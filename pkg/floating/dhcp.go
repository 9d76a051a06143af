package floating

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/server4"
	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

const defaultLeaseTime = 12 * time.Hour

// LeasePublisher records an observed DHCP lease. The daemon passes the
// entity registry, whose embedded *localcache.Cache stores the lease in
// this node's local read copy only; it is not written to coordination
// state. Leases are observed state, distinct from operator-declared
// DHCPReservation entries.
type LeasePublisher interface {
	PublishLease(vni int, lease types.DHCPLease) error
}

// DHCPConfig configures one managed network's DHCP responder.
type DHCPConfig struct {
	VNI       int
	Interface string // the network's bridge
	Network   types.Network
}

// DHCPResponder answers DHCPv4 requests on one managed network's bridge,
// honoring operator-declared reservations and otherwise leasing from the
// network's configured range, handing every acknowledged lease to a
// LeasePublisher.
type DHCPResponder struct {
	cfg     DHCPConfig
	publish LeasePublisher

	mu     sync.Mutex
	server *server4.Server

	leaseMu sync.Mutex
	nextIdx int
}

// NewDHCPResponder constructs a DHCPResponder for one network.
func NewDHCPResponder(cfg DHCPConfig, publish LeasePublisher) *DHCPResponder {
	return &DHCPResponder{cfg: cfg, publish: publish}
}

// Start binds the responder to cfg.Interface. Calling Start twice on an
// already-running responder is a no-op.
func (r *DHCPResponder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		return nil
	}

	laddr := &net.UDPAddr{IP: net.IPv4zero, Port: dhcpv4.ServerPort}
	srv, err := server4.NewServer(r.cfg.Interface, laddr, r.handle)
	if err != nil {
		return fmt.Errorf("floating: start dhcp responder on %s: %w", r.cfg.Interface, err)
	}
	r.server = srv

	go func() {
		if err := srv.Serve(); err != nil {
			log.Error(fmt.Sprintf("floating: dhcp responder on %s stopped: %v", r.cfg.Interface, err))
		}
	}()
	log.Info(fmt.Sprintf("floating: dhcp responder up for network %d on %s", r.cfg.VNI, r.cfg.Interface))
	return nil
}

// Stop closes the responder's socket. Calling Stop twice, or before
// Start, is a no-op.
func (r *DHCPResponder) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server == nil {
		return nil
	}
	err := r.server.Close()
	r.server = nil
	return err
}

func (r *DHCPResponder) handle(conn net.PacketConn, peer net.Addr, m *dhcpv4.DHCPv4) {
	if m.OpCode != dhcpv4.OpcodeBootRequest {
		return
	}

	mac := m.ClientHWAddr.String()
	ip, hostname := r.leaseFor(mac)
	if ip == nil {
		return
	}

	reply, err := dhcpv4.NewReplyFromRequest(m)
	if err != nil {
		log.Error(fmt.Sprintf("floating: build dhcp reply: %v", err))
		return
	}
	reply.YourIPAddr = ip
	reply.UpdateOption(dhcpv4.OptIPAddressLeaseTime(defaultLeaseTime))
	if r.cfg.Network.IPv4Gateway != "" {
		if gw := net.ParseIP(r.cfg.Network.IPv4Gateway); gw != nil {
			reply.UpdateOption(dhcpv4.OptRouter(gw))
		}
	}
	if len(r.cfg.Network.NameServers) > 0 {
		var servers []net.IP
		for _, s := range r.cfg.Network.NameServers {
			if p := net.ParseIP(s); p != nil {
				servers = append(servers, p)
			}
		}
		reply.UpdateOption(dhcpv4.OptDNS(servers...))
	}

	switch m.MessageType() {
	case dhcpv4.MessageTypeDiscover:
		reply.UpdateOption(dhcpv4.OptMessageType(dhcpv4.MessageTypeOffer))
	case dhcpv4.MessageTypeRequest:
		reply.UpdateOption(dhcpv4.OptMessageType(dhcpv4.MessageTypeAck))
	default:
		return
	}

	if _, err := conn.WriteTo(reply.ToBytes(), peer); err != nil {
		log.Error(fmt.Sprintf("floating: write dhcp reply: %v", err))
		return
	}

	if m.MessageType() == dhcpv4.MessageTypeRequest && r.publish != nil {
		lease := types.DHCPLease{MAC: mac, IP: ip.String(), Hostname: hostname, ExpiresAt: time.Now().Add(defaultLeaseTime)}
		if err := r.publish.PublishLease(r.cfg.VNI, lease); err != nil {
			log.Error(fmt.Sprintf("floating: publish lease for %s: %v", mac, err))
		}
	}
}

// leaseFor resolves a requesting MAC to an IP and hostname: an operator
// reservation if one exists, otherwise the next address of the
// configured DHCP range in round-robin order, wrapping to the start past
// the end. Addresses already leased are not skipped, and a repeat request
// from the same MAC gets the next address rather than its earlier one.
func (r *DHCPResponder) leaseFor(mac string) (net.IP, string) {
	if res, ok := r.cfg.Network.DHCPReservations[mac]; ok {
		return net.ParseIP(res.IP), res.Hostname
	}

	start := net.ParseIP(r.cfg.Network.IPv4DHCPStart)
	end := net.ParseIP(r.cfg.Network.IPv4DHCPEnd)
	if start == nil || end == nil {
		return nil, ""
	}

	r.leaseMu.Lock()
	defer r.leaseMu.Unlock()
	ip := offsetIP(start, r.nextIdx)
	if compareIP(ip, end) > 0 {
		r.nextIdx = 0
		ip = start
	}
	r.nextIdx++
	return ip, fmt.Sprintf("dhcp-%s", mac)
}

func offsetIP(base net.IP, n int) net.IP {
	ip := make(net.IP, len(base.To4()))
	copy(ip, base.To4())
	for i := 0; i < n; i++ {
		for j := len(ip) - 1; j >= 0; j-- {
			ip[j]++
			if ip[j] != 0 {
				break
			}
		}
	}
	return ip
}

func compareIP(a, b net.IP) int {
	a4, b4 := a.To4(), b.To4()
	for i := range a4 {
		if a4[i] != b4[i] {
			if a4[i] < b4[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
