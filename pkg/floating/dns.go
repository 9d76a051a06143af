package floating

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/miekg/dns"
	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// ClusterView is the read-only slice of cluster state the DNS aggregator
// and metadata responder need; *localcache.Cache satisfies it
// structurally.
type ClusterView interface {
	ListNetworks() []*types.Network
	ListDomains() []*types.Domain
}

// DNSConfig configures one managed network's DNS aggregator instance.
type DNSConfig struct {
	VNI         int
	ListenAddr  string
	Domain      string
	NameServers []string
}

// DNSAggregator answers A-record queries for domain names within one
// managed network from cluster state, forwarding anything else to the
// network's configured upstream name servers. Shaped as a Server/
// Resolver split, generalized to resolve against Domain/Network
// entities rather than a service/container registry.
type DNSAggregator struct {
	view   ClusterView
	cfg    DNSConfig
	server *dns.Server

	mu      sync.Mutex
	running bool
}

// NewDNSAggregator constructs a DNSAggregator for one network.
func NewDNSAggregator(view ClusterView, cfg DNSConfig) *DNSAggregator {
	return &DNSAggregator{view: view, cfg: cfg}
}

// Start begins answering queries on cfg.ListenAddr. Calling Start twice
// on an already-running aggregator is a no-op, making takeover safe to
// retry.
func (a *DNSAggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", a.handleQuery)
	a.server = &dns.Server{Addr: a.cfg.ListenAddr, Net: "udp", Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("floating: dns aggregator for network %d: %w", a.cfg.VNI, err)
	default:
		a.running = true
		log.Info(fmt.Sprintf("floating: dns aggregator up for network %d on %s", a.cfg.VNI, a.cfg.ListenAddr))
		return nil
	}
}

// Stop shuts the aggregator down; calling Stop twice, or before Start,
// is a no-op.
func (a *DNSAggregator) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	if err := a.server.ShutdownContext(ctx); err != nil {
		return fmt.Errorf("floating: stop dns aggregator for network %d: %w", a.cfg.VNI, err)
	}
	a.running = false
	return nil
}

func (a *DNSAggregator) handleQuery(w dns.ResponseWriter, r *dns.Msg) {
	msg := &dns.Msg{}
	msg.SetReply(r)
	msg.Authoritative = true

	for _, q := range r.Question {
		if q.Qtype != dns.TypeA {
			a.forward(w, r)
			return
		}
		rr, err := a.resolve(q.Name)
		if err != nil {
			a.forward(w, r)
			return
		}
		msg.Answer = append(msg.Answer, rr)
	}

	if err := w.WriteMsg(msg); err != nil {
		log.Error(fmt.Sprintf("floating: write dns response: %v", err))
	}
}

// resolve looks a host name up among the DHCP leases recorded on this
// aggregator's network, returning an A record for the IP of the first
// lease whose hostname matches.
func (a *DNSAggregator) resolve(queryName string) (dns.RR, error) {
	name := strings.TrimSuffix(queryName, ".")
	name = strings.TrimSuffix(name, "."+a.cfg.Domain)

	for _, n := range a.view.ListNetworks() {
		if n.VNI != a.cfg.VNI {
			continue
		}
		for _, lease := range n.DHCPLeases {
			if lease.Hostname == name {
				ip := net.ParseIP(lease.IP)
				if ip == nil {
					continue
				}
				return &dns.A{
					Hdr: dns.RR_Header{Name: queryName, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   ip,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("floating: %s not resolvable on network %d", name, a.cfg.VNI)
}

func (a *DNSAggregator) forward(w dns.ResponseWriter, r *dns.Msg) {
	client := &dns.Client{Net: "udp"}
	for _, upstream := range a.cfg.NameServers {
		resp, _, err := client.Exchange(r, upstream)
		if err != nil {
			continue
		}
		if err := w.WriteMsg(resp); err != nil {
			log.Error(fmt.Sprintf("floating: write forwarded dns response: %v", err))
		}
		return
	}
	msg := &dns.Msg{}
	msg.SetReply(r)
	msg.Rcode = dns.RcodeServerFailure
	_ = w.WriteMsg(msg)
}

// IsRunning reports whether this aggregator is currently serving.
func (a *DNSAggregator) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
