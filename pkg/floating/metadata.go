package floating

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// DefaultMetadataAddr is the link-local address cloud-init-style guests
// expect the metadata responder to answer on.
const DefaultMetadataAddr = "169.254.169.254:80"

// MetadataStore resolves the requesting VM for a metadata lookup: which
// DHCP lease on some network carries the caller's source IP, and which
// domain's name equals that lease's hostname. Implemented by
// *localcache.Cache, which the entity registry embeds.
type MetadataStore interface {
	DomainForSourceIP(ip net.IP) (*types.Domain, bool)
}

type metadataResponse struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Profile  string `json:"profile"`
	Userdata string `json:"userdata,omitempty"`
}

// MetadataResponder answers cloud-init-style metadata HTTP requests,
// identifying the caller by source IP rather than any credential. It is
// one of the services the floating services manager brings up while
// this node is primary.
type MetadataResponder struct {
	store          MetadataStore
	renderUserdata Userdata
	server         *http.Server
}

// NewMetadataResponder constructs a MetadataResponder bound to addr
// ("" uses DefaultMetadataAddr). renderUserdata may be nil, in which
// case /user-data always answers 204 No Content.
func NewMetadataResponder(store MetadataStore, addr string, renderUserdata Userdata) *MetadataResponder {
	if addr == "" {
		addr = DefaultMetadataAddr
	}
	mux := http.NewServeMux()
	r := &MetadataResponder{store: store, renderUserdata: renderUserdata}
	mux.HandleFunc("/meta-data", r.handleMetadata)
	mux.HandleFunc("/user-data", r.handleUserdata)
	r.server = &http.Server{Addr: addr, Handler: mux}
	return r
}

// Start begins serving. Calling Start on an already-running responder
// returns http.ErrServerClosed via the same background goroutine path
// net/http always uses, which callers treat as the idempotent no-op.
func (r *MetadataResponder) Start(ctx context.Context) error {
	go func() {
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("floating: metadata responder stopped: " + err.Error())
		}
	}()
	return nil
}

// Stop shuts the HTTP server down.
func (r *MetadataResponder) Stop(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

func (r *MetadataResponder) callerIP(req *http.Request) net.IP {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return net.ParseIP(req.RemoteAddr)
	}
	return net.ParseIP(host)
}

func (r *MetadataResponder) handleMetadata(w http.ResponseWriter, req *http.Request) {
	dom, ok := r.store.DomainForSourceIP(r.callerIP(req))
	if !ok {
		http.NotFound(w, req)
		return
	}
	resp := metadataResponse{UUID: dom.UUID, Name: dom.Name, Profile: dom.Profile}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleUserdata resolves the caller to a domain the same way
// handleMetadata does; the userdata body itself comes from that
// domain's profile template, which pkg/pvcconfig owns, so this handler
// only confirms the caller is a known domain and leaves the templating
// to Userdata.
func (r *MetadataResponder) handleUserdata(w http.ResponseWriter, req *http.Request) {
	dom, ok := r.store.DomainForSourceIP(r.callerIP(req))
	if !ok {
		http.NotFound(w, req)
		return
	}
	body := r.userdata(dom)
	if body == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Write([]byte(body))
}

// Userdata renders a domain's cloud-init userdata from its profile,
// injected so pkg/pvcconfig's profile templates stay decoupled from the
// HTTP handler.
type Userdata func(dom *types.Domain) string

func (r *MetadataResponder) userdata(dom *types.Domain) string {
	if r.renderUserdata == nil {
		return ""
	}
	return r.renderUserdata(dom)
}
