package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// collectionReader is the slice of *entity.Collection[T] every read-only
// listing/lookup handler needs.
type collectionReader[T any] interface {
	Get(key string) *T
	List() []*T
}

// domainWriter persists a Domain; satisfied by *entity.Writer.
type domainWriter interface {
	SaveDomain(d *types.Domain) error
}

// nodeWriter persists a Node; satisfied by *entity.Writer.
type nodeWriter interface {
	SaveNode(n *types.Node) error
}

// faultWriter persists or removes a Fault; satisfied by *entity.Writer.
type faultWriter interface {
	SaveFault(f *types.Fault) error
	DeleteFault(id string) error
}

// migrator is the slice of *migration.Controller the /vm/{name}/node
// handler drives directly and synchronously.
type migrator interface {
	Migrate(ctx context.Context, d *types.Domain, targetNode string, force, forceLive bool) error
	Unmigrate(ctx context.Context, d *types.Domain, force, forceLive bool) error
}

// nodeMachine is the slice of *nodestate.Machine the /node/{name}/domain-state
// handler drives.
type nodeMachine interface {
	Flush(ctx context.Context, n *types.Node, domains []*types.Domain, wait bool) error
	Unflush(ctx context.Context, n *types.Node, domains []*types.Domain, wait bool) error
}

// taskEnqueuer is the slice of *taskbus.Bus the locks/osd handlers need.
type taskEnqueuer interface {
	Enqueue(t *types.Task) error
}

// resigner lets the coordinator-state handler ask this node's own
// election loop to step down; satisfied by *election.Elector.
type resigner interface {
	Resign()
}

// Dependencies bundles everything the HTTP surface needs, narrowed to
// the interfaces above so tests can substitute fakes without touching
// ZooKeeper, libvirt, or NATS.
type Dependencies struct {
	Self string // this node's own name, for coordinator-state scoping

	Nodes    collectionReader[types.Node]
	Domains  collectionReader[types.Domain]
	Networks collectionReader[types.Network]
	Faults   collectionReader[types.Fault]
	Tasks    collectionReader[types.Task]

	DomainWriter domainWriter
	NodeWriter   nodeWriter
	FaultWriter  faultWriter

	Migrator migrator
	Machine  nodeMachine
	Bus      taskEnqueuer
	Elector  resigner

	// APIKeys, if non-empty, is the set of valid X-Api-Key header
	// values and login-route credentials. Empty means the surface is
	// unauthenticated (development/single-operator deployments).
	APIKeys []string
}

// Server is the HTTP/JSON adapter bound to one pvcd process.
type Server struct {
	deps    Dependencies
	mux     *http.ServeMux
	auth    *auth
	httpSrv *http.Server
}

// NewServer builds a Server over deps, registering every route.
func NewServer(deps Dependencies, addr string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		deps: deps,
		mux:  mux,
		auth: newAuth(deps.APIKeys),
	}

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/login", s.auth.handleLogin)

	mux.Handle("POST /api/v1/vm", s.auth.protect(http.HandlerFunc(s.handleDefineVM)))
	mux.Handle("GET /api/v1/vm", s.auth.protect(http.HandlerFunc(s.handleListVMs)))
	mux.Handle("GET /api/v1/vm/{name}", s.auth.protect(http.HandlerFunc(s.handleGetVM)))
	mux.Handle("POST /api/v1/vm/{name}/state", s.auth.protect(http.HandlerFunc(s.handleVMState)))
	mux.Handle("POST /api/v1/vm/{name}/node", s.auth.protect(http.HandlerFunc(s.handleVMNode)))
	mux.Handle("POST /api/v1/vm/{name}/locks", s.auth.protect(http.HandlerFunc(s.handleVMLocks)))

	mux.Handle("GET /api/v1/node", s.auth.protect(http.HandlerFunc(s.handleListNodes)))
	mux.Handle("GET /api/v1/node/{name}", s.auth.protect(http.HandlerFunc(s.handleGetNode)))
	mux.Handle("POST /api/v1/node/{name}/domain-state", s.auth.protect(http.HandlerFunc(s.handleDomainState)))
	mux.Handle("POST /api/v1/node/{name}/coordinator-state", s.auth.protect(http.HandlerFunc(s.handleCoordinatorState)))

	mux.Handle("POST /api/v1/storage/ceph/osd", s.auth.protect(http.HandlerFunc(s.handleAddOSD)))

	mux.Handle("GET /api/v1/faults", s.auth.protect(http.HandlerFunc(s.handleListFaults)))
	mux.Handle("GET /api/v1/faults/{id}", s.auth.protect(http.HandlerFunc(s.handleGetFault)))
	mux.Handle("PUT /api/v1/faults/{id}", s.auth.protect(http.HandlerFunc(s.handleAckFault)))
	mux.Handle("DELETE /api/v1/faults/{id}", s.auth.protect(http.HandlerFunc(s.handleDeleteFault)))

	mux.Handle("GET /api/v1/tasks", s.auth.protect(http.HandlerFunc(s.handleListTasks)))
	mux.Handle("GET /api/v1/tasks/{id}", s.auth.protect(http.HandlerFunc(s.handleGetTask)))

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving the HTTP surface until the server is
// shut down or a fatal listener error occurs.
func (s *Server) ListenAndServe() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP surface, letting in-flight requests
// finish until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the underlying mux, e.g. for tests using
// httptest.NewServer without going through ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a pvcerr.Kind to the status codes spec'd in the error
// handling design: validation/precondition are both "rejected at entry"
// 400s, not-found is 404, coordination-lost and executor failures are
// reported as 503/500 since the caller must not retry blindly.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case pvcerr.Is(err, pvcerr.KindValidation), pvcerr.Is(err, pvcerr.KindPrecondition):
		status = http.StatusBadRequest
	case pvcerr.Is(err, pvcerr.KindNotFound):
		status = http.StatusNotFound
	case pvcerr.Is(err, pvcerr.KindCoordinationLost):
		status = http.StatusServiceUnavailable
	case pvcerr.Is(err, pvcerr.KindExecutorFailure):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// taskAccepted writes the 202 + Location contract task-creating
// endpoints use.
func taskAccepted(w http.ResponseWriter, t *types.Task) {
	w.Header().Set("Location", "/api/v1/tasks/"+t.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id":   t.ID,
		"task_name": t.Name,
		"run_on":    t.RoutingKey,
	})
}
