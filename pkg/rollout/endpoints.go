package rollout

import (
	"fmt"
	"strings"

	"github.com/cuemby/bluegreen/pkg/types"
)

// EndpointResolver maps a service to the URLs its health gates probe.
// The two URLs are deliberately different: the pre-switch gate must hit
// the candidate slot directly, while the post-switch gate must go
// through the traffic router so the switch itself is verified
// end-to-end.
type EndpointResolver interface {
	// SlotURL returns the probe URL that reaches one slot directly,
	// bypassing the router
	SlotURL(service types.Service, slot types.Slot) string

	// ServiceURL returns the probe URL at the service's public address,
	// behind the router
	ServiceURL(service types.Service) string
}

// ClusterEndpoints derives probe URLs from cluster DNS conventions:
// slots resolve as "{service}-{color}.{namespace}.{domain}" and the
// routed service as "{service}.{namespace}.{domain}".
type ClusterEndpoints struct {
	// Scheme is "http" or "https" (default: http)
	Scheme string

	// Domain is the cluster DNS suffix (default: svc.cluster.local)
	Domain string
}

func (e ClusterEndpoints) scheme() string {
	if e.Scheme == "" {
		return "http"
	}
	return e.Scheme
}

func (e ClusterEndpoints) domain() string {
	if e.Domain == "" {
		return "svc.cluster.local"
	}
	return e.Domain
}

// SlotURL returns the direct probe URL for one slot
func (e ClusterEndpoints) SlotURL(service types.Service, slot types.Slot) string {
	return fmt.Sprintf("%s://%s.%s.%s%s",
		e.scheme(), types.SlotName(service, slot), service.Namespace, e.domain(),
		healthPath(service))
}

// ServiceURL returns the routed probe URL for the service
func (e ClusterEndpoints) ServiceURL(service types.Service) string {
	return fmt.Sprintf("%s://%s.%s.%s%s",
		e.scheme(), service.Name, service.Namespace, e.domain(),
		healthPath(service))
}

// healthPath normalizes the configured health-check path
func healthPath(service types.Service) string {
	path := service.HealthCheckPath
	if path == "" {
		path = "/healthz"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
