package protocol

// Service identifies the application-level service an envelope belongs to.
type Service string

const (
	// ServiceGeometryUpdate pushes a host-computed geometry snapshot to the
	// creative.
	ServiceGeometryUpdate Service = "geometry_update"

	// ServiceCreativeGeometryUpdate is the creative-initiated fluid-height
	// resize request.
	ServiceCreativeGeometryUpdate Service = "creative_geometry_update"

	// ServiceExpandRequest asks the host to expand the slot by the requested
	// rectangle deltas.
	ServiceExpandRequest Service = "expand_request"

	// ServiceExpandResponse answers an expand request.
	ServiceExpandResponse Service = "expand_response"

	// ServiceRegisterDone is the creative's registration-complete
	// notification carrying the initial render size.
	ServiceRegisterDone Service = "register_done"

	// ServiceCollapseRequest asks the host to restore the initial size.
	ServiceCollapseRequest Service = "collapse_request"

	// ServiceCollapseResponse answers a collapse request.
	ServiceCollapseResponse Service = "collapse_response"

	// ServiceConnect is the host's initial envelope after channel
	// establishment.
	ServiceConnect Service = "connect"

	// ServiceResizeComplete notifies the creative that a fluid resize took
	// effect.
	ServiceResizeComplete Service = "resize_complete"
)

// String returns the service name as sent on the wire.
func (s Service) String() string {
	return string(s)
}

// Known reports whether s names a service in the closed set.
func (s Service) Known() bool {
	switch s {
	case ServiceGeometryUpdate,
		ServiceCreativeGeometryUpdate,
		ServiceExpandRequest,
		ServiceExpandResponse,
		ServiceRegisterDone,
		ServiceCollapseRequest,
		ServiceCollapseResponse,
		ServiceConnect,
		ServiceResizeComplete:
		return true
	default:
		return false
	}
}
