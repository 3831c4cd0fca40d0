package registry

import "github.com/morezero/jsonrpc11/pkg/jsonrpc"

// Describe returns the service description. It is built once per revision
// and shared; callers must not modify it. system.describe itself is not listed.
func (r *Registry) Describe() *jsonrpc.ServiceDescription {
	r.mu.RLock()
	sd := r.sd
	r.mu.RUnlock()
	if sd != nil {
		return sd
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sd != nil {
		return r.sd
	}

	procs := make([]jsonrpc.ProcedureDescription, 0, len(r.order))
	for _, name := range r.order {
		if name == jsonrpc.DescribeMethod {
			continue
		}
		procs = append(procs, r.procs[name].description())
	}
	r.sd = &jsonrpc.ServiceDescription{
		SDVersion: r.service.SDVersion,
		Name:      r.service.Name,
		ID:        r.service.ID,
		Version:   r.service.Version,
		Summary:   r.service.Summary,
		Help:      r.service.Help,
		Address:   r.service.Address,
		Procs:     procs,
	}
	return r.sd
}
