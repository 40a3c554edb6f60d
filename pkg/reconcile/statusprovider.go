package reconcile

type StatusProvider interface {
	GetAllServicesStatus() map[string]ServiceStatus
	GetServiceStatus(name string) *ServiceStatus
}

// Compile time interface check
var _ StatusProvider = (*Reconciler)(nil)
