package reconcile

import (
	"time"
)

type ServiceStatus struct {
	LastUpdated time.Time `json:"lastUpdated,omitempty"`
	Provider    string    `json:"provider"`
	FQDN        string    `json:"fqdn"`
	RecordName  string    `json:"recordName"`
	Target      string    `json:"target,omitempty"`
	Action      string    `json:"action,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func (r *Reconciler) GetAllServicesStatus() map[string]ServiceStatus {
	res := make(map[string]ServiceStatus, len(r.services))
	for _, ss := range r.services {
		res[ss.svc.Name] = getStatusObject(ss)
	}
	return res
}

func (r *Reconciler) GetServiceStatus(name string) *ServiceStatus {
	for _, ss := range r.services {
		if ss.svc.Name == name {
			res := getStatusObject(ss)
			return &res
		}
	}
	return nil
}

func getStatusObject(ss *serviceState) ServiceStatus {
	target, action, lastError, lastUpdated := ss.getResult()

	status := ServiceStatus{
		LastUpdated: lastUpdated,
		Provider:    ss.svc.Provider.Name(),
		FQDN:        ss.svc.FQDN,
		RecordName:  ss.svc.RecordName,
		Error:       lastError,
	}
	if target.IsValid() {
		status.Target = target.String()
		status.Action = action.String()
	}

	return status
}
