package commsutil

// Default COMMS subjects for the backend binding and audit stream.
const (
	SubjectBackend = "uchet.backend.v1"
	SubjectAudit   = "uchet.audit.v1"
)

// BuildAuditSubject builds a granular audit subject for one action,
// e.g. "uchet.audit.v1.contracts.create". Subscribers filter with
// wildcards ("uchet.audit.v1.contracts.*").
func BuildAuditSubject(actionName string) string {
	if actionName == "" {
		return SubjectAudit
	}
	return SubjectAudit + "." + actionName
}
