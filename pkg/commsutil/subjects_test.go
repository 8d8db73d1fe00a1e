package commsutil

import "testing"

func TestBuildAuditSubject(t *testing.T) {
	tests := []struct {
		name   string
		action string
		want   string
	}{
		{"contract create", "contracts.create", "uchet.audit.v1.contracts.create"},
		{"warehouse item", "warehouse.deleteItem", "uchet.audit.v1.warehouse.deleteItem"},
		{"empty action falls back to stream root", "", "uchet.audit.v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildAuditSubject(tt.action)
			if got != tt.want {
				t.Errorf("BuildAuditSubject(%q) = %q, want %q", tt.action, got, tt.want)
			}
		})
	}
}

func TestDefaultSubjects(t *testing.T) {
	if SubjectBackend != "uchet.backend.v1" {
		t.Errorf("commsutil:subjects_test - unexpected backend subject %q", SubjectBackend)
	}
	if SubjectAudit != "uchet.audit.v1" {
		t.Errorf("commsutil:subjects_test - unexpected audit subject %q", SubjectAudit)
	}
}
