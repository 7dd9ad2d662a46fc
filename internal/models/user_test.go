package models

import (
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"manager role", RoleManager, true},
		{"mechanic role", RoleMechanic, true},
		{"lowercase manager", "manager", false},
		{"invalid role", "admin", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestUser_HasPermission(t *testing.T) {
	manager := &User{Role: RoleManager}
	mechanic := &User{Role: RoleMechanic}
	stranger := &User{Role: "Customer"}

	tests := []struct {
		name     string
		user     *User
		action   string
		expected bool
	}{
		{"manager can create jobs", manager, "create_job", true},
		{"manager can create invoices", manager, "create_invoice", true},
		{"manager can export", manager, "export_jobs", true},

		{"mechanic can view jobs", mechanic, "view_jobs", true},
		{"mechanic can update status", mechanic, "update_job_status", true},
		{"mechanic can update notes", mechanic, "update_job_notes", true},
		{"mechanic can update checklist", mechanic, "update_checklist", true},
		{"mechanic can upload photos", mechanic, "upload_photos", true},
		{"mechanic cannot create jobs", mechanic, "create_job", false},
		{"mechanic cannot create invoices", mechanic, "create_invoice", false},
		{"mechanic cannot export", mechanic, "export_jobs", false},

		{"unknown role has nothing", stranger, "view_jobs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.user.HasPermission(tt.action)
			if result != tt.expected {
				t.Errorf("User with role %s HasPermission(%s) = %v, want %v",
					tt.user.Role, tt.action, result, tt.expected)
			}
		})
	}
}
