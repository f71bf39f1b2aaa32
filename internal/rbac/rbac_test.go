package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "citizen read", role: RoleCitizen, action: ActionRead, allow: true},
		{name: "citizen report", role: RoleCitizen, action: ActionReport, allow: true},
		{name: "citizen moderate", role: RoleCitizen, action: ActionModerate, allow: false},
		{name: "citizen admin", role: RoleCitizen, action: ActionAdmin, allow: false},
		{name: "staff moderate", role: RoleStaff, action: ActionModerate, allow: true},
		{name: "staff admin", role: RoleStaff, action: ActionAdmin, allow: false},
		{name: "admin admin", role: RoleAdmin, action: ActionAdmin, allow: true},
		{name: "unknown read", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("staff") != RoleStaff {
		t.Error("staff should normalize to itself")
	}
	if Normalize("superuser") != RoleCitizen {
		t.Error("unknown roles should normalize to citizen")
	}
}
