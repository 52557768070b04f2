package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/orggraph"
)

func TestRoleClassifier_Precedence(t *testing.T) {
	c := NewRoleClassifier(map[string]approval.RoleLabel{
		"Lena.Fischer@acme.example": approval.RoleProcurement,
	})

	cases := []struct {
		name  string
		e     orggraph.Employee
		level int
		want  approval.RoleLabel
	}{
		{"override beats title", orggraph.Employee{Identity: "lena.fischer@acme.example", Title: "Finance Director"}, 1, approval.RoleProcurement},
		{"finance keyword", orggraph.Employee{Identity: "a@x", Title: "Finance Manager"}, 1, approval.RoleFinanceOfficer},
		{"president", orggraph.Employee{Identity: "a@x", Title: "Vice President"}, 1, approval.RoleBusinessHead},
		{"head of business exact", orggraph.Employee{Identity: "a@x", Title: "Head of Business"}, 3, approval.RoleBusinessHead},
		{"head keyword", orggraph.Employee{Identity: "a@x", Title: "Head of Sales"}, 1, approval.RoleDepartmentHead},
		{"director keyword", orggraph.Employee{Identity: "a@x", Title: "Director of Operations"}, 1, approval.RoleDepartmentHead},
		{"manager keyword", orggraph.Employee{Identity: "a@x", Title: "Operations Manager"}, 3, approval.RoleSupervisor},
		{"coordinator keyword", orggraph.Employee{Identity: "a@x", Title: "Project Coordinator"}, 2, approval.RoleSupervisor},
		{"position level 1", orggraph.Employee{Identity: "a@x", Title: "Engineer"}, 1, approval.RoleSupervisor},
		{"position level 2", orggraph.Employee{Identity: "a@x"}, 2, approval.RoleDepartmentHead},
		{"position beyond 2", orggraph.Employee{Identity: "a@x", Title: "Analyst"}, 4, approval.RoleApprover},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.e, tc.level))
		})
	}
}

func TestClassifierFromConfig_UnknownRole(t *testing.T) {
	_, err := ClassifierFromConfig(config.ClassifierConfig{
		IdentityOverrides: map[string]string{"a@x": "cfo"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}
