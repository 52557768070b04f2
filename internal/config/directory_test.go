package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-approval-chains/configs"
)

const minimalDirectory = `
employees:
  - {identity: boss@acme.example, name: Boss}
  - {identity: dev@acme.example, name: Dev, reports_to: boss@acme.example}
policies:
  it:
    anchor: {role: it_department, identity: boss@acme.example}
    fallback:
      - {role: supervisor, identity: a@acme.example, name: A, department: Ops}
      - {role: department_head, identity: b@acme.example, name: B, department: Ops}
      - {role: it_department, identity: boss@acme.example, name: Boss, department: IT}
`

func TestDirectoryFromYAML_Sample(t *testing.T) {
	data, err := configs.Load(configs.SampleDirectory)
	require.NoError(t, err)

	f, err := DirectoryFromYAML(data)
	require.NoError(t, err)

	assert.Len(t, f.Employees, 9)
	assert.Len(t, f.Policies, 3)
	assert.Equal(t, "finance_officer", f.Classifier.IdentityOverrides["lena.fischer@acme.example"])

	cash := f.Policies["cash"]
	assert.True(t, cash.StopAtAnchor)
	require.Len(t, cash.ConditionalInsertions, 1)
	assert.Equal(t, "mission", cash.ConditionalInsertions[0].When.Equals)
	require.Len(t, cash.MandatoryInsertions, 1)
	assert.Equal(t, "finance_officer", cash.MandatoryInsertions[0].Capability)
}

func TestDirectoryFromYAML_Minimal(t *testing.T) {
	f, err := DirectoryFromYAML([]byte(minimalDirectory))
	require.NoError(t, err)
	assert.Equal(t, "boss@acme.example", f.Employees[1].ReportsTo)
}

func TestDirectoryFromYAML_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "unknown field",
			mutate:  func(s string) string { return s + "extra: true\n" },
			wantErr: "parse directory yaml",
		},
		{
			name: "duplicate identity",
			mutate: func(s string) string {
				return strings.Replace(s, "{identity: dev@acme.example", "{identity: BOSS@acme.example", 1)
			},
			wantErr: "duplicated",
		},
		{
			name: "fallback too short",
			mutate: func(s string) string {
				return strings.Replace(s, "      - {role: department_head, identity: b@acme.example, name: B, department: Ops}\n", "", 1)
			},
			wantErr: "3 to 6 steps",
		},
		{
			name: "fallback not ending at anchor",
			mutate: func(s string) string {
				return strings.Replace(s, "{role: it_department, identity: boss@acme.example, name: Boss, department: IT}",
					"{role: business_head, identity: boss@acme.example, name: Boss, department: IT}", 1)
			},
			wantErr: "must end with the anchor role",
		},
		{
			name: "conditional without predicate",
			mutate: func(s string) string {
				return strings.Replace(s, "    fallback:\n",
					"    conditional_insertions:\n      - {role: human_resources, identity: hr@acme.example}\n    fallback:\n", 1)
			},
			wantErr: "when is required",
		},
		{
			name: "insertion with identity and capability",
			mutate: func(s string) string {
				return strings.Replace(s, "    fallback:\n",
					"    mandatory_insertions:\n      - {role: finance_officer, identity: f@acme.example, capability: finance_officer}\n    fallback:\n", 1)
			},
			wantErr: "exactly one of identity or capability",
		},
		{
			name: "min_amount combined with field",
			mutate: func(s string) string {
				return strings.Replace(s, "    fallback:\n",
					"    conditional_insertions:\n      - role: finance_officer\n        identity: f@acme.example\n        when: {field: category, equals: x, min_amount: 10}\n    fallback:\n", 1)
			},
			wantErr: "min_amount cannot be combined",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DirectoryFromYAML([]byte(tc.mutate(minimalDirectory)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalDirectory), 0o644))

	f, err := LoadDirectory(path)
	require.NoError(t, err)
	assert.Len(t, f.Employees, 2)

	_, err = LoadDirectory(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APPROVAL_DIRECTORY_FILE", "/etc/approval/directory.yaml")
	t.Setenv("APPROVAL_RELOAD_DEBOUNCE", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "approval-chains", cfg.Service.Name)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/etc/approval/directory.yaml", cfg.Directory.File)
	assert.Equal(t, "2s", cfg.Directory.ReloadDebounce.String())
}
