package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirectoryFile models the directory/policy YAML: the org snapshot, the
// classifier overrides, and one policy per request type.
type DirectoryFile struct {
	Employees  []Employee        `yaml:"employees"`
	Classifier ClassifierConfig  `yaml:"classifier"`
	Policies   map[string]Policy `yaml:"policies"`
}

// Employee is one directory record.
type Employee struct {
	Identity     string   `yaml:"identity"`
	Name         string   `yaml:"name"`
	Title        string   `yaml:"title"`
	Department   string   `yaml:"department"`
	ReportsTo    string   `yaml:"reports_to"`
	Level        int      `yaml:"level"`
	Capabilities []string `yaml:"capabilities"`
}

// ClassifierConfig holds identity overrides keyed by identity, valued by role.
type ClassifierConfig struct {
	IdentityOverrides map[string]string `yaml:"identity_overrides"`
}

// Policy configures chain assembly for one request type.
type Policy struct {
	Anchor                Participant   `yaml:"anchor"`
	StopAtAnchor          bool          `yaml:"stop_at_anchor"`
	ConditionalInsertions []Insertion   `yaml:"conditional_insertions"`
	MandatoryInsertions   []Insertion   `yaml:"mandatory_insertions"`
	Fallback              []Participant `yaml:"fallback"`
}

// Participant is a fixed step: a role plus the person who holds it.
// Name and Department are used when Identity is absent from the directory.
type Participant struct {
	Role       string `yaml:"role"`
	Identity   string `yaml:"identity"`
	Name       string `yaml:"name"`
	Department string `yaml:"department"`
}

// Insertion adds a role to the chain. Exactly one of Identity or Capability
// selects the approver.
type Insertion struct {
	Participant `yaml:",inline"`

	Capability string     `yaml:"capability"`
	When       *Predicate `yaml:"when"`
}

// Predicate tests request metadata. Field with Equals or OneOf compares a
// metadata field; MinAmount compares the request amount.
type Predicate struct {
	Field     string   `yaml:"field"`
	Equals    string   `yaml:"equals"`
	OneOf     []string `yaml:"one_of"`
	MinAmount *int64   `yaml:"min_amount"`
}

// LoadDirectory reads and validates a directory file from disk.
func LoadDirectory(path string) (*DirectoryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory file %s not found", path)
		}
		return nil, err
	}
	return DirectoryFromYAML(data)
}

// DirectoryFromYAML parses YAML bytes, rejecting unknown fields, and validates.
func DirectoryFromYAML(data []byte) (*DirectoryFile, error) {
	var f DirectoryFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse directory yaml: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks structure. Role names and fallback chain shape are checked
// again when policies are compiled, against the closed role set.
func (f *DirectoryFile) Validate() error {
	if len(f.Employees) == 0 {
		return fmt.Errorf("employees is required")
	}
	seen := make(map[string]bool, len(f.Employees))
	for i, e := range f.Employees {
		id := strings.ToLower(strings.TrimSpace(e.Identity))
		if id == "" {
			return fmt.Errorf("employees[%d].identity is required", i)
		}
		if seen[id] {
			return fmt.Errorf("employees[%d].identity %s is duplicated", i, e.Identity)
		}
		seen[id] = true
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("employees[%d].name is required", i)
		}
	}
	for id, role := range f.Classifier.IdentityOverrides {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("classifier.identity_overrides has empty identity")
		}
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("classifier.identity_overrides.%s has empty role", id)
		}
	}
	if len(f.Policies) == 0 {
		return fmt.Errorf("policies is required")
	}
	for name, p := range f.Policies {
		if err := p.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p Policy) validate(name string) error {
	if p.Anchor.Role == "" {
		return fmt.Errorf("policies.%s.anchor.role is required", name)
	}
	if p.Anchor.Identity == "" {
		return fmt.Errorf("policies.%s.anchor.identity is required", name)
	}
	for i, ins := range p.ConditionalInsertions {
		if err := ins.validate(fmt.Sprintf("policies.%s.conditional_insertions[%d]", name, i)); err != nil {
			return err
		}
		if ins.When == nil {
			return fmt.Errorf("policies.%s.conditional_insertions[%d].when is required", name, i)
		}
		if err := ins.When.validate(fmt.Sprintf("policies.%s.conditional_insertions[%d].when", name, i)); err != nil {
			return err
		}
	}
	for i, ins := range p.MandatoryInsertions {
		if err := ins.validate(fmt.Sprintf("policies.%s.mandatory_insertions[%d]", name, i)); err != nil {
			return err
		}
		if ins.When != nil {
			return fmt.Errorf("policies.%s.mandatory_insertions[%d].when is not allowed", name, i)
		}
	}
	if n := len(p.Fallback); n < 3 || n > 6 {
		return fmt.Errorf("policies.%s.fallback must have 3 to 6 steps, got %d", name, n)
	}
	for i, s := range p.Fallback {
		if s.Role == "" || s.Identity == "" || s.Name == "" || s.Department == "" {
			return fmt.Errorf("policies.%s.fallback[%d] requires role, identity, name and department", name, i)
		}
	}
	if last := p.Fallback[len(p.Fallback)-1]; !strings.EqualFold(last.Role, p.Anchor.Role) {
		return fmt.Errorf("policies.%s.fallback must end with the anchor role %s", name, p.Anchor.Role)
	}
	return nil
}

func (ins Insertion) validate(path string) error {
	if ins.Role == "" {
		return fmt.Errorf("%s.role is required", path)
	}
	if (ins.Identity == "") == (ins.Capability == "") {
		return fmt.Errorf("%s requires exactly one of identity or capability", path)
	}
	return nil
}

func (pr Predicate) validate(path string) error {
	if pr.MinAmount != nil {
		if pr.Field != "" || pr.Equals != "" || len(pr.OneOf) > 0 {
			return fmt.Errorf("%s: min_amount cannot be combined with field matching", path)
		}
		return nil
	}
	if pr.Field == "" {
		return fmt.Errorf("%s.field is required", path)
	}
	if pr.Equals == "" && len(pr.OneOf) == 0 {
		return fmt.Errorf("%s requires equals or one_of", path)
	}
	return nil
}
