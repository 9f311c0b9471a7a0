package rbac

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlRoleSource loads role definitions from a YAML document:
//
//	roles:
//	  member:
//	    permissions: [dashboard.view, profile.*]
//	  admin:
//	    inherits: [member]
//	    permissions: [users.*, settings.*]
//	  landlord:
//	    inherits: [admin]
//	    permissions: ["landlord.*"]
type yamlRoleSource struct {
	path string
	raw  []byte
}

type rolesDocument struct {
	Roles map[string]Role `yaml:"roles"`
}

// NewYAMLFileRoleSource reads role definitions from the file at path on
// every Load, so a rebuilt Authorizer picks up edits.
func NewYAMLFileRoleSource(path string) RoleSource {
	return &yamlRoleSource{path: path}
}

// NewYAMLRoleSource parses role definitions from an in-memory document.
func NewYAMLRoleSource(raw []byte) RoleSource {
	return &yamlRoleSource{raw: raw}
}

func (s *yamlRoleSource) Load(ctx context.Context) (map[string]Role, error) {
	data := s.raw
	if s.path != "" {
		var err error
		data, err = os.ReadFile(s.path)
		if err != nil {
			return nil, errors.Join(ErrInvalidRolesFile, err)
		}
	}

	var doc rolesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrInvalidRolesFile, err)
	}
	if doc.Roles == nil {
		return map[string]Role{}, nil
	}
	return doc.Roles, nil
}
