package project

import (
	"fmt"

	"github.com/google/uuid"
)

// ProjectID uniquely identifies a project across snapshots. Like document
// identities, it is stable while the project's content and configuration
// change.
type ProjectID uuid.UUID

var NoProjectID ProjectID

// idNamespace seeds deterministic project identities derived from manifest
// names, so reloading the same workspace yields the same IDs.
var idNamespace = uuid.MustParse("8a6b2c1e-4f7d-4e09-9c35-1d2b8a7f6e03")

// NewProjectID mints a fresh random identity.
func NewProjectID() ProjectID {
	return ProjectID(uuid.New())
}

// DeriveProjectID deterministically derives an identity from a manifest-level
// project name.
func DeriveProjectID(name string) ProjectID {
	return ProjectID(uuid.NewSHA1(idNamespace, []byte(name)))
}

// ParseProjectID parses the canonical textual form produced by String.
func ParseProjectID(s string) (ProjectID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NoProjectID, fmt.Errorf("parse project id: %w", err)
	}
	return ProjectID(u), nil
}

func (id ProjectID) IsValid() bool {
	return id != NoProjectID
}

func (id ProjectID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first uuid group, enough for trace output.
func (id ProjectID) Short() string {
	s := id.String()
	if len(s) < 8 {
		return s
	}
	return s[:8]
}
