package source

import (
	"fmt"

	"github.com/google/uuid"
)

// DocumentID uniquely identifies a document across snapshots. The identity is
// stable while the document's content changes; replacing text never mints a
// new ID.
type DocumentID uuid.UUID

// NoDocumentID is the zero identity, used where a diagnostic has no document.
var NoDocumentID DocumentID

// NewDocumentID mints a fresh random identity.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New())
}

// DeriveDocumentID deterministically derives an identity from a namespace and
// a name. Deriving the same name in the same space always yields the same ID,
// which keeps generated documents stable across runs.
func DeriveDocumentID(space DocumentID, name string) DocumentID {
	return DocumentID(uuid.NewSHA1(uuid.UUID(space), []byte(name)))
}

// ParseDocumentID parses the canonical textual form produced by String.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NoDocumentID, fmt.Errorf("parse document id: %w", err)
	}
	return DocumentID(u), nil
}

func (id DocumentID) IsValid() bool {
	return id != NoDocumentID
}

func (id DocumentID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first uuid group, enough for trace output.
func (id DocumentID) Short() string {
	s := id.String()
	if len(s) < 8 {
		return s
	}
	return s[:8]
}
