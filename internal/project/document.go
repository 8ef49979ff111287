package project

import (
	"fmt"

	"ripple/internal/source"
)

// DocumentState pairs a stable document identity with its current text.
// Values are immutable; edits produce new values carrying the same ID.
type DocumentState struct {
	ID   source.DocumentID
	Path string
	Text *source.Text
}

// NewDocumentState mints an identity for authored content.
func NewDocumentState(path string, text *source.Text) DocumentState {
	if text == nil {
		text = source.NewTextFromString("")
	}
	return DocumentState{
		ID:   source.NewDocumentID(),
		Path: path,
		Text: text,
	}
}

// WithText replaces content, preserving identity.
func (d DocumentState) WithText(text *source.Text) DocumentState {
	d.Text = text
	return d
}

// GeneratorIdentity names one generated document: which generator produced
// it and the generator-chosen hint, unique per generator per project.
type GeneratorIdentity struct {
	Generator string
	Hint      string
}

func (gi GeneratorIdentity) String() string {
	return gi.Generator + "/" + gi.Hint
}

// GeneratedDocumentState is a document whose content originates from a
// generator pass. Its identity is derived deterministically from the project
// and the generator identity, so regenerating yields the same DocumentID and
// frozen overlays can target it across runs.
type GeneratedDocumentState struct {
	DocumentState
	Identity GeneratorIdentity
}

func NewGeneratedDocumentState(proj ProjectID, identity GeneratorIdentity, text *source.Text) GeneratedDocumentState {
	if text == nil {
		text = source.NewTextFromString("")
	}
	id := source.DeriveDocumentID(source.DocumentID(proj), identity.Generator+"\x00"+identity.Hint)
	return GeneratedDocumentState{
		DocumentState: DocumentState{
			ID:   id,
			Path: "generated/" + identity.Generator + "/" + identity.Hint,
			Text: text,
		},
		Identity: identity,
	}
}

// WithText replaces content, preserving identity.
func (g GeneratedDocumentState) WithText(text *source.Text) GeneratedDocumentState {
	g.DocumentState = g.DocumentState.WithText(text)
	return g
}

// DocumentSet is an ordered immutable collection of document states. Order
// is authoring order and is part of compilation semantics; lookups go
// through an identity index. All With* operations copy.
type DocumentSet struct {
	docs []DocumentState
	byID map[source.DocumentID]int
}

func NewDocumentSet(docs ...DocumentState) (*DocumentSet, error) {
	s := &DocumentSet{
		docs: make([]DocumentState, 0, len(docs)),
		byID: make(map[source.DocumentID]int, len(docs)),
	}
	for _, d := range docs {
		if _, dup := s.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate document %s (%s)", d.ID, d.Path)
		}
		s.byID[d.ID] = len(s.docs)
		s.docs = append(s.docs, d)
	}
	return s, nil
}

func (s *DocumentSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.docs)
}

func (s *DocumentSet) At(i int) DocumentState {
	return s.docs[i]
}

func (s *DocumentSet) Get(id source.DocumentID) (DocumentState, bool) {
	if s == nil {
		return DocumentState{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return DocumentState{}, false
	}
	return s.docs[i], true
}

func (s *DocumentSet) Contains(id source.DocumentID) bool {
	if s == nil {
		return false
	}
	_, ok := s.byID[id]
	return ok
}

// All возвращает read-only slice документов в порядке добавления.
// ВАЖНО: не модифицируйте возвращаемый срез!
func (s *DocumentSet) All() []DocumentState {
	if s == nil {
		return nil
	}
	return s.docs
}

func (s *DocumentSet) clone() *DocumentSet {
	out := &DocumentSet{
		docs: make([]DocumentState, len(s.docs)),
		byID: make(map[source.DocumentID]int, len(s.byID)),
	}
	copy(out.docs, s.docs)
	for id, i := range s.byID {
		out.byID[id] = i
	}
	return out
}

// WithAdded appends documents, rejecting duplicate identities.
func (s *DocumentSet) WithAdded(docs ...DocumentState) (*DocumentSet, error) {
	out := s.clone()
	for _, d := range docs {
		if _, dup := out.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate document %s (%s)", d.ID, d.Path)
		}
		out.byID[d.ID] = len(out.docs)
		out.docs = append(out.docs, d)
	}
	return out, nil
}

// WithRemoved drops documents by identity; unknown identities error.
func (s *DocumentSet) WithRemoved(ids ...source.DocumentID) (*DocumentSet, error) {
	drop := make(map[source.DocumentID]bool, len(ids))
	for _, id := range ids {
		if !s.Contains(id) {
			return nil, fmt.Errorf("remove unknown document %s", id)
		}
		drop[id] = true
	}
	out := &DocumentSet{
		docs: make([]DocumentState, 0, len(s.docs)-len(drop)),
		byID: make(map[source.DocumentID]int, len(s.docs)-len(drop)),
	}
	for _, d := range s.docs {
		if drop[d.ID] {
			continue
		}
		out.byID[d.ID] = len(out.docs)
		out.docs = append(out.docs, d)
	}
	return out, nil
}

// WithText replaces one document's content in place of its slot.
func (s *DocumentSet) WithText(id source.DocumentID, text *source.Text) (*DocumentSet, error) {
	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("replace text of unknown document %s", id)
	}
	out := s.clone()
	out.docs[i] = out.docs[i].WithText(text)
	return out, nil
}

// GeneratedSet is the ordered immutable collection of generated document
// states produced by one generator run.
type GeneratedSet struct {
	docs []GeneratedDocumentState
	byID map[source.DocumentID]int
}

func NewGeneratedSet(docs ...GeneratedDocumentState) *GeneratedSet {
	s := &GeneratedSet{
		docs: make([]GeneratedDocumentState, 0, len(docs)),
		byID: make(map[source.DocumentID]int, len(docs)),
	}
	for _, d := range docs {
		if _, dup := s.byID[d.ID]; dup {
			continue
		}
		s.byID[d.ID] = len(s.docs)
		s.docs = append(s.docs, d)
	}
	return s
}

func (s *GeneratedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.docs)
}

func (s *GeneratedSet) Get(id source.DocumentID) (GeneratedDocumentState, bool) {
	if s == nil {
		return GeneratedDocumentState{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return GeneratedDocumentState{}, false
	}
	return s.docs[i], true
}

// All возвращает read-only slice в порядке генерации.
func (s *GeneratedSet) All() []GeneratedDocumentState {
	if s == nil {
		return nil
	}
	return s.docs
}

// WithReplaced substitutes an existing entry or appends a new one, keeping
// order stable for existing entries.
func (s *GeneratedSet) WithReplaced(doc GeneratedDocumentState) *GeneratedSet {
	if s == nil {
		return NewGeneratedSet(doc)
	}
	out := &GeneratedSet{
		docs: make([]GeneratedDocumentState, len(s.docs)),
		byID: make(map[source.DocumentID]int, len(s.byID)+1),
	}
	copy(out.docs, s.docs)
	for id, i := range s.byID {
		out.byID[id] = i
	}
	if i, ok := out.byID[doc.ID]; ok {
		out.docs[i] = doc
		return out
	}
	out.byID[doc.ID] = len(out.docs)
	out.docs = append(out.docs, doc)
	return out
}
