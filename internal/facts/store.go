package facts

import (
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"factgraph/internal/errors"
)

// DefaultBaseID is the first id handed out by a new store. Ids below it are
// left to other producers that share the same id space downstream.
const DefaultBaseID ID = 1 << 32

// Store interns facts by (predicate, content) and allocates their ids.
//
// Ids come from one counter shared by every predicate, so they are unique and
// strictly increasing across the whole run. A Store is safe for concurrent
// use; Intern is the only mutating operation.
type Store struct {
	mu     sync.Mutex
	base   ID
	next   ID
	index  map[string]ID
	byPred map[Predicate][]Fact
	byID   map[ID]Fact
}

// Option configures a Store.
type Option func(*Store)

// WithBaseID sets the first id the store allocates.
func WithBaseID(base ID) Option {
	return func(s *Store) {
		s.base = base
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		base:   DefaultBaseID,
		index:  make(map[string]ID),
		byPred: make(map[Predicate][]Fact),
		byID:   make(map[ID]Fact),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.next = s.base
	return s
}

// Intern returns the id of the fact with the given predicate and content,
// creating it if this is the first time the pair is seen. The store keeps its
// own copy of c, so later changes to the caller's slices do not reach it.
func (s *Store) Intern(p Predicate, c Content) (ID, error) {
	if err := checkContent(p, c); err != nil {
		return 0, err
	}

	key, err := contentKey(p, c)
	if err != nil {
		return 0, errors.New(errors.InternalError, fmt.Sprintf("failed to serialize %s content", p), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.index[key]; ok {
		return id, nil
	}

	id := s.next
	s.next++

	f := Fact{ID: id, Predicate: p, Key: cloneContent(c)}
	s.index[key] = id
	s.byPred[p] = append(s.byPred[p], f)
	s.byID[id] = f
	return id, nil
}

// Facts returns copies of the facts of one predicate in insertion order.
func (s *Store) Facts(p Predicate) []Fact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Fact, len(s.byPred[p]))
	for i, f := range s.byPred[p] {
		f.Key = cloneContent(f.Key)
		out[i] = f
	}
	return out
}

// Lookup returns a copy of the fact with the given id.
func (s *Store) Lookup(id ID) (Fact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.byID[id]
	f.Key = cloneContent(f.Key)
	return f, ok
}

// Len returns the number of facts in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.byID)
}

// Count returns the number of facts of one predicate.
func (s *Store) Count(p Predicate) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.byPred[p])
}

// BaseID returns the first id this store allocates.
func (s *Store) BaseID() ID {
	return s.base
}

// NextID returns the id the next new fact will receive.
func (s *Store) NextID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.next
}

// contentKey serializes content behind a one-byte predicate tag, so
// structurally identical content under different predicates never collides.
func contentKey(p Predicate, c Content) (string, error) {
	b, err := msgpack.Marshal(c)
	if err != nil {
		return "", err
	}
	key := make([]byte, 0, len(b)+1)
	key = append(key, byte(p))
	key = append(key, b...)
	return string(key), nil
}

func checkContent(p Predicate, c Content) error {
	var ok bool
	switch p {
	case ClassDeclaration, InterfaceDeclaration, TraitDeclaration, EnumDeclaration:
		_, ok = c.(DeclarationKey)
	case ClassDefinition:
		_, ok = c.(ClassDefinitionKey)
	case InterfaceDefinition, TraitDefinition, EnumDefinition:
		_, ok = c.(DefinitionKey)
	case DeclarationLocation:
		_, ok = c.(LocationKey)
	case FileXRefs:
		_, ok = c.(FileXRefsKey)
	default:
		return errors.Newf(errors.ContractViolation, "unknown predicate %d", int(p))
	}
	if !ok {
		return errors.Newf(errors.ContractViolation, "content %T does not belong to %s", c, p)
	}
	return nil
}
