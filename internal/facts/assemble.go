package facts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"factgraph/internal/errors"
)

// BlockFact is one serialized fact inside a block.
type BlockFact struct {
	ID  ID      `json:"id"`
	Key Content `json:"key"`
}

// Block is the facts of one predicate, ready for ingestion.
type Block struct {
	Predicate string      `json:"predicate"`
	Facts     []BlockFact `json:"facts"`

	Kind Predicate `json:"-"`
}

// Assemble reads the store out as blocks in AssemblyOrder. Every predicate
// gets a block, empty or not. Facts within a block keep insertion order,
// which consumers must not rely on.
func Assemble(s *Store, schema Schema) []Block {
	blocks := make([]Block, 0, len(AssemblyOrder))
	for _, p := range AssemblyOrder {
		stored := s.Facts(p)
		b := Block{
			Predicate: schema.QualifiedName(p),
			Facts:     make([]BlockFact, 0, len(stored)),
			Kind:      p,
		}
		for _, f := range stored {
			b.Facts = append(b.Facts, BlockFact{ID: f.ID, Key: f.Key})
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// VerifyOrder checks that every reference in blocks points at a fact emitted
// in a strictly earlier block.
func VerifyOrder(blocks []Block) error {
	seen := make(map[ID]int)
	for i, b := range blocks {
		for _, f := range b.Facts {
			for _, ref := range f.Key.Refs() {
				at, ok := seen[ref.ID]
				if !ok {
					return errors.Newf(errors.OrderViolation,
						"fact %d in %s references unknown or later fact %d", f.ID, b.Predicate, ref.ID).
						WithDetails(map[string]interface{}{"block": i, "fact": f.ID, "ref": ref.ID})
				}
				if at >= i {
					return errors.Newf(errors.OrderViolation,
						"fact %d in %s references fact %d from the same block", f.ID, b.Predicate, ref.ID).
						WithDetails(map[string]interface{}{"block": i, "fact": f.ID, "ref": ref.ID})
				}
			}
		}
		for _, f := range b.Facts {
			if _, dup := seen[f.ID]; dup {
				return errors.Newf(errors.OrderViolation, "fact id %d emitted twice", f.ID)
			}
			seen[f.ID] = i
		}
	}
	return nil
}

// Counts returns the number of facts per block, keyed by predicate name.
func Counts(blocks []Block) map[string]int {
	out := make(map[string]int, len(blocks))
	for _, b := range blocks {
		out[b.Predicate] = len(b.Facts)
	}
	return out
}

type rawBlock struct {
	Predicate string `json:"predicate"`
	Facts     []struct {
		ID  ID              `json:"id"`
		Key json.RawMessage `json:"key"`
	} `json:"facts"`
}

// DecodeBlocks parses serialized blocks back into typed facts. Every block
// must carry the same schema name and version; use SchemaOf to read it and
// CheckSchema to compare it with an expected one.
func DecodeBlocks(data []byte) ([]Block, error) {
	var raw []rawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.InputInvalid, "failed to decode fact blocks", err)
	}

	blocks := make([]Block, 0, len(raw))
	var first Schema
	for i, rb := range raw {
		schema, p, err := ParseQualifiedName(rb.Predicate)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = schema
		} else if schema != first {
			return nil, errors.Newf(errors.InputInvalid,
				"block %s uses schema %s, earlier blocks use %s", rb.Predicate, schema, first)
		}
		b := Block{Predicate: rb.Predicate, Kind: p, Facts: make([]BlockFact, 0, len(rb.Facts))}
		for _, rf := range rb.Facts {
			key, err := decodeKey(p, rf.Key)
			if err != nil {
				return nil, errors.New(errors.InputInvalid, fmt.Sprintf("fact %d in %s", rf.ID, rb.Predicate), err)
			}
			b.Facts = append(b.Facts, BlockFact{ID: rf.ID, Key: key})
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// ParseQualifiedName splits "schema.Name.version" into its schema and
// predicate. "Name.version" and a bare "Name" are accepted with an empty
// schema name and version 0 respectively.
func ParseQualifiedName(name string) (Schema, Predicate, error) {
	parts := strings.Split(name, ".")
	var schema Schema
	if len(parts) > 1 {
		if v, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			schema.Version = v
			parts = parts[:len(parts)-1]
		}
	}
	p, ok := ParsePredicate(parts[len(parts)-1])
	if !ok {
		return Schema{}, 0, errors.Newf(errors.InputInvalid, "unknown predicate %q", name)
	}
	schema.Name = strings.Join(parts[:len(parts)-1], ".")
	return schema, p, nil
}

// SchemaOf returns the schema of decoded blocks, read from the first block.
// DecodeBlocks guarantees the rest agree.
func SchemaOf(blocks []Block) (Schema, bool) {
	if len(blocks) == 0 {
		return Schema{}, false
	}
	schema, _, err := ParseQualifiedName(blocks[0].Predicate)
	return schema, err == nil
}

// CheckSchema reports an error unless every block is named under want.
func CheckSchema(blocks []Block, want Schema) error {
	for _, b := range blocks {
		if b.Predicate != want.QualifiedName(b.Kind) {
			return errors.Newf(errors.InputInvalid, "block %s does not belong to schema %s (expected %s)",
				b.Predicate, want, want.QualifiedName(b.Kind))
		}
	}
	return nil
}

func decodeKey(p Predicate, data json.RawMessage) (Content, error) {
	switch p {
	case ClassDeclaration, InterfaceDeclaration, TraitDeclaration, EnumDeclaration:
		var k DeclarationKey
		err := json.Unmarshal(data, &k)
		return k, err
	case ClassDefinition:
		var k ClassDefinitionKey
		err := json.Unmarshal(data, &k)
		return k, err
	case InterfaceDefinition, TraitDefinition, EnumDefinition:
		var k DefinitionKey
		err := json.Unmarshal(data, &k)
		return k, err
	case DeclarationLocation:
		var k LocationKey
		err := json.Unmarshal(data, &k)
		return k, err
	case FileXRefs:
		var k FileXRefsKey
		err := json.Unmarshal(data, &k)
		return k, err
	}
	return nil, fmt.Errorf("no content type for %s", p)
}
