package indexer

import (
	"fmt"

	"factgraph/internal/errors"
	"factgraph/internal/facts"
)

// DeclareAndDefine interns the declaration, definition and location facts of
// a class, interface, trait or enum and returns the declaration ref. Both the
// declaration pass and the cross-reference pass go through here, so a symbol
// first seen as a reference target gets the same facts as a declared one.
//
// Any other kind is a contract violation: callers filter by kind first.
func (ix *Indexer) DeclareAndDefine(sym Symbol) (facts.DeclarationRef, error) {
	switch sym.Kind {
	case KindClass, KindInterface, KindTrait:
		return ix.declareContainer(sym)
	case KindEnum:
		return ix.declareEnum(sym)
	default:
		return facts.DeclarationRef{}, errors.Newf(errors.ContractViolation,
			"cannot declare %s %q: only classes, interfaces, traits and enums are indexed", sym.Kind, sym.Name)
	}
}

func (ix *Indexer) declareContainer(sym Symbol) (facts.DeclarationRef, error) {
	var declPred, defPred facts.Predicate
	switch sym.Kind {
	case KindClass:
		declPred, defPred = facts.ClassDeclaration, facts.ClassDefinition
	case KindInterface:
		declPred, defPred = facts.InterfaceDeclaration, facts.InterfaceDefinition
	case KindTrait:
		declPred, defPred = facts.TraitDeclaration, facts.TraitDefinition
	default:
		return facts.DeclarationRef{}, errors.Newf(errors.ContractViolation,
			"%s %q passed to the container declaration path", sym.Kind, sym.Name)
	}

	ref, err := ix.declare(declPred, sym)
	if err != nil {
		return facts.DeclarationRef{}, err
	}

	var def facts.Content = facts.DefinitionKey{Declaration: ref}
	if sym.Kind == KindClass {
		def = facts.ClassDefinitionKey{
			Declaration: ref,
			IsAbstract:  sym.IsAbstract,
			IsFinal:     sym.IsFinal,
		}
	}
	if _, err := ix.store.Intern(defPred, def); err != nil {
		return facts.DeclarationRef{}, err
	}

	if err := ix.locate(ref, sym); err != nil {
		return facts.DeclarationRef{}, err
	}
	return ref, nil
}

func (ix *Indexer) declareEnum(sym Symbol) (facts.DeclarationRef, error) {
	if sym.Kind != KindEnum {
		return facts.DeclarationRef{}, errors.Newf(errors.ContractViolation,
			"%s %q passed to the enum declaration path", sym.Kind, sym.Name)
	}

	ref, err := ix.declare(facts.EnumDeclaration, sym)
	if err != nil {
		return facts.DeclarationRef{}, err
	}
	if _, err := ix.store.Intern(facts.EnumDefinition, facts.DefinitionKey{Declaration: ref}); err != nil {
		return facts.DeclarationRef{}, err
	}
	if err := ix.locate(ref, sym); err != nil {
		return facts.DeclarationRef{}, err
	}
	return ref, nil
}

func (ix *Indexer) declare(p facts.Predicate, sym Symbol) (facts.DeclarationRef, error) {
	name := NormalizeName(sym.Name)
	if name == "" {
		return facts.DeclarationRef{}, errors.Newf(errors.InputInvalid, "%s declared without a name in %s", sym.Kind, sym.File)
	}

	id, err := ix.store.Intern(p, facts.DeclarationKey{Name: name})
	if err != nil {
		return facts.DeclarationRef{}, fmt.Errorf("declaring %s: %w", name, err)
	}
	return facts.DeclarationRef{ID: id}, nil
}

func (ix *Indexer) locate(ref facts.DeclarationRef, sym Symbol) error {
	_, err := ix.store.Intern(facts.DeclarationLocation, facts.LocationKey{
		Declaration: ref,
		File:        sym.File,
		Span:        sym.Span,
	})
	return err
}
