package strategies

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantblocks/quantblocks/internal/modules/builder"
)

// ErrNotFound is returned when a strategy id does not exist or has been
// deleted.
var ErrNotFound = errors.New("strategy not found")

// ErrInvalid is returned when a save is attempted on a strategy with
// validation errors. The offending Result travels alongside it.
var ErrInvalid = errors.New("strategy failed validation")

// Service ties the builder core to persistence: it validates and compiles
// block trees and gates saves on a clean validation result. The compiler
// itself never refuses anything; the gate lives here.
type Service struct {
	repo      *Repository
	factory   *builder.Factory
	validator *builder.Validator
	compiler  *builder.Compiler
	humanizer *builder.Humanizer
	newID     builder.IDGenerator
	log       zerolog.Logger
}

// NewService creates a strategies service around the given repository and
// builder components.
func NewService(
	repo *Repository,
	reg *builder.Registry,
	limits builder.Limits,
	gen builder.IDGenerator,
	log zerolog.Logger,
) *Service {
	if gen == nil {
		gen = builder.UUIDGenerator
	}
	return &Service{
		repo:      repo,
		factory:   builder.NewFactory(reg, gen),
		validator: builder.NewValidator(reg, limits),
		compiler:  builder.NewCompiler(),
		humanizer: builder.NewHumanizer(reg),
		newID:     gen,
		log:       log.With().Str("service", "strategies").Logger(),
	}
}

// Validate runs the validator over a block tree.
func (s *Service) Validate(tree *builder.Strategy) builder.Result {
	return s.validator.Validate(tree)
}

// Compile compiles a block tree without persisting it (the editor's JSON
// preview). Compilation is total; the accompanying validation result tells
// the caller whether the document is actually executable.
func (s *Service) Compile(tree *builder.Strategy, name, description string) (*builder.Document, builder.Result) {
	return s.compiler.Compile(tree, name, description), s.validator.Validate(tree)
}

// Describe renders both sections of a tree as short natural-language
// summaries.
func (s *Service) Describe(tree *builder.Strategy) (entry, exit string) {
	return s.humanizer.Describe(tree.Entry, "Enter when"),
		s.humanizer.Describe(tree.Exit, "Exit when")
}

// Save validates, compiles and persists a new strategy. Returns ErrInvalid
// (with the validation result) when the tree has validation errors.
func (s *Service) Save(name, description string, tree *builder.Strategy) (*Record, builder.Result, error) {
	res := s.validator.Validate(tree)
	if !res.Valid() {
		return nil, res, ErrInvalid
	}

	rec, err := s.buildRecord(s.newID(), name, description, tree)
	if err != nil {
		return nil, res, err
	}
	if err := s.repo.Create(rec); err != nil {
		return nil, res, err
	}

	s.log.Info().Str("id", rec.ID).Str("name", name).Msg("Strategy saved")
	return rec, res, nil
}

// Update validates, recompiles and replaces an existing strategy.
func (s *Service) Update(id, name, description string, tree *builder.Strategy) (*Record, builder.Result, error) {
	res := s.validator.Validate(tree)
	if !res.Valid() {
		return nil, res, ErrInvalid
	}

	rec, err := s.buildRecord(id, name, description, tree)
	if err != nil {
		return nil, res, err
	}
	if err := s.repo.Update(rec); err != nil {
		return nil, res, err
	}

	s.log.Info().Str("id", id).Msg("Strategy updated")
	return rec, res, nil
}

// Get returns one saved strategy.
func (s *Service) Get(id string) (*Record, error) {
	return s.repo.GetByID(id)
}

// List returns summaries of all saved strategies.
func (s *Service) List() ([]Summary, error) {
	return s.repo.List()
}

// Delete soft-deletes a strategy; the cleanup job purges it later.
func (s *Service) Delete(id string) error {
	return s.repo.SoftDelete(id)
}

func (s *Service) buildRecord(id, name, description string, tree *builder.Strategy) (*Record, error) {
	doc := s.compiler.Compile(tree, name, description)

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode compiled document: %w", err)
	}
	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode block tree: %w", err)
	}

	return &Record{
		ID:          id,
		Name:        name,
		Description: description,
		Document:    docJSON,
		Tree:        treeJSON,
	}, nil
}
