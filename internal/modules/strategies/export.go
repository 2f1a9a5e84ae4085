package strategies

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/quantblocks/quantblocks/internal/modules/builder"
)

// exportVersion guards the bundle layout; bump when fields change shape.
const exportVersion = 1

// Bundle is the portable export form of a saved strategy: a compact
// msgpack envelope carrying the compiled document and the raw block tree.
type Bundle struct {
	Version     int    `msgpack:"version"`
	Name        string `msgpack:"name"`
	Description string `msgpack:"description"`
	Document    []byte `msgpack:"document"` // compiled DSL, JSON
	Tree        []byte `msgpack:"tree"`     // raw block tree, JSON
	ExportedAt  int64  `msgpack:"exportedAt"`
}

// Export packs a saved strategy into a msgpack bundle for download.
func (s *Service) Export(id string) ([]byte, error) {
	rec, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	bundle := Bundle{
		Version:     exportVersion,
		Name:        rec.Name,
		Description: rec.Description,
		Document:    rec.Document,
		Tree:        rec.Tree,
		ExportedAt:  rec.UpdatedAt.Unix(),
	}

	data, err := msgpack.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to encode strategy bundle: %w", err)
	}
	return data, nil
}

// Import unpacks a bundle, re-validates and recompiles its block tree, and
// saves it as a new strategy under a fresh id. The embedded compiled
// document is discarded; the tree is the source of truth so an imported
// strategy always reflects the current registry and compiler.
func (s *Service) Import(data []byte) (*Record, builder.Result, error) {
	var bundle Bundle
	if err := msgpack.Unmarshal(data, &bundle); err != nil {
		return nil, builder.Result{}, fmt.Errorf("failed to decode strategy bundle: %w", err)
	}
	if bundle.Version != exportVersion {
		return nil, builder.Result{}, fmt.Errorf("unsupported bundle version %d", bundle.Version)
	}

	var tree builder.Strategy
	if err := json.Unmarshal(bundle.Tree, &tree); err != nil {
		return nil, builder.Result{}, fmt.Errorf("failed to decode bundled block tree: %w", err)
	}

	return s.Save(bundle.Name, bundle.Description, &tree)
}
