package state

import (
	"ais_parser/internal/ais"
	"ais_parser/internal/extractor"
	"ais_parser/internal/registry"
)

// ExtractAndUpdate decodes a sentence and merges its vessel data into the
// tracker. The record is returned for downstream sinks.
func ExtractAndUpdate(t *Tracker, s *ais.Sentence, reg *registry.Registry) (*extractor.Record, error) {
	rec, err := extractor.Extract(s, reg)
	if err != nil {
		return nil, err
	}
	t.Apply(rec)
	return rec, nil
}
