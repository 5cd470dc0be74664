package models

import "fmt"

// Entity is a knowledge-graph node extracted from one chunk. IDs are assigned
// sequentially (E1, E2, ...) within a single extraction call and are not
// globally unique across chunks.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Relation is a directed edge between two entities of the same extraction
// call, referenced by their local IDs.
type Relation struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// Extraction is the structured output of one graph-extraction call.
type Extraction struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// Validate rejects extractions with missing fields or relations that
// reference unknown entity IDs.
func (x *Extraction) Validate() error {
	ids := make(map[string]bool, len(x.Entities))
	for i, e := range x.Entities {
		if e.ID == "" {
			return fmt.Errorf("entity %d missing id", i)
		}
		if e.Name == "" {
			return fmt.Errorf("entity %s missing name", e.ID)
		}
		if ids[e.ID] {
			return fmt.Errorf("duplicate entity id %s", e.ID)
		}
		ids[e.ID] = true
	}
	for i, r := range x.Relations {
		if r.Relation == "" {
			return fmt.Errorf("relation %d missing label", i)
		}
		if !ids[r.Source] {
			return fmt.Errorf("relation %d references unknown source %q", i, r.Source)
		}
		if !ids[r.Target] {
			return fmt.Errorf("relation %d references unknown target %q", i, r.Target)
		}
	}
	return nil
}
