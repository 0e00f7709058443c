package internal

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lychee-technology/sift"
)

// Entity-aware synonym tables mapping spoken field phrases to canonical
// column names. Phrases are matched after lowercasing and whitespace
// collapsing. The defaults cover the headers the three record kinds ship
// with; deployments can overlay their own phrases from a YAML file.

var defaultSynonyms = map[sift.Entity]map[string]string{
	sift.EntityClients: {
		"id":              "ClientID",
		"client":          "ClientName",
		"client name":     "ClientName",
		"name":            "ClientName",
		"priority":        "PriorityLevel",
		"priority level":  "PriorityLevel",
		"requested tasks": "RequestedTaskIDs",
		"tasks":           "RequestedTaskIDs",
		"task ids":        "RequestedTaskIDs",
		"group":           "GroupTag",
		"group tag":       "GroupTag",
	},
	sift.EntityWorkers: {
		"id":              "WorkerID",
		"worker":          "WorkerName",
		"worker name":     "WorkerName",
		"name":            "WorkerName",
		"skill":           "Skills",
		"skills":          "Skills",
		"slots":           "AvailableSlots",
		"available slots": "AvailableSlots",
		"phase":           "AvailableSlots",
		"phases":          "AvailableSlots",
		"load":            "MaxLoadPerPhase",
		"max load":        "MaxLoadPerPhase",
		"group":           "WorkerGroup",
		"worker group":    "WorkerGroup",
		"qualification":   "QualificationLevel",
		"level":           "QualificationLevel",
	},
	sift.EntityTasks: {
		"id":               "TaskID",
		"task":             "TaskName",
		"task name":        "TaskName",
		"name":             "TaskName",
		"duration":         "Duration",
		"length":           "Duration",
		"phase":            "PreferredPhases",
		"phases":           "PreferredPhases",
		"preferred phases": "PreferredPhases",
		"skill":            "RequiredSkills",
		"skills":           "RequiredSkills",
		"required skills":  "RequiredSkills",
		"concurrency":      "MaxConcurrent",
		"max concurrent":   "MaxConcurrent",
		"category":         "Category",
	},
}

// synonymsFor returns the default table for an entity. Callers must not
// mutate the result.
func synonymsFor(entity sift.Entity) map[string]string {
	return defaultSynonyms[entity]
}

// LoadSynonymOverrides reads per-entity phrase overrides from a YAML file
// shaped as entity -> phrase -> column.
func LoadSynonymOverrides(path string) (map[sift.Entity]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms file: %w", err)
	}
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse synonyms file: %w", err)
	}

	overrides := make(map[sift.Entity]map[string]string, len(raw))
	for name, table := range raw {
		entity := sift.Entity(strings.ToLower(strings.TrimSpace(name)))
		if !entity.Valid() {
			return nil, fmt.Errorf("unknown entity %q in synonyms file", name)
		}
		cleaned := make(map[string]string, len(table))
		for phrase, column := range table {
			cleaned[normalizePhrase(phrase)] = strings.TrimSpace(column)
		}
		overrides[entity] = cleaned
	}
	return overrides, nil
}

// normalizePhrase lowercases and collapses interior whitespace.
func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
