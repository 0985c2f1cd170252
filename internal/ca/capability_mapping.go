package ca

import "sort"

// capabilityLabels maps a capability-suite task id to the canonical
// capability label it attests, per spec §4.1 ("a fixed mapping from test
// name to canonical capability labels"). Task ids not present here do not
// contribute to certified_capabilities or not_certified.
var capabilityLabels = map[string]string{
	"task-completion-code-review":     "code-review",
	"task-completion-research":        "research",
	"task-completion-summarisation":   "summarisation",
	"task-completion-data-analysis":   "data-analysis",
	"tool-proficiency-web-search":     "web-search",
	"tool-proficiency-file-ops":       "file-operations",
	"tool-proficiency-code-execution": "code-execution",
	"reasoning-multi-step-planning":   "planning",
	"reasoning-tool-selection":        "tool-selection",
	"efficiency-resource-usage":       "resource-efficiency",
}

// CapabilityLabelFor returns the canonical capability label for a
// capability-suite task id and whether one is registered.
func CapabilityLabelFor(taskID string) (string, bool) {
	label, ok := capabilityLabels[taskID]
	return label, ok
}

// AllCapabilityLabels returns every canonical capability label this CA can
// certify, sorted, for the registry's capabilities listing endpoint.
func AllCapabilityLabels() []string {
	seen := make(map[string]struct{}, len(capabilityLabels))
	out := make([]string, 0, len(capabilityLabels))
	for _, label := range capabilityLabels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
