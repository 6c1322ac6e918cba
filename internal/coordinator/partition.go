package coordinator

import (
	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
)

// MetaKeys are envelope keys that never count as leftovers.
var MetaKeys = map[string]bool{
	"name":                   true,
	"source_organization_id": true,
	"additional_batches":     true,
	"raw_xml_tag":            true,
}

// ownerAttribute is accepted by every agent and never routed statically.
const ownerAttribute = "object_id"

// RecognisedFields maps each accepted field to the first agent declaring
// it, so the table is disjoint.
func RecognisedFields(descriptors []model.AgentDescriptor) map[string]string {
	out := make(map[string]string)
	for _, d := range descriptors {
		for _, f := range d.AcceptedFields {
			if f == ownerAttribute {
				continue
			}
			if _, taken := out[f]; !taken {
				out[f] = d.Name
			}
		}
	}
	return out
}

// mergePartition completes the classifier's decision. Assignments to
// attributes an agent does not accept go back to the leftovers; leftovers
// the static table recognises are injected into their agent's section.
// A field whose attribute the classifier already filled stays a leftover.
// Meta keys are then dropped from the leftovers.
func mergePartition(decision *model.RoutingDecision, fields map[string]any, descriptors []model.AgentDescriptor) {
	byName := make(map[string]model.AgentDescriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}

	kept := decision.Assignments[:0]
	for _, a := range decision.Assignments {
		if byName[a.Agent].Accepts(a.Attribute) {
			kept = append(kept, a)
			continue
		}
		if section := decision.Sections[a.Agent]; section != nil {
			delete(section, a.Attribute)
			if len(section) == 0 {
				delete(decision.Sections, a.Agent)
			}
		}
		decision.Leftovers[a.Field] = fields[a.Field]
	}
	decision.Assignments = kept

	recognised := RecognisedFields(descriptors)
	for _, field := range model.SortedKeys(decision.Leftovers) {
		attr := classify.TargetAttribute("", field)
		agentName, ok := recognised[field]
		if !ok {
			agentName, ok = recognised[attr]
		}
		if !ok {
			continue
		}
		if section := decision.Sections[agentName]; section != nil {
			if _, filled := section[attr]; filled {
				continue
			}
		}
		value := decision.Leftovers[field]
		if model.IsEmpty(value) {
			continue
		}
		decision.Assign(model.FieldAssignment{
			Field:     field,
			Agent:     agentName,
			Attribute: attr,
			Rationale: "recognised field",
		}, value)
	}

	for k := range decision.Leftovers {
		if MetaKeys[k] {
			delete(decision.Leftovers, k)
		}
	}
}
