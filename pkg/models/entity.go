package models

// EntityType identifies the kind of business record a trigger event is about.
type EntityType string

const (
	EntityTypeJob      EntityType = "job"
	EntityTypeClient   EntityType = "client"
	EntityTypeEstimate EntityType = "estimate"
	EntityTypeInvoice  EntityType = "invoice"
	EntityTypeCall     EntityType = "call"

	// EntityTypeWorkflow is used for synthetic events a scheduled workflow
	// fires about itself.
	EntityTypeWorkflow EntityType = "workflow"
)

// CreatedByAutomationKey is the snapshot field carrying the ID of the
// workflow that created the entity, when automation created it.
const CreatedByAutomationKey = "created_by_automation"

// CreatedByAutomation returns the creating workflow's ID from an entity
// snapshot, or "" when the entity was not created by automation.
func CreatedByAutomation(entity map[string]any) string {
	if entity == nil {
		return ""
	}

	marker, ok := entity[CreatedByAutomationKey]
	if !ok || marker == nil {
		return ""
	}

	id, ok := marker.(string)
	if !ok {
		return ""
	}

	return id
}
