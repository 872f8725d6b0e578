// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// EnrichmentTask represents a request to re-run derived analytics for one
// persisted turn. It is published whenever the synchronous enrichment path
// (mentions, topics, relationships) fails after the turn was committed.
type EnrichmentTask struct {
	ConversationID uint `json:"conversation_id"`
	BrandID        uint `json:"brand_id"`
	TurnNumber     int  `json:"turn_number"`
	// LinkRelationships is set for turn-1 tasks so the relationship linker
	// is replayed together with detection and topic extraction.
	LinkRelationships bool `json:"link_relationships"`
}
