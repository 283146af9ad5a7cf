package reaction

import "fmt"

const (
	TopicReactionSet = "reaction.set"
	EventReactionSet = "ReactionSet"
)

type ReactionSetPayload struct {
	UserEmail  string     `json:"user_email"`
	TargetKind TargetKind `json:"target_kind"`
	TargetID   int64      `json:"target_id"`
	Reaction   *Type      `json:"reaction"` // nil after a clear or toggle-off
}

// PartitionKey orders all transitions of one target on the same partition.
func PartitionKey(kind TargetKind, targetID int64) []byte {
	return []byte(fmt.Sprintf("%s:%d", kind, targetID))
}
