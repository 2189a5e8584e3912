package permissions

import "titlehub/internal/api/models"

// Action is the coarse verb a request performs on a resource.
type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
)

// Safe reports whether the action is read-only.
func (a Action) Safe() bool {
	return a == ActionList || a == ActionRetrieve
}

// Resource identifies the kind of entity a request targets.
type Resource string

const (
	ResourceCategory Resource = "category"
	ResourceGenre    Resource = "genre"
	ResourceTitle    Resource = "title"
	ResourceUser     Resource = "user"
	ResourceSelf     Resource = "self"
	ResourceReview   Resource = "review"
	ResourceComment  Resource = "comment"
)

// Decide is the single authorization decision point. actor is nil for
// anonymous requests; ownerID is the author of the target review/comment and
// is ignored for other resources. It never panics on a missing actor.
func Decide(actor *models.User, act Action, res Resource, ownerID string) bool {
	switch res {
	case ResourceCategory, ResourceGenre, ResourceTitle:
		if act.Safe() {
			return true
		}
		return actor != nil && actor.IsAdmin()

	case ResourceUser:
		return actor != nil && actor.IsAdmin()

	case ResourceSelf:
		// role changes are stripped before this point by the handler
		return actor != nil

	case ResourceReview, ResourceComment:
		if act.Safe() {
			return true
		}
		if actor == nil {
			return false
		}
		if act == ActionCreate {
			return true
		}
		return actor.IsAdmin() || actor.IsModerator() || actor.ID == ownerID

	default:
		return false
	}
}
