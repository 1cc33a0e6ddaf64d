// models.go
//
// Entity documents stored in the document store. Field names mirror the
// stored JSON exactly; referential integrity between documents is enforced
// by the service layer, not the store.

package models

// Collection names in the document store
const (
	CollectionUsers    = "users"
	CollectionProjects = "projects"
	CollectionTickets  = "tickets"
	CollectionComments = "comments"
)

// Ticket types
const (
	TicketTypeEpic  = "Epic"
	TicketTypeStory = "Story"
	TicketTypeTask  = "Task"
	TicketTypeBug   = "Bug"
)

// Ticket priorities
const (
	PriorityLow      = "Low"
	PriorityNormal   = "Normal"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// Ticket statuses. No transition graph is enforced; any status may move to
// any other.
const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusClosed     = "Closed"
)

// User is keyed by lower-cased username.
type User struct {
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	FullName        string   `json:"full_name"`
	HashedPassword  string   `json:"hashed_password"`
	IsAdmin         bool     `json:"is_admin"`
	Disabled        bool     `json:"disabled"`
	FavoriteTickets []string `json:"favorite_tickets"`
	Projects        []string `json:"projects"`
}

// Project is keyed by project_id. NextTicketID mints readable child ticket
// IDs of the form {project_id}-{counter}.
type Project struct {
	ProjectID    string   `json:"project_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	CreatedBy    string   `json:"created_by"`
	CreatedAt    string   `json:"created_at"`
	ModifiedBy   string   `json:"modified_by"`
	ModifiedAt   string   `json:"modified_at"`
	Members      []string `json:"members"`
	NextTicketID int      `json:"next_ticket_id"`
}

// Ticket is keyed by ticket_id. ParentTicket is a nullable self reference;
// a nil pointer serializes to JSON null, which readers rely on after a
// parent is deleted.
type Ticket struct {
	TicketID      string  `json:"ticket_id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Type          string  `json:"type"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	Assignee      *string `json:"assignee"`
	CreatedBy     string  `json:"created_by"`
	CreatedAt     string  `json:"created_at"`
	ModifiedBy    string  `json:"modified_by"`
	ModifiedAt    string  `json:"modified_at"`
	ParentProject string  `json:"parent_project"`
	ParentTicket  *string `json:"parent_ticket"`
	NextCommentID int     `json:"next_comment_id"`
}

// Comment is keyed by comment_id.
type Comment struct {
	CommentID string `json:"comment_id"`
	TicketID  string `json:"ticket_id"`
	Text      string `json:"text"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}
