package models

// Status is the lifecycle state shared by requests and donations.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusReturned Status = "returned" // requests only
)

// BookStatus tracks whether a catalog copy is on the shelf.
type BookStatus string

const (
	BookAvailable BookStatus = "available"
	BookBorrowed  BookStatus = "borrowed"
)

type Role string

const (
	RoleStudent       Role = "student"
	RoleChapterLeader Role = "chapterLeader"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleChapterLeader
}

// Meeting location types offered when scheduling a hand-off.
const (
	LocationInSchool      = "in-school"
	LocationOutsideSchool = "outside-school"
)

// DefaultChapter is used when neither the caller nor the book names a chapter.
const DefaultChapter = "general"

// Date layouts for the form-style fields stored as text.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)
