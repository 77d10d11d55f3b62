package model

import "time"

// User is the author of a comment.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
}

// Comment is a threaded note on a requirement.
type Comment struct {
	ID            int    `json:"id" yaml:"id"`
	Comment       string `json:"comment" yaml:"comment"`
	RequirementID int    `json:"requirementId" yaml:"requirementId"`
	ParentID      *int   `json:"parentId" yaml:"parentId"`
	Author        *User  `json:"author,omitempty" yaml:"author,omitempty"`
	Completed     bool   `json:"completed" yaml:"completed"`
	Created       int64  `json:"created" yaml:"created"`
}

// CreatedAt converts the unix timestamp to a time.Time.
func (c Comment) CreatedAt() time.Time {
	return time.Unix(c.Created, 0).UTC()
}

// AuthorName returns the author email or "unknown".
func (c Comment) AuthorName() string {
	if c.Author == nil || c.Author.Email == "" {
		return "unknown"
	}
	return c.Author.Email
}

// Clone copies the comment including pointer fields.
func (c Comment) Clone() Comment {
	out := c
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	if c.Author != nil {
		a := *c.Author
		out.Author = &a
	}
	return out
}

// ThreadRoots returns the comments without a parent, in input order.
func ThreadRoots(comments []Comment) []Comment {
	var roots []Comment
	for _, c := range comments {
		if c.ParentID == nil {
			roots = append(roots, c)
		}
	}
	return roots
}

// Replies returns the direct replies to the comment with the given id.
func Replies(comments []Comment, parentID int) []Comment {
	var out []Comment
	for _, c := range comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out
}
