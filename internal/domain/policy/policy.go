// Package policy decides who may act on which marketplace resource. Every
// rule is a pure function of the acting identity's role and whether it
// owns the target row.
package policy

import "github.com/rudzz/marketplace/internal/domain/entities"

// Actor is the authenticated identity performing an operation
type Actor struct {
	UserID int64
	Role   entities.Role
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == entities.RoleAdmin
}

// Owns reports whether the actor is the given user
func (a Actor) Owns(ownerID int64) bool {
	return a.UserID > 0 && a.UserID == ownerID
}

// CanUpdateUser allows a user to change only their own profile
func CanUpdateUser(a Actor, userID int64) bool {
	return a.Owns(userID)
}

// CanDeleteUser allows a user to delete only their own account
func CanDeleteUser(a Actor, userID int64) bool {
	return a.Owns(userID)
}

// CanCreateListing requires the provider role
func CanCreateListing(a Actor) bool {
	return a.Role == entities.RoleProvider
}

// CanModifyListing allows only the listing's owner
func CanModifyListing(a Actor, listing *entities.Provider) bool {
	return a.Owns(listing.UserID)
}

// CanReview forbids reviewing one's own listing
func CanReview(a Actor, listing *entities.Provider) bool {
	return a.UserID > 0 && !a.Owns(listing.UserID)
}

// CanModifyReview allows only the reviewing customer
func CanModifyReview(a Actor, review *entities.Review) bool {
	return a.Owns(review.CustomerID)
}

// CanReadMessage allows both participants
func CanReadMessage(a Actor, message *entities.Message) bool {
	return a.UserID > 0 && message.IsParticipant(a.UserID)
}

// CanMarkRead allows only the receiver
func CanMarkRead(a Actor, message *entities.Message) bool {
	return a.Owns(message.ReceiverID)
}

// CanCreatePost lets any authenticated identity author a post
func CanCreatePost(a Actor) bool {
	return a.UserID > 0
}

// CanViewPost shows published posts to everyone and other states to the author.
// viewer may be nil for anonymous reads.
func CanViewPost(viewer *Actor, post *entities.BlogPost) bool {
	if post.IsPublished() {
		return true
	}
	return viewer != nil && viewer.Owns(post.AuthorID)
}

// CanUpdatePost allows only the author
func CanUpdatePost(a Actor, post *entities.BlogPost) bool {
	return a.Owns(post.AuthorID)
}

// CanDeletePost allows the author or an admin
func CanDeletePost(a Actor, post *entities.BlogPost) bool {
	return a.Owns(post.AuthorID) || a.IsAdmin()
}

// CanDeleteComment allows the comment's author or an admin
func CanDeleteComment(a Actor, comment *entities.Comment) bool {
	return a.Owns(comment.AuthorID) || a.IsAdmin()
}
