package domain

import "time"

// Notification is only ever created as a side effect of a task or comment
// mutation. The sole client-driven change is flipping IsRead.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	UserID    string    `json:"userId"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
