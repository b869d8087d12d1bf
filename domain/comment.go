package domain

import "time"

type Comment struct {
	ID             string    `json:"id"`
	Comment        string    `json:"comment"`
	TaskID         string    `json:"taskId"`
	UserID         string    `json:"userId"`
	OrganizationID string    `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
}
