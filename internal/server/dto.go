package server

import "shipline/internal/domain"

type LoginRequest struct {
	Name     string `json:"name" example:"admin"`
	Password string `json:"password" example:"secret"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type CreateVesselRequest struct {
	Name string `json:"name" example:"MV Northern Star"`
	IMO  string `json:"imo,omitempty" example:"9321483"`
}

type UpdateVesselRequest struct {
	Name string `json:"name"`
	IMO  string `json:"imo,omitempty"`
}

type VesselVisibilityRequest struct {
	Hidden bool `json:"hidden"`
}

type CreateTaskRequest struct {
	Title           string  `json:"title"`
	Group           string  `json:"group,omitempty"`
	DeadlineSeconds int64   `json:"deadline_seconds,omitempty"`
	AssigneeID      *string `json:"assignee_id,omitempty"`
}

type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

type ReorderRequest struct {
	VesselID string   `json:"vessel_id"`
	Order    []string `json:"order"`
}

type CommentRequest struct {
	Body     string  `json:"body"`
	ParentID *string `json:"parent_id,omitempty"`
}

type CommentEditRequest struct {
	Body string `json:"body"`
}

type EndpointFieldRequest struct {
	Field string `json:"field" example:"crowdstrike"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role" enum:"Admin,Onboard Eng,Remote Team,Client"`
	Password string `json:"password"`
}
