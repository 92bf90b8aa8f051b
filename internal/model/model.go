package model

// Package model contains domain models/data structures.
// These are pure data types shared across layers (clients, services, HTTP)
// with no persistence or transport coupling.

// Label is a GitHub issue label.
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// User is the author of a GitHub issue or comment.
type User struct {
	Login string `json:"login"`
	Type  string `json:"type,omitempty"`
}
