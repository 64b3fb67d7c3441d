// Package domain contains core concepts of the presence and fanout core.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is the verified principal behind one or more connections.
// It is produced by the external identity collaborator and never
// mutated by the core.
type Identity struct {
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName"`
}
