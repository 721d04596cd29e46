// Package message generates sector-aware reclamation messages for leaked
// customers through pluggable AI backends.
package message

import (
	"context"

	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// Request carries everything a backend needs to write one message.
type Request struct {
	Customer    model.LeakedCustomer
	Sector      model.Sector
	CompanyName string
	MaxChars    int
	// Profile overrides the built-in sector profile when non-nil.
	Profile *SectorProfile
}

func resolveProfile(req Request) SectorProfile {
	if req.Profile != nil {
		return *req.Profile
	}
	return ProfileFor(req.Sector)
}

// Response is a generated reclamation message.
type Response struct {
	Message      string `json:"message"`
	Subject      string `json:"subject,omitempty"`
	CallToAction string `json:"callToAction,omitempty"`
}

// Generator produces reclamation messages. Implementations exist per AI
// provider; callers select one by configuration and never branch on
// provider identity afterwards.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}
