package types

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/enums"
)

// ComponentSnapshot freezes a component's catalog state at order time. Later
// catalog edits never touch it.
type ComponentSnapshot struct {
	ComponentID uuid.UUID               `json:"component_id"`
	Category    enums.ComponentCategory `json:"category"`
	Name        string                  `json:"name"`
	PriceCents  int                     `json:"price_cents"`
	Image       string                  `json:"image,omitempty"`
	Specs       json.RawMessage         `json:"specs,omitempty"`
}

// ComponentSnapshots is the full 8-slot snapshot stored on an order item (jsonb).
type ComponentSnapshots []ComponentSnapshot

// CustomBuild is a customer-assembled configuration embedded in a cart item.
// Slots maps every build category to a component id; Validate in the cart
// service guarantees all eight are present before the item is accepted.
type CustomBuild struct {
	Name       string                                `json:"name"`
	PriceCents int                                   `json:"price_cents"`
	Slots      map[enums.ComponentCategory]uuid.UUID `json:"slots"`
}

// PaymentResult records the externally verified third-party payment.
type PaymentResult struct {
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
	Email      string `json:"email,omitempty"`
}

// BlacklistedComponent is one withdrawn component within a blacklist entry.
type BlacklistedComponent struct {
	ComponentID uuid.UUID `json:"component_id"`
	Name        string    `json:"name"`
	Qty         int       `json:"qty"`
}

// BlacklistedComponents is the jsonb list stored on a blacklist entry.
type BlacklistedComponents []BlacklistedComponent
