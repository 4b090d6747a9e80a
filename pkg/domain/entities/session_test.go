package entities

import (
	"testing"
)

func TestSession_Authenticated(t *testing.T) {
	user := UserProfile{ID: 3, Email: "peminta@example.org"}

	tests := []struct {
		name     string
		session  Session
		expected bool
	}{
		{"empty", Session{}, false},
		{"token without user", Session{Token: "abc"}, false},
		{"user without token", Session{User: &user}, false},
		{"token and user", NewAuthenticatedSession("abc", user, true), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Authenticated(); got != tt.expected {
				t.Errorf("Authenticated() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSessionState(t *testing.T) {
	tests := []struct {
		state    SessionState
		resolved bool
	}{
		{SessionUnverified, false},
		{SessionVerifying, false},
		{SessionAuthenticated, true},
		{SessionUnauthenticated, true},
	}

	for _, tt := range tests {
		if got := tt.state.Resolved(); got != tt.resolved {
			t.Errorf("%s.Resolved() = %v, expected %v", tt.state, got, tt.resolved)
		}
	}
	if SessionVerifying.String() != "Verifying" {
		t.Errorf("Expected Verifying, got %s", SessionVerifying.String())
	}
}

func TestUserProfile_DisplayName(t *testing.T) {
	tests := []struct {
		profile  UserProfile
		expected string
	}{
		{UserProfile{FullName: "Siti Aminah", Email: "s@example.org"}, "Siti Aminah"},
		{UserProfile{FirstName: "Budi", LastName: "Santoso"}, "Budi Santoso"},
		{UserProfile{FirstName: "Budi"}, "Budi"},
		{UserProfile{Email: "x@example.org"}, "x@example.org"},
	}

	for _, tt := range tests {
		if got := tt.profile.DisplayName(); got != tt.expected {
			t.Errorf("DisplayName() = %q, expected %q", got, tt.expected)
		}
	}
}

func TestVariant(t *testing.T) {
	v, err := NewVariant(4, "1010301001004", "Pensil", "Faber-Castell 2B", "")
	if err != nil {
		t.Fatalf("Failed to create variant: %v", err)
	}
	if v.UnitOfMeasure != "pcs" {
		t.Errorf("Expected default unit pcs, got %s", v.UnitOfMeasure)
	}
	if v.DisplayName() != "Faber-Castell 2B" {
		t.Errorf("Expected display name Faber-Castell 2B, got %s", v.DisplayName())
	}

	v.VariantName = "2B Grip"
	if v.DisplayName() != "2B Grip" {
		t.Errorf("Expected variant name to win, got %s", v.DisplayName())
	}

	if _, err := NewVariant(0, "", "", "x", "pcs"); err == nil || err.Error() != "variant id must be positive, got 0" {
		t.Errorf("Expected id validation error, got %v", err)
	}
	if _, err := NewVariant(1, "", "", "", "pcs"); err == nil || err.Error() != "variant name cannot be empty" {
		t.Errorf("Expected name validation error, got %v", err)
	}

	if !(StockLevel{Variant: *v, TotalQuantity: 1}).InStock() {
		t.Error("Expected positive stock to be in stock")
	}
	if (StockLevel{Variant: *v, TotalQuantity: 0}).InStock() {
		t.Error("Expected zero stock to be out of stock")
	}
}
