package services

import (
	"testing"
	"time"
)

func TestAuthDisabledWhenNoKey(t *testing.T) {
	auth, err := NewAuthService("", "", time.Minute)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	if auth != nil {
		t.Fatalf("expected nil service for open deployment")
	}
}

func TestCheckKey(t *testing.T) {
	auth, err := NewAuthService("hunter2", "", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	if err := auth.CheckKey("hunter2"); err != nil {
		t.Fatalf("CheckKey rejected the configured key: %v", err)
	}
	if err := auth.CheckKey("wrong"); err == nil {
		t.Fatalf("CheckKey accepted a wrong key")
	}
	if err := auth.CheckKey(""); err == nil {
		t.Fatalf("CheckKey accepted an empty key")
	}
}

func TestTicketRoundTrip(t *testing.T) {
	auth, err := NewAuthService("hunter2", "ticket-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	token, ttl, err := auth.MintTicket()
	if err != nil {
		t.Fatalf("MintTicket: %v", err)
	}
	if ttl != 15*time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	if err := auth.ParseTicket(token); err != nil {
		t.Fatalf("ParseTicket: %v", err)
	}
	if err := auth.ParseTicket(token + "x"); err == nil {
		t.Fatalf("ParseTicket accepted a tampered token")
	}

	// Authorize accepts either credential form.
	if err := auth.Authorize(token); err != nil {
		t.Fatalf("Authorize ticket: %v", err)
	}
	if err := auth.Authorize("hunter2"); err != nil {
		t.Fatalf("Authorize raw key: %v", err)
	}
	if err := auth.Authorize("nope"); err == nil {
		t.Fatalf("Authorize accepted garbage")
	}
}

func TestExpiredTicketRejected(t *testing.T) {
	auth, err := NewAuthService("hunter2", "ticket-secret", -time.Minute)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	token, _, err := auth.MintTicket()
	if err != nil {
		t.Fatalf("MintTicket: %v", err)
	}
	if err := auth.ParseTicket(token); err == nil {
		t.Fatalf("ParseTicket accepted an expired ticket")
	}
}
