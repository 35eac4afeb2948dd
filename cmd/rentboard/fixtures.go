package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	domainlistings "rentboard/internal/domain/listings"
	"rentboard/internal/domain/messaging"
	domainuser "rentboard/internal/domain/user"
)

type demoFixtures struct {
	Users    []userFixture    `json:"users"`
	Listings []listingFixture `json:"listings"`
	Messages []messageFixture `json:"messages"`
}

type userFixture struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type listingFixture struct {
	ID           string   `json:"id"`
	Owner        string   `json:"owner"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PropertyType string   `json:"property_type"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	PriceCents   int64    `json:"price_cents"`
	Amenities    []string `json:"amenities"`
	Images       []string `json:"images"`
}

type messageFixture struct {
	ID         string `json:"id"`
	Listing    string `json:"listing"`
	From       string `json:"from"`
	To         string `json:"to"`
	Body       string `json:"body"`
	Read       bool   `json:"read"`
	MinutesAgo int    `json:"minutes_ago"`
}

// loadDemoFixtures imports users, listings and conversations from a JSON file. Records
// that already exist are skipped, so restarts against a persistent store are harmless.
func (a *application) loadDemoFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("demo fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures demoFixtures
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures.Users {
		if _, err := a.repos.users.ByID(ctx, domainuser.ID(fx.ID)); err == nil {
			continue
		}
		role, err := domainuser.ParseRole(fx.Role)
		if err != nil {
			logger.Error("fixture user invalid", "user_id", fx.ID, "error", err)
			continue
		}
		hash, err := a.repos.passwords.Hash(fx.Password)
		if err != nil {
			return fmt.Errorf("hash fixture password: %w", err)
		}
		user, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(fx.ID),
			Email:        fx.Email,
			Name:         fx.Name,
			Phone:        fx.Phone,
			Role:         role,
			PasswordHash: hash,
			CreatedAt:    now,
		})
		if err != nil {
			logger.Error("fixture user invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := a.repos.users.Save(ctx, user); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
		}
	}

	for i, fx := range fixtures.Listings {
		if _, err := a.repos.listings.ByID(ctx, domainlistings.ListingID(fx.ID)); err == nil {
			continue
		}
		created := now.Add(-time.Duration(len(fixtures.Listings)-i) * time.Hour)
		listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
			ID:           domainlistings.ListingID(fx.ID),
			Owner:        domainlistings.OwnerID(fx.Owner),
			Title:        fx.Title,
			Description:  fx.Description,
			PropertyType: fx.PropertyType,
			Location:     domainlistings.Location{Address: fx.Address, City: fx.City, Lat: fx.Lat, Lng: fx.Lng},
			PriceCents:   fx.PriceCents,
			Amenities:    fx.Amenities,
			Now:          created,
		})
		if err != nil {
			logger.Error("fixture listing invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		for j, url := range fx.Images {
			listing.AddImage(domainlistings.Image{ID: fmt.Sprintf("%s-img-%d", fx.ID, j), URL: url, CreatedAt: created})
		}
		listing.Drain()
		if err := a.repos.listings.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", listing.ID)
	}

	for _, fx := range fixtures.Messages {
		if _, err := a.repos.messages.ByID(ctx, messaging.MessageID(fx.ID)); err == nil {
			continue
		}
		msg, err := messaging.NewMessage(messaging.NewMessageParams{
			ID:          messaging.MessageID(fx.ID),
			ListingID:   fx.Listing,
			SenderID:    fx.From,
			RecipientID: fx.To,
			Body:        fx.Body,
			Now:         now.Add(-time.Duration(fx.MinutesAgo) * time.Minute),
		})
		if err != nil {
			logger.Error("fixture message invalid", "message_id", fx.ID, "error", err)
			continue
		}
		msg.IsRead = fx.Read
		if err := a.repos.messages.Save(ctx, msg); err != nil {
			logger.Error("cannot store fixture message", "message_id", fx.ID, "error", err)
		}
	}
	return nil
}

func defaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "demo.json"),
		filepath.Join("..", "..", "data", "demo.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
