// seed inserts development sample data for local testing: two users, a
// community with two channels, and owner/member memberships.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	channeldomain "community-platform/backend/internal/channel/domain"
	channelrepository "community-platform/backend/internal/channel/repository"
	communitydomain "community-platform/backend/internal/community/domain"
	communityrepository "community-platform/backend/internal/community/repository"
	"community-platform/backend/internal/config"
	"community-platform/backend/internal/db"
	identitydomain "community-platform/backend/internal/identity/domain"
	identityrepository "community-platform/backend/internal/identity/repository"
	membershipdomain "community-platform/backend/internal/membership/domain"
	membershiprepository "community-platform/backend/internal/membership/repository"
	"community-platform/backend/internal/security"
	userdomain "community-platform/backend/internal/user/domain"
	userrepository "community-platform/backend/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	memberEmail  = "member@example.com"
	devPassword  = "DevPassword123"

	devUserID        = "dev-user-001"
	devUser2ID       = "dev-user-002"
	devIdentityID    = "dev-identity-001"
	devIdentity2ID   = "dev-identity-002"
	devCommunityID   = "dev-community-001"
	devChannelID     = "dev-channel-001"
	devChannel2ID    = "dev-channel-002"
	devMembershipID  = "dev-membership-001"
	devMembership2ID = "dev-membership-002"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepository.NewPostgresRepository(conn)
	identities := identityrepository.NewPostgresRepository(conn)
	communities := communityrepository.NewPostgresRepository(conn)
	channels := channelrepository.NewPostgresRepository(conn)
	memberships := membershiprepository.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	seedUsers := []*userdomain.User{
		{ID: devUserID, Email: devUserEmail, Name: "Dev User", Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: devUser2ID, Email: memberEmail, Name: "Member User", Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now},
	}
	for _, u := range seedUsers {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	seedIdentities := []*identitydomain.Identity{
		{ID: devIdentityID, UserID: devUserID, Provider: identitydomain.IdentityProviderLocal, ProviderID: devUserEmail, PasswordHash: passwordHash, CreatedAt: now},
		{ID: devIdentity2ID, UserID: devUser2ID, Provider: identitydomain.IdentityProviderLocal, ProviderID: memberEmail, PasswordHash: passwordHash, CreatedAt: now},
	}
	for _, i := range seedIdentities {
		if err := identities.Create(ctx, i); err != nil {
			log.Fatalf("create identity %s: %v", i.ProviderID, err)
		}
	}

	if err := communities.Create(ctx, &communitydomain.Community{
		ID:        devCommunityID,
		Name:      "Acme Dev",
		OwnerID:   devUserID,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create community: %v", err)
	}

	seedChannels := []*channeldomain.Channel{
		{ID: devChannelID, CommunityID: devCommunityID, Name: "general", CreatedAt: now},
		{ID: devChannel2ID, CommunityID: devCommunityID, Name: "random", CreatedAt: now},
	}
	for _, c := range seedChannels {
		if err := channels.Create(ctx, c); err != nil {
			log.Fatalf("create channel %s: %v", c.Name, err)
		}
	}

	seedMemberships := []*membershipdomain.Membership{
		{ID: devMembershipID, UserID: devUserID, CommunityID: devCommunityID, Role: membershipdomain.RoleOwner, CanSendMessages: true, CanSendMedia: true, CanPinMessages: true, CreatedAt: now},
		{ID: devMembership2ID, UserID: devUser2ID, CommunityID: devCommunityID, Role: membershipdomain.RoleMember, CanSendMessages: true, CanSendMedia: true, CreatedAt: now},
	}
	for _, m := range seedMemberships {
		if err := memberships.Create(ctx, m); err != nil {
			log.Fatalf("create membership %s: %v", m.ID, err)
		}
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / %s\n", devUserEmail, devPassword)
	fmt.Printf("Member login: %s / %s\n", memberEmail, devPassword)
}
