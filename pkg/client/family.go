package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/naveenspark/household/pkg/domain"
)

// CreateFamilyGroup creates a group with the caller as admin.
func (c *Client) CreateFamilyGroup(ctx context.Context, in domain.FamilyGroupInput) (*domain.FamilyGroup, error) {
	var g domain.FamilyGroup
	if err := c.post(ctx, "/api/family-groups", in, &g); err != nil {
		return nil, fmt.Errorf("client.CreateFamilyGroup: %w", err)
	}
	return &g, nil
}

// GetMyFamilyGroup returns the group the caller administers or belongs to.
// A caller without a group gets an HTTP 404.
func (c *Client) GetMyFamilyGroup(ctx context.Context) (*domain.FamilyGroup, error) {
	var g domain.FamilyGroup
	if err := c.get(ctx, "/api/family-groups/me", &g); err != nil {
		return nil, fmt.Errorf("client.GetMyFamilyGroup: %w", err)
	}
	return &g, nil
}

// AddFamilyMember adds an existing user to the group by email.
func (c *Client) AddFamilyMember(ctx context.Context, groupID uuid.UUID, req domain.AddMemberRequest) (*domain.FamilyMember, error) {
	var m domain.FamilyMember
	if err := c.post(ctx, familyMembersPath(groupID), req.Normalize(), &m); err != nil {
		return nil, fmt.Errorf("client.AddFamilyMember: %w", err)
	}
	return &m, nil
}

// RemoveFamilyMember removes a user from the group.
func (c *Client) RemoveFamilyMember(ctx context.Context, groupID uuid.UUID, userID string) error {
	if err := c.delete(ctx, familyMembersPath(groupID)+"/"+url.PathEscape(userID)); err != nil {
		return fmt.Errorf("client.RemoveFamilyMember: %w", err)
	}
	return nil
}

func familyMembersPath(groupID uuid.UUID) string {
	return "/api/family-groups/" + url.PathEscape(groupID.String()) + "/members"
}
