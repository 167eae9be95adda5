package platform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

type rawUser struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address"`
}

type usersResponse struct {
	Users       []rawUser `json:"users"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
}

// ListUsers fetches one page of the user directory.
func (c *Client) ListUsers(ctx context.Context, sess *models.Session, page, limit int) (models.UserPage, error) {
	if sess == nil {
		return models.UserPage{}, ErrNoSession
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var resp usersResponse
	if err := c.do(ctx, sess, http.MethodGet, "/user/get-all-user", query, nil, &resp); err != nil {
		return models.UserPage{}, err
	}

	result := models.UserPage{
		Users:      make([]models.User, 0, len(resp.Users)),
		Page:       page,
		TotalPages: resp.TotalPages,
	}
	if resp.CurrentPage > 0 {
		result.Page = resp.CurrentPage
	}
	if result.TotalPages < 1 {
		result.TotalPages = 1
	}
	for _, u := range resp.Users {
		if u.ID == "" {
			c.logger.Warn("Skipping user without id", "name", u.Name)
			continue
		}
		result.Users = append(result.Users, models.User{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			WalletAddress: u.WalletAddress,
		})
	}
	return result, nil
}
