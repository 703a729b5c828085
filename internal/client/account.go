package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shopease/pkg/utils"
)

const AccountPeer = "account"

// UserInfo the public profile served by GET /users/{id}
type UserInfo struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Accounts looks users up on the user service
type Accounts struct {
	p *peer
}

func NewAccounts(baseURL string, timeout time.Duration, opts Options) *Accounts {
	return &Accounts{p: newPeer(AccountPeer, baseURL, timeout, opts)}
}

// GetUser returns utils.ErrUserNotFound for unknown ids
func (a *Accounts) GetUser(ctx context.Context, id uint64) (*UserInfo, error) {
	var user UserInfo
	if err := a.p.call(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &user); err != nil {
		if IsNotFound(err) {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
