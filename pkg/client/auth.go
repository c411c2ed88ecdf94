package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/pkg/domain"
)

// AuthClient calls the Identity Toolkit REST API.
type AuthClient struct {
	transport
	authURL  string
	tokenURL string
	apiKey   string
	now      func() time.Time
}

// NewAuth creates an auth client. Empty URLs select the hosted defaults.
func NewAuth(authURL, tokenURL, apiKey string, timeout time.Duration) *AuthClient {
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &AuthClient{
		transport: newTransport(timeout),
		authURL:   strings.TrimRight(authURL, "/"),
		tokenURL:  tokenURL,
		apiKey:    apiKey,
		now:       time.Now,
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

// CreateAccount registers a new email/password account.
// An email that is already registered yields a *domain.DuplicateEmailError.
func (c *AuthClient) CreateAccount(ctx context.Context, email, password string) (domain.Account, error) {
	var resp accountResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := c.doRequest(ctx, http.MethodPost, c.endpoint("accounts:signUp"), req, &resp); err != nil {
		log.ErrorErr(log.CatAuth, "create account failed", err, "email", email)
		return domain.Account{}, fmt.Errorf("client.CreateAccount: %w", authError("create account", email, err))
	}
	log.Info(log.CatAuth, "account created", "uid", resp.LocalID)
	return c.account(resp.LocalID, email, resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// SignIn exchanges an email and password for an account session.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (domain.Account, error) {
	var resp accountResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := c.doRequest(ctx, http.MethodPost, c.endpoint("accounts:signInWithPassword"), req, &resp); err != nil {
		log.Warn(log.CatAuth, "sign in failed", "email", email, "error", err)
		return domain.Account{}, fmt.Errorf("client.SignIn: %w", authError("sign in", email, err))
	}
	log.Info(log.CatAuth, "signed in", "uid", resp.LocalID)
	return c.account(resp.LocalID, email, resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// SendPasswordReset asks the service to email a password reset link.
func (c *AuthClient) SendPasswordReset(ctx context.Context, email string) error {
	req := map[string]string{"requestType": "PASSWORD_RESET", "email": email}
	if err := c.doRequest(ctx, http.MethodPost, c.endpoint("accounts:sendOobCode"), req, nil); err != nil {
		return fmt.Errorf("client.SendPasswordReset: %w", authError("password reset", email, err))
	}
	log.Info(log.CatAuth, "password reset sent", "email", email)
	return nil
}

// DeleteAccount deletes the account that owns acct's ID token.
func (c *AuthClient) DeleteAccount(ctx context.Context, acct domain.Account) error {
	req := map[string]string{"idToken": acct.IDToken}
	if err := c.doRequest(ctx, http.MethodPost, c.endpoint("accounts:delete"), req, nil); err != nil {
		log.ErrorErr(log.CatAuth, "delete account failed", err, "uid", acct.UserID)
		return fmt.Errorf("client.DeleteAccount: %w", authError("delete account", acct.Email, err))
	}
	log.Info(log.CatAuth, "account deleted", "uid", acct.UserID)
	return nil
}

// Refresh trades a refresh token for a fresh ID token.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (domain.Account, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var resp refreshResponse
	target := withQuery(c.tokenURL, url.Values{"key": {c.apiKey}})
	if err := c.postForm(ctx, target, form, &resp); err != nil {
		return domain.Account{}, fmt.Errorf("client.Refresh: %w", authError("refresh token", "", err))
	}
	log.Debug(log.CatAuth, "token refreshed", "uid", resp.UserID)
	return c.account(resp.UserID, "", resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (c *AuthClient) endpoint(method string) string {
	return withQuery(c.authURL+"/"+method, url.Values{"key": {c.apiKey}})
}

func (c *AuthClient) account(uid, email, idToken, refreshToken, expiresIn string) domain.Account {
	acct := domain.Account{
		UserID:       uid,
		Email:        email,
		IDToken:      idToken,
		RefreshToken: refreshToken,
	}
	if secs, err := strconv.Atoi(expiresIn); err == nil && secs > 0 {
		acct.ExpiresAt = c.now().Add(time.Duration(secs) * time.Second)
	}
	return acct
}
