package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/auth"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/middleware"
	"github.com/suPer8Hu/ai-assistant/internal/models"
)

const stateCookieName = "oauth_state"

func (h *Handler) CurrentUser(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		common.OK(c, gin.H{"isAuthenticated": false, "user": nil})
		return
	}
	common.OK(c, gin.H{"isAuthenticated": true, "user": u.Public()})
}

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		common.Fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Store.GetUserByEmail(ctx, email); err == nil {
		common.Fail(c, http.StatusBadRequest, "User already registered with this email")
		return
	} else if !errors.Is(err, common.ErrNotFound) {
		h.fail(c, err, "Registration failed")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(c, common.InternalError("hash password", err), "Registration failed")
		return
	}

	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		name = email
	}
	user := &models.User{
		FirstName: first,
		LastName:  last,
		Name:      name,
		Email:     email,
		Password:  &hash,
	}
	if err := h.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			common.Fail(c, http.StatusBadRequest, "User already registered with this email")
			return
		}
		h.fail(c, err, "Registration failed")
		return
	}

	if err := h.Sessions.Start(c, user.ID); err != nil {
		h.fail(c, common.InternalError("start session", err), "Registration failed")
		return
	}
	common.OK(c, gin.H{"success": true, "user": user.Public()})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		common.Fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.Fail(c, http.StatusUnauthorized, "User not found. Please sign up first.")
			return
		}
		h.fail(c, err, "Login failed")
		return
	}
	if !user.HasPassword() {
		common.Fail(c, http.StatusUnauthorized, "Invalid login method")
		return
	}
	if auth.CheckPassword(*user.Password, req.Password) != nil {
		common.Fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !h.signIn(c, user, "Login failed") {
		return
	}
	common.OK(c, gin.H{"success": true})
}

type demoLoginReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DemoLogin finds or creates a password-less user by email. Accounts that
// have a password must use the password flow.
func (h *Handler) DemoLogin(c *gin.Context) {
	var req demoLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	name := strings.TrimSpace(req.Name)
	email := auth.NormalizeEmail(req.Email)
	if name == "" || email == "" {
		common.Fail(c, http.StatusBadRequest, "Name and email are required")
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.HasPassword() {
			common.Fail(c, http.StatusUnauthorized, "Invalid login method")
			return
		}
	case errors.Is(err, common.ErrNotFound):
		user = &models.User{Name: name, Email: email}
		if err := h.Store.CreateUser(ctx, user); err != nil {
			h.fail(c, err, "Demo login failed")
			return
		}
	default:
		h.fail(c, err, "Demo login failed")
		return
	}

	if !h.signIn(c, user, "Demo login failed") {
		return
	}
	common.OK(c, gin.H{"success": true, "user": user.Public()})
}

// signIn refreshes lastLogin and starts a session. It writes the failure
// response itself and reports whether the caller may continue.
func (h *Handler) signIn(c *gin.Context, user *models.User, failMsg string) bool {
	if err := h.Store.UpdateUserLastLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("update last login failed", "user_id", user.ID, "err", err)
	}
	if err := h.Sessions.Start(c, user.ID); err != nil {
		h.fail(c, common.InternalError("start session", err), failMsg)
		return false
	}
	return true
}

func (h *Handler) GoogleStart(c *gin.Context) {
	if h.Google == nil {
		h.logger.Warn("google login requested but oauth is not configured")
		c.Redirect(http.StatusFound, "/")
		return
	}
	state, err := h.State.Issue()
	if err != nil {
		h.logger.Error("issue oauth state failed", "err", err)
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, int(h.State.Duration().Seconds()), "/api/auth/google", "", h.Secure, true)
	c.Redirect(http.StatusFound, h.Google.AuthCodeURL(state))
}

// GoogleCallback completes the provider flow. Every failure lands on "/"
// without a session.
func (h *Handler) GoogleCallback(c *gin.Context) {
	fail := func(msg string, err error) {
		h.logger.Warn("google callback failed", "reason", msg, "err", err)
		c.Redirect(http.StatusFound, "/")
	}

	cookie, _ := c.Cookie(stateCookieName)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, "/api/auth/google", "", h.Secure, true)

	if h.Google == nil {
		fail("not configured", nil)
		return
	}
	if e := c.Query("error"); e != "" {
		fail("provider error", errors.New(e))
		return
	}
	if err := h.State.Verify(c.Query("state"), cookie); err != nil {
		fail("state", err)
		return
	}

	ctx := c.Request.Context()
	profile, err := h.Google.Exchange(ctx, c.Query("code"))
	if err != nil {
		fail("exchange", err)
		return
	}

	user, err := h.Store.GetUserByExternalID(ctx, profile.ExternalID)
	if errors.Is(err, common.ErrNotFound) {
		user, err = h.createGoogleUser(c, profile)
	}
	if err != nil {
		fail("user", err)
		return
	}

	if err := h.Store.UpdateUserLastLogin(ctx, user.ID); err != nil {
		h.logger.Warn("update last login failed", "user_id", user.ID, "err", err)
	}
	if err := h.Sessions.Start(c, user.ID); err != nil {
		fail("session", err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) createGoogleUser(c *gin.Context, p *auth.Profile) (*models.User, error) {
	if p.Email == "" {
		return nil, common.ValidationError("google profile has no email")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
	if name == "" {
		name = p.Email
	}
	externalID := p.ExternalID
	user := &models.User{
		GoogleID:  &externalID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Name:      name,
		Email:     p.Email,
		Picture:   p.Picture,
	}
	// an email already used by another account is a conflict
	if err := h.Store.CreateUser(c.Request.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Sessions.Destroy(c); err != nil {
		h.fail(c, common.InternalError("destroy session", err), "Logout failed")
		return
	}
	common.OK(c, gin.H{"success": true})
}
