// User HTTP handlers.
//
// Sign-up and sign-in issue a session: the token is set as an HttpOnly cookie
// and also returned in the body for API clients using "Authorization: Bearer".
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/http/middleware"
	"github.com/tbourn/beast-forums/internal/services"
)

//
// DTOs
//

// SignUpRequest is the JSON payload for registration.
type SignUpRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Name     string `json:"name" binding:"required" example:"Ada Lovelace"`
	Password string `json:"password" binding:"required" example:"correct horse battery"`
}

// SignInRequest is the JSON payload for signing in.
type SignInRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse battery"`
}

// SessionResponse is returned when a session is opened.
type SessionResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token" example:"0b6f3c1e-5d2a-4f7e-9c3b-1a2b3c4d5e6f"`
	ExpiresAt time.Time    `json:"expires_at"`
}

//
// Handlers
//

// SignUp godoc
// @ID          signUp
// @Summary     Register a user
// @Description Creates a user and opens a session (cookie + token).
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignUpRequest  true  "Registration"
// @Success     201   {object}  handlers.SessionResponse
// @Failure     400   {object}  handlers.ErrorResponse "Invalid input"
// @Failure     409   {object}  handlers.ErrorResponse "Email already registered"
// @Failure     500   {object}  handlers.ErrorResponse "Internal error"
// @Router      /users [post]
func (h *Handlers) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email, name and password are required")
		return
	}

	u, sess, err := h.accounts.SignUp(c.Request.Context(), services.SignUpInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			fail(c, http.StatusBadRequest, ErrCodeValidation, verrs.Error())
		case errors.Is(err, services.ErrEmailTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	h.setSessionCookie(c, sess)
	ok(c, http.StatusCreated, SessionResponse{User: u, Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

// SignIn godoc
// @ID          signIn
// @Summary     Sign in
// @Description Verifies credentials and opens a session (cookie + token).
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignInRequest  true  "Credentials"
// @Success     200   {object}  handlers.SessionResponse
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     401   {object}  handlers.ErrorResponse "Invalid credentials"
// @Failure     500   {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/sign_in [post]
func (h *Handlers) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	u, sess, err := h.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	h.setSessionCookie(c, sess)
	ok(c, http.StatusOK, SessionResponse{User: u, Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

// SignOut godoc
// @ID          signOut
// @Summary     Sign out
// @Description Revokes the presented session and clears the cookie. Always 204.
// @Tags        Users
// @Success     204  "No Content"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/sign_out [delete]
func (h *Handlers) SignOut(c *gin.Context) {
	if err := h.accounts.SignOut(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	noContent(c)
}

// ShowUser godoc
// @ID          showUser
// @Summary     User profile
// @Description Public profile with activity counters.
// @Tags        Users
// @Produce     json
// @Param       id   path      int  true  "User ID"
// @Success     200  {object}  services.UserProfile
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id} [get]
func (h *Handlers) ShowUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	}
	p, err := h.profiles.Profile(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

func (h *Handlers) setSessionCookie(c *gin.Context, sess *domain.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if h.cookie.TTL > 0 {
		maxAge = int(h.cookie.TTL.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, sess.Token, maxAge, "/", "", h.cookie.Secure, true)
}
