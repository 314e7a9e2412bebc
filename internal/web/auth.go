package web

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsarena/dsarena/api"
	lf "github.com/dsarena/dsarena/internal/logfield"
	"github.com/dsarena/dsarena/internal/models"
)

const sessionUserKey = "user_id"

func setupAuth(s *server, r *gin.Engine) error {
	authKey, err := hex.DecodeString(s.config.Server.Cookies.AuthenticationKey)
	if err != nil {
		return errors.Wrap(err, "Failed to decode hex authenticationKey")
	}
	encryptKey, err := hex.DecodeString(s.config.Server.Cookies.EncryptionKey)
	if err != nil {
		return errors.Wrap(err, "Failed to decode hex encryptionKey")
	}
	store := cookie.NewStore(authKey, encryptKey)
	store.Options(sessions.Options{
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("session", store))

	r.POST("/api/login", s.login)
	r.POST("/api/logout", s.logout)
	return nil
}

// login trades a login name for a session cookie. Full identity
// verification is an external collaborator concern; the handler only
// anchors uploads to a user record.
func (s *server) login(c *gin.Context) {
	req := api.LoginRequest{}
	if err := c.Bind(&req); err != nil || req.Login == "" {
		c.JSON(http.StatusBadRequest, &api.LoginResponse{Status: api.Status{Error: "login is required"}})
		return
	}

	user, err := s.db.AddUser(&models.User{
		Login:     req.Login,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		s.logger.Error("Failed to add user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, &api.LoginResponse{Status: api.Status{Error: "internal error"}})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, &api.LoginResponse{Status: api.Status{Error: "internal error"}})
		return
	}

	// Non-browser clients cannot hold the encrypted cookie, so every
	// login also mints a bearer token backed by a session row.
	token, err := s.db.CreateSession(user.ID)
	if err != nil {
		s.logger.Error("Failed to create session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, &api.LoginResponse{Status: api.Status{Error: "internal error"}})
		return
	}

	s.logger.Info("Logged in user", lf.UserID(user.ID), zap.String("login", user.Login))
	c.JSON(http.StatusOK, &api.LoginResponse{
		Status: api.Status{Ok: true},
		Token:  token.Token,
	})
}

func (s *server) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err))
	}
	c.JSON(http.StatusOK, &api.Status{Ok: true})
}

func (s *server) validateSession(c *gin.Context) {
	if token := bearerToken(c); token != "" {
		user, err := s.db.FindUserBySession(token)
		if err != nil {
			s.logger.Error("Failed to look up session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, &api.Status{Error: "internal error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Status{Error: "login required"})
			return
		}
		c.Set(sessionUserKey, user.ID)
		return
	}

	session := sessions.Default(c)
	v := session.Get(sessionUserKey)
	if v == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Status{Error: "login required"})
		return
	}
	userID, ok := v.(uint)
	if !ok || userID == 0 {
		s.logger.Warn("Failed to deserialize session")
		session.Clear()
		c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Status{Error: "login required"})
		return
	}
	c.Set(sessionUserKey, userID)
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return ""
}

func sessionUser(c *gin.Context) uint {
	return c.GetUint(sessionUserKey)
}
