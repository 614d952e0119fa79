package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"custombuttons-restful/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrForbidden is returned when the caller lacks the capability for an action.
var ErrForbidden = errors.New("Forbidden: missing capability")

const (
	// AttrUserID is the request attribute AuthFilter stores the caller id under.
	AttrUserID = "user_id"
	// AttrUsername is the request attribute AuthFilter stores the caller name under.
	AttrUsername = "username"
)

// mySigningKey should be a strong, randomly generated secret key,
// and it should be stored securely, NOT hardcoded in your source code.
var mySigningKey = []byte("mySigningKey")

// SetSigningKey allows setting the key from outside the package.
func SetSigningKey(key []byte) {
	if len(key) > 0 {
		mySigningKey = key
	}
}

// CustomClaims represents the custom claims included in the JWT.
type CustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT for the given user.
func GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "custom-buttons",
			Subject:   "api-auth",
			Audience:  []string{"custom-buttons-api"},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(mySigningKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseAndValidateToken checks signature and time claims and returns the claims.
func ParseAndValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return mySigningKey, nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			if ve.Errors&jwt.ValidationErrorMalformed != 0 {
				return nil, errors.New("malformed token")
			} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				return nil, errors.New("token is either expired or not active yet")
			} else if ve.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
				return nil, errors.New("invalid token signature")
			}
		}
		return nil, fmt.Errorf("couldn't handle this token: %w", err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// AuthFilter creates a go-restful FilterFunction for JWT authentication.
func AuthFilter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		authHeader := req.HeaderParameter("Authorization")
		if authHeader == "" {
			writeUnauthorized(resp, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeUnauthorized(resp, "Invalid authorization header format")
			return
		}

		claims, err := ParseAndValidateToken(parts[1])
		if err != nil {
			writeUnauthorized(resp, err.Error())
			return
		}

		req.SetAttribute(AttrUserID, claims.UserID)
		req.SetAttribute(AttrUsername, claims.Username)

		chain.ProcessFilter(req, resp)
	}
}

// RequestingUserID extracts the user ID set by the AuthFilter.
func RequestingUserID(req *restful.Request) (uint, bool) {
	userIDAttr := req.Attribute(AttrUserID)
	if userIDAttr == nil {
		return 0, false
	}
	userID, ok := userIDAttr.(uint)
	return userID, ok
}

func writeUnauthorized(resp *restful.Response, message string) {
	_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]any{
		"error": map[string]string{"kind": "unauthorized", "message": message},
	}, restful.MIME_JSON)
}

// Authorizer answers whether a user holds a capability.
type Authorizer interface {
	Allowed(ctx context.Context, userID uint, capability Capability) (bool, error)
}

// PermissionChecker resolves capabilities through the user's roles.
type PermissionChecker struct {
	db *gorm.DB
}

var _ Authorizer = (*PermissionChecker)(nil)

func NewPermissionChecker(db *gorm.DB) *PermissionChecker {
	return &PermissionChecker{db: db}
}

func (p *PermissionChecker) Allowed(ctx context.Context, userID uint, capability Capability) (bool, error) {
	return p.UserHasPermissions(ctx, userID, string(capability))
}

// UserHasPermissions checks if the user has all required permissions.
func (p *PermissionChecker) UserHasPermissions(ctx context.Context, userID uint, requiredPermissions ...string) (bool, error) {
	if len(requiredPermissions) == 0 {
		return true, nil
	}

	var user models.User
	err := p.db.WithContext(ctx).Preload("Roles.Permissions").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A token for a deleted user carries no capabilities.
			return false, nil
		}
		return false, fmt.Errorf("database error checking permissions for user %d: %w", userID, err)
	}

	userPermissions := make(map[string]struct{})
	for _, role := range user.Roles {
		for _, perm := range role.Permissions {
			userPermissions[perm.Name] = struct{}{}
		}
	}

	for _, reqPerm := range requiredPermissions {
		if _, ok := userPermissions[reqPerm]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// --- go-restful login processing function ---

// LoginCredentials defines the structure of the login request
type LoginCredentials struct {
	Username string `json:"username" description:"Username for login"`
	Password string `json:"password" description:"Password for login"`
}

// LoginResponse defines the structure of the login response
type LoginResponse struct {
	Token   string `json:"auth_token,omitempty"`
	Message string `json:"message,omitempty"`
}

// LoginHandler issues tokens for username/password pairs stored in db.
type LoginHandler struct {
	db *gorm.DB
}

func NewLoginHandler(db *gorm.DB) *LoginHandler {
	return &LoginHandler{db: db}
}

// RegisterRoutes adds POST /api/auth to ws.
func (h *LoginHandler) RegisterRoutes(ws *restful.WebService) {
	ws.Route(ws.POST("/auth").To(h.login).
		Doc("Exchange credentials for a bearer token").
		Reads(LoginCredentials{}).
		Returns(http.StatusOK, "Token issued", LoginResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", LoginResponse{}).
		Returns(http.StatusUnauthorized, "Invalid credentials", LoginResponse{}))
}

func (h *LoginHandler) login(request *restful.Request, response *restful.Response) {
	creds := new(LoginCredentials)
	err := request.ReadEntity(creds)
	if err != nil {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, LoginResponse{Message: "Invalid request body: " + err.Error()}, restful.MIME_JSON)
		return
	}

	if creds.Username == "" || creds.Password == "" {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, LoginResponse{Message: "Username and password are required"}, restful.MIME_JSON)
		return
	}

	var user models.User
	result := h.db.WithContext(request.Request.Context()).Where("username = ?", creds.Username).First(&user)
	if result.Error != nil {
		// Avoid revealing whether the user exists
		_ = response.WriteHeaderAndJson(http.StatusUnauthorized, LoginResponse{Message: "Invalid credentials"}, restful.MIME_JSON)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		_ = response.WriteHeaderAndJson(http.StatusUnauthorized, LoginResponse{Message: "Invalid credentials"}, restful.MIME_JSON)
		return
	}

	token, err := GenerateToken(&user)
	if err != nil {
		_ = response.WriteHeaderAndJson(http.StatusInternalServerError, LoginResponse{Message: "Could not generate token"}, restful.MIME_JSON)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, LoginResponse{Token: token}, restful.MIME_JSON)
}
