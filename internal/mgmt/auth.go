package mgmt

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Role defines the access level for a caller.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleReadOnly Role = "readonly"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode      string          // "api-key", "jwt", "none"
	APIKey    string          // from env MGMT_API_KEY
	JWTSecret string          // from env MGMT_JWT_SECRET (HS256)
	Roles     map[string]Role // api-key → role mapping
}

// probePath reports whether the path is an unauthenticated probe endpoint.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

// NewAuthMiddleware returns a Fiber middleware that validates the
// Authorization header in the configured mode.
func NewAuthMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Mode == "none" {
			c.Locals("role", RoleAdmin)
			return c.Next()
		}

		if probePath(c.Path()) {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		var (
			role Role
			ok   bool
		)
		switch cfg.Mode {
		case "jwt":
			role, ok = validateJWT(token, cfg.JWTSecret)
		default:
			role, ok = validateAPIKey(token, cfg)
		}

		if !ok {
			logger.Warn().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Str("mode", cfg.Mode).
				Msg("unauthorized request")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_credentials", "Unauthorized",
				"Invalid credentials")
		}

		c.Locals("role", role)
		return c.Next()
	}
}

func validateAPIKey(token string, cfg AuthConfig) (Role, bool) {
	if cfg.APIKey != "" && token == cfg.APIKey {
		if r, ok := cfg.Roles[token]; ok {
			return r, true
		}
		return RoleAdmin, true
	}
	if r, ok := cfg.Roles[token]; ok {
		return r, true
	}
	return "", false
}

// validateJWT verifies an HS256 token and reads the role claim. A missing or
// unknown role claim degrades to readonly rather than rejecting the token.
func validateJWT(token, secret string) (Role, bool) {
	if secret == "" {
		return "", false
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}

	roleClaim, _ := claims["role"].(string)
	switch Role(roleClaim) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleOperator:
		return RoleOperator, true
	default:
		return RoleReadOnly, true
	}
}

// requireRole returns a middleware that enforces a minimum role level.
func requireRole(minRole Role) fiber.Handler {
	roleLevel := map[Role]int{
		RoleReadOnly: 1,
		RoleOperator: 2,
		RoleAdmin:    3,
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(Role)
		if roleLevel[role] < roleLevel[minRole] {
			return problemResponse(c, fiber.StatusForbidden,
				"insufficient_role", "Forbidden",
				"Insufficient permissions for this operation")
		}
		return c.Next()
	}
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
