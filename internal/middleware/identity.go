package middleware

// identity.go defines helper functions shared across middleware files. Currently
// it provides a userID extraction function that resolves the authenticated
// user for rate limit keys. It checks the user_id context key set by JWTAuth
// first, then falls back to the claims of a raw JWT stored under "user". When
// no token is present or no relevant claim exists, "guest" is returned.

import (
    "strconv"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// userID extracts a user identifier from the request context. JWTAuth stores
// the sub claim under "user_id" with its decoded JSON type, so numeric values
// are formatted rather than type-asserted away. It returns "guest" when no
// user is authenticated or the claims are missing.
func userID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        if s := claimString(v); s != "" {
            return s
        }
    }
    u := c.Get("user")
    if u == nil {
        return "guest"
    }
    if tok, ok := u.(*jwt.Token); ok {
        if cl, ok := tok.Claims.(jwt.MapClaims); ok {
            if s := claimString(cl["sub"]); s != "" {
                return s
            }
            if s := claimString(cl["user_id"]); s != "" {
                return s
            }
        }
    }
    return "guest"
}

// claimString renders a JWT claim value as a string. JSON decoding turns
// numeric claims into float64, so both representations must be accepted.
func claimString(v interface{}) string {
    switch t := v.(type) {
    case string:
        return t
    case float64:
        return strconv.FormatInt(int64(t), 10)
    case int64:
        return strconv.FormatInt(t, 10)
    case int:
        return strconv.Itoa(t)
    case uint64:
        return strconv.FormatUint(t, 10)
    }
    return ""
}
