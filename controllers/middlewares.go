package controllers

import (
	"net/http"

	"studioguideapi/consultation"
	"studioguideapi/languageutil"
	"studioguideapi/services"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// SessionMiddleware resolves the consultation named by the token subject and
// stores it under "session".
func SessionMiddleware(sessions services.SessionStoreProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRaw := c.Get("user")
			if userRaw == nil {
				return echo.ErrUnauthorized
			}
			user, ok := userRaw.(*jwt.Token)
			if !ok {
				return echo.ErrUnauthorized
			}
			claims, ok := user.Claims.(jwt.MapClaims)
			if !ok {
				return echo.ErrUnauthorized
			}
			sessionID, _ := claims["sub"].(string)
			if sessionID == "" {
				return echo.ErrUnauthorized
			}

			controller, err := sessions.Get(c.Request().Context(), sessionID)
			if err != nil {
				locale := languageutil.MatchLocale(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))
				return c.JSON(http.StatusNotFound, map[string]string{"error": languageutil.Message(locale, languageutil.MsgSessionNotFound)})
			}
			c.Set("session", controller)
			return next(c)
		}
	}
}

func currentSession(c echo.Context) (*consultation.Controller, bool) {
	controller, ok := c.Get("session").(*consultation.Controller)
	return controller, ok
}
