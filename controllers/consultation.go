package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"studioguideapi/consultation"
	"studioguideapi/languageutil"
	"studioguideapi/models"
	"studioguideapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// maxWait bounds ?wait=true so a stuck upstream call cannot hold a request forever.
const maxWait = 3 * time.Minute

const maxUploadSize = 15 << 20

type ConsultationController struct {
	Sessions  services.SessionStoreProvider
	JWTSecret string
	TokenTTL  time.Duration
	Log       zerolog.Logger
}

// ConsultationRoutes registers the session routes. Middlewares are attached
// per route so that POST on the group root stays public.
func (controller *ConsultationController) ConsultationRoutes(g *echo.Group, auth ...echo.MiddlewareFunc) {
	g.POST("", controller.CreateSession)
	g.GET("", controller.GetSession, auth...)
	g.DELETE("", controller.DeleteSession, auth...)
	g.POST("/image", controller.UploadImage, append([]echo.MiddlewareFunc{middleware.BodyLimit("16M")}, auth...)...)
	g.POST("/analysis", controller.StartAnalysis, auth...)
	g.POST("/reset", controller.Reset, auth...)
	g.POST("/gender/user/toggle", controller.ToggleUserGender, auth...)
	g.POST("/gender/partner/toggle", controller.TogglePartnerGender, auth...)
	g.PUT("/gender", controller.SetGenders, auth...)
	g.POST("/selection", controller.SelectSuggestion, auth...)
	g.GET("/images/user", controller.UserImage, auth...)
	g.GET("/images/partner/:index", controller.PartnerImage, auth...)
	g.GET("/composite", controller.Composite, auth...)
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

func localizedError(c echo.Context, session *consultation.Controller, status int, key languageutil.MessageKey) error {
	return errorJSON(c, status, languageutil.Message(session.Locale(), key))
}

// respond returns the session snapshot, first waiting for in-flight work when
// the client asked for it.
func (controller *ConsultationController) respond(c echo.Context, session *consultation.Controller, status int) error {
	if wantsWait(c) {
		ctx, cancel := context.WithTimeout(c.Request().Context(), maxWait)
		defer cancel()
		if err := session.Wait(ctx); err != nil {
			controller.Log.Debug().Err(err).Str("session", session.ID()).Msg("stopped waiting for pending work")
		}
	}
	return c.JSON(status, session.Snapshot())
}

func (controller *ConsultationController) CreateSession(c echo.Context) error {
	session, err := controller.Sessions.Create(c.Request().Context())
	if err != nil {
		controller.Log.Error().Err(err).Msg("failed to create session")
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to create session")
	}
	session.SetLocale(languageutil.MatchLocale(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language")))

	token, err := GenerateSessionToken(session.ID(), controller.JWTSecret, controller.TokenTTL)
	if err != nil {
		controller.Log.Error().Err(err).Str("session", session.ID()).Msg("failed to sign session token")
		sentry.CaptureException(err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to create session")
	}
	return c.JSON(http.StatusCreated, models.SessionCreatedOut{Token: token, Session: session.Snapshot()})
}

func (controller *ConsultationController) GetSession(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return controller.respond(c, session, http.StatusOK)
}

func (controller *ConsultationController) DeleteSession(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	if err := controller.Sessions.Delete(c.Request().Context(), session.ID()); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return localizedError(c, session, http.StatusNotFound, languageutil.MsgSessionNotFound)
		}
		controller.Log.Error().Err(err).Str("session", session.ID()).Msg("failed to delete session")
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *ConsultationController) UploadImage(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	file, err := c.FormFile("image")
	if err != nil {
		return localizedError(c, session, http.StatusBadRequest, languageutil.MsgInvalidImage)
	}
	if file.Size > maxUploadSize {
		return localizedError(c, session, http.StatusBadRequest, languageutil.MsgInvalidImage)
	}
	src, err := file.Open()
	if err != nil {
		return localizedError(c, session, http.StatusBadRequest, languageutil.MsgInvalidImage)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		return localizedError(c, session, http.StatusBadRequest, languageutil.MsgInvalidImage)
	}
	if !session.SelectImage(data) {
		return localizedError(c, session, http.StatusBadRequest, languageutil.MsgInvalidImage)
	}
	return controller.respond(c, session, http.StatusOK)
}

func (controller *ConsultationController) StartAnalysis(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	err := session.StartAnalysis()
	switch {
	case errors.Is(err, consultation.ErrAnalysisInFlight):
		return localizedError(c, session, http.StatusConflict, languageutil.MsgAnalysisInFlight)
	case errors.Is(err, consultation.ErrAnalysisExists):
		return localizedError(c, session, http.StatusConflict, languageutil.MsgAnalysisExists)
	case err != nil:
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return controller.respond(c, session, http.StatusOK)
}

func (controller *ConsultationController) Reset(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	session.Reset()
	return controller.respond(c, session, http.StatusOK)
}

func (controller *ConsultationController) ToggleUserGender(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	session.ToggleUserGender()
	return controller.respond(c, session, http.StatusOK)
}

func (controller *ConsultationController) TogglePartnerGender(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	session.TogglePartnerGender()
	return controller.respond(c, session, http.StatusOK)
}

func (controller *ConsultationController) SetGenders(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.GenderSelectionIn
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := session.SetGenders(models.Gender(req.UserGender), models.Gender(req.PartnerGender)); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return controller.respond(c, session, http.StatusOK)
}

func (controller *ConsultationController) SelectSuggestion(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.SuggestionSelectionIn
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := session.SelectSuggestionIndex(*req.Index); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return controller.respond(c, session, http.StatusOK)
}

func (controller *ConsultationController) UserImage(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	img, ok := session.UserImage()
	if !ok {
		return localizedError(c, session, http.StatusNotFound, languageutil.MsgInvalidImage)
	}
	return c.Blob(http.StatusOK, img.MIMEType, img.Data)
}

func (controller *ConsultationController) PartnerImage(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "index must be a number")
	}
	img, ok := session.PartnerImage(index)
	if !ok {
		return localizedError(c, session, http.StatusNotFound, languageutil.MsgPartnerImageNotReady)
	}
	return c.Blob(http.StatusOK, img.MIMEType, img.Data)
}

// Composite renders the user and the selected partner look side by side.
// ?index= picks another generated suggestion.
func (controller *ConsultationController) Composite(c echo.Context) error {
	session, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	index := session.SelectedIndex()
	if raw := c.QueryParam("index"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "index must be a number")
		}
		index = parsed
	}

	userImg, ok := session.UserImage()
	if !ok {
		return localizedError(c, session, http.StatusNotFound, languageutil.MsgInvalidImage)
	}
	partnerImg, ok := session.PartnerImage(index)
	if !ok {
		return localizedError(c, session, http.StatusConflict, languageutil.MsgPartnerImageNotReady)
	}

	composite, err := services.ComposeCoupleLook(userImg, partnerImg)
	if err != nil {
		controller.Log.Error().Err(err).Str("session", session.ID()).Int("suggestion_index", index).Msg("failed to compose couple look")
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("session", session.ID())
			scope.SetTag("failure_type", "composite")
			sentry.CaptureException(err)
		})
		return localizedError(c, session, http.StatusInternalServerError, languageutil.MsgImageGenerationFailed)
	}
	return c.Blob(http.StatusOK, "image/png", composite)
}
