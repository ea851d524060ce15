package controllers

import (
	"embed"
	"html/template"
	"io"
	"net/http"
	"time"

	"studioguideapi/models"
	"studioguideapi/services"

	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

//go:embed templates
var embededFiles embed.FS

type ServerConfig struct {
	JWTSecret string
	// TokenTTL is how long a session token stays valid.
	TokenTTL time.Duration
	Logger   zerolog.Logger
}

func SetupServer(sessions services.SessionStoreProvider, cfg ServerConfig) *echo.Echo {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	e := echo.New()
	e.HideBanner = true
	templates := template.Must(template.ParseFS(embededFiles, "templates/*.html"))
	e.Renderer = &Template{templates: templates}

	v := validator.New()
	v.RegisterValidation("gender", models.ValidateGender)
	e.Validator = &CustomValidator{validator: v}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	pageController := PageController{}
	e.GET("/", pageController.Index)

	controller := ConsultationController{
		Sessions:  sessions,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Log:       cfg.Logger.With().Str("component", "http").Logger(),
	}
	controller.ConsultationRoutes(e.Group("/session"), echojwt.JWT([]byte(cfg.JWTSecret)), SessionMiddleware(sessions))

	return e
}
