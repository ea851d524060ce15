package controllers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studioguideapi/consultation"
	"studioguideapi/models"
	"studioguideapi/services"
	"studioguideapi/test"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupTestServer(t *testing.T) (*echo.Echo, *test.StylistMock) {
	stylist := test.NewStylistMock()
	sessions, err := services.NewSessionStore(stylist, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	e := SetupServer(sessions, ServerConfig{JWTSecret: testSecret, Logger: zerolog.Nop()})
	return e, stylist
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) models.SessionSnapshot {
	var snapshot models.SessionSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot), rec.Body.String())
	return snapshot
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	payload := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload["error"]
}

func createSession(t *testing.T, e *echo.Echo, target string) models.SessionCreatedOut {
	rec := serve(e, test.NewJSONRequest(http.MethodPost, target, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.SessionCreatedOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)
	return created
}

func userPNG() []byte {
	return test.FakePNG(30, 40, color.RGBA{R: 120, G: 90, B: 60, A: 255})
}

// analyzedSession uploads a photo and runs the analysis to completion.
func analyzedSession(t *testing.T, e *echo.Echo) string {
	token := createSession(t, e, "/session").Token

	rec := serve(e, test.NewImageUploadRequest("/session/image", token, "image", "me.png", userPNG()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/analysis?wait=true", token, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return token
}

func TestCreateSessionOk(t *testing.T) {
	e, _ := setupTestServer(t)

	created := createSession(t, e, "/session")
	assert.NotEmpty(t, created.Session.SessionID)
	assert.Equal(t, "zh-Hant", created.Session.Locale)
	assert.Equal(t, models.Female, created.Session.UserGender)
	assert.Equal(t, models.Male, created.Session.PartnerGender)
	assert.False(t, created.Session.HasUserImage)
	assert.Nil(t, created.Session.Analysis)

	english := createSession(t, e, "/session?lang=en")
	assert.Equal(t, "en", english.Session.Locale)

	rec := serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session", created.Token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Session.SessionID, decodeSnapshot(t, rec).SessionID)
}

func TestSessionAuth(t *testing.T) {
	e, _ := setupTestServer(t)

	forged, err := GenerateSessionToken("anything", "other-secret", time.Hour)
	require.NoError(t, err)
	rec := serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session", forged, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := GenerateSessionToken("anything", testSecret, -time.Minute)
	require.NoError(t, err)
	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session", expired, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	unknown, err := GenerateSessionToken("no-such-session", testSecret, time.Hour)
	require.NoError(t, err)
	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session?lang=en", unknown, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "This consultation has expired, please start again.", decodeError(t, rec))
}

func TestUploadImage(t *testing.T) {
	e, _ := setupTestServer(t)
	token := createSession(t, e, "/session").Token

	rec := serve(e, test.NewImageUploadRequest("/session/image", token, "image", "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "請上載 JPG/PNG 照片。", decodeError(t, rec))

	rec = serve(e, test.NewImageUploadRequest("/session/image", token, "photo", "me.png", userPNG()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/images/user", token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, test.NewImageUploadRequest("/session/image", token, "image", "me.png", userPNG()))
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decodeSnapshot(t, rec)
	assert.True(t, snapshot.HasUserImage)
	assert.False(t, snapshot.HasNormalizedImage)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/images/user", token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, userPNG(), rec.Body.Bytes())
}

func TestAnalysisFlow(t *testing.T) {
	e, stylist := setupTestServer(t)
	token := analyzedSession(t, e)

	rec := serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session", token, nil))
	snapshot := decodeSnapshot(t, rec)
	require.NotNil(t, snapshot.Analysis)
	assert.Len(t, snapshot.Analysis.Suggestions, models.SuggestionCount)
	assert.Equal(t, 0, snapshot.SelectedIndex)
	assert.Equal(t, []int{0}, snapshot.GeneratedIndices)
	assert.Empty(t, snapshot.PendingIndices)
	assert.True(t, snapshot.HasNormalizedImage)
	assert.Nil(t, snapshot.Error)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/analysis", token, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "已有搭配建議，請重新諮詢。", decodeError(t, rec))

	// the normalized photo replaces the upload
	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/images/user", token, nil))
	assert.Equal(t, test.FakePNG(30, 40, color.White), rec.Body.Bytes())

	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/images/partner/0", token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/images/partner/1", token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/images/partner/first", token, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/selection?wait=true", token, map[string]int{"index": 1}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snapshot = decodeSnapshot(t, rec)
	assert.Equal(t, 1, snapshot.SelectedIndex)
	assert.Equal(t, []int{0, 1}, snapshot.GeneratedIndices)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/selection?wait=true", token, map[string]int{"index": 0}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, stylist.TotalGenerateCalls())
	analyze, normalize := stylist.Counts()
	assert.Equal(t, 1, analyze)
	assert.Equal(t, 1, normalize)
}

func TestAnalysisFailure(t *testing.T) {
	e, stylist := setupTestServer(t)
	stylist.AnalysisErr = services.ErrAnalysisFailed
	token := createSession(t, e, "/session?lang=en").Token

	rec := serve(e, test.NewImageUploadRequest("/session/image", token, "image", "me.png", userPNG()))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/analysis?wait=true", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decodeSnapshot(t, rec)
	assert.Nil(t, snapshot.Analysis)
	assert.False(t, snapshot.IsAnalyzing)
	require.NotNil(t, snapshot.Error)
	assert.Equal(t, "Analysis failed, please try again.", *snapshot.Error)
}

func TestSelectSuggestionValidation(t *testing.T) {
	e, _ := setupTestServer(t)
	token := analyzedSession(t, e)

	for _, body := range []interface{}{nil, map[string]int{"index": 3}, map[string]int{"index": -1}, map[string]string{"index": "two"}} {
		rec := serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/selection", token, body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, test.JsonString(body))
	}

	// the upper bound comes from the analysis, not the request schema
	rec := serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/selection", token, map[string]int{"index": models.SuggestionCount}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, consultation.ErrIndexOutOfRange.Error(), decodeError(t, rec))

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/selection", token, map[string]int{"index": models.SuggestionCount - 1}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenders(t *testing.T) {
	e, _ := setupTestServer(t)
	token := createSession(t, e, "/session").Token

	rec := serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/gender/user/toggle", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Male, decodeSnapshot(t, rec).UserGender)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/gender/partner/toggle", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Female, decodeSnapshot(t, rec).PartnerGender)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPut, "/session/gender", token, models.GenderSelectionIn{UserGender: "male", PartnerGender: "robot"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "PartnerGender")

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPut, "/session/gender", token, models.GenderSelectionIn{UserGender: "non_binary", PartnerGender: "female"}))
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decodeSnapshot(t, rec)
	assert.Equal(t, models.NonBinary, snapshot.UserGender)
	assert.Equal(t, models.Female, snapshot.PartnerGender)
}

func TestComposite(t *testing.T) {
	e, _ := setupTestServer(t)
	token := analyzedSession(t, e)

	rec := serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/composite", token, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	img, err := imaging.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1664, 1120), img.Bounds())

	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/composite?index=2", token, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "伴侶造型圖片生成中。", decodeError(t, rec))

	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session/composite?index=last", token, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetAndDelete(t *testing.T) {
	e, _ := setupTestServer(t)
	token := analyzedSession(t, e)

	rec := serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/gender/partner/toggle", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodPost, "/session/reset", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decodeSnapshot(t, rec)
	assert.False(t, snapshot.HasUserImage)
	assert.Nil(t, snapshot.Analysis)
	assert.Empty(t, snapshot.GeneratedIndices)
	assert.Equal(t, models.Female, snapshot.PartnerGender)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodDelete, "/session", token, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(e, test.NewJSONAuthRequest(http.MethodGet, "/session", token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "諮詢已過期，請重新開始。", decodeError(t, rec))
}

func TestIndexPage(t *testing.T) {
	e, _ := setupTestServer(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<header>")
	assert.Contains(t, body, "影樓情侶造型顧問")
	assert.Contains(t, body, "同色系和諧風")
	assert.NotContains(t, body, "setHeight")
	assert.NotContains(t, body, "frameHeight")

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/?embed=true&lang=en", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.NotContains(t, body, "<header>")
	assert.Contains(t, body, "setHeight")
	assert.Contains(t, body, "frameHeight")
	assert.Contains(t, body, "Studio Couple Look")
	assert.Contains(t, body, "Tone-on-Tone")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	rec = serve(e, req)
	assert.Contains(t, rec.Body.String(), `<html lang="en">`)
}
