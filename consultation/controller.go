// Package consultation owns the state of a single styling consultation and
// coordinates the asynchronous stylist calls that feed it.
//
// All mutations go through the Controller's transition methods. After every
// transition and every stylist resolution the controller re-checks its trigger
// predicates (normalize the user photo, generate the selected partner look) and
// starts at most one request per trigger. Every request carries the epoch it
// was issued in; results from an older epoch are dropped.
package consultation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"studioguideapi/languageutil"
	"studioguideapi/models"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

var (
	ErrAnalysisInFlight = errors.New("analysis already in flight")
	ErrAnalysisExists   = errors.New("analysis already available, reset or upload a new photo first")
	ErrIndexOutOfRange  = errors.New("suggestion index out of range")
	ErrInvalidGender    = errors.New("invalid gender")
)

// Stylist is the AI-backed side of a consultation.
// NormalizeBackground must always return an image, falling back to its input.
type Stylist interface {
	AnalyzeOutfit(ctx context.Context, image models.ImagePayload, userGender, partnerGender models.Gender, locale language.Tag) (*models.OutfitAnalysis, error)
	GeneratePartnerLook(ctx context.Context, prompt string) (*models.ImagePayload, error)
	NormalizeBackground(ctx context.Context, image models.ImagePayload) models.ImagePayload
}

type state struct {
	userImage        *models.ImagePayload
	normalizedImage  *models.ImagePayload
	userGender       models.Gender
	partnerGender    models.Gender
	isAnalyzing      bool
	isProcessingUser bool
	analysis         *models.OutfitAnalysis
	partnerImages    map[int]models.ImagePayload
	generating       map[int]bool
	failed           map[int]bool
	selectedIndex    int
	err              *string
	locale           language.Tag
	epoch            uint64
}

type Controller struct {
	id      string
	stylist Stylist
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   state
	pending int
	settled chan struct{}
}

func NewController(id string, stylist Stylist, logger zerolog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:      id,
		stylist: stylist,
		log:     logger.With().Str("session", id).Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.state = state{
		userGender:    models.Female,
		partnerGender: models.Male,
		locale:        languageutil.Supported[0],
	}
	c.clearConsultation()
	return c
}

func (c *Controller) ID() string {
	return c.id
}

// clearConsultation wipes everything tied to the current photo and moves to a
// new epoch so in-flight results from the old one are discarded.
func (c *Controller) clearConsultation() {
	c.state.epoch++
	c.state.userImage = nil
	c.state.normalizedImage = nil
	c.state.isAnalyzing = false
	c.state.isProcessingUser = false
	c.state.analysis = nil
	c.state.partnerImages = map[int]models.ImagePayload{}
	c.state.generating = map[int]bool{}
	c.state.failed = map[int]bool{}
	c.state.err = nil
}

// SelectImage replaces the user photo and clears the previous consultation.
// Bytes that are not an image are ignored and false is returned.
func (c *Controller) SelectImage(data []byte) bool {
	payload, err := models.NewImagePayload(data)
	if err != nil {
		c.log.Debug().Err(err).Msg("ignoring upload that is not an image")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	selected := c.state.selectedIndex
	c.clearConsultation()
	c.state.selectedIndex = selected
	c.state.userImage = payload
	c.log.Info().Str("mime", payload.MIMEType).Int("bytes", len(payload.Data)).Msg("user image selected")
	return true
}

// StartAnalysis asks the stylist for three partner outfits. It is a no-op when
// no photo has been selected.
func (c *Controller) StartAnalysis() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.userImage == nil {
		return nil
	}
	if c.state.isAnalyzing {
		return ErrAnalysisInFlight
	}
	if c.state.analysis != nil {
		return ErrAnalysisExists
	}

	c.state.isAnalyzing = true
	c.state.err = nil
	c.state.selectedIndex = 0

	epoch := c.state.epoch
	image := *c.state.userImage
	userGender, partnerGender, locale := c.state.userGender, c.state.partnerGender, c.state.locale
	c.log.Info().Str("user_gender", string(userGender)).Str("partner_gender", string(partnerGender)).Msg("analysis started")

	c.spawn(func(ctx context.Context) {
		analysis, err := c.stylist.AnalyzeOutfit(ctx, image, userGender, partnerGender, locale)
		c.resolveAnalysis(epoch, analysis, err)
	})
	return nil
}

// Reset starts over. Gender choices and locale survive.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearConsultation()
	c.state.selectedIndex = 0
	c.log.Info().Msg("consultation reset")
}

func (c *Controller) ToggleUserGender() models.Gender {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.userGender = models.ToggleUserGender(c.state.userGender)
	return c.state.userGender
}

func (c *Controller) TogglePartnerGender() models.Gender {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.partnerGender = models.TogglePartnerGender(c.state.partnerGender)
	return c.state.partnerGender
}

func (c *Controller) SetGenders(user, partner models.Gender) error {
	if !user.Valid() || !partner.Valid() {
		return ErrInvalidGender
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.userGender = user
	c.state.partnerGender = partner
	return nil
}

func (c *Controller) SetLocale(tag language.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.locale = tag
}

// SelectSuggestionIndex switches the shown suggestion and generates its partner
// look if it has not been generated yet.
func (c *Controller) SelectSuggestionIndex(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	limit := models.SuggestionCount
	if c.state.analysis != nil {
		limit = len(c.state.analysis.Suggestions)
	}
	if index < 0 || index >= limit {
		return ErrIndexOutOfRange
	}
	c.state.selectedIndex = index
	c.reconcile()
	return nil
}

// UserImage returns the normalized photo when available, otherwise the raw one.
func (c *Controller) UserImage() (*models.ImagePayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.normalizedImage != nil {
		return c.state.normalizedImage, true
	}
	if c.state.userImage != nil {
		return c.state.userImage, true
	}
	return nil, false
}

func (c *Controller) PartnerImage(index int) (*models.ImagePayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.state.partnerImages[index]
	if !ok {
		return nil, false
	}
	return &img, true
}

func (c *Controller) Locale() language.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.locale
}

func (c *Controller) SelectedIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.selectedIndex
}

func (c *Controller) Snapshot() models.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	snapshot := models.SessionSnapshot{
		SessionID:          c.id,
		Locale:             s.locale.String(),
		HasUserImage:       s.userImage != nil,
		HasNormalizedImage: s.normalizedImage != nil,
		UserGender:         s.userGender,
		PartnerGender:      s.partnerGender,
		IsAnalyzing:        s.isAnalyzing,
		IsProcessingUser:   s.isProcessingUser,
		Analysis:           s.analysis,
		GeneratedIndices:   sortedKeys(s.partnerImages),
		PendingIndices:     sortedKeys(s.generating),
		FailedIndices:      sortedKeys(s.failed),
		SelectedIndex:      s.selectedIndex,
	}
	if s.err != nil {
		msg := *s.err
		snapshot.Error = &msg
	}
	return snapshot
}

// Wait blocks until no stylist request is in flight or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.pending == 0 {
			c.mu.Unlock()
			return nil
		}
		settled := c.settled
		c.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels the context handed to in-flight stylist calls.
func (c *Controller) Close() {
	c.cancel()
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
