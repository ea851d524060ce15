package consultation

import (
	"context"
	"fmt"
	"strconv"

	"studioguideapi/languageutil"
	"studioguideapi/models"

	"github.com/getsentry/sentry-go"
)

// spawn runs job in its own goroutine and counts it as pending until the job's
// resolution calls finish. Callers hold c.mu.
func (c *Controller) spawn(job func(ctx context.Context)) {
	if c.pending == 0 {
		c.settled = make(chan struct{})
	}
	c.pending++
	go job(c.ctx)
}

// finish marks one spawned job as done. Callers hold c.mu and must have run
// reconcile first so follow-up work is counted before pending can reach zero.
func (c *Controller) finish() {
	c.pending--
	if c.pending == 0 {
		close(c.settled)
	}
}

// reconcile starts whatever the current state calls for. Callers hold c.mu.
func (c *Controller) reconcile() {
	s := &c.state
	if s.analysis == nil {
		return
	}

	if s.userImage != nil && s.normalizedImage == nil && !s.isProcessingUser {
		s.isProcessingUser = true
		epoch := s.epoch
		image := *s.userImage
		c.log.Info().Msg("normalizing user photo background")
		c.spawn(func(ctx context.Context) {
			normalized := c.stylist.NormalizeBackground(ctx, image)
			c.resolveNormalization(epoch, normalized)
		})
	}

	index := s.selectedIndex
	if index < 0 || index >= len(s.analysis.Suggestions) {
		return
	}
	if _, cached := s.partnerImages[index]; cached || s.generating[index] || s.failed[index] {
		return
	}
	s.generating[index] = true
	epoch := s.epoch
	prompt := s.analysis.Suggestions[index].ImageGenerationPrompt
	c.log.Info().Int("suggestion_index", index).Msg("generating partner look")
	c.spawn(func(ctx context.Context) {
		img, err := c.stylist.GeneratePartnerLook(ctx, prompt)
		c.resolveGeneration(epoch, index, img, err)
	})
}

func (c *Controller) resolveAnalysis(epoch uint64, analysis *models.OutfitAnalysis, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.finish()

	if epoch != c.state.epoch {
		c.log.Debug().Msg("dropping analysis result from a previous consultation")
		return
	}
	c.state.isAnalyzing = false
	if err != nil || analysis == nil {
		if err == nil {
			err = fmt.Errorf("stylist returned no analysis")
		}
		c.log.Error().Err(err).Msg("analysis failed")
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("session", c.id)
			scope.SetTag("failure_type", "analysis")
			sentry.CaptureException(err)
		})
		msg := languageutil.Message(c.state.locale, languageutil.MsgAnalysisFailed)
		c.state.err = &msg
		c.state.analysis = nil
		return
	}
	c.state.analysis = analysis
	c.log.Info().Int("suggestions", len(analysis.Suggestions)).Msg("analysis completed")
	c.reconcile()
}

func (c *Controller) resolveNormalization(epoch uint64, normalized models.ImagePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.finish()

	if epoch != c.state.epoch {
		c.log.Debug().Msg("dropping normalized photo from a previous consultation")
		return
	}
	c.state.isProcessingUser = false
	if len(normalized.Data) == 0 && c.state.userImage != nil {
		normalized = *c.state.userImage
	}
	c.state.normalizedImage = &normalized
	c.reconcile()
}

func (c *Controller) resolveGeneration(epoch uint64, index int, img *models.ImagePayload, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.finish()

	if epoch != c.state.epoch {
		c.log.Debug().Int("suggestion_index", index).Msg("dropping partner look from a previous consultation")
		return
	}
	delete(c.state.generating, index)
	if err != nil || img == nil {
		if err == nil {
			err = fmt.Errorf("stylist returned no image")
		}
		c.state.failed[index] = true
		c.log.Error().Err(err).Int("suggestion_index", index).Msg("partner look generation failed")
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("session", c.id)
			scope.SetTag("failure_type", "partner_image")
			scope.SetTag("suggestion_index", strconv.Itoa(index))
			sentry.CaptureException(err)
		})
		c.reconcile()
		return
	}
	if _, exists := c.state.partnerImages[index]; !exists {
		c.state.partnerImages[index] = *img
	}
	c.reconcile()
}
