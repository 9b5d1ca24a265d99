package converter_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/erschema/internal/advisor"
	"github.com/ajitpratap0/erschema/internal/converter"
	"github.com/ajitpratap0/erschema/internal/metrics"
	"github.com/ajitpratap0/erschema/internal/models"
	"github.com/ajitpratap0/erschema/internal/resolver"
)

const diagram = `<er>
  <entity id="1" name="Person">
    <attribute id="1" name="pid"/>
    <attribute id="2" name="email"/>
    <key>1</key>
    <key>2</key>
  </entity>
  <entity id="2" name="Passport"><attribute id="1" name="number"/><key>1</key></entity>
  <relationship id="1" name="Holds">
    <attribute id="1" entity_id="1" min_participation="1" max_participation="1"/>
    <attribute id="2" entity_id="2"/>
  </relationship>
</er>`

func newConverter() *converter.Converter {
	return converter.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

// scriptedAdvisor answers with fixed decisions in order.
type scriptedAdvisor struct {
	decisions []models.Decision
	asked     []models.DecisionRequest
}

func (a *scriptedAdvisor) Decide(_ context.Context, _ []byte, req models.DecisionRequest) (models.Decision, error) {
	a.asked = append(a.asked, req)
	if len(a.decisions) == 0 {
		return models.Decision{}, errors.New("out of decisions")
	}
	d := a.decisions[0]
	a.decisions = a.decisions[1:]
	return d, nil
}

func TestConverter_ResolveAndDecide(t *testing.T) {
	c := newConverter()

	res, err := c.Resolve([]byte(diagram))
	require.NoError(t, err)
	require.Equal(t, resolver.StatusPaused, res.Status)
	assert.Equal(t, models.RequestChooseKey, res.Request.Kind)
	assert.Contains(t, res.Document, `<entity id="1" name="Person">`)

	res, err = c.Decide([]byte(res.Document), models.KeySelected("Person", 1))
	require.NoError(t, err)
	require.Equal(t, resolver.StatusPaused, res.Status)
	assert.Equal(t, models.NewChooseMerge("Holds", "Person"), *res.Request)
	assert.Contains(t, res.Document, "<uniqueKey>1</uniqueKey>")

	res, err = c.Decide([]byte(res.Document), models.MergeChosen("Holds", "Person", true))
	require.NoError(t, err)
	require.Equal(t, resolver.StatusDone, res.Status)
	assert.Equal(t, []string{"Passport", "Person"}, res.Schema.Names())
	assert.Equal(t, []string{"email"}, res.Schema.Table("Person").PrimaryKey)
}

func TestConverter_ResolveErrors(t *testing.T) {
	c := newConverter()

	_, err := c.Resolve([]byte("not xml <"))
	assert.True(t, errors.Is(err, models.ErrMalformedDocument))

	_, err = c.Resolve([]byte(`<er><entity id="1" name="E"/></er>`))
	assert.True(t, errors.Is(err, models.ErrNoPrimaryKey))

	_, err = c.Decide([]byte(diagram), models.KeySelected("Nobody", 0))
	assert.True(t, errors.Is(err, models.ErrInvalidDecision))
}

func TestConverter_RunWithDefaultAdvisor(t *testing.T) {
	res, err := newConverter().Run(context.Background(), []byte(diagram), advisor.DefaultAdvisor{}, 10)
	require.NoError(t, err)
	require.Equal(t, resolver.StatusDone, res.Status)
	assert.Equal(t, []models.Decision{
		models.KeySelected("Person", 0),
		models.MergeChosen("Holds", "Person", false),
	}, res.Decisions)
	assert.Equal(t, []string{"Person", "Passport", "Holds"}, res.Schema.Names())
	assert.Equal(t, []string{"pid"}, res.Schema.Table("Person").PrimaryKey)
}

func TestConverter_RunScripted(t *testing.T) {
	adv := &scriptedAdvisor{decisions: []models.Decision{
		models.KeySelected("Person", 1),
		models.MergeChosen("Holds", "Person", true),
	}}
	res, err := newConverter().Run(context.Background(), []byte(diagram), adv, 10)
	require.NoError(t, err)
	assert.Len(t, adv.asked, 2)
	assert.Nil(t, res.Schema.Table("Holds"))
}

func TestConverter_RunLimits(t *testing.T) {
	c := newConverter()

	_, err := c.Run(context.Background(), []byte(diagram), advisor.DefaultAdvisor{}, 1)
	assert.True(t, errors.Is(err, converter.ErrTooManyRounds))

	wrong := &scriptedAdvisor{decisions: []models.Decision{models.KeySelected("Passport", 0)}}
	_, err = c.Run(context.Background(), []byte(diagram), wrong, 10)
	assert.True(t, errors.Is(err, models.ErrInvalidDecision))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Run(ctx, []byte(diagram), advisor.DefaultAdvisor{}, 10)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConverter_Metrics(t *testing.T) {
	c := newConverter()
	total, paused, failed, applied := metrics.ResolveTotal.Value(), metrics.ResolvePaused.Value(),
		metrics.ResolveFailed.Value(), metrics.DecisionsApplied.Value()

	_, err := c.Run(context.Background(), []byte(diagram), advisor.DefaultAdvisor{}, 10)
	require.NoError(t, err)
	_, err = c.Resolve([]byte("<er"))
	require.Error(t, err)

	assert.Equal(t, total+3, metrics.ResolveTotal.Value())
	assert.Equal(t, paused+2, metrics.ResolvePaused.Value())
	assert.Equal(t, failed+1, metrics.ResolveFailed.Value())
	assert.Equal(t, applied+2, metrics.DecisionsApplied.Value())
}
