package cms

import (
	"errors"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
)

func newParser(t *testing.T) *WebhookParser {
	t.Helper()
	p, err := NewWebhookParser(expressions.NewEvaluator(), map[models.EntityType]string{models.EntityTypeBrand: "brand-contents"}, "")
	require.NoError(t, err)
	return p
}

func TestParse_PublishAndUnpublish(t *testing.T) {
	p := newParser(t)

	event, err := p.Parse([]byte(`{"event":"entry.publish","model":"product","entry":{"id":1,"medusa_id":"prod_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventEnrichmentPublished, event.Name)
	assert.Equal(t, models.EntityTypeProduct, event.EntityType)
	assert.Equal(t, "prod_1", event.EntityID)
	assert.Equal(t, "cms", event.Source)

	event, err = p.Parse([]byte(`{"event":"entry.unpublish","model":"categories","entry":{"medusa_id":"pcat_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventEnrichmentUnpublished, event.Name)
	assert.Equal(t, models.EntityTypeCategory, event.EntityType)
}

func TestParse_ConfiguredCollectionName(t *testing.T) {
	event, err := newParser(t).Parse([]byte(`{"event":"entry.publish","model":"brand-contents","entry":{"medusa_id":"brand_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EntityTypeBrand, event.EntityType)
}

func TestParse_UpdateOfPublishedEntry(t *testing.T) {
	p := newParser(t)

	event, err := p.Parse([]byte(`{"event":"entry.update","model":"brand","entry":{"medusa_id":"brand_1","publishedAt":"2024-01-01T00:00:00Z"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventEnrichmentPublished, event.Name)

	_, err = p.Parse([]byte(`{"event":"entry.update","model":"brand","entry":{"medusa_id":"brand_1","publishedAt":null}}`))
	assert.True(t, errors.Is(err, ErrIgnoredWebhook))
}

func TestParse_DeleteDegradesToUnpublished(t *testing.T) {
	event, err := newParser(t).Parse([]byte(`{"event":"entry.delete","model":"product","entry":{"medusa_id":"prod_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventEnrichmentUnpublished, event.Name)
}

func TestParse_Ignored(t *testing.T) {
	p := newParser(t)

	tests := map[string]string{
		"unmapped model": `{"event":"entry.publish","model":"article","entry":{"medusa_id":"x"}}`,
		"missing fk":     `{"event":"entry.publish","model":"product","entry":{"id":1}}`,
		"media event":    `{"event":"media.create","model":"product","entry":{"medusa_id":"x"}}`,
		"draft creation": `{"event":"entry.create","model":"product","entry":{"medusa_id":"x"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.Parse([]byte(body))
			assert.True(t, errors.Is(err, ErrIgnoredWebhook), "got %v", err)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	p := newParser(t)

	for _, body := range []string{`not json`, `{}`, `{"event":"entry.publish","model":"product"}`} {
		_, err := p.Parse([]byte(body))
		require.Error(t, err)
		assert.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	}
}

func TestParse_CustomForeignKey(t *testing.T) {
	p, err := NewWebhookParser(expressions.NewEvaluator(), nil, "entry.commerce.id")
	require.NoError(t, err)
	require.NoError(t, p.SetForeignKey(models.EntityTypeBrand, "entry.brand_ref"))

	event, err := p.Parse([]byte(`{"event":"entry.publish","model":"product","entry":{"commerce":{"id":"prod_2"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "prod_2", event.EntityID)

	event, err = p.Parse([]byte(`{"event":"entry.publish","model":"brand","entry":{"brand_ref":"brand_2"}}`))
	require.NoError(t, err)
	assert.Equal(t, "brand_2", event.EntityID)

	assert.Error(t, p.SetForeignKey(models.EntityTypeBrand, "entry.$bad"))
	_, err = NewWebhookParser(expressions.NewEvaluator(), nil, "entry.$bad")
	assert.Error(t, err)
}
