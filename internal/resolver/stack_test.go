package resolver

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/erschema/internal/models"
)

func TestNewPass_HostPrefersFoldedLink(t *testing.T) {
	// W and V are weak through R and R2. R was folded into O, while R2 was
	// merged into V itself and has no folded link anywhere.
	w := &models.Node{Kind: models.KindEntity, ID: "1", Name: "W", Attributes: []models.Attribute{
		{ID: "1", Name: "w"},
		{ID: "2", RelationRef: "1"},
	}, CandidateKeys: [][]string{{"1"}}}
	o := &models.Node{Kind: models.KindEntity, ID: "2", Name: "O", Attributes: []models.Attribute{
		{ID: "1", Name: "o"},
		{ID: "2", RelationRef: "1", Folded: true},
	}, CandidateKeys: [][]string{{"1"}}}
	v := &models.Node{Kind: models.KindEntity, ID: "3", Name: "V", Attributes: []models.Attribute{
		{ID: "1", Name: "v"},
		{ID: "2", RelationRef: "2"},
	}, CandidateKeys: [][]string{{"1"}}}
	r := &models.Node{Kind: models.KindRelationship, ID: "1", Name: "R", Checked: true, Merged: true,
		Attributes: []models.Attribute{{ID: "1", EntityRef: "1"}, {ID: "2", EntityRef: "2"}}}
	r2 := &models.Node{Kind: models.KindRelationship, ID: "2", Name: "R2", Checked: true, Merged: true,
		Attributes: []models.Attribute{{ID: "1", EntityRef: "3"}, {ID: "2", EntityRef: "2"}}}

	m := models.NewModel([]*models.Node{w, o, v}, []*models.Node{r, r2})
	cls, err := classify(m)
	require.NoError(t, err)

	p := newPass(m, cls, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	assert.Equal(t, o.Ref(), p.hosts["1"])
	assert.Equal(t, v.Ref(), p.hosts["2"])
}
