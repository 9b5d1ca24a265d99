package resolver

import "github.com/ajitpratap0/erschema/internal/models"

// classification partitions entities into strong and weak. identifying maps a
// weak entity id to the attribute that links it to its identifying relationship.
type classification struct {
	strong      []*models.Node
	weak        []*models.Node
	identifying map[string]models.Attribute
}

// classify marks an entity weak when exactly one of its non-folded attributes
// carries a relation_id. Folded links come from merge decisions and do not
// change the entity's identity.
func classify(m *models.Model) (*classification, error) {
	c := &classification{identifying: make(map[string]models.Attribute)}
	for _, e := range m.Entities {
		var link *models.Attribute
		for i := range e.Attributes {
			a := e.Attributes[i]
			if a.RelationRef == "" || a.Folded {
				continue
			}
			if link != nil {
				return nil, models.NewResolveError(models.ErrMalformedDocument, e.Name,
					"entity %s has more than one identifying relation_id attribute", e.Name)
			}
			link = &a
		}
		if link == nil {
			c.strong = append(c.strong, e)
			continue
		}
		c.weak = append(c.weak, e)
		c.identifying[e.ID] = *link
	}
	return c, nil
}

// isIdentifying reports whether attr is the identifying link of the entity.
func (c *classification) isIdentifying(entityID string, attr models.Attribute) bool {
	link, ok := c.identifying[entityID]
	return ok && link.ID == attr.ID
}
