package document

import (
	"strings"

	"github.com/ajitpratap0/erschema/internal/models"
)

// Load validates the document structure and builds the typed model.
func Load(d *Document) (*models.Model, error) {
	var entities, relationships []*models.Node
	entityIDs := make(map[string]bool)
	relationIDs := make(map[string]bool)
	names := make(map[string]models.NodeKind)

	for _, el := range d.Nodes() {
		kind := models.NodeKind(el.Tag())
		if !kind.IsValid() {
			return nil, malformed("", "invalid object type [%s]: only entity and relationship nodes are allowed", el.Tag())
		}

		node, err := loadNode(kind, el)
		if err != nil {
			return nil, err
		}

		ids := entityIDs
		if kind == models.KindRelationship {
			ids = relationIDs
		}
		if ids[node.ID] {
			return nil, malformed(node.Name, "duplicate %s id %q", kind, node.ID)
		}
		ids[node.ID] = true

		if prev, dup := names[node.Name]; dup {
			return nil, malformed(node.Name, "name %q is used by another %s", node.Name, prev)
		}
		names[node.Name] = kind

		if kind == models.KindEntity {
			entities = append(entities, node)
		} else {
			relationships = append(relationships, node)
		}
	}

	return models.NewModel(entities, relationships), nil
}

func loadNode(kind models.NodeKind, el *Element) (*models.Node, error) {
	id, _ := el.Attr(AttrID)
	name, _ := el.Attr(AttrName)
	if id == "" {
		return nil, malformed(name, "%s %q has no id", kind, name)
	}
	if name == "" {
		return nil, malformed(id, "%s with id %q has no name", kind, id)
	}

	node := &models.Node{
		Kind:    kind,
		ID:      id,
		Name:    name,
		Checked: parseFlag(el.AttrOr(AttrChecked, "0")),
		Merged:  parseFlag(el.AttrOr(AttrMerged, "0")),
	}

	seen := make(map[string]bool)
	for _, child := range el.Children {
		switch child.Tag() {
		case TagAttribute:
			attr, err := loadAttribute(node.Name, child)
			if err != nil {
				return nil, err
			}
			if seen[attr.ID] {
				return nil, malformed(node.Name, "[%s] has duplicate attribute id %q", node.Name, attr.ID)
			}
			seen[attr.ID] = true
			node.Attributes = append(node.Attributes, attr)
		case TagKey:
			node.CandidateKeys = append(node.CandidateKeys, splitKey(child.Text))
		case TagUniqueKey:
			node.UniqueKeys = append(node.UniqueKeys, splitKey(child.Text))
		default:
			return nil, malformed(node.Name, "[%s] has invalid tag %s", node.Name, child.Tag())
		}
	}

	for _, group := range append(append([][]string{}, node.CandidateKeys...), node.UniqueKeys...) {
		if len(group) == 0 {
			return nil, malformed(node.Name, "[%s] has an empty key", node.Name)
		}
		for _, attrID := range group {
			if !seen[attrID] {
				return nil, malformed(node.Name, "[%s] key refers to unknown attribute id %q", node.Name, attrID)
			}
		}
	}

	return node, nil
}

func loadAttribute(owner string, el *Element) (models.Attribute, error) {
	id, _ := el.Attr(AttrID)
	if id == "" {
		return models.Attribute{}, malformed(owner, "[%s] has an attribute without id", owner)
	}
	a := models.Attribute{
		ID:               id,
		Name:             el.AttrOr(AttrName, ""),
		Type:             el.AttrOr(AttrType, ""),
		EntityRef:        el.AttrOr(AttrEntityID, ""),
		RelationRef:      el.AttrOr(AttrRelation, ""),
		MinParticipation: parseParticipation(el.AttrOr(AttrMin, "")),
		MaxParticipation: parseParticipation(el.AttrOr(AttrMax, "")),
		Folded:           parseFlag(el.AttrOr(AttrFolded, "0")),
	}
	if a.EntityRef != "" && a.RelationRef != "" {
		return models.Attribute{}, malformed(owner, "[%s] attribute %q has both entity_id and relation_id", owner, id)
	}
	return a, nil
}

// splitKey turns "1, 2,3" into ["1" "2" "3"].
func splitKey(text string) []string {
	var ids []string
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func parseParticipation(v string) models.Participation {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return ""
	case "0":
		return models.ParticipationZero
	case "1":
		return models.ParticipationOne
	case "n", "m", "*", "many":
		return models.ParticipationMany
	}
	return models.Participation(v)
}

func malformed(node, format string, args ...any) error {
	return models.NewResolveError(models.ErrMalformedDocument, node, format, args...)
}
