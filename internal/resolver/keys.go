package resolver

import (
	"strings"

	"github.com/ajitpratap0/erschema/internal/models"
)

// keyOptions maps each key group of n to column names. A named attribute
// contributes its name; an edge attribute contributes the foreign-key columns
// taken from the table on the other side of its relationship.
func (p *pass) keyOptions(n *models.Node, groups [][]string, links []link) ([][]string, error) {
	options := make([][]string, 0, len(groups))
	for _, group := range groups {
		var option []string
		for _, id := range group {
			attr, _ := n.Attribute(id)
			if attr.Name != "" {
				option = append(option, attr.Name)
				continue
			}
			if attr.RelationRef == "" {
				return nil, models.NewResolveError(models.ErrMalformedDocument, n.Name,
					"[%s] key attribute %q has neither a name nor a relation_id", n.Name, id)
			}
			l, ok := findLink(links, attr.ID)
			if !ok {
				return nil, invalidRelationship(n.Name, "[%s] key attribute %q is not linked to a relationship", n.Name, id)
			}
			ref := p.tables[l.other]
			for _, col := range ref.PrimaryKey {
				option = append(option, foreignKeyName(ref.Name, col))
			}
		}
		options = append(options, option)
	}
	return options, nil
}

// choosePrimaryKey auto-selects a single candidate key, fails when there is
// none, and pauses with a ChooseKey request when there are several.
func (p *pass) choosePrimaryKey(n *models.Node, options [][]string) ([]string, error) {
	switch len(options) {
	case 0:
		return nil, models.NewResolveError(models.ErrNoPrimaryKey, n.Name, "%s has no primary key", n.Name)
	case 1:
		return options[0], nil
	}
	display := make([]string, len(options))
	for i, o := range options {
		display[i] = formatKey(o)
	}
	p.logger.Debug("pausing for key choice", "table", n.Name, "options", len(options))
	return nil, &pause{request: models.NewChooseKey(n.Name, display)}
}

func findLink(links []link, attrID string) (link, bool) {
	for _, l := range links {
		if l.attr.ID == attrID {
			return l, true
		}
	}
	return link{}, false
}

// formatKey renders a key as "(a,b)".
func formatKey(cols []string) string {
	return "(" + strings.Join(cols, ",") + ")"
}

// foreignKeyName is the column name used for col of table when it is copied
// into another table.
func foreignKeyName(table, col string) string {
	return table + "_" + col
}
