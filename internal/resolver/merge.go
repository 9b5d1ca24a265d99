package resolver

import "github.com/ajitpratap0/erschema/internal/models"

// pause carries a DecisionRequest out of the traversal. It is never returned
// to callers as an error.
type pause struct {
	request models.DecisionRequest
}

func (p *pause) Error() string {
	return "resolution paused: " + p.request.String()
}

// mergeCandidate returns a ChooseMerge pause for the first endpoint of rel with
// total participation, unless the relationship has already been checked.
// refs are the resolved endpoint nodes. An endpoint is skipped when the node
// on the other side already depends on it: folding would close a cycle.
func (p *pass) mergeCandidate(rel *models.Node, eps []models.Attribute, refs []models.NodeRef, targets []*models.Table) error {
	if rel.Checked {
		return nil
	}
	for i, ep := range eps {
		if !ep.IsTotal() {
			continue
		}
		other := refs[len(refs)-1-i]
		if other != refs[i] && p.dependsOn(other, refs[i]) {
			p.logger.Debug("merge not offered, target is a dependency of the other endpoint",
				"relationship", rel.Name, "target", targets[i].Name)
			continue
		}
		p.logger.Debug("pausing for merge choice", "relationship", rel.Name, "target", targets[i].Name)
		return &pause{request: models.NewChooseMerge(rel.Name, targets[i].Name)}
	}
	return nil
}

// addSelfReference adds the columns of a recursive relationship folded into
// its own endpoint: t references its own primary key pk.
func addSelfReference(t *models.Table, pk []string, l link) {
	for _, col := range pk {
		t.AddColumn(models.Column{
			Name:       freeColumnName(t, foreignKeyName(t.Name, col)),
			Type:       referencedType(t, col, l.endpoint.Type),
			References: map[string]string{t.Name: col},
		})
	}
	foldRelationship(t, l.rel)
}

// foldRelationship copies the named attributes of a merged relationship into t.
func foldRelationship(t *models.Table, rel *models.Node) {
	if !rel.Merged {
		return
	}
	for _, a := range rel.Attributes {
		if a.Name == "" || a.IsEdge() {
			continue
		}
		t.AddColumn(models.Column{Name: a.Name, Type: a.ColumnType()})
	}
}
