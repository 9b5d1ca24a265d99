package resolver

import (
	"fmt"
	"slices"

	"github.com/ajitpratap0/erschema/internal/models"
)

func (p *pass) build(n *models.Node) error {
	if n.Kind == models.KindEntity {
		return p.buildEntity(n)
	}
	return p.buildRelationship(n)
}

// buildEntity turns an entity into a table. The primary key is the chosen
// candidate key; for a weak entity the owner's key columns are appended.
func (p *pass) buildEntity(n *models.Node) error {
	links, err := p.links(n)
	if err != nil {
		return err
	}
	options, err := p.keyOptions(n, n.CandidateKeys, links)
	if err != nil {
		return err
	}
	chosen, err := p.choosePrimaryKey(n, options)
	if err != nil {
		return err
	}
	unique, err := p.keyOptions(n, n.UniqueKeys, links)
	if err != nil {
		return err
	}

	t := &models.Table{Name: n.Name, Unique: unique}
	for _, a := range n.Attributes {
		if a.Name != "" && !a.IsEdge() {
			t.AddColumn(models.Column{Name: a.Name, Type: a.ColumnType()})
		}
	}

	pk := slices.Clone(chosen)
	var self []link
	for _, l := range links {
		if l.other == n.Ref() {
			self = append(self, l)
			continue
		}
		ref := p.tables[l.other]
		for _, col := range ref.PrimaryKey {
			name := foreignKeyName(ref.Name, col)
			t.AddColumn(models.Column{
				Name:       name,
				Type:       referencedType(ref, col, ""),
				References: map[string]string{ref.Name: col},
			})
			if l.identifying && !slices.Contains(pk, name) {
				pk = append(pk, name)
			}
		}
		foldRelationship(t, l.rel)
	}
	for _, l := range self {
		addSelfReference(t, pk, l)
	}
	t.PrimaryKey = pk

	p.register(n, t)
	return nil
}

// buildRelationship turns a relationship into a table whose primary key is
// the concatenation of both endpoints' keys.
func (p *pass) buildRelationship(n *models.Node) error {
	eps, err := p.endpoints(n)
	if err != nil {
		return err
	}
	refs := make([]models.NodeRef, len(eps))
	targets := make([]*models.Table, len(eps))
	for i, ep := range eps {
		ref, _ := ep.Target()
		dep, err := p.target(n, ref)
		if err != nil {
			return err
		}
		refs[i] = dep
		targets[i] = p.tables[dep]
	}
	if err := p.mergeCandidate(n, eps, refs, targets); err != nil {
		return err
	}

	t := &models.Table{Name: n.Name, Unique: [][]string{}}
	var pk []string
	next := 0
	for _, a := range n.Attributes {
		switch {
		case a.IsEdge() && !a.Folded:
			ref := targets[next]
			next++
			for _, col := range ref.PrimaryKey {
				name := freeColumnName(t, foreignKeyName(ref.Name, col))
				t.AddColumn(models.Column{
					Name:       name,
					Type:       referencedType(ref, col, a.Type),
					References: map[string]string{ref.Name: col},
				})
				pk = append(pk, name)
			}
		case a.Name != "" && !a.IsEdge():
			t.AddColumn(models.Column{Name: a.Name, Type: a.ColumnType()})
		}
	}

	links, err := p.links(n)
	if err != nil {
		return err
	}
	for _, l := range links {
		if l.other == n.Ref() {
			addSelfReference(t, pk, l)
			continue
		}
		ref := p.tables[l.other]
		for _, col := range ref.PrimaryKey {
			t.AddColumn(models.Column{
				Name:       foreignKeyName(ref.Name, col),
				Type:       referencedType(ref, col, ""),
				References: map[string]string{ref.Name: col},
			})
		}
		foldRelationship(t, l.rel)
	}
	t.PrimaryKey = pk

	p.register(n, t)
	return nil
}

func (p *pass) register(n *models.Node, t *models.Table) {
	p.tables[n.Ref()] = t
	p.order = append(p.order, t)
	p.logger.Debug("table resolved", "table", t.Name, "kind", n.Kind, "primary_key", t.PrimaryKey)
}

// referencedType picks the declared endpoint type, then the referenced
// column's type, then the default.
func referencedType(ref *models.Table, col, declared string) string {
	if declared != "" {
		return declared
	}
	if c, ok := ref.Column(col); ok && c.Type != "" {
		return c.Type
	}
	return models.DefaultColumnType
}

// freeColumnName returns base, or base_2, base_3, ... when base is taken.
// Recursive relationships reference the same table twice.
func freeColumnName(t *models.Table, base string) string {
	if !t.HasColumn(base) {
		return base
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if !t.HasColumn(name) {
			return name
		}
	}
}
