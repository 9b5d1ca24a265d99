package resolver

import (
	"log/slog"
	"slices"

	"github.com/ajitpratap0/erschema/internal/models"
)

// pass holds the working set of a single resolution run.
type pass struct {
	model  *models.Model
	cls    *classification
	logger *slog.Logger

	// hosts maps a merged relationship id to the node that absorbed it.
	hosts  map[string]models.NodeRef
	tables map[models.NodeRef]*models.Table
	order  []*models.Table
}

func newPass(m *models.Model, cls *classification, logger *slog.Logger) *pass {
	p := &pass{
		model:  m,
		cls:    cls,
		logger: logger,
		hosts:  make(map[string]models.NodeRef),
		tables: make(map[models.NodeRef]*models.Table),
	}
	// A folded link marks the node that absorbed the relationship. Other links
	// are used only for relationships nobody received, such as an identifying
	// relationship merged into its own weak entity.
	fallback := make(map[string]models.NodeRef)
	for _, e := range m.Entities {
		for _, a := range e.Links() {
			if a.Folded {
				p.addHost(a.RelationRef, e.Ref())
			} else if _, ok := fallback[a.RelationRef]; !ok {
				fallback[a.RelationRef] = e.Ref()
			}
		}
	}
	for _, r := range m.Relationships {
		for _, a := range r.Links() {
			if a.Folded && a.RelationRef != r.ID {
				p.addHost(a.RelationRef, r.Ref())
			}
		}
	}
	for id, ref := range fallback {
		p.addHost(id, ref)
	}
	return p
}

func (p *pass) addHost(relID string, ref models.NodeRef) {
	if _, ok := p.hosts[relID]; !ok {
		p.hosts[relID] = ref
	}
}

// link is an attribute pointing at a relationship, together with the node on
// the other side of that relationship.
type link struct {
	attr        models.Attribute
	rel         *models.Node
	endpoint    models.Attribute
	other       models.NodeRef
	identifying bool
}

// links returns the relation links of n: every relation_id attribute of an
// entity, or the folded ones of a relationship (the others are endpoints).
func (p *pass) links(n *models.Node) ([]link, error) {
	var out []link
	for _, a := range n.Links() {
		if n.Kind == models.KindRelationship && !a.Folded {
			continue
		}
		rel, ok := p.model.Relationship(a.RelationRef)
		if !ok {
			return nil, invalidRelationship(n.Name, "%s refers to unknown relationship id %q", n.Name, a.RelationRef)
		}
		identifying := n.Kind == models.KindEntity && p.cls.isIdentifying(n.ID, a)
		ep, err := p.otherEndpoint(rel, n, identifying)
		if err != nil {
			return nil, err
		}
		ref, _ := ep.Target()
		other, err := p.target(rel, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, link{attr: a, rel: rel, endpoint: ep, other: other, identifying: identifying})
	}
	return out, nil
}

// endpoints returns the two endpoints of rel or an InvalidRelationship error.
func (p *pass) endpoints(rel *models.Node) ([]models.Attribute, error) {
	eps := rel.Endpoints()
	if len(eps) != 2 {
		return nil, invalidRelationship(rel.Name,
			"relationship %s must connect exactly two entities or relationships, found %d", rel.Name, len(eps))
	}
	return eps, nil
}

// otherEndpoint returns the endpoint of rel that does not point at self. A
// recursive relationship folded into its only endpoint yields self again.
func (p *pass) otherEndpoint(rel, self *models.Node, identifying bool) (models.Attribute, error) {
	eps, err := p.endpoints(rel)
	if err != nil {
		return models.Attribute{}, err
	}
	var other, same *models.Attribute
	for i := range eps {
		ref, _ := eps[i].Target()
		if ref == self.Ref() {
			if same == nil {
				same = &eps[i]
			}
			continue
		}
		if other == nil {
			other = &eps[i]
		}
	}
	if identifying && same == nil {
		return models.Attribute{}, invalidRelationship(rel.Name,
			"identifying relationship %s of %s does not connect to %s", rel.Name, self.Name, self.Name)
	}
	if other == nil && same != nil && !identifying {
		return *same, nil
	}
	if other == nil {
		return models.Attribute{}, invalidRelationship(rel.Name,
			"relationship %s does not connect %s to another entity or relationship", rel.Name, self.Name)
	}
	return *other, nil
}

// target checks that ref exists and redirects merged relationships to the
// node they were folded into.
func (p *pass) target(from *models.Node, ref models.NodeRef) (models.NodeRef, error) {
	switch ref.Kind {
	case models.KindEntity:
		if _, ok := p.model.Entity(ref.ID); !ok {
			return models.NodeRef{}, invalidRelationship(from.Name, "%s refers to unknown entity id %q", from.Name, ref.ID)
		}
	case models.KindRelationship:
		rel, ok := p.model.Relationship(ref.ID)
		if !ok {
			return models.NodeRef{}, invalidRelationship(from.Name, "%s refers to unknown relationship id %q", from.Name, ref.ID)
		}
		if rel.Merged {
			host, ok := p.hosts[rel.ID]
			if !ok {
				return models.NodeRef{}, invalidRelationship(from.Name,
					"%s refers to merged relationship %s, which was not folded into any node", from.Name, rel.Name)
			}
			return host, nil
		}
	}
	return ref, nil
}

// dependencies lists the nodes whose tables must exist before n's table can
// be built, in attribute order.
func (p *pass) dependencies(n *models.Node) ([]models.NodeRef, error) {
	var deps []models.NodeRef
	if n.Kind == models.KindRelationship {
		eps, err := p.endpoints(n)
		if err != nil {
			return nil, err
		}
		for _, ep := range eps {
			ref, _ := ep.Target()
			t, err := p.target(n, ref)
			if err != nil {
				return nil, err
			}
			deps = append(deps, t)
		}
	}
	links, err := p.links(n)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if l.other == n.Ref() {
			continue
		}
		deps = append(deps, l.other)
	}
	return deps, nil
}

// dependsOn reports whether from needs to, directly or through other nodes.
// A lookup error counts as a dependency.
func (p *pass) dependsOn(from, to models.NodeRef) bool {
	seen := make(map[models.NodeRef]bool)
	stack := []models.NodeRef{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		n, ok := p.model.Lookup(cur)
		if !ok {
			continue
		}
		deps, err := p.dependencies(n)
		if err != nil {
			return true
		}
		stack = append(stack, deps...)
	}
	return false
}

func (p *pass) resolved(ref models.NodeRef) bool {
	_, ok := p.tables[ref]
	return ok
}

// pending returns the first dependency of n that has no table yet.
func (p *pass) pending(n *models.Node) (models.NodeRef, bool, error) {
	deps, err := p.dependencies(n)
	if err != nil {
		return models.NodeRef{}, false, err
	}
	for _, d := range deps {
		if !p.resolved(d) {
			return d, true, nil
		}
	}
	return models.NodeRef{}, false, nil
}

// resolveFrom builds the table of seed and, first, of everything it depends
// on. The traversal uses an explicit stack so chain length does not grow the
// call depth: a node whose dependency is missing is pushed back with the
// dependency on top of it.
func (p *pass) resolveFrom(seed *models.Node) error {
	if p.resolved(seed.Ref()) {
		return nil
	}
	stack := []models.NodeRef{seed.Ref()}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.resolved(cur) {
			continue
		}
		node, _ := p.model.Lookup(cur)

		dep, ok, err := p.pending(node)
		if err != nil {
			return err
		}
		if !ok {
			if err := p.build(node); err != nil {
				return err
			}
			continue
		}

		if dep == cur || slices.Contains(stack, dep) {
			depNode, _ := p.model.Lookup(dep)
			return models.NewResolveError(models.ErrCircularDependency, depNode.Name,
				"circular reference detected: %s depends on %s, which is already waiting", node.Name, depNode.Name)
		}
		p.logger.Debug("deferring node until dependency resolves", "node", node.Name, "dependency", dep.String())
		stack = append(stack, cur, dep)
	}
	return nil
}

func invalidRelationship(node, format string, args ...any) error {
	return models.NewResolveError(models.ErrInvalidRelationship, node, format, args...)
}
