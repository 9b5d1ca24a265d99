package models

import "fmt"

// NodeKind distinguishes the two top-level node types of an ER diagram.
type NodeKind string

const (
	KindEntity       NodeKind = "entity"
	KindRelationship NodeKind = "relationship"
)

// IsValid returns true if the node kind is recognized.
func (k NodeKind) IsValid() bool {
	return k == KindEntity || k == KindRelationship
}

// Participation is a cardinality bound on a relationship endpoint.
type Participation string

const (
	ParticipationZero Participation = "0"
	ParticipationOne  Participation = "1"
	ParticipationMany Participation = "many"
)

// DefaultColumnType is used for attributes and foreign-key columns without an explicit type.
const DefaultColumnType = "string"

// NodeRef identifies a node by kind and id. Entities and relationships have
// separate id spaces, so the id alone is not enough.
type NodeRef struct {
	Kind NodeKind
	ID   string
}

// String returns "kind:id".
func (r NodeRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Attribute is a single attribute of an entity or relationship.
//
// A named attribute becomes a column. An attribute without a name is an edge:
// EntityRef points at an entity, RelationRef at a relationship. Folded marks
// an edge that was added when a relationship was merged into this node.
type Attribute struct {
	ID               string
	Name             string
	Type             string
	EntityRef        string
	RelationRef      string
	MinParticipation Participation
	MaxParticipation Participation
	Folded           bool
}

// IsEdge reports whether the attribute connects to another node.
func (a Attribute) IsEdge() bool {
	return a.EntityRef != "" || a.RelationRef != ""
}

// Target returns the node the edge points at. ok is false for plain attributes.
func (a Attribute) Target() (ref NodeRef, ok bool) {
	switch {
	case a.EntityRef != "":
		return NodeRef{Kind: KindEntity, ID: a.EntityRef}, true
	case a.RelationRef != "":
		return NodeRef{Kind: KindRelationship, ID: a.RelationRef}, true
	}
	return NodeRef{}, false
}

// IsTotal reports whether the endpoint has min=1 and max=1 participation.
func (a Attribute) IsTotal() bool {
	return a.MinParticipation == ParticipationOne && a.MaxParticipation == ParticipationOne
}

// ColumnType returns the declared type or DefaultColumnType.
func (a Attribute) ColumnType() string {
	if a.Type == "" {
		return DefaultColumnType
	}
	return a.Type
}

// Node is an entity or a relationship. Both share the same shape; for a
// relationship the non-folded edge attributes are its endpoints.
type Node struct {
	Kind          NodeKind
	ID            string
	Name          string
	Attributes    []Attribute
	CandidateKeys [][]string
	UniqueKeys    [][]string
	Checked       bool
	Merged        bool
}

// Ref returns the node's reference.
func (n *Node) Ref() NodeRef {
	return NodeRef{Kind: n.Kind, ID: n.ID}
}

// Attribute looks up an attribute by id.
func (n *Node) Attribute(id string) (Attribute, bool) {
	for i := range n.Attributes {
		if n.Attributes[i].ID == id {
			return n.Attributes[i], true
		}
	}
	return Attribute{}, false
}

// Links returns the attributes that carry a RelationRef, in document order.
func (n *Node) Links() []Attribute {
	var out []Attribute
	for i := range n.Attributes {
		if n.Attributes[i].RelationRef != "" {
			out = append(out, n.Attributes[i])
		}
	}
	return out
}

// Endpoints returns the non-folded edge attributes of a relationship.
func (n *Node) Endpoints() []Attribute {
	var out []Attribute
	for i := range n.Attributes {
		a := n.Attributes[i]
		if a.IsEdge() && !a.Folded {
			out = append(out, a)
		}
	}
	return out
}

// Model is the typed form of an ER document. Entities and Relationships keep
// document order.
type Model struct {
	Entities      []*Node
	Relationships []*Node

	entities      map[string]*Node
	relationships map[string]*Node
}

// NewModel indexes the given nodes by id.
func NewModel(entities, relationships []*Node) *Model {
	m := &Model{
		Entities:      entities,
		Relationships: relationships,
		entities:      make(map[string]*Node, len(entities)),
		relationships: make(map[string]*Node, len(relationships)),
	}
	for _, e := range entities {
		m.entities[e.ID] = e
	}
	for _, r := range relationships {
		m.relationships[r.ID] = r
	}
	return m
}

// Entity returns the entity with the given id.
func (m *Model) Entity(id string) (*Node, bool) {
	n, ok := m.entities[id]
	return n, ok
}

// Relationship returns the relationship with the given id.
func (m *Model) Relationship(id string) (*Node, bool) {
	n, ok := m.relationships[id]
	return n, ok
}

// Lookup resolves a NodeRef.
func (m *Model) Lookup(ref NodeRef) (*Node, bool) {
	switch ref.Kind {
	case KindEntity:
		return m.Entity(ref.ID)
	case KindRelationship:
		return m.Relationship(ref.ID)
	}
	return nil, false
}
