package document

import (
	"strconv"

	"github.com/ajitpratap0/erschema/internal/models"
)

// ApplyDecision returns a copy of d annotated with dec. d itself is not modified.
//
// KeySelected demotes every other key of the table to a uniqueKey.
// MergeChosen marks the relationship checked, and on acceptance also merged
// with a folded relation_id attribute added to the target node.
func ApplyDecision(d *Document, dec models.Decision) (*Document, error) {
	if err := dec.Validate(); err != nil {
		return nil, err
	}
	out := d.Clone()
	var err error
	switch dec.Kind {
	case models.DecisionKeySelected:
		err = selectKey(out, dec.TableName, dec.Index)
	case models.DecisionMergeChosen:
		err = chooseMerge(out, dec.MergeFrom, dec.MergeTo, dec.MergeIntoTarget)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func selectKey(d *Document, table string, index int) error {
	node := d.FindNode(TagEntity, table)
	if node == nil {
		return invalidDecision(table, "no entity named %q", table)
	}
	keys := node.ChildrenByTag(TagKey)
	if index >= len(keys) {
		return invalidDecision(table, "key index %d out of range for %s (%d keys)", index, table, len(keys))
	}
	for i, k := range keys {
		if i != index {
			k.XMLName.Local = TagUniqueKey
		}
	}
	return nil
}

func chooseMerge(d *Document, from, to string, into bool) error {
	rel := d.FindNode(TagRelationship, from)
	if rel == nil {
		return invalidDecision(from, "no relationship named %q", from)
	}
	if !into {
		rel.SetAttr(AttrChecked, "1")
		rel.SetAttr(AttrMerged, "0")
		return nil
	}

	target := d.FindNode("", to)
	if target == nil {
		return invalidDecision(to, "no entity or relationship named %q", to)
	}
	if target == rel {
		return invalidDecision(from, "cannot merge %s into itself", from)
	}
	relID, _ := rel.Attr(AttrID)

	rel.SetAttr(AttrChecked, "1")
	rel.SetAttr(AttrMerged, "1")

	next := 0
	for _, a := range target.ChildrenByTag(TagAttribute) {
		if v, ok := a.Attr(AttrRelation); ok && v == relID {
			return nil
		}
		if n, err := strconv.Atoi(a.AttrOr(AttrID, "")); err == nil && n > next {
			next = n
		}
	}

	link := &Element{}
	link.XMLName.Local = TagAttribute
	link.SetAttr(AttrID, strconv.Itoa(next+1))
	link.SetAttr(AttrRelation, relID)
	link.SetAttr(AttrFolded, "1")
	target.Children = append(target.Children, link)
	return nil
}

func invalidDecision(node, format string, args ...any) error {
	return models.NewResolveError(models.ErrInvalidDecision, node, format, args...)
}
