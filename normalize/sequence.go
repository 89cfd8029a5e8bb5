package normalize

import (
	"errors"
	"sort"

	"github.com/theimaginaryfoundation/browse-o-bot/archive"
)

// Sequencer flattens one conversation's message tree into the ordered
// RenderUnit sequence a page renders from. It is stateless apart from its
// configuration and safe to share across workers.
type Sequencer struct {
	roles      RoleTable
	classifier *Classifier
}

// NewSequencer returns a Sequencer using the given role labels and content
// classifier.
func NewSequencer(roles RoleTable, classifier *Classifier) *Sequencer {
	return &Sequencer{roles: roles, classifier: classifier}
}

// Sequence orders the conversation's message nodes chronologically and
// reduces each message's content. Messages sort by their own create_time,
// falling back to the node's, falling back to zero; garbage timestamps sort
// first, they never error. Ties keep the mapping's document order, so the
// output is deterministic for a given input file.
//
// A *FormatError return means the conversation does not follow the export
// schema; other errors come from staging side effects.
func (s *Sequencer) Sequence(conv *archive.Conversation) ([]RenderUnit, error) {
	if conv == nil {
		return nil, errors.New("Sequence: conv is nil")
	}
	if conv.Mapping == nil {
		return nil, &FormatError{Reason: "conversation has no mapping"}
	}

	nodes := make([]archive.Node, 0, len(conv.Mapping.Nodes))
	for _, n := range conv.Mapping.Nodes {
		if n.Message != nil {
			nodes = append(nodes, n)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return sortKey(nodes[i]) < sortKey(nodes[j])
	})

	var units []RenderUnit
	for _, node := range nodes {
		msg := node.Message
		role := s.roles.Label(msg.RawRole())
		audience := msg.RawAudience()

		us, err := s.classifier.Reduce(msg.Content, role, audience)
		if err != nil {
			return nil, err
		}
		units = append(units, us...)
	}
	return units, nil
}

func sortKey(n archive.Node) float64 {
	if n.Message != nil && n.Message.CreateTime != 0 {
		return n.Message.CreateTime.Seconds()
	}
	if n.CreateTime != 0 {
		return n.CreateTime.Seconds()
	}
	return 0
}
