package wrapped

import "fmt"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

func isRetainedRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// ReconstructThread walks a conversation from current_node back to its root and returns the
// retained messages in chronological order.
//
// Nodes without a message, with another role, or with empty content are skipped; the walk
// continues through their parent. A conversation whose current node is absent yields nothing.
// A parent chain that revisits a node is reported as ErrMalformedArchive.
func ReconstructThread(conv Conversation) ([]RawMessage, error) {
	if len(conv.Mapping) == 0 || conv.CurrentNode == "" {
		return nil, nil
	}

	var out []RawMessage
	visited := make(map[string]struct{}, len(conv.Mapping))
	limit := len(conv.Mapping) + 1

	cur := conv.CurrentNode
	for steps := 0; cur != ""; steps++ {
		if steps > limit {
			return nil, fmt.Errorf("ReconstructThread: conversation %q: %w: parent chain exceeds %d steps", conv.Key(), ErrMalformedArchive, limit)
		}
		if _, ok := visited[cur]; ok {
			return nil, fmt.Errorf("ReconstructThread: conversation %q: %w: parent cycle at node %q", conv.Key(), ErrMalformedArchive, cur)
		}
		visited[cur] = struct{}{}

		node, ok := conv.Mapping[cur]
		if !ok {
			break
		}
		if m := node.Message; m != nil && isRetainedRole(m.Author.Role) {
			if _, nonEmpty := decodeContent(m.Content); nonEmpty {
				out = append(out, *m)
			}
		}
		if node.Parent == nil {
			break
		}
		cur = *node.Parent
	}

	// Reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
