package classify

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// maxDepth bounds the nesting of a document, aliases included.
const maxDepth = 512

var (
	errMultipleDocuments = errors.New("expected a single document in the stream")
	errTooDeep           = errors.New("document nested too deeply")
)

// parse decodes a single-document YAML stream into JSON-compatible values.
// Duplicate mapping keys are accepted and the last one wins. An empty stream
// is a null document.
func parse(content []byte) (any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))

	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	var next yaml.Node
	if err := dec.Decode(&next); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, errMultipleDocuments
	}
	return nodeValue(&root, 0)
}

func nodeValue(n *yaml.Node, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0], depth+1)
	case yaml.AliasNode:
		return nodeValue(n.Alias, depth+1)
	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := nodeValue(item, depth+1)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		return mappingValue(n, depth)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// mappingValue builds a mapping. Keys from "<<" merges only fill keys the
// mapping does not define itself.
func mappingValue(n *yaml.Node, depth int) (map[string]any, error) {
	m := make(map[string]any, len(n.Content)/2)
	var merged []map[string]any
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		val, err := nodeValue(valNode, depth+1)
		if err != nil {
			return nil, err
		}
		if keyNode.Kind == yaml.ScalarNode && keyNode.Tag == "!!merge" {
			src, err := mergeSources(val)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", keyNode.Line, err)
			}
			merged = append(merged, src...)
			continue
		}
		key, err := nodeValue(keyNode, depth+1)
		if err != nil {
			return nil, err
		}
		m[keyString(key)] = val
	}
	for _, src := range merged {
		for k, v := range src {
			if _, ok := m[k]; !ok {
				m[k] = v
			}
		}
	}
	return m, nil
}

func mergeSources(v any) ([]map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, errors.New("map merge requires a mapping or a sequence of mappings")
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, errors.New("map merge requires a mapping or a sequence of mappings")
	}
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	if k == nil {
		return "null"
	}
	return fmt.Sprint(k)
}
