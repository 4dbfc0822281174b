// The document format: human-readable Markdown that still carries
// every field needed for lossless re-import. Relational metadata rides
// in a YAML front matter sidecar; each entity is a heading followed by
// a fenced YAML metadata block and its description as prose. The
// parser trusts only the front matter and the fenced blocks, never the
// prose or the heading layout.
package transfer

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sietch-labs/sietch/pkg/types"
)

const (
	documentVersion = 1
	frontMatterMark = "---"
	metaFenceOpen   = "```yaml"
	metaFenceClose  = "```"
)

type docFrontMatter struct {
	Version      int              `yaml:"version"`
	ExportedAt   time.Time        `yaml:"exported_at"`
	Associations []docAssociation `yaml:"associations,omitempty"`
	Annotations  []docAnnotation  `yaml:"annotations,omitempty"`
}

type docAssociation struct {
	Left      string    `yaml:"left"` // "kind:id"
	Right     string    `yaml:"right"`
	Type      string    `yaml:"type"`
	Payload   string    `yaml:"payload,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

type docAnnotation struct {
	Target    string    `yaml:"target"`
	Type      string    `yaml:"type"`
	Value     string    `yaml:"value"`
	CreatedAt time.Time `yaml:"created_at"`
}

// docMeta is the per-entity fenced metadata block. Parent and order
// carry the hierarchy edge for tree-kind entities.
type docMeta struct {
	Kind        string         `yaml:"kind"`
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Fields      map[string]any `yaml:"fields,omitempty"`
	Parent      string         `yaml:"parent,omitempty"`
	Order       int            `yaml:"order,omitempty"`
	CreatedAt   time.Time      `yaml:"created_at"`
	UpdatedAt   time.Time      `yaml:"updated_at"`
}

// encodeDocument renders a batch as a Markdown document. Tree kinds
// nest headings by depth; everything else is a flat section per kind.
func encodeDocument(batch *types.Batch) ([]byte, error) {
	fm := docFrontMatter{
		Version:    documentVersion,
		ExportedAt: time.Now().UTC(),
	}
	for _, a := range batch.Associations {
		fm.Associations = append(fm.Associations, docAssociation{
			Left:      a.Left.String(),
			Right:     a.Right.String(),
			Type:      a.RelationType,
			Payload:   a.Payload,
			CreatedAt: a.CreatedAt,
		})
	}
	for _, a := range batch.Annotations {
		fm.Annotations = append(fm.Annotations, docAnnotation{
			Target:    a.Target.String(),
			Type:      a.Type,
			Value:     a.Value,
			CreatedAt: a.CreatedAt,
		})
	}

	fmBytes, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterMark + "\n")
	buf.Write(fmBytes)
	buf.WriteString(frontMatterMark + "\n\n")

	parentOf := map[types.Ref]*types.HierarchyEdge{}
	childrenOf := map[types.Ref][]types.HierarchyEdge{}
	for i := range batch.Edges {
		e := batch.Edges[i]
		parentOf[e.Child()] = &batch.Edges[i]
		childrenOf[e.Parent()] = append(childrenOf[e.Parent()], e)
	}
	for ref := range childrenOf {
		edges := childrenOf[ref]
		sort.Slice(edges, func(i, j int) bool { return edges[i].OrderIndex < edges[j].OrderIndex })
	}

	byRef := map[types.Ref]*types.Entity{}
	byKind := map[string][]*types.Entity{}
	for _, e := range batch.Entities {
		byRef[e.Ref()] = e
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	for _, kind := range types.Kinds() {
		entities := byKind[kind]
		if len(entities) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "## %s\n\n", kind)

		if !types.TreeKind(kind) {
			for _, e := range entities {
				if err := writeEntitySection(&buf, e, nil, 3); err != nil {
					return nil, err
				}
			}
			continue
		}

		// Tree kinds render pre-order from their roots; entities whose
		// parent fell outside the batch render as roots.
		for _, e := range entities {
			edge := parentOf[e.Ref()]
			if edge != nil {
				if _, ok := byRef[edge.Parent()]; ok {
					continue
				}
			}
			if err := writeTreeSection(&buf, e, parentOf, childrenOf, byRef, 3); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

func writeTreeSection(buf *bytes.Buffer, e *types.Entity,
	parentOf map[types.Ref]*types.HierarchyEdge,
	childrenOf map[types.Ref][]types.HierarchyEdge,
	byRef map[types.Ref]*types.Entity, level int) error {

	if err := writeEntitySection(buf, e, parentOf[e.Ref()], level); err != nil {
		return err
	}
	next := level + 1
	if next > 6 {
		next = 6
	}
	for _, edge := range childrenOf[e.Ref()] {
		child, ok := byRef[edge.Child()]
		if !ok {
			continue
		}
		if err := writeTreeSection(buf, child, parentOf, childrenOf, byRef, next); err != nil {
			return err
		}
	}
	return nil
}

func writeEntitySection(buf *bytes.Buffer, e *types.Entity, edge *types.HierarchyEdge, level int) error {
	meta := docMeta{
		Kind:        e.Kind,
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Fields:      e.Fields,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if edge != nil {
		meta.Parent = edge.ParentID
		meta.Order = edge.OrderIndex
	}
	metaBytes, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", e.Ref(), err)
	}

	fmt.Fprintf(buf, "%s %s\n\n", strings.Repeat("#", level), e.Name)
	buf.WriteString(metaFenceOpen + "\n")
	buf.Write(metaBytes)
	buf.WriteString(metaFenceClose + "\n\n")
	if e.Description != "" {
		buf.WriteString(e.Description)
		buf.WriteString("\n\n")
	}
	return nil
}

// decodeDocument parses a Markdown document into an unstaged batch.
// Only the front matter and the fenced metadata blocks are read; a
// malformed block fails the whole parse with ErrParse.
func decodeDocument(data []byte) (*types.Batch, error) {
	fm, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}
	if fm.Version != documentVersion {
		return nil, fmt.Errorf("%w: unsupported document version %d", types.ErrParse, fm.Version)
	}

	batch := &types.Batch{}
	for _, a := range fm.Associations {
		left, err := types.ParseRef(a.Left)
		if err != nil {
			return nil, fmt.Errorf("%w: association left %q", types.ErrParse, a.Left)
		}
		right, err := types.ParseRef(a.Right)
		if err != nil {
			return nil, fmt.Errorf("%w: association right %q", types.ErrParse, a.Right)
		}
		batch.Associations = append(batch.Associations, types.Association{
			Left:         left,
			Right:        right,
			RelationType: a.Type,
			Payload:      a.Payload,
			CreatedAt:    a.CreatedAt,
		})
	}
	for _, a := range fm.Annotations {
		target, err := types.ParseRef(a.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: annotation target %q", types.ErrParse, a.Target)
		}
		batch.Annotations = append(batch.Annotations, types.Annotation{
			Target:    target,
			Type:      a.Type,
			Value:     a.Value,
			CreatedAt: a.CreatedAt,
		})
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inBlock := false
	var block strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case !inBlock && strings.TrimSpace(line) == metaFenceOpen:
			inBlock = true
			block.Reset()
		case inBlock && strings.TrimSpace(line) == metaFenceClose:
			inBlock = false
			if err := appendDocEntity(batch, block.String()); err != nil {
				return nil, err
			}
		case inBlock:
			block.WriteString(line)
			block.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	if inBlock {
		return nil, fmt.Errorf("%w: unterminated metadata block", types.ErrParse)
	}
	return batch, nil
}

// appendDocEntity parses one fenced metadata block into an entity and,
// when present, its hierarchy edge.
func appendDocEntity(batch *types.Batch, blockYAML string) error {
	var meta docMeta
	if err := yaml.Unmarshal([]byte(blockYAML), &meta); err != nil {
		return fmt.Errorf("%w: metadata block: %v", types.ErrParse, err)
	}
	if meta.Kind == "" || meta.ID == "" {
		return fmt.Errorf("%w: metadata block missing kind or id", types.ErrParse)
	}

	batch.Entities = append(batch.Entities, &types.Entity{
		Kind:        meta.Kind,
		ID:          meta.ID,
		Name:        meta.Name,
		Description: meta.Description,
		Fields:      meta.Fields,
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	})
	if meta.Parent != "" {
		batch.Edges = append(batch.Edges, types.HierarchyEdge{
			TreeKind:   meta.Kind,
			ParentID:   meta.Parent,
			ChildID:    meta.ID,
			OrderIndex: meta.Order,
		})
	}
	return nil
}

// splitFrontMatter separates the leading YAML front matter from the
// Markdown body.
func splitFrontMatter(data []byte) (*docFrontMatter, []byte, error) {
	text := string(data)
	if !strings.HasPrefix(text, frontMatterMark+"\n") {
		return nil, nil, fmt.Errorf("%w: missing front matter", types.ErrParse)
	}
	rest := text[len(frontMatterMark)+1:]
	idx := strings.Index(rest, "\n"+frontMatterMark+"\n")
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: unterminated front matter", types.ErrParse)
	}
	var fm docFrontMatter
	if err := yaml.Unmarshal([]byte(rest[:idx+1]), &fm); err != nil {
		return nil, nil, fmt.Errorf("%w: front matter: %v", types.ErrParse, err)
	}
	return &fm, []byte(rest[idx+len(frontMatterMark)+2:]), nil
}
