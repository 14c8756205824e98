package hints

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
)

type grammar int

const (
	langGo grammar = iota
	langJava
	langJavaScript
)

func (g grammar) language() *sitter.Language {
	switch g {
	case langJava:
		return java.GetLanguage()
	case langJavaScript:
		return javascript.GetLanguage()
	default:
		return golang.GetLanguage()
	}
}

func (g grammar) String() string {
	switch g {
	case langJava:
		return "tree-sitter-java"
	case langJavaScript:
		return "tree-sitter-javascript"
	default:
		return "tree-sitter-go"
	}
}

// treeSitterProvider locates the statement covering the line in the post
// revision and searches the pre revision AST for a matching statement.
type treeSitterProvider struct {
	grammar grammar
}

func newTreeSitterProvider(g grammar) *treeSitterProvider {
	return &treeSitterProvider{grammar: g}
}

func (p *treeSitterProvider) Available() bool { return true }

func (p *treeSitterProvider) Classify(ctx context.Context, pre, post []byte, line int) (Hint, error) {
	postTree, err := p.parse(ctx, post)
	if err != nil {
		return Hint{}, err
	}
	defer postTree.Close()

	row := uint32(line - 1)
	stmt := statementAt(postTree.RootNode(), row)
	if stmt == nil {
		return Hint{Kind: KindUnknown, Confidence: 0.3, Tool: p.grammar.String()}, nil
	}
	target := normalize(stmt.Content(post))
	targetType := stmt.Type()

	preTree, err := p.parse(ctx, pre)
	if err != nil {
		return Hint{}, err
	}
	defer preTree.Close()

	bestRatio := 0.0
	bestLine := 0
	var exact *sitter.Node
	walk(preTree.RootNode(), func(n *sitter.Node) {
		if n.Type() != targetType {
			return
		}
		text := normalize(n.Content(pre))
		if text == target && exact == nil {
			exact = n
			return
		}
		if r := similarity(text, target); r > bestRatio {
			bestRatio = r
			bestLine = int(n.StartPoint().Row) + 1
		}
	})

	switch {
	case exact != nil && exact.StartPoint().Row == stmt.StartPoint().Row:
		return Hint{Kind: KindUnchanged, SourceLine: int(exact.StartPoint().Row) + 1, Confidence: 0.95, Tool: p.grammar.String()}, nil
	case exact != nil:
		return Hint{Kind: KindMove, SourceLine: int(exact.StartPoint().Row) + 1, Confidence: 0.9, Tool: p.grammar.String()}, nil
	case bestRatio >= minUpdateSimilarity:
		return Hint{Kind: KindUpdate, SourceLine: bestLine, Confidence: bestRatio, Tool: p.grammar.String()}, nil
	default:
		return Hint{Kind: KindInsert, Confidence: 0.8, Tool: p.grammar.String()}, nil
	}
}

func (p *treeSitterProvider) parse(ctx context.Context, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.grammar.language())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s source: %w", p.grammar, err)
	}
	return tree, nil
}

// statementAt returns the outermost named node that starts on the row, so a
// construct beginning there is matched whole. When no node starts on the row
// the smallest named node covering it is used instead.
func statementAt(root *sitter.Node, row uint32) *sitter.Node {
	var starting *sitter.Node
	var smallest *sitter.Node
	walk(root, func(n *sitter.Node) {
		if n == root {
			return
		}
		if n.StartPoint().Row > row || n.EndPoint().Row < row {
			return
		}
		if n.StartPoint().Row == row && (starting == nil || span(n) > span(starting)) {
			starting = n
		}
		if smallest == nil || span(n) <= span(smallest) {
			smallest = n
		}
	})
	if starting != nil {
		return starting
	}
	return smallest
}

func span(n *sitter.Node) uint32 {
	return n.EndByte() - n.StartByte()
}

func walk(n *sitter.Node, fn func(*sitter.Node)) {
	if n == nil {
		return
	}
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}
