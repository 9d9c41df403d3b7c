package parser

import (
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// parserPool recycles tree-sitter parsers bound to one grammar. Analysis
// workers lease a parser per file:
//
//	sp := pool.get()
//	defer pool.put(sp)
type parserPool struct {
	lang   *sitter.Language
	pool   sync.Pool
	leased atomic.Int64
}

func newParserPool(lang *sitter.Language) *parserPool {
	p := &parserPool{lang: lang}
	p.pool.New = func() any {
		sp := sitter.NewParser()
		if err := sp.SetLanguage(lang); err != nil {
			sp.Close()
			return nil
		}
		return sp
	}
	return p
}

// get returns a parser set to the pool's grammar, or nil when the grammar is
// incompatible with the linked tree-sitter runtime.
func (p *parserPool) get() *sitter.Parser {
	sp, _ := p.pool.Get().(*sitter.Parser)
	if sp == nil {
		return nil
	}
	p.leased.Add(1)
	return sp
}

// put resets sp and makes it available again. sp must not be used afterwards.
func (p *parserPool) put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leased.Add(-1)
	sp.Reset()
	p.pool.Put(sp)
}

func (p *parserPool) inUse() int {
	return int(p.leased.Load())
}
