package parser

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tsxGrammar = Grammar{Lang: LanguageTypeScript, IsTSX: true}

func TestParse_ConcurrentAcrossGrammars(t *testing.T) {
	manager := NewParserManager(testLogger(), Options{PoolSize: 4})
	defer manager.Close()

	grammars := []Grammar{tsxGrammar, {Lang: LanguageTypeScript}, {Lang: LanguageJavaScript}}
	source := []byte("const x = <Panel open />;")

	const parses = 120
	var failures atomic.Int32
	wg := conc.NewWaitGroup()
	for i := range parses {
		wg.Go(func() {
			tree, err := manager.Parse(source, grammars[i%len(grammars)])
			if err != nil {
				failures.Add(1)
				return
			}
			tree.Close()
		})
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	stats := manager.GetStats()
	assert.LessOrEqual(t, stats.ParsersCreated, 4*len(grammars), "pool size caps parsers per grammar")
	assert.Equal(t, parses, stats.ParsesCalled)
}

func TestGrammarPool_BlocksAtCapacity(t *testing.T) {
	langPtr, err := LanguagePointer(tsxGrammar)
	require.NoError(t, err)
	pool := newGrammarPool(tsxGrammar, langPtr, 1, testLogger())
	defer pool.close()

	first, err := pool.get()
	require.NoError(t, err)

	got := make(chan struct{})
	go func() {
		p, err := pool.get()
		if err == nil {
			pool.put(p)
		}
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("second get returned while the only parser was lent out")
	case <-time.After(50 * time.Millisecond):
	}

	pool.put(first)
	<-got
	assert.Equal(t, 1, pool.parsersCreated(), "the released parser is reused")
}

func TestGrammarPool_Close(t *testing.T) {
	langPtr, err := LanguagePointer(tsxGrammar)
	require.NoError(t, err)
	pool := newGrammarPool(tsxGrammar, langPtr, 2, testLogger())

	lent, err := pool.get()
	require.NoError(t, err)
	idle, err := pool.get()
	require.NoError(t, err)
	pool.put(idle)

	assert.Equal(t, 1, pool.close(), "only idle parsers are freed by close")
	pool.put(lent)

	_, err = pool.get()
	assert.ErrorContains(t, err, "closed")
}

// TestStatsDuringParses exercises stats reads alongside parses.
// Run with: go test -race ./pkg/parser
func TestStatsDuringParses(t *testing.T) {
	manager := NewParserManager(testLogger(), Options{})
	defer manager.Close()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if tree, err := manager.Parse([]byte("<A />"), Grammar{Lang: LanguageJavaScript}); err == nil {
				tree.Close()
			}
		}()
		go func() {
			defer wg.Done()
			_ = manager.GetStats()
		}()
	}
	wg.Wait()
}

func BenchmarkConcurrentParsing(b *testing.B) {
	manager := NewParserManager(testLogger(), Options{})
	defer manager.Close()

	source := []byte("export const App = () => <Layout><Header title=\"x\" /></Layout>;")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tree, err := manager.Parse(source, tsxGrammar)
			if err != nil {
				b.Fatal(err)
			}
			tree.Close()
		}
	})
}
