package extract

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/pui/internal/idcodec"
	"github.com/standardbeagle/pui/internal/store"
)

// StableSymbolID derives the content-addressed identifier invariant to
// re-parses of unchanged code: base63(xxhash64(path|kind|qualifiedname|startline)).
func StableSymbolID(path string, kind store.SymbolKind, qualifiedName string, startLine int) string {
	key := fmt.Sprintf("%s|%s|%s|%d", path, kind, qualifiedName, startLine)
	return idcodec.Encode(xxhash.Sum64String(key))
}
