package testutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/udisondev/growgo/internal/catalog"
)

// CatalogPath возвращает путь к тестовому каталогу предметов.
func CatalogPath(tb testing.TB, name string) string {
	tb.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		tb.Fatal("resolving testutil path")
	}
	return filepath.Join(filepath.Dir(file), "..", "catalog", "testdata", name)
}

// Catalogs загружает тестовые каталоги (items.yaml основной, items_alt.yaml альтернативный).
func Catalogs(tb testing.TB) *catalog.Set {
	tb.Helper()
	set, err := catalog.LoadSet(CatalogPath(tb, "items.yaml"), CatalogPath(tb, "items_alt.yaml"))
	if err != nil {
		tb.Fatalf("loading test catalogs: %v", err)
	}
	return set
}
