package integration

import (
	"crypto/sha256"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sir_venger/upload_lite/internal/app/uploadhttp"
	meta "github.com/sir_venger/upload_lite/internal/repo"
	"github.com/sir_venger/upload_lite/internal/usecase/uploadsvc"
)

// node — один процесс сервиса загрузок поверх каталога данных.
type node struct {
	srv *httptest.Server
	svc *uploadsvc.Manager
}

func startNode(t *testing.T, dataDir string, flushDelay time.Duration) *node {
	t.Helper()

	store, err := meta.NewFileStore(dataDir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	svc, err := uploadsvc.New(uploadsvc.Deps{
		Store:            store,
		DataDir:          dataDir,
		DefaultChunkSize: 4 << 10,
		MaxChunkSize:     1 << 20,
		FlushDelay:       flushDelay,
		FlushWorkers:     2,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	srv := httptest.NewServer(uploadhttp.New(svc, uploadhttp.Options{DataDir: dataDir, GCTTL: 24 * time.Hour}))
	t.Cleanup(srv.Close)

	return &node{srv: srv, svc: svc}
}

func sum(b []byte) [32]byte { return sha256.Sum256(b) }

// ageTree сдвигает время изменения каталога и его файлов в прошлое.
func ageTree(t *testing.T, dir string, age time.Duration) {
	t.Helper()

	old := time.Now().Add(-age)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if err := os.Chtimes(filepath.Join(dir, e.Name()), old, old); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Chtimes(dir, old, old); err != nil {
		t.Fatal(err)
	}
}
