package testkit

import (
	"context"
	"sync"

	"github.com/storefront-go/storefront/pkg/storage"
)

// MemoryDisk is a storage.Disk kept in a map. Set FailPut to make uploads
// fail.
type MemoryDisk struct {
	mu      sync.Mutex
	files   map[string][]byte
	FailPut error
	puts    int
}

var _ storage.Disk = (*MemoryDisk)(nil)

func NewMemoryDisk() *MemoryDisk {
	return &MemoryDisk{files: make(map[string][]byte)}
}

func (d *MemoryDisk) Put(ctx context.Context, key string, content []byte, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.puts++
	if d.FailPut != nil {
		return d.FailPut
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.files[key] = append([]byte(nil), content...)
	return nil
}

func (d *MemoryDisk) Get(_ context.Context, key string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (d *MemoryDisk) Exists(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[key]
	return ok, nil
}

func (d *MemoryDisk) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, key)
	return nil
}

func (d *MemoryDisk) URL(key string) string { return "https://files.test/" + key }

// Puts counts every Put call, failed ones included.
func (d *MemoryDisk) Puts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.puts
}
