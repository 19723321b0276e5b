package persistence

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"
)

const memoryKeySeparator = "\x00"

type memoryStore struct {
	data cmap.ConcurrentMap[string, []byte]
}

// NewMemoryStore creates a KeyValueStore that lives only as long as the process
func NewMemoryStore() KeyValueStore {
	return &memoryStore{
		data: cmap.New[[]byte](),
	}
}

func memoryKey(bucket string, key string) string {
	return bucket + memoryKeySeparator + key
}

func (m *memoryStore) Init() error {
	return nil
}

func (m *memoryStore) Load(bucket string, key string, out interface{}) error {
	data, ok := m.data.Get(memoryKey(bucket, key))
	if !ok {
		return os.ErrNotExist
	}
	if err := json.Unmarshal(data, out); err != nil {
		m.data.Remove(memoryKey(bucket, key))
		return os.ErrNotExist
	}
	return nil
}

func (m *memoryStore) Save(bucket string, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data.Set(memoryKey(bucket, key), data)
	return nil
}

func (m *memoryStore) Delete(bucket string, key string) error {
	m.data.Remove(memoryKey(bucket, key))
	return nil
}

func (m *memoryStore) Keys(bucket string) ([]string, error) {
	prefix := bucket + memoryKeySeparator
	var keys []string
	for _, k := range m.data.Keys() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}
